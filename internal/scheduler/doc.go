// Package scheduler runs ingestion batches on a cron schedule.
//
// At most one batch runs at a time: a tick that fires while the previous
// batch is still running is skipped, not queued.
package scheduler
