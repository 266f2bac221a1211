// Package metrics implements the per-batch metrics ledger.
//
// A Batch accumulates:
//   - Timing buckets (trade feed fetch, price fetch, options fetch, database work)
//   - Record counters (processed, inserted, duplicates, enrichment rows, errors)
//   - Final status and exit code, frozen by Complete
//
// Timings accumulate on the error path too: a slow failing call is still time spent.
// API time is derived as the sum of the three fetch buckets.
package metrics
