// Package ingest runs one batch of the ingestion pipeline.
//
// A batch fetches one page of disclosures, then for each record in feed order
// inserts the trade and, when the trade is new, captures its price series and
// options chain once. Failures inside one record are logged to the error table
// and counted; they never abort the rest of the batch. Only a failed feed
// fetch, or a failure to write the error log itself, aborts a batch.
package ingest
