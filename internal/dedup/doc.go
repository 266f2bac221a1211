// Package dedup implements the deduplicating store.
//
// Every disclosure is keyed by its content hash (model.TransactionRecord.Hash):
//   - trades: record_hash unique; a re-sighting only updates last_seen_at and batch_id
//   - price_observations: (record_hash, date) unique; captured once per hash
//   - option_quotes: (record_hash, option_symbol) unique; captured once per hash
//   - errors: append-only, indexed by batch_id
//   - batch_metrics: one row per pipeline run
//
// A batch runs in one transaction (Store.WithBatch). Each store operation runs
// inside its own savepoint, so a failed enrichment insert never undoes the trade
// row written before it and never poisons the rest of the batch.
//
// The same SQL runs on PostgreSQL (pgx) and SQLite (modernc); only the DDL
// types and placeholder style differ, see Dialect.
package dedup
