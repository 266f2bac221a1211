// Package model defines shared data types used across the insider-trades pipeline.
//
// All types mirror the database schema created by internal/dedup.
//
// Conventions:
//   - Disclosure fields: *string, nil when the feed omits the field or sends null
//   - Prices and greeks: decimal.NullDecimal, invalid when the provider sends null
//   - Dates: time.Time truncated to the UTC day
//   - Identity: lowercase hex SHA-256 of the identity fields (see Hash)
package model
