// Package database opens the relational store behind internal/dedup.
//
// Two engines are supported:
//   - PostgreSQL: pgx connection pool, exposed as *sql.DB through pgx/stdlib
//   - SQLite: modernc.org/sqlite file database, for local runs and tests
//
// Both are handed to the store as a *sql.DB so the same SQL serves either.
package database
