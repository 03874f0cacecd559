// Package store provides SQLite-backed execution of compiled queries.
//
// A Store wraps one database connection:
//   - Seed runs a multi-statement SQL script (table setup and fixtures)
//   - Query runs one parameterized SELECT and returns its columns and rows
//   - RecordRun and Runs keep an append-only log of executed queries in
//     the qm_runs table
//
// # Value Mapping
//
// SQLite values are returned as int64, float64, string (TEXT and BLOB) or
// nil. Row order is whatever the statement produces; compiled queries add
// rowid tiebreaks when their compiler asks for stable ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
