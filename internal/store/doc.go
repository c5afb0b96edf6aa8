// Package store is the relational backend of the catalog.
//
// A catalog table holds one row per catalog entry: the entry's content name
// plus one TEXT column per categorical field of the Schema Binding. The
// query adapter only ever selects a single column (name or one field), and
// Execute returns rows in the order the database produced them.
//
// # Drivers
//
//   - sqlite3 (github.com/mattn/go-sqlite3): default, file-backed
//   - pgx (github.com/jackc/pgx/v5/stdlib): PostgreSQL
//
// # SQLite Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: SQLite has a single writer
//
// # Bookkeeping
//
// The catalog_tables table records the field list each catalog table was
// created with. EnsureCatalogTable refuses to reuse a table under a
// different field list, since positional path assignment would silently
// change meaning.
package store
