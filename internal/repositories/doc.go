// Package repositories implements the storage collaborator for the song play star schema.
//
// Loaders depend only on the [Store], [Tx] and [Writer] interfaces, so they can run against any engine or an in-memory fake.
//
// Key Implementations:
//   - [SQLStore] : database/sql backed store for SQLite (mattn/go-sqlite3) and PostgreSQL (pgx stdlib)
//   - [PgxStore] : native pgx/v5 pool backed store for PostgreSQL
//
// A [Tx] spans one input file. Every statement runs inside its own savepoint, so a failing row is rolled back on its own
// and never aborts the surrounding transaction or undoes rows that already succeeded.
// Dimension inserts are idempotent on their natural keys and users are upserted so the latest level wins.
package repositories
