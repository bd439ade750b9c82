// Package sqlite provides an embedded SQLite implementation of driven.ChunkStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Fragments are stored with their embedding as a little-endian float32 BLOB.
// Additional metadata lives in a key/value side table so scope filters can be
// applied in SQL before similarity ranking.
//
// # Data Location
//
// By default, the database is stored at ~/.complyqa/data/fragments.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite
