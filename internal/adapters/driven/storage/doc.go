// Package storage holds helpers shared by the chunk store backends.
//
// Backends live in sub-packages:
//
//   - memory: in-process store for tests and throwaway sessions
//   - sqlite: embedded file store (modernc.org/sqlite)
//   - qdrant: Qdrant vector database over REST
//   - pgvector: PostgreSQL with the pgvector extension
//
// Every backend stores fragment metadata in its own shape and converts it
// back with NormaliseMetadata, so callers always see canonical field names.
package storage
