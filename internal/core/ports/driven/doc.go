// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Answer Pipeline
//
//   - ChunkStore: Stores embedded fragments and runs scoped similarity search
//   - AnswerGenerator: Produces answer text, whole or as a stream
//   - PromptStore: Supplies the system instruction and user template
//
// # Ingestion
//
//   - DocumentSource: Fetches raw documents (filesystem, GitHub)
//   - Normaliser / NormaliserRegistry: Turns raw bytes into document text
//   - Chunker: Splits document text into ordered fragments
//   - EmbeddingService: Generates vector embeddings for stores
//
// # Configuration
//
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, normaliser, or postprocessor package
package driven
