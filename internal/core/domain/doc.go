// Package domain defines the core business entities for complyqa.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Fragment: A retrievable slice of compliance document text
//   - RankedFragment: A fragment annotated with a retrieval score
//   - SourceReference: The provenance record returned with an answer
//   - PipelineResult: The outcome of one question
//   - ProgressEvent: A single event of a streamed answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
