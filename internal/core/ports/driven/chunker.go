package driven

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Chunker splits a document into ordered fragments.
// Fragment metadata carries the document's ID, filename and file type,
// and ChunkIndex follows document order starting at zero.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits the document content.
	Chunk(ctx context.Context, doc *domain.Document) ([]domain.Fragment, error)
}
