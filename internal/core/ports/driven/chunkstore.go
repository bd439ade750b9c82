package driven

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// ChunkStore holds embedded fragments and answers similarity queries.
// Implementations must be safe for concurrent use.
//
// Adapters own metadata normalisation: whatever key names a backend
// stores (e.g. file_name), fragments leave the store with the canonical
// domain.FragmentMetadata fields populated.
type ChunkStore interface {
	// Index embeds and stores one fragment.
	Index(ctx context.Context, fragment domain.Fragment) error

	// Query returns at most limit fragments ranked by descending score.
	// The scope is applied inside the similarity search, before the
	// limit is enforced, so a scoped query is never under-filled by
	// out-of-scope neighbours.
	Query(ctx context.Context, text string, limit int, scope domain.Scope) ([]domain.RankedFragment, error)

	// ReplaceDocument swaps a document's stored fragments for the given set.
	// Every fragment is embedded before stored data changes; on error the
	// previously stored fragments are left in place.
	ReplaceDocument(ctx context.Context, documentID int64, fragments []domain.Fragment) error

	// DeleteDocument removes every fragment of a document.
	DeleteDocument(ctx context.Context, documentID int64) error

	// Count returns the number of stored fragments.
	// It doubles as a liveness probe.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
