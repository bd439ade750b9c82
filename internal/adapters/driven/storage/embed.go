package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// EmbedFragments checks and embeds a document's new fragment set.
// Backends call it before changing stored data, so a bad fragment or an
// embedding failure leaves the previous version untouched.
func EmbedFragments(
	ctx context.Context, embedder driven.EmbeddingService, documentID int64, fragments []domain.Fragment,
) ([][]float32, error) {
	vectors := make([][]float32, len(fragments))
	for i, f := range fragments {
		if f.ID == "" {
			return nil, fmt.Errorf("fragment %d: id required: %w", i, domain.ErrInvalidInput)
		}
		if f.Metadata.DocumentID != documentID {
			return nil, fmt.Errorf("fragment %s belongs to document %d, not %d: %w",
				f.ID, f.Metadata.DocumentID, documentID, domain.ErrInvalidInput)
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		vec, err := embedder.Embed(ctx, f.Content)
		if err != nil {
			return nil, fmt.Errorf("embed fragment %s: %w", f.ID, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
