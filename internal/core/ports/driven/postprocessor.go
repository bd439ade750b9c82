package driven

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// PostProcessor is one stage of the ingestion pipeline that turns a
// normalised document into fragments.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process receives the fragments produced so far and returns the new set.
	// The first stage receives nil and creates fragments from doc.Content.
	Process(ctx context.Context, doc *domain.Document, fragments []domain.Fragment) ([]domain.Fragment, error)
}
