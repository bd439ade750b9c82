package driving

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// IngestResult summarises one ingested document.
type IngestResult struct {
	DocumentID int64
	Filename   string
	Fragments  int
}

// IngestService turns documents into indexed fragments.
type IngestService interface {
	// IngestRaw normalises, chunks and indexes one raw document.
	// A zero documentID derives a stable ID from the document URI.
	IngestRaw(ctx context.Context, raw *domain.RawDocument, documentID int64) (*IngestResult, error)

	// IngestSource ingests every document a source yields.
	// Per-document failures are reported through onError and skipped.
	IngestSource(
		ctx context.Context, source driven.DocumentSource, onError func(error),
	) ([]IngestResult, error)

	// Watch applies a watched source's changes until ctx is cancelled or
	// the source stops. onChange is called after each applied change.
	Watch(
		ctx context.Context, source driven.WatchableSource, onChange func(domain.DocumentChange, error),
	) error

	// DeleteDocument removes a document's fragments from the store.
	DeleteDocument(ctx context.Context, documentID int64) error
}
