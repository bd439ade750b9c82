package driven

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// DocumentSource fetches raw compliance documents for ingestion.
type DocumentSource interface {
	// Name identifies the source in logs (e.g. "filesystem:/srv/policies").
	Name() string

	// Validate checks the source is reachable and readable.
	Validate(ctx context.Context) error

	// Fetch streams every document in the source.
	// Both channels are closed when fetching completes. Errors on the error
	// channel are per-document and do not stop the fetch.
	Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error)
}

// WatchableSource is a DocumentSource that can report changes as they happen.
type WatchableSource interface {
	DocumentSource

	// Watch streams changes until ctx is cancelled, then closes the channel.
	Watch(ctx context.Context) (<-chan domain.DocumentChange, error)
}
