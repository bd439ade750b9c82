package connectors

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// WithMetadata wraps a source so every document it yields carries md.
// Keys the source already set on a document are kept.
func WithMetadata(src driven.DocumentSource, md map[string]string) driven.DocumentSource {
	if len(md) == 0 {
		return src
	}
	copied := make(map[string]string, len(md))
	for k, v := range md {
		copied[k] = v
	}
	return &taggedSource{DocumentSource: src, metadata: copied}
}

type taggedSource struct {
	driven.DocumentSource
	metadata map[string]string
}

func (t *taggedSource) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs, errs := t.DocumentSource.Fetch(ctx)
	out := make(chan domain.RawDocument)

	go func() {
		defer close(out)
		for doc := range docs {
			doc.Metadata = merge(doc.Metadata, t.metadata)
			select {
			case out <- doc:
			case <-ctx.Done():
				// Drain so the wrapped source can finish and close its channels.
				for range docs {
				}
				return
			}
		}
	}()

	return out, errs
}

func merge(dst, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(dst)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range dst {
		merged[k] = v
	}
	return merged
}
