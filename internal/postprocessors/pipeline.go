// Package postprocessors turns normalised documents into indexable fragments.
package postprocessors

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure Pipeline implements the Chunker port.
var _ driven.Chunker = (*Pipeline)(nil)

// Pipeline chains PostProcessors and runs them in order.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Name lists the stages, e.g. "chunker+clean".
func (p *Pipeline) Name() string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return strings.Join(names, "+")
}

// Chunk runs the document through all processors in order.
// ChunkIndex is renumbered afterwards so it stays contiguous in document
// order even when a stage drops fragments.
func (p *Pipeline) Chunk(ctx context.Context, doc *domain.Document) ([]domain.Fragment, error) {
	if doc == nil {
		return nil, fmt.Errorf("document is nil: %w", domain.ErrInvalidInput)
	}

	var fragments []domain.Fragment
	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		fragments, err = processor.Process(ctx, doc, fragments)
		if err != nil {
			return nil, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
	}

	for i := range fragments {
		fragments[i].Metadata.ChunkIndex = i
	}
	return fragments, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
