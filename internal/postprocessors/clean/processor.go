// Package clean provides a pipeline stage that tidies fragment text.
package clean

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v]+`)
	blankLines      = regexp.MustCompile(`\n\s*\n\s*\n+`)
)

// Processor collapses runs of whitespace, trims each fragment and drops
// fragments shorter than minLength characters.
type Processor struct {
	minLength int
}

// New creates a clean processor. minLength below 1 is treated as 1, so
// empty fragments never reach the store.
func New(minLength int) *Processor {
	if minLength < 1 {
		minLength = 1
	}
	return &Processor{minLength: minLength}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "clean"
}

// Process cleans the fragments in place and filters short ones.
func (p *Processor) Process(_ context.Context, _ *domain.Document, fragments []domain.Fragment) ([]domain.Fragment, error) {
	out := fragments[:0]
	for _, f := range fragments {
		text := strings.ReplaceAll(f.Content, "\r\n", "\n")
		text = horizontalSpace.ReplaceAllString(text, " ")
		text = blankLines.ReplaceAllString(text, "\n\n")
		text = strings.TrimSpace(text)
		if utf8.RuneCountInString(text) < p.minLength {
			continue
		}
		f.Content = text
		out = append(out, f)
	}
	return out, nil
}
