package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

const (
	contextPreamble  = "Based on the following compliance documents:\n\n"
	truncationMarker = "..."
	unknownDocument  = "Unknown document"
)

// ContextAssembler turns ranked fragments into the bounded prompt context.
// It is safe for concurrent use.
type ContextAssembler struct {
	charLimit int
}

// NewContextAssembler creates an assembler that keeps at most charLimit
// characters of each fragment. A non-positive limit selects the local default.
func NewContextAssembler(charLimit int) *ContextAssembler {
	if charLimit <= 0 {
		charLimit = domain.LocalContextCharLimit
	}
	return &ContextAssembler{charLimit: charLimit}
}

// CharLimit returns the per-fragment character cap.
func (a *ContextAssembler) CharLimit() int {
	return a.charLimit
}

// Build renders fragments in the given order. Callers must not pass an
// empty slice; the pipeline answers with the fallback message instead.
func (a *ContextAssembler) Build(fragments []domain.RankedFragment) string {
	var b strings.Builder
	b.WriteString(contextPreamble)

	for i, f := range fragments {
		name := f.Metadata.Filename
		if name == "" {
			name = unknownDocument
		}
		fmt.Fprintf(&b, "Document %d (%s):\n%s\n\n", i+1, name, truncate(f.Content, a.charLimit))
	}

	return b.String()
}

// truncate cuts s to limit characters and appends the truncation marker
// when anything was removed.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + truncationMarker
}
