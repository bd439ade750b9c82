// Package sources renders the document fragments an answer was built from.
package sources

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/complyqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// List renders source references with their relevance scores.
type List struct {
	styles      *styles.Styles
	width       int
	showPreview bool
}

// NewList creates a new source list renderer.
func NewList(s *styles.Styles) *List {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &List{styles: s, width: 80, showPreview: true}
}

// Render formats the sources together with the answer confidence.
func (l *List) Render(refs []domain.SourceReference, confidence domain.Confidence) string {
	if len(refs) == 0 {
		return l.styles.Muted.Render("  No sources")
	}

	lines := make([]string, 0, len(refs)*2+1)
	header := l.styles.Subtitle.Render(fmt.Sprintf("  Sources (%d)", len(refs)))
	if confidence != "" {
		header += "  " + l.styles.Confidence(confidence).Render(string(confidence)+" confidence")
	}
	lines = append(lines, header)

	for i, ref := range refs {
		title := fmt.Sprintf("  [%d] %s (chunk %d)", i+1, ref.Filename, ref.ChunkIndex)
		score := fmt.Sprintf("%.2f", ref.RelevanceScore)
		lines = append(lines, l.styles.SourceTitle.Render(title)+"  "+l.styles.Score.Render(score))

		if l.showPreview && ref.ContentPreview != "" {
			lines = append(lines, l.styles.Preview.Render("      "+l.truncate(oneLine(ref.ContentPreview))))
		}
	}
	return strings.Join(lines, "\n")
}

// SetWidth sets the available width.
func (l *List) SetWidth(width int) {
	l.width = width
}

// SetShowPreview toggles content previews.
func (l *List) SetShowPreview(show bool) {
	l.showPreview = show
}

func (l *List) truncate(s string) string {
	maxLen := l.width - 10
	if maxLen < 20 {
		maxLen = 20
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
