package plaintext

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/yaml",
		"text/toml",
		"text/x-log",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise converts a raw document to a normalised document.
// The Content field holds the text as-is apart from line ending cleanup.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	filename := raw.Filename
	if filename == "" {
		filename = filepath.Base(raw.URI)
	}

	content := strings.ReplaceAll(string(raw.Content), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")

	metadata := copyMetadata(raw.Metadata)
	metadata["mime_type"] = raw.MIMEType

	return &domain.Document{
		URI:       raw.URI,
		Filename:  filename,
		FileType:  domain.FileTypeFromName(filename),
		Title:     extractTitleFromMetadataOrName(raw.Metadata, filename),
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}, nil
}

// extractTitleFromMetadataOrName prefers a source-provided title.
func extractTitleFromMetadataOrName(metadata map[string]string, filename string) string {
	if title := metadata["title"]; title != "" {
		return title
	}
	return extractTitle(filename)
}

// extractTitle extracts a human-readable title from a file name.
func extractTitle(filename string) string {
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

func copyMetadata(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
