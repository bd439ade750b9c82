// Package pdf provides a Normaliser implementation for PDF documents.
// Text is extracted page by page with a pure Go parser, so no external
// pdftotext binary is needed.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles PDF documents.
type Normaliser struct{}

// New creates a new PDF normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise extracts the text of every page. Pages are separated by a
// newline. Scanned PDFs without a text layer yield empty content.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	content, title, err := extract(ctx, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw.URI, err)
	}

	filename := raw.Filename
	if filename == "" {
		filename = filepath.Base(raw.URI)
	}
	if title == "" {
		title = titleFromFilename(filename)
	}

	metadata := make(map[string]string, len(raw.Metadata)+2)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	metadata["mime_type"] = raw.MIMEType
	metadata["format"] = "pdf"

	return &domain.Document{
		URI:       raw.URI,
		Filename:  filename,
		FileType:  "pdf",
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}, nil
}

// extract returns the plain text and the Info dictionary title.
// The parser panics on some malformed files, so panics become ErrInvalidInput.
func extract(ctx context.Context, data []byte) (content, title string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf (%v): %w", r, domain.ErrInvalidInput)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", fmt.Errorf("not a pdf: %w", domain.ErrInvalidInput)
	}

	fonts := make(map[string]*pdf.Font)
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return "", "", fmt.Errorf("page %d: %w", i, domain.ErrInvalidInput)
		}
		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n")
	}

	title = strings.TrimSpace(r.Trailer().Key("Info").Key("Title").Text())
	return strings.TrimSpace(b.String()), title, nil
}

func titleFromFilename(filename string) string {
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
