package normalisers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
	"github.com/custodia-labs/complyqa/internal/normalisers/docx"
	"github.com/custodia-labs/complyqa/internal/normalisers/html"
	"github.com/custodia-labs/complyqa/internal/normalisers/markdown"
	"github.com/custodia-labs/complyqa/internal/normalisers/pdf"
	"github.com/custodia-labs/complyqa/internal/normalisers/plaintext"
	"github.com/custodia-labs/complyqa/internal/normalisers/xlsx"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// extensionTypes maps file extensions to the MIME types the built-in
// normalisers understand. It is used when a source does not report a
// usable content type.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/x-log",
	".csv":      "text/csv",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pdf":      "application/pdf",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// MIMETypeFromName returns the MIME type for a file name's extension,
// or "application/octet-stream" when the extension is unknown.
func MIMETypeFromName(name string) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "application/octet-stream"
}

// Registry dispatches raw documents to the highest priority normaliser
// registered for their MIME type. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byMIME map[string][]driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byMIME: make(map[string][]driven.Normaliser)}
}

// Defaults creates a registry with every built-in normaliser.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New())
	r.Register(xlsx.New())
	return r
}

// Register adds a normaliser for each MIME type it supports.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range n.SupportedMIMETypes() {
		mimeType = baseType(mimeType)
		list := append(r.byMIME[mimeType], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byMIME[mimeType] = list
	}
}

// SupportedMIMETypes returns all MIME types that can be normalised, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byMIME))
	for t := range r.byMIME {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Supports reports whether a file name maps to a registered MIME type.
func (r *Registry) Supports(name string) bool {
	_, err := r.Select("", name)
	return err == nil
}

// Select picks the normaliser for a MIME type. When the MIME type is empty
// or unregistered, the file name's extension decides.
func (r *Registry) Select(mimeType, name string) (driven.Normaliser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if list := r.byMIME[baseType(mimeType)]; len(list) > 0 {
		return list[0], nil
	}
	if list := r.byMIME[MIMETypeFromName(name)]; len(list) > 0 {
		return list[0], nil
	}
	return nil, fmt.Errorf("no normaliser for %q (%s): %w", name, mimeType, domain.ErrUnsupportedType)
}

// Normalise transforms a raw document using the best matching normaliser.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	name := raw.Filename
	if name == "" {
		name = filepath.Base(raw.URI)
	}

	n, err := r.Select(raw.MIMEType, name)
	if err != nil {
		return nil, err
	}

	normalised := *raw
	if normalised.MIMEType == "" || len(r.lookup(normalised.MIMEType)) == 0 {
		normalised.MIMEType = MIMETypeFromName(name)
	}
	logger.Debug("Normalising %s as %s", name, normalised.MIMEType)

	return n.Normalise(ctx, &normalised)
}

func (r *Registry) lookup(mimeType string) []driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byMIME[baseType(mimeType)]
}

// baseType strips parameters such as charset from a MIME type.
func baseType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
