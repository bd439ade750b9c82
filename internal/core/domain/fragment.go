package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Canonical metadata keys shared by every chunk store backend.
const (
	MetaDocumentID = "document_id"
	MetaFilename   = "filename"
	MetaChunkIndex = "chunk_index"
	MetaFileType   = "file_type"
)

// FragmentMetadata describes where a fragment came from.
// Zero values mean the field was not recorded.
type FragmentMetadata struct {
	// DocumentID identifies the owning document.
	DocumentID int64

	// Filename is the original file name of the owning document.
	Filename string

	// ChunkIndex is the position of the fragment within its document.
	ChunkIndex int

	// FileType is the document format (pdf, docx, md, txt...).
	FileType string

	// Extra holds additional string metadata such as owner or tenant keys.
	Extra map[string]string
}

// Get returns the metadata value for key as a string.
// Canonical keys are read from their typed fields.
func (m FragmentMetadata) Get(key string) (string, bool) {
	switch key {
	case MetaDocumentID:
		return strconv.FormatInt(m.DocumentID, 10), true
	case MetaFilename:
		return m.Filename, m.Filename != ""
	case MetaChunkIndex:
		return strconv.Itoa(m.ChunkIndex), true
	case MetaFileType:
		return m.FileType, m.FileType != ""
	}
	v, ok := m.Extra[key]
	return v, ok
}

// Map flattens the metadata into a single string map.
func (m FragmentMetadata) Map() map[string]string {
	out := make(map[string]string, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	out[MetaDocumentID] = strconv.FormatInt(m.DocumentID, 10)
	out[MetaChunkIndex] = strconv.Itoa(m.ChunkIndex)
	if m.Filename != "" {
		out[MetaFilename] = m.Filename
	}
	if m.FileType != "" {
		out[MetaFileType] = m.FileType
	}
	return out
}

// Fragment is a retrievable unit of document text.
// Fragments are immutable once indexed.
type Fragment struct {
	// ID is the unique identifier for the fragment.
	ID string

	// Content is the fragment text. It is never empty.
	Content string

	// Metadata records the fragment's provenance.
	Metadata FragmentMetadata
}

// Validate checks the fragment invariants.
func (f Fragment) Validate() error {
	if strings.TrimSpace(f.Content) == "" {
		return ErrInvalidInput
	}
	return nil
}

// RankedFragment is a fragment annotated with a retrieval score in [0,1].
// It exists only for the duration of one query.
type RankedFragment struct {
	Fragment
	Score float64
}

// Scope restricts retrieval to fragments whose metadata matches every entry.
// A nil or empty scope matches everything.
type Scope map[string]string

// Matches reports whether the metadata satisfies every scope entry.
func (s Scope) Matches(m FragmentMetadata) bool {
	for k, want := range s {
		got, ok := m.Get(k)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// IsEmpty returns true if the scope places no restriction.
func (s Scope) IsEmpty() bool {
	return len(s) == 0
}

// Normalise returns a copy of the scope with numeric keys (document_id,
// chunk_index) rewritten in canonical decimal form, so "007" and "7" select
// the same fragments on every backend. A numeric key whose value is not an
// integer is rejected with ErrInvalidInput.
func (s Scope) Normalise() (Scope, error) {
	if s.IsEmpty() {
		return s, nil
	}
	out := make(Scope, len(s))
	for k, v := range s {
		switch k {
		case MetaDocumentID, MetaChunkIndex:
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("scope %s=%q is not an integer: %w", k, v, ErrInvalidInput)
			}
			v = strconv.FormatInt(n, 10)
		}
		out[k] = v
	}
	return out, nil
}

// ParseScope builds a normalised scope from "key=value" pairs.
func ParseScope(pairs []string) (Scope, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	scope := make(Scope, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, ErrInvalidInput
		}
		scope[k] = strings.TrimSpace(v)
	}
	return scope.Normalise()
}
