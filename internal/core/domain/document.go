package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// Document is an ingested compliance document after normalisation.
// Its text is split into Fragments before indexing.
type Document struct {
	// ID is the numeric document identifier carried by every fragment.
	ID int64

	// URI is the original location (file path, URL, etc).
	URI string

	// Filename is the base name shown in source references.
	Filename string

	// FileType is the short format name (pdf, docx, md, txt).
	FileType string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	Content string

	// Metadata contains additional key-value pairs copied onto fragments.
	Metadata map[string]string

	// CreatedAt is when the document was ingested.
	CreatedAt time.Time
}

// FileTypeFromName derives the short file type from a file name.
func FileTypeFromName(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "":
		return "unknown"
	case "markdown":
		return "md"
	case "text":
		return "txt"
	default:
		return ext
	}
}
