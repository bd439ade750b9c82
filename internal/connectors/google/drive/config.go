package drive

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/complyqa/internal/connectors/google"
	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// ContentType identifies what content to fetch from Google Drive.
type ContentType string

const (
	// ContentFiles fetches regular uploaded files.
	ContentFiles ContentType = "files"
	// ContentDocs fetches Google Docs (exported to text).
	ContentDocs ContentType = "docs"
	// ContentSheets fetches Google Sheets (exported to CSV).
	ContentSheets ContentType = "sheets"
)

// DefaultContentTypes are the content types fetched by default.
var DefaultContentTypes = []ContentType{ContentFiles, ContentDocs, ContentSheets}

// DefaultMaxFileSize is the largest file downloaded or exported (5MB).
const DefaultMaxFileSize = 5 * 1024 * 1024

// Config holds Google Drive source configuration.
type Config struct {
	// FolderIDs are the Drive folders holding compliance documents.
	FolderIDs []string

	// Recursive descends into sub-folders.
	Recursive bool

	// ContentTypes specifies what types of content to fetch.
	ContentTypes []ContentType

	// MaxResults is the page size for list requests.
	MaxResults int64

	// MaxFileSize skips larger files. Zero uses DefaultMaxFileSize.
	MaxFileSize int64

	// Credentials authenticate the Drive client.
	Credentials google.Credentials
}

// DefaultConfig returns the default configuration for the given folders.
func DefaultConfig(folderIDs ...string) Config {
	return Config{
		FolderIDs:    folderIDs,
		Recursive:    true,
		ContentTypes: DefaultContentTypes,
		MaxResults:   100,
		MaxFileSize:  DefaultMaxFileSize,
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if len(c.FolderIDs) == 0 {
		return fmt.Errorf("at least one drive folder is required: %w", domain.ErrInvalidInput)
	}
	for _, id := range c.FolderIDs {
		if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `'\`) {
			return fmt.Errorf("invalid drive folder id %q: %w", id, domain.ErrInvalidInput)
		}
	}
	if len(c.ContentTypes) == 0 {
		c.ContentTypes = DefaultContentTypes
	}
	if c.MaxResults <= 0 {
		c.MaxResults = 100
	}
	if c.MaxFileSize <= 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	return nil
}

// HasContentType checks if a content type is enabled.
func (c *Config) HasContentType(ct ContentType) bool {
	for _, t := range c.ContentTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// ParseFolderIDs splits a comma-separated folder list, accepting full
// folder URLs such as https://drive.google.com/drive/folders/<id>.
func ParseFolderIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if i := strings.LastIndex(part, "/folders/"); i >= 0 {
			part = part[i+len("/folders/"):]
			if q := strings.IndexAny(part, "?#/"); q >= 0 {
				part = part[:q]
			}
		}
		if part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

// ParseContentTypes splits a comma-separated content type list,
// ignoring unknown entries.
func ParseContentTypes(s string) []ContentType {
	var types []ContentType
	for _, t := range strings.Split(s, ",") {
		ct := ContentType(strings.ToLower(strings.TrimSpace(t)))
		if isValidContentType(ct) {
			types = append(types, ct)
		}
	}
	return types
}

func isValidContentType(ct ContentType) bool {
	switch ct {
	case ContentFiles, ContentDocs, ContentSheets:
		return true
	default:
		return false
	}
}
