package github

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Config holds the settings for a GitHub document source.
type Config struct {
	// Owner and Repo identify the repository.
	Owner string
	Repo  string

	// Branch to read. Empty means the repository's default branch.
	Branch string

	// Paths restricts the fetch to files under these directory prefixes.
	// Empty means the whole repository.
	Paths []string

	// FilePatterns are glob patterns matched against the file name or full path.
	// Empty means all files.
	FilePatterns []string

	// Token is a personal access token. Optional for public repositories.
	Token string

	// BaseURL overrides the API endpoint, for GitHub Enterprise.
	BaseURL string

	// MaxFileSize skips larger files. Zero uses DefaultMaxFileSize.
	MaxFileSize int
}

// ParseRepository splits "owner/repo" into its parts.
func ParseRepository(s string) (owner, repo string, err error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "https://github.com/"), ".git")
	owner, repo, ok := strings.Cut(s, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("repository %q must be owner/repo: %w", s, domain.ErrInvalidInput)
	}
	return owner, repo, nil
}

// ParsePatterns parses a comma-separated glob patterns string.
func ParsePatterns(s string) []string {
	parts := strings.Split(s, ",")
	patterns := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			patterns = append(patterns, part)
		}
	}
	return patterns
}

// Validate checks the required fields.
func (c *Config) Validate() error {
	if c.Owner == "" || c.Repo == "" {
		return fmt.Errorf("github owner and repo are required: %w", domain.ErrInvalidInput)
	}
	return nil
}
