package github

import (
	"fmt"
	"path"
	"strings"

	gh "github.com/google/go-github/v80/github"
)

// DefaultMaxFileSize skips blobs larger than 10MB.
const DefaultMaxFileSize = 10 << 20

// buildFileURI creates a URI for a file.
func buildFileURI(owner, repo, branch, filePath string) string {
	return fmt.Sprintf("github://%s/%s/blob/%s/%s", owner, repo, branch, filePath)
}

// buildHTMLURL creates the browser URL for a file.
func buildHTMLURL(owner, repo, branch, filePath string) string {
	return fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", owner, repo, branch, filePath)
}

// selectEntries returns the tree blobs that pass every filter, in tree order.
func selectEntries(tree *gh.Tree, cfg *Config, accept func(name string) bool) []*gh.TreeEntry {
	maxSize := cfg.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var selected []*gh.TreeEntry
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		p := entry.GetPath()
		if isHiddenPath(p) || !underPaths(p, cfg.Paths) || !matchesPatterns(p, cfg.FilePatterns) {
			continue
		}
		if !accept(path.Base(p)) {
			continue
		}
		if entry.GetSize() > maxSize {
			continue
		}
		selected = append(selected, entry)
	}
	return selected
}

// underPaths checks if a path lies under any of the directory prefixes.
func underPaths(p string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, prefix := range prefixes {
		prefix = strings.Trim(prefix, "/")
		if prefix == "" || p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

// matchesPatterns checks if a path matches any of the glob patterns.
func matchesPatterns(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, pattern := range patterns {
		if matched, err := path.Match(pattern, path.Base(p)); err == nil && matched {
			return true
		}
		// Also try matching against full path
		if matched, err := path.Match(pattern, p); err == nil && matched {
			return true
		}
	}
	return false
}

// isHiddenPath reports whether any path element starts with a dot,
// which skips .github workflows and similar tooling files.
func isHiddenPath(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
