// Package mcp provides an MCP (Model Context Protocol) server adapter for complyqa.
// It lets AI assistants ask compliance questions against the indexed documents.
package mcp

import "errors"

// ErrMissingAnswerService is returned when the answer service is not provided.
var ErrMissingAnswerService = errors.New("mcp: answer service is required")
