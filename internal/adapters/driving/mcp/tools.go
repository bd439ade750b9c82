package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// AskInput is the input schema for the ask_compliance tool.
type AskInput struct {
	Question     string            `json:"question" jsonschema:"the compliance question to answer"`
	ContextLimit int               `json:"context_limit,omitempty" jsonschema:"number of document fragments to use, 1-10 (default 5)"`
	Scope        map[string]string `json:"scope,omitempty" jsonschema:"metadata filter applied during retrieval"`
}

// SearchInput is the input schema for the search_fragments tool.
type SearchInput struct {
	Query string            `json:"query" jsonschema:"the text to find relevant fragments for"`
	Limit int               `json:"limit,omitempty" jsonschema:"maximum number of fragments to return, 1-10 (default 5)"`
	Scope map[string]string `json:"scope,omitempty" jsonschema:"metadata filter applied during retrieval"`
}

// SearchOutput is the output schema for the search_fragments tool.
type SearchOutput struct {
	Sources []domain.SourceReference `json:"sources"`
	Count   int                      `json:"count"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: "ask_compliance",
		Description: "Answer a question from the indexed compliance documents. " +
			"Returns the answer, the source fragments it was built from, and a confidence level.",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_fragments",
		Description: "Find the compliance document fragments most relevant to a query without generating an answer",
	}, s.handleSearch)
}

// handleAsk handles the ask_compliance tool invocation.
// Backend failures come back as a result with confidence "error".
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, domain.PipelineResult, error) {
	opts := domain.AnswerOptions{
		ContextLimit: input.ContextLimit,
		Scope:        domain.Scope(input.Scope),
	}

	result, err := s.ports.Answer.Answer(ctx, input.Question, opts)
	if err != nil {
		return nil, domain.PipelineResult{}, err
	}
	return nil, *result, nil
}

// handleSearch handles the search_fragments tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.AnswerOptions{
		ContextLimit: input.Limit,
		Scope:        domain.Scope(input.Scope),
	}

	sources, err := s.ports.Answer.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	if sources == nil {
		sources = []domain.SourceReference{}
	}

	return nil, SearchOutput{Sources: sources, Count: len(sources)}, nil
}
