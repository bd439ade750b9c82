package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleHealthResource(t *testing.T) {
	health := &mockHealthService{
		report: domain.HealthReport{
			Status:  domain.HealthDegraded,
			Profile: domain.ProfileLocal,
			Components: []domain.ComponentHealth{
				{Name: "store", Healthy: true},
				{Name: "llm", Healthy: false, Detail: "connection refused"},
			},
		},
	}

	server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Health: health})
	require.NoError(t, err)

	result, err := server.handleHealthResource(context.Background(), makeReadResourceRequest(healthURI))
	require.NoError(t, err)
	require.Len(t, result.Contents, 1)
	assert.Equal(t, "complyqa://health", result.Contents[0].URI)
	assert.Equal(t, "application/json", result.Contents[0].MIMEType)

	var got domain.HealthReport
	require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
	assert.Equal(t, domain.HealthDegraded, got.Status)
	assert.Len(t, got.Components, 2)
	assert.Equal(t, "connection refused", got.Components[1].Detail)
}
