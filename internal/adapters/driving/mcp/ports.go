package mcp

import (
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Answer runs the question answering pipeline.
	Answer driving.AnswerService

	// Health reports backend status. Optional.
	Health driving.HealthService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
