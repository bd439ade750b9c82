// Package tui provides an interactive terminal chat for asking compliance
// questions. It is a driving adapter over the answer and health ports.
package tui

import (
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports used by the TUI.
type Ports struct {
	// Answer runs the question answering pipeline.
	Answer driving.AnswerService

	// Health reports backend status. Optional.
	Health driving.HealthService

	// Options are applied to every question asked from the chat.
	Options domain.AnswerOptions
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	if _, err := p.Options.Normalise(); err != nil {
		return ErrInvalidPorts
	}
	return nil
}
