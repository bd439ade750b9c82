package mcp

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	result  *domain.PipelineResult
	sources []domain.SourceReference
	err     error

	question string
	opts     domain.AnswerOptions
}

func (m *mockAnswerService) Answer(
	_ context.Context, question string, opts domain.AnswerOptions,
) (*domain.PipelineResult, error) {
	m.question, m.opts = question, opts
	return m.result, m.err
}

func (m *mockAnswerService) AnswerStream(
	_ context.Context, _ string, _ domain.AnswerOptions,
) (<-chan domain.ProgressEvent, error) {
	ch := make(chan domain.ProgressEvent)
	close(ch)
	return ch, m.err
}

func (m *mockAnswerService) Search(
	_ context.Context, query string, opts domain.AnswerOptions,
) ([]domain.SourceReference, error) {
	m.question, m.opts = query, opts
	return m.sources, m.err
}

// mockHealthService is a mock implementation of driving.HealthService.
type mockHealthService struct {
	report domain.HealthReport
}

func (m *mockHealthService) Check(_ context.Context) domain.HealthReport {
	return m.report
}

// Verify interface compliance.
var (
	_ driving.AnswerService = (*mockAnswerService)(nil)
	_ driving.HealthService = (*mockHealthService)(nil)
)
