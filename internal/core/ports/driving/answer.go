package driving

import (
	"context"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// AnswerService answers questions from indexed compliance documents.
type AnswerService interface {
	// Answer runs the pipeline once and returns a structured result.
	// The error is non-nil only for invalid input; backend failures are
	// reported through Confidence = error.
	Answer(ctx context.Context, question string, opts domain.AnswerOptions) (*domain.PipelineResult, error)

	// AnswerStream runs the pipeline and streams progress events.
	// The channel ends with Finished or Error and is then closed.
	AnswerStream(ctx context.Context, question string, opts domain.AnswerOptions) (<-chan domain.ProgressEvent, error)

	// Search returns the source references a question would retrieve,
	// without generating an answer.
	Search(ctx context.Context, query string, opts domain.AnswerOptions) ([]domain.SourceReference, error)
}
