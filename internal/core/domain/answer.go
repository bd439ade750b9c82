package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Question and context limits for a single pipeline run.
const (
	// DefaultContextLimit is used when the caller does not choose a limit.
	DefaultContextLimit = 5

	// MinContextLimit is the smallest accepted context limit.
	MinContextLimit = 1

	// MaxContextLimit is the largest accepted context limit.
	MaxContextLimit = 10

	// MaxQuestionLength is the maximum question length in characters.
	MaxQuestionLength = 2000

	// MaxPreviewLength is the maximum length of a source content preview.
	MaxPreviewLength = 200
)

// Confidence is a coarse quality signal derived from retrieval scores.
type Confidence string

// Confidence levels.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"

	// ConfidenceError marks a result produced after a collaborator failed.
	ConfidenceError Confidence = "error"
)

// IsValid returns true if the confidence level is recognised.
func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow, ConfidenceError:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (c Confidence) String() string {
	return string(c)
}

// SourceReference links an answer back to the fragment it was built from.
type SourceReference struct {
	DocumentID     int64   `json:"document_id"`
	Filename       string  `json:"filename"`
	ChunkIndex     int     `json:"chunk_index"`
	RelevanceScore float64 `json:"relevance_score"`
	FileType       string  `json:"file_type"`
	ContentPreview string  `json:"content_preview,omitempty"`
}

// PipelineResult is the outcome of answering one question.
// ContextUsed always equals len(Sources).
type PipelineResult struct {
	Answer      string            `json:"answer"`
	Sources     []SourceReference `json:"sources"`
	Confidence  Confidence        `json:"confidence"`
	ContextUsed int               `json:"context_used"`
}

// AnswerOptions controls a single pipeline run.
type AnswerOptions struct {
	// ContextLimit is the number of fragments to retrieve (1..10).
	// Zero selects DefaultContextLimit.
	ContextLimit int

	// Scope restricts retrieval to matching fragments.
	Scope Scope
}

// Normalise applies defaults and validates the options.
// The scope is normalised with Scope.Normalise.
func (o AnswerOptions) Normalise() (AnswerOptions, error) {
	if o.ContextLimit == 0 {
		o.ContextLimit = DefaultContextLimit
	}
	if o.ContextLimit < MinContextLimit || o.ContextLimit > MaxContextLimit {
		return o, fmt.Errorf("context limit must be %d-%d: %w", MinContextLimit, MaxContextLimit, ErrInvalidInput)
	}
	scope, err := o.Scope.Normalise()
	if err != nil {
		return o, err
	}
	o.Scope = scope
	return o, nil
}

// ValidateQuestion checks that a question is non-empty and within the length limit.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" || utf8.RuneCountInString(question) > MaxQuestionLength {
		return ErrInvalidInput
	}
	return nil
}
