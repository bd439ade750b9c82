// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// AnswerStarted carries the event stream for a submitted question.
// Err is set when the question was rejected before streaming began.
type AnswerStarted struct {
	Question string
	Events   <-chan domain.ProgressEvent
	Err      error
}

// ProgressReceived carries one event from the answer stream.
type ProgressReceived struct {
	Event domain.ProgressEvent
}

// StreamClosed signals the answer stream ended.
// A stream closed without a terminal event was cancelled.
type StreamClosed struct{}

// HealthChecked carries a backend health report.
type HealthChecked struct {
	Report domain.HealthReport
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
