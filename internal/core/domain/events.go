package domain

// ProgressEventType tags the variant carried by a ProgressEvent.
// The string values double as the wire names for server-sent events.
type ProgressEventType string

// Progress event types.
const (
	EventSourcesReady ProgressEventType = "sources"
	EventAnswerChunk  ProgressEventType = "answer_chunk"
	EventError        ProgressEventType = "error"
	EventFinished     ProgressEventType = "finished"
)

// ProgressEvent is one step of a streamed answer.
// Only the fields belonging to Type are populated.
type ProgressEvent struct {
	Type ProgressEventType `json:"type"`

	// SourcesReady fields.
	Sources     []SourceReference `json:"sources,omitempty"`
	Confidence  Confidence        `json:"confidence,omitempty"`
	ContextUsed int               `json:"context_used,omitempty"`

	// AnswerChunk field.
	Content string `json:"content,omitempty"`

	// Error field.
	Error string `json:"error,omitempty"`
}

// SourcesReadyEvent announces the sources before any answer text.
func SourcesReadyEvent(sources []SourceReference, confidence Confidence, contextUsed int) ProgressEvent {
	return ProgressEvent{
		Type:        EventSourcesReady,
		Sources:     sources,
		Confidence:  confidence,
		ContextUsed: contextUsed,
	}
}

// AnswerChunkEvent carries one incremental piece of the answer.
func AnswerChunkEvent(text string) ProgressEvent {
	return ProgressEvent{Type: EventAnswerChunk, Content: text}
}

// ErrorEvent terminates a stream with a failure message.
func ErrorEvent(message string) ProgressEvent {
	return ProgressEvent{Type: EventError, Error: message}
}

// FinishedEvent terminates a successful stream.
func FinishedEvent() ProgressEvent {
	return ProgressEvent{Type: EventFinished}
}

// IsTerminal returns true for the events that end a stream.
func (e ProgressEvent) IsTerminal() bool {
	return e.Type == EventFinished || e.Type == EventError
}
