package driven

import "context"

// AnswerGenerator produces text from a prompt and a system instruction.
// Implementations must be safe for concurrent use.
//
// Implementations may include:
//   - OpenAI (gpt-4-turbo, gpt-4o)
//   - Anthropic (Claude models)
//   - Ollama (local models)
type AnswerGenerator interface {
	// Generate returns the complete answer.
	Generate(ctx context.Context, prompt, system string, opts GenerateOptions) (string, error)

	// GenerateStream returns the answer as incremental segments.
	// Concatenating every Text reconstructs the full answer. A failure after
	// the stream has started arrives as a final chunk with Err set. The
	// channel is closed when the stream ends or ctx is cancelled.
	GenerateStream(ctx context.Context, prompt, system string, opts GenerateOptions) (<-chan StreamChunk, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation.
type GenerateOptions struct {
	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation.
	StopWords []string
}

// StreamChunk is one segment of a streamed answer.
type StreamChunk struct {
	// Text is the next piece of the answer.
	Text string

	// Err is set on the final chunk when the stream failed.
	Err error
}
