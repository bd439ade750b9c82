package services

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockChunkStore implements driven.ChunkStore for testing.
// It records the arguments of every Query call.
type mockChunkStore struct {
	mu sync.Mutex

	results  []domain.RankedFragment
	queryErr error
	countErr error
	indexErr error
	count    int

	queryCalls  int
	lastQuery   string
	lastLimit   int
	lastScope   domain.Scope
	indexed      []domain.Fragment
	replacedDocs []int64
	deletedDocs  []int64
	deleteErr    error

	// block makes Query wait for ctx cancellation.
	block bool
}

func (m *mockChunkStore) Index(_ context.Context, f domain.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, f)
	return nil
}

func (m *mockChunkStore) Query(
	ctx context.Context, text string, limit int, scope domain.Scope,
) ([]domain.RankedFragment, error) {
	m.mu.Lock()
	m.queryCalls++
	m.lastQuery = text
	m.lastLimit = limit
	m.lastScope = scope
	block := m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	return m.results, nil
}

func (m *mockChunkStore) ReplaceDocument(_ context.Context, id int64, fragments []domain.Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replacedDocs = append(m.replacedDocs, id)
	if m.indexErr != nil {
		return m.indexErr
	}
	m.indexed = append(m.indexed, fragments...)
	return nil
}

func (m *mockChunkStore) DeleteDocument(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedDocs = append(m.deletedDocs, id)
	return m.deleteErr
}

func (m *mockChunkStore) Count(_ context.Context) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.count, nil
}

func (m *mockChunkStore) Close() error {
	return nil
}

// mockGenerator implements driven.AnswerGenerator for testing.
type mockGenerator struct {
	mu sync.Mutex

	answer      string
	generateErr error
	chunks      []driven.StreamChunk
	streamErr   error
	pingErr     error

	// hold keeps the stream open after the scripted chunks until ctx is done.
	hold bool

	generateCalls int
	streamCalls   int
	lastPrompt    string
	lastSystem    string
	lastOpts      driven.GenerateOptions
}

func (m *mockGenerator) record(prompt, system string, opts driven.GenerateOptions) {
	m.lastPrompt = prompt
	m.lastSystem = system
	m.lastOpts = opts
}

func (m *mockGenerator) Generate(
	_ context.Context, prompt, system string, opts driven.GenerateOptions,
) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateCalls++
	m.record(prompt, system, opts)
	if m.generateErr != nil {
		return "", m.generateErr
	}
	return m.answer, nil
}

func (m *mockGenerator) GenerateStream(
	ctx context.Context, prompt, system string, opts driven.GenerateOptions,
) (<-chan driven.StreamChunk, error) {
	m.mu.Lock()
	m.streamCalls++
	m.record(prompt, system, opts)
	chunks, hold, err := m.chunks, m.hold, m.streamErr
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}

	out := make(chan driven.StreamChunk)
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
		if hold {
			<-ctx.Done()
		}
	}()
	return out, nil
}

func (m *mockGenerator) ModelName() string {
	return "mock-model"
}

func (m *mockGenerator) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockGenerator) Close() error {
	return nil
}

// mockEmbeddingService implements driven.EmbeddingService for testing.
type mockEmbeddingService struct {
	mu      sync.Mutex
	pingErr error

	// failAt makes the nth Embed call (1-based) fail.
	failAt int
	calls  int
}

func (m *mockEmbeddingService) Embed(_ context.Context, _ string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAt > 0 && m.calls == m.failAt {
		return nil, errors.New("embedding quota exceeded")
	}
	return []float32{1, 0}, nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int   { return 2 }
func (m *mockEmbeddingService) ModelName() string { return "mock-embed" }

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return m.pingErr
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockPromptStore implements driven.PromptStore for testing.
type mockPromptStore struct {
	prompts map[string]string
	err     error
	reloads int
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.prompts[name], nil
}

func (m *mockPromptStore) Reload() {
	m.reloads++
}

// mockAIValidator implements driven.AIConfigValidator for testing.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
}

func (m *mockAIValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

// ranked builds a ranked fragment with canonical metadata.
func ranked(id string, score float64, filename string, docID int64) domain.RankedFragment {
	return domain.RankedFragment{
		Fragment: domain.Fragment{
			ID:      id,
			Content: "Content of " + id,
			Metadata: domain.FragmentMetadata{
				DocumentID: docID,
				Filename:   filename,
				ChunkIndex: 0,
				FileType:   "pdf",
			},
		},
		Score: score,
	}
}

// collect drains a progress event channel.
func collect(ch <-chan domain.ProgressEvent) []domain.ProgressEvent {
	var events []domain.ProgressEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}
