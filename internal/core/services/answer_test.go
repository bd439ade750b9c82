package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

func newTestAnswerService(store *mockChunkStore, gen *mockGenerator) *AnswerService {
	return NewAnswerService(store, gen, nil, DefaultAnswerConfig())
}

func TestAnswer_EmptyRetrievalReturnsFallback(t *testing.T) {
	for _, q := range []string{"irrelevant gibberish", "What is SOC 2?", "x"} {
		store := &mockChunkStore{}
		gen := &mockGenerator{answer: "should not be used"}
		svc := newTestAnswerService(store, gen)

		result, err := svc.Answer(context.Background(), q, domain.AnswerOptions{})
		require.NoError(t, err)

		assert.Equal(t, domain.InsufficientInformationAnswer, result.Answer)
		assert.Equal(t, domain.ConfidenceLow, result.Confidence)
		assert.NotNil(t, result.Sources)
		assert.Empty(t, result.Sources)
		assert.Equal(t, 0, result.ContextUsed)
		assert.Equal(t, 0, gen.generateCalls)
		assert.Equal(t, 0, gen.streamCalls)
	}
}

func TestAnswer_ContextUsedMatchesSources(t *testing.T) {
	for n := 1; n <= domain.MaxContextLimit; n++ {
		results := make([]domain.RankedFragment, n)
		for i := range results {
			results[i] = ranked("f", 0.9-float64(i)*0.01, "doc.pdf", int64(i))
		}
		store := &mockChunkStore{results: results}
		svc := newTestAnswerService(store, &mockGenerator{answer: "ok"})

		result, err := svc.Answer(context.Background(), "retention?", domain.AnswerOptions{ContextLimit: domain.MaxContextLimit})
		require.NoError(t, err)
		assert.Equal(t, n, result.ContextUsed)
		assert.Len(t, result.Sources, n)
	}
}

func TestAnswer_ScenarioHighConfidence(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{
		ranked("a", 0.9, "retention.pdf", 1),
		ranked("b", 0.85, "gdpr.pdf", 2),
		ranked("c", 0.82, "policy.docx", 3),
	}}
	gen := &mockGenerator{answer: "Records are retained for seven years."}
	svc := newTestAnswerService(store, gen)

	result, err := svc.Answer(context.Background(), "What is the data retention period?", domain.AnswerOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Records are retained for seven years.", result.Answer)
	assert.Equal(t, domain.ConfidenceHigh, result.Confidence)
	assert.Equal(t, 3, result.ContextUsed)
	require.Len(t, result.Sources, 3)
	assert.Equal(t, 0.9, result.Sources[0].RelevanceScore)
	assert.Equal(t, 0.85, result.Sources[1].RelevanceScore)
	assert.Equal(t, 0.82, result.Sources[2].RelevanceScore)

	assert.Equal(t, domain.DefaultContextLimit, store.lastLimit)
	assert.Equal(t, 1, gen.generateCalls)
	assert.Equal(t, driven.GenerateOptions{MaxTokens: 1000, Temperature: 0.1}, gen.lastOpts)
	assert.Equal(t, domain.DefaultComplianceSystemPrompt, gen.lastSystem)
	assert.Contains(t, gen.lastPrompt, "Document 1 (retention.pdf):")
	assert.Contains(t, gen.lastPrompt, "What is the data retention period?")
}

func TestAnswer_ScenarioGibberish(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{}}
	gen := &mockGenerator{}
	svc := newTestAnswerService(store, gen)

	result, err := svc.Answer(context.Background(), "irrelevant gibberish", domain.AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.InsufficientInformationAnswer, result.Answer)
	assert.Equal(t, domain.ConfidenceLow, result.Confidence)
	assert.Empty(t, result.Sources)
}

func TestAnswer_ScenarioContextLimitOne(t *testing.T) {
	// The store ignores the limit and returns five fragments.
	store := &mockChunkStore{results: []domain.RankedFragment{
		ranked("a", 0.7, "a.pdf", 1),
		ranked("b", 0.95, "b.pdf", 2),
		ranked("c", 0.6, "c.pdf", 3),
		ranked("d", 0.5, "d.pdf", 4),
		ranked("e", 0.4, "e.pdf", 5),
	}}
	svc := newTestAnswerService(store, &mockGenerator{answer: "ok"})

	result, err := svc.Answer(context.Background(), "question", domain.AnswerOptions{ContextLimit: 1})
	require.NoError(t, err)

	assert.Equal(t, 1, store.queryCalls)
	assert.Equal(t, 1, store.lastLimit)
	assert.Equal(t, 1, result.ContextUsed)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "b.pdf", result.Sources[0].Filename)
}

func TestAnswer_GenerationFailureKeepsSources(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{
		ranked("a", 0.9, "a.pdf", 1),
		ranked("b", 0.7, "b.pdf", 2),
	}}
	gen := &mockGenerator{generateErr: errors.New("model overloaded")}
	svc := newTestAnswerService(store, gen)

	result, err := svc.Answer(context.Background(), "question", domain.AnswerOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceError, result.Confidence)
	assert.Len(t, result.Sources, 2)
	assert.Equal(t, 2, result.ContextUsed)
	assert.True(t, strings.HasPrefix(result.Answer, "I encountered an error while generating the answer:"))
	assert.Contains(t, result.Answer, "model overloaded")
	assert.Equal(t, 1, gen.generateCalls)
}

func TestAnswer_RetrievalFailure(t *testing.T) {
	store := &mockChunkStore{queryErr: errors.New("connection refused")}
	gen := &mockGenerator{}
	svc := newTestAnswerService(store, gen)

	result, err := svc.Answer(context.Background(), "question", domain.AnswerOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.ConfidenceError, result.Confidence)
	assert.Empty(t, result.Sources)
	assert.Equal(t, 0, result.ContextUsed)
	assert.True(t, strings.HasPrefix(result.Answer, "I encountered an error while retrieving relevant documents:"))
	assert.Contains(t, result.Answer, "connection refused")
	assert.Equal(t, 0, gen.generateCalls)
	// No retries.
	assert.Equal(t, 1, store.queryCalls)
}

func TestAnswer_MalformedFragmentIsRetrievalFailure(t *testing.T) {
	tests := []struct {
		name string
		frag domain.RankedFragment
	}{
		{"empty content", domain.RankedFragment{Fragment: domain.Fragment{ID: "x"}, Score: 0.5}},
		{"score above one", ranked("x", 1.5, "a.pdf", 1)},
		{"negative score", ranked("x", -0.1, "a.pdf", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockChunkStore{results: []domain.RankedFragment{tt.frag}}
			gen := &mockGenerator{}
			svc := newTestAnswerService(store, gen)

			result, err := svc.Answer(context.Background(), "question", domain.AnswerOptions{})
			require.NoError(t, err)
			assert.Equal(t, domain.ConfidenceError, result.Confidence)
			assert.Equal(t, 0, gen.generateCalls)
		})
	}
}

func TestAnswer_ScopePassedToStore(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{ranked("a", 0.9, "a.pdf", 1)}}
	svc := newTestAnswerService(store, &mockGenerator{answer: "ok"})

	scope := domain.Scope{"owner_id": "7"}
	_, err := svc.Answer(context.Background(), "question", domain.AnswerOptions{ContextLimit: 3, Scope: scope})
	require.NoError(t, err)

	assert.Equal(t, scope, store.lastScope)
	assert.Equal(t, 3, store.lastLimit)
	assert.Equal(t, "question", store.lastQuery)
}

func TestAnswer_NumericScopeMatchesAcrossStores(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChunkStore(&mockEmbeddingService{})
	require.NoError(t, store.Index(ctx, domain.Fragment{
		ID: "f7", Content: "Retention is seven years.",
		Metadata: domain.FragmentMetadata{DocumentID: 7, Filename: "sox.md"},
	}))
	require.NoError(t, store.Index(ctx, domain.Fragment{
		ID: "f8", Content: "Breaches are reported in 72 hours.",
		Metadata: domain.FragmentMetadata{DocumentID: 8, Filename: "gdpr.md"},
	}))
	svc := NewAnswerService(store, &mockGenerator{answer: "ok"}, nil, DefaultAnswerConfig())

	result, err := svc.Answer(ctx, "retention?", domain.AnswerOptions{
		Scope: domain.Scope{domain.MetaDocumentID: "007"},
	})
	require.NoError(t, err)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, int64(7), result.Sources[0].DocumentID)

	_, err = svc.Answer(ctx, "retention?", domain.AnswerOptions{
		Scope: domain.Scope{domain.MetaDocumentID: "seven"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAnswer_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		question string
		limit    int
	}{
		{"empty question", "", 5},
		{"blank question", "   ", 5},
		{"question too long", strings.Repeat("q", domain.MaxQuestionLength+1), 5},
		{"limit too large", "question", 11},
		{"negative limit", "question", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockChunkStore{}
			svc := newTestAnswerService(store, &mockGenerator{})

			result, err := svc.Answer(context.Background(), tt.question, domain.AnswerOptions{ContextLimit: tt.limit})
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Nil(t, result)
			assert.Equal(t, 0, store.queryCalls)
		})
	}
}

func TestAnswer_UsesPromptStore(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{ranked("a", 0.9, "a.pdf", 1)}}
	gen := &mockGenerator{answer: "ok"}
	prompts := &mockPromptStore{prompts: map[string]string{
		driven.PromptComplianceSystem: "Custom system",
		driven.PromptComplianceUser:   "Q: {question}\nC: {context}",
	}}
	svc := NewAnswerService(store, gen, prompts, DefaultAnswerConfig())

	_, err := svc.Answer(context.Background(), "why?", domain.AnswerOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Custom system", gen.lastSystem)
	assert.True(t, strings.HasPrefix(gen.lastPrompt, "Q: why?\nC: Based on the following compliance documents:"))
}

func TestAnswer_PromptStoreFailureIsGenerationError(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{ranked("a", 0.9, "a.pdf", 1)}}
	gen := &mockGenerator{answer: "ok"}
	prompts := &mockPromptStore{err: errors.New("permission denied")}
	svc := NewAnswerService(store, gen, prompts, DefaultAnswerConfig())

	result, err := svc.Answer(context.Background(), "why?", domain.AnswerOptions{})
	require.NoError(t, err)
	assert.Equal(t, domain.ConfidenceError, result.Confidence)
	assert.Len(t, result.Sources, 1)
	assert.Equal(t, 0, gen.generateCalls)
}

func TestAnswer_CloudCharLimit(t *testing.T) {
	f := ranked("a", 0.9, "a.pdf", 1)
	f.Content = strings.Repeat("c", 2000)
	store := &mockChunkStore{results: []domain.RankedFragment{f}}
	gen := &mockGenerator{answer: "ok"}

	cfg := AnswerConfigFromSettings(domain.DefaultSettings(domain.ProfileCloud).Pipeline)
	svc := NewAnswerService(store, gen, nil, cfg)

	_, err := svc.Answer(context.Background(), "q", domain.AnswerOptions{})
	require.NoError(t, err)
	assert.Contains(t, gen.lastPrompt, strings.Repeat("c", 500)+"...")
	assert.NotContains(t, gen.lastPrompt, strings.Repeat("c", 501))
}

func TestAnswerConfigFromSettings(t *testing.T) {
	cfg := AnswerConfigFromSettings(domain.PipelineSettings{})
	assert.Equal(t, DefaultAnswerConfig(), cfg)

	cfg = AnswerConfigFromSettings(domain.PipelineSettings{ContextCharLimit: 300, Temperature: 0.5, MaxTokens: 200})
	assert.Equal(t, 300, cfg.ContextCharLimit)
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.Equal(t, 200, cfg.MaxTokens)
}

// --- Streaming ---

func TestAnswerStream_EventOrder(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{
		ranked("a", 0.9, "a.pdf", 1),
		ranked("b", 0.65, "b.pdf", 2),
	}}
	gen := &mockGenerator{chunks: []driven.StreamChunk{{Text: "Seven "}, {Text: ""}, {Text: "years."}}}
	svc := newTestAnswerService(store, gen)

	ch, err := svc.AnswerStream(context.Background(), "retention?", domain.AnswerOptions{})
	require.NoError(t, err)
	events := collect(ch)

	require.Len(t, events, 4)
	assert.Equal(t, domain.EventSourcesReady, events[0].Type)
	assert.Len(t, events[0].Sources, 2)
	assert.Equal(t, 2, events[0].ContextUsed)
	assert.Equal(t, domain.ConfidenceMedium, events[0].Confidence)
	assert.Equal(t, domain.EventAnswerChunk, events[1].Type)
	assert.Equal(t, "Seven ", events[1].Content)
	assert.Equal(t, "years.", events[2].Content)
	assert.Equal(t, domain.EventFinished, events[3].Type)
	assert.Equal(t, 1, gen.streamCalls)
	assert.Equal(t, 0, gen.generateCalls)
}

func TestAnswerStream_EmptyRetrieval(t *testing.T) {
	store := &mockChunkStore{}
	gen := &mockGenerator{}
	svc := newTestAnswerService(store, gen)

	ch, err := svc.AnswerStream(context.Background(), "question", domain.AnswerOptions{})
	require.NoError(t, err)
	events := collect(ch)

	require.Len(t, events, 2)
	assert.Equal(t, domain.EventAnswerChunk, events[0].Type)
	assert.Equal(t, domain.InsufficientInformationAnswer, events[0].Content)
	assert.Equal(t, domain.EventFinished, events[1].Type)
	assert.Equal(t, 0, gen.streamCalls)
}

func TestAnswerStream_RetrievalError(t *testing.T) {
	store := &mockChunkStore{queryErr: errors.New("timeout")}
	svc := newTestAnswerService(store, &mockGenerator{})

	ch, err := svc.AnswerStream(context.Background(), "question", domain.AnswerOptions{})
	require.NoError(t, err)
	events := collect(ch)

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0].Type)
	assert.Contains(t, events[0].Error, "timeout")
}

func TestAnswerStream_GenerationStartError(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{ranked("a", 0.9, "a.pdf", 1)}}
	gen := &mockGenerator{streamErr: errors.New("401 unauthorized")}
	svc := newTestAnswerService(store, gen)

	ch, err := svc.AnswerStream(context.Background(), "question", domain.AnswerOptions{})
	require.NoError(t, err)
	events := collect(ch)

	require.Len(t, events, 2)
	assert.Equal(t, domain.EventSourcesReady, events[0].Type)
	assert.Equal(t, domain.EventError, events[1].Type)
	assert.Contains(t, events[1].Error, "401 unauthorized")
}

func TestAnswerStream_MidStreamErrorIsTerminal(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{ranked("a", 0.9, "a.pdf", 1)}}
	gen := &mockGenerator{chunks: []driven.StreamChunk{
		{Text: "partial"},
		{Err: errors.New("stream reset")},
		{Text: "never delivered"},
	}}
	svc := newTestAnswerService(store, gen)

	ch, err := svc.AnswerStream(context.Background(), "question", domain.AnswerOptions{})
	require.NoError(t, err)
	events := collect(ch)

	require.Len(t, events, 3)
	assert.Equal(t, domain.EventSourcesReady, events[0].Type)
	assert.Equal(t, domain.EventAnswerChunk, events[1].Type)
	assert.Equal(t, domain.EventError, events[2].Type)
	for _, ev := range events {
		assert.NotEqual(t, domain.EventFinished, ev.Type)
	}
}

func TestAnswerStream_CancellationStopsWithoutFinished(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{ranked("a", 0.9, "a.pdf", 1)}}
	gen := &mockGenerator{chunks: []driven.StreamChunk{{Text: "first"}}, hold: true}
	svc := newTestAnswerService(store, gen)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := svc.AnswerStream(ctx, "question", domain.AnswerOptions{})
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, domain.EventSourcesReady, first.Type)
	second := <-ch
	assert.Equal(t, domain.EventAnswerChunk, second.Type)

	cancel()

	done := make(chan []domain.ProgressEvent)
	go func() { done <- collect(ch) }()

	select {
	case rest := <-done:
		for _, ev := range rest {
			assert.NotEqual(t, domain.EventFinished, ev.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

func TestAnswerStream_CancelledDuringRetrieval(t *testing.T) {
	store := &mockChunkStore{block: true}
	gen := &mockGenerator{}
	svc := newTestAnswerService(store, gen)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := svc.AnswerStream(ctx, "question", domain.AnswerOptions{})
	require.NoError(t, err)
	cancel()

	done := make(chan []domain.ProgressEvent)
	go func() { done <- collect(ch) }()

	select {
	case <-done:
		assert.Equal(t, 0, gen.streamCalls)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}
}

func TestAnswerStream_InvalidInput(t *testing.T) {
	svc := newTestAnswerService(&mockChunkStore{}, &mockGenerator{})
	ch, err := svc.AnswerStream(context.Background(), "", domain.AnswerOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, ch)
}

func TestSearch_ReturnsFormattedSources(t *testing.T) {
	store := &mockChunkStore{results: []domain.RankedFragment{
		ranked("a", 0.5, "a.pdf", 1),
		ranked("b", 0.9, "b.pdf", 2),
	}}
	gen := &mockGenerator{}
	svc := newTestAnswerService(store, gen)

	sources, err := svc.Search(context.Background(), "query", domain.AnswerOptions{ContextLimit: 2})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "b.pdf", sources[0].Filename)
	assert.Equal(t, 0, gen.generateCalls)
}

func TestSearch_RetrievalError(t *testing.T) {
	store := &mockChunkStore{queryErr: errors.New("down")}
	svc := newTestAnswerService(store, &mockGenerator{})

	_, err := svc.Search(context.Background(), "query", domain.AnswerOptions{})
	assert.ErrorIs(t, err, domain.ErrRetrievalFailed)
}
