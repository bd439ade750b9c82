package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// vocabEmbedder embeds text as word counts over a fixed vocabulary.
type vocabEmbedder struct {
	vocab  []string
	err    error
	failOn string // text containing this word fails to embed
}

func newVocabEmbedder() *vocabEmbedder {
	return &vocabEmbedder{vocab: []string{"gdpr", "retention", "breach", "encryption", "audit"}}
}

func (e *vocabEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding backend rejected input")
	}
	vec := make([]float32, len(e.vocab))
	for _, w := range strings.Fields(strings.ToLower(text)) {
		for i, v := range e.vocab {
			if w == v {
				vec[i]++
			}
		}
	}
	return vec, nil
}

func (e *vocabEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (e *vocabEmbedder) Dimensions() int            { return len(e.vocab) }
func (e *vocabEmbedder) ModelName() string          { return "vocab" }
func (e *vocabEmbedder) Ping(context.Context) error { return e.err }
func (e *vocabEmbedder) Close() error               { return nil }

func fragment(id string, docID int64, content string, extra map[string]string) domain.Fragment {
	return domain.Fragment{
		ID:      id,
		Content: content,
		Metadata: domain.FragmentMetadata{
			DocumentID: docID,
			Filename:   "policy.md",
			FileType:   "md",
			Extra:      extra,
		},
	}
}

func TestChunkStore_IndexAndQuery(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())

	require.NoError(t, store.Index(ctx, fragment("a", 1, "gdpr retention rules", nil)))
	require.NoError(t, store.Index(ctx, fragment("b", 1, "breach notification", nil)))
	require.NoError(t, store.Index(ctx, fragment("c", 2, "encryption at rest", nil)))

	results, err := store.Query(ctx, "gdpr retention", 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.LessOrEqual(t, len(results), 2)
	assert.Equal(t, "a", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)
	}
}

func TestChunkStore_ScopeAppliedBeforeLimit(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())

	// Out-of-scope fragments score higher than the in-scope one.
	for _, id := range []string{"x1", "x2", "x3"} {
		require.NoError(t, store.Index(ctx, fragment(id, 1, "gdpr retention", map[string]string{"owner_id": "2"})))
	}
	require.NoError(t, store.Index(ctx, fragment("mine", 3, "gdpr audit", map[string]string{"owner_id": "7"})))

	results, err := store.Query(ctx, "gdpr retention", 1, domain.Scope{"owner_id": "7"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].ID)
}

func TestChunkStore_ScopeOnCanonicalField(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())
	require.NoError(t, store.Index(ctx, fragment("a", 1, "gdpr", nil)))
	require.NoError(t, store.Index(ctx, fragment("b", 2, "gdpr", nil)))

	results, err := store.Query(ctx, "gdpr", 5, domain.Scope{"document_id": "2"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestChunkStore_TiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())
	for _, id := range []string{"first", "second", "third"} {
		require.NoError(t, store.Index(ctx, fragment(id, 1, "audit", nil)))
	}

	results, err := store.Query(ctx, "audit", 3, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{results[0].ID, results[1].ID, results[2].ID})
}

func TestChunkStore_IndexRejectsInvalid(t *testing.T) {
	store := NewChunkStore(newVocabEmbedder())
	ctx := context.Background()

	err := store.Index(ctx, fragment("", 1, "gdpr", nil))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.Index(ctx, fragment("a", 1, "   ", nil))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestChunkStore_EmbedderError(t *testing.T) {
	embedder := newVocabEmbedder()
	embedder.err = errors.New("embedding backend down")
	store := NewChunkStore(embedder)

	_, err := store.Query(context.Background(), "gdpr", 5, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding backend down")
}

func TestChunkStore_DeleteDocumentAndCount(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())
	require.NoError(t, store.Index(ctx, fragment("a", 1, "gdpr", nil)))
	require.NoError(t, store.Index(ctx, fragment("b", 1, "audit", nil)))
	require.NoError(t, store.Index(ctx, fragment("c", 2, "breach", nil)))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, store.DeleteDocument(ctx, 1))

	n, err = store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkStore_QueryZeroLimit(t *testing.T) {
	store := NewChunkStore(newVocabEmbedder())
	results, err := store.Query(context.Background(), "gdpr", 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChunkStore_Concurrency(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Index(ctx, fragment(string(rune('a'+n)), int64(n), "gdpr audit", nil))
		}(i)
		go func() {
			defer wg.Done()
			_, _ = store.Query(ctx, "gdpr", 5, nil)
		}()
	}
	wg.Wait()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestChunkStore_ReplaceDocument(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())

	require.NoError(t, store.Index(ctx, fragment("a", 1, "gdpr retention v1", nil)))
	require.NoError(t, store.Index(ctx, fragment("b", 1, "breach v1", nil)))
	require.NoError(t, store.Index(ctx, fragment("c", 1, "audit v1", nil)))
	require.NoError(t, store.Index(ctx, fragment("x", 2, "encryption", nil)))

	err := store.ReplaceDocument(ctx, 1, []domain.Fragment{
		fragment("a", 1, "gdpr retention v2", nil),
	})
	require.NoError(t, err)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	results, err := store.Query(ctx, "gdpr", 10, domain.Scope{"document_id": "1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "gdpr retention v2", results[0].Content)
}

func TestChunkStore_ReplaceDocumentFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	embedder := newVocabEmbedder()
	store := NewChunkStore(embedder)

	for _, f := range []domain.Fragment{
		fragment("a", 1, "gdpr v1", nil),
		fragment("b", 1, "breach v1", nil),
		fragment("c", 1, "audit v1", nil),
	} {
		require.NoError(t, store.Index(ctx, f))
	}

	embedder.failOn = "v2"
	err := store.ReplaceDocument(ctx, 1, []domain.Fragment{
		fragment("a", 1, "gdpr v2", nil),
		fragment("b", 1, "breach v2", nil),
	})
	require.Error(t, err)

	embedder.failOn = ""
	results, err := store.Query(ctx, "gdpr breach audit", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Contains(t, r.Content, "v1")
	}
}

func TestChunkStore_ReplaceDocumentRejectsForeignFragment(t *testing.T) {
	ctx := context.Background()
	store := NewChunkStore(newVocabEmbedder())
	require.NoError(t, store.Index(ctx, fragment("a", 1, "gdpr", nil)))

	err := store.ReplaceDocument(ctx, 1, []domain.Fragment{fragment("z", 9, "audit", nil)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
