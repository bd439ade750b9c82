package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// mockNormaliserRegistry returns the raw bytes as document text.
type mockNormaliserRegistry struct {
	err error
}

func (m *mockNormaliserRegistry) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Document{URI: raw.URI, Content: string(raw.Content)}, nil
}

func (m *mockNormaliserRegistry) Register(_ driven.Normaliser) {}

func (m *mockNormaliserRegistry) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// lineChunker splits on newlines.
type lineChunker struct{}

func (lineChunker) Name() string { return "line" }

func (lineChunker) Chunk(_ context.Context, doc *domain.Document) ([]domain.Fragment, error) {
	var out []domain.Fragment
	for i, line := range strings.Split(doc.Content, "\n") {
		extra := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			extra[k] = v
		}
		out = append(out, domain.Fragment{
			ID:      doc.URI + "#" + string(rune('0'+i)),
			Content: line,
			Metadata: domain.FragmentMetadata{
				DocumentID: doc.ID,
				Filename:   doc.Filename,
				ChunkIndex: i,
				FileType:   doc.FileType,
				Extra:      extra,
			},
		})
	}
	return out, nil
}

// mockSource emits scripted documents and errors.
type mockSource struct {
	docs        []domain.RawDocument
	errs        []error
	validateErr error
}

func (m *mockSource) Name() string { return "mock" }

func (m *mockSource) Validate(_ context.Context) error { return m.validateErr }

func (m *mockSource) Fetch(_ context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument, len(m.docs))
	errs := make(chan error, len(m.errs))
	for _, d := range m.docs {
		docs <- d
	}
	for _, e := range m.errs {
		errs <- e
	}
	close(docs)
	close(errs)
	return docs, errs
}

func TestIngestRaw_IndexesFragments(t *testing.T) {
	store := &mockChunkStore{}
	svc := NewIngestService(store, &mockNormaliserRegistry{}, lineChunker{})

	raw := &domain.RawDocument{
		URI:      "/policies/retention.md",
		Filename: "retention.md",
		Content:  []byte("Keep records for seven years.\n\nDelete after expiry."),
		Metadata: map[string]string{"owner_id": "7"},
	}
	res, err := svc.IngestRaw(context.Background(), raw, 42)
	require.NoError(t, err)

	assert.Equal(t, int64(42), res.DocumentID)
	assert.Equal(t, "retention.md", res.Filename)
	// The blank middle line is skipped.
	assert.Equal(t, 2, res.Fragments)
	require.Len(t, store.indexed, 2)

	first := store.indexed[0]
	assert.Equal(t, int64(42), first.Metadata.DocumentID)
	assert.Equal(t, "retention.md", first.Metadata.Filename)
	assert.Equal(t, "md", first.Metadata.FileType)
	assert.Equal(t, 0, first.Metadata.ChunkIndex)
	assert.Equal(t, "7", first.Metadata.Extra["owner_id"])
	assert.Equal(t, 2, store.indexed[1].Metadata.ChunkIndex)

	assert.Equal(t, []int64{42}, store.replacedDocs)
	assert.Empty(t, store.deletedDocs)
}

func TestIngestRaw_DerivesStableDocumentID(t *testing.T) {
	store := &mockChunkStore{}
	svc := NewIngestService(store, &mockNormaliserRegistry{}, lineChunker{})
	raw := &domain.RawDocument{URI: "/a/b.txt", Content: []byte("text")}

	first, err := svc.IngestRaw(context.Background(), raw, 0)
	require.NoError(t, err)
	second, err := svc.IngestRaw(context.Background(), raw, 0)
	require.NoError(t, err)

	assert.Equal(t, first.DocumentID, second.DocumentID)
	assert.Positive(t, first.DocumentID)
	assert.Equal(t, "b.txt", first.Filename)
	assert.Equal(t, []int64{first.DocumentID, first.DocumentID}, store.replacedDocs)
}

func TestIngestRaw_Rejections(t *testing.T) {
	svc := NewIngestService(&mockChunkStore{}, &mockNormaliserRegistry{}, lineChunker{})

	_, err := svc.IngestRaw(context.Background(), nil, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	big := &domain.RawDocument{URI: "big.txt", Content: make([]byte, MaxDocumentSize+1)}
	_, err = svc.IngestRaw(context.Background(), big, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngestRaw_NormaliserError(t *testing.T) {
	store := &mockChunkStore{}
	svc := NewIngestService(store, &mockNormaliserRegistry{err: domain.ErrUnsupportedType}, lineChunker{})

	_, err := svc.IngestRaw(context.Background(), &domain.RawDocument{URI: "x.bin", Content: []byte{1}}, 1)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.Empty(t, store.replacedDocs)
}

func TestIngestRaw_IndexError(t *testing.T) {
	store := &mockChunkStore{indexErr: errors.New("disk full")}
	svc := NewIngestService(store, &mockNormaliserRegistry{}, lineChunker{})

	_, err := svc.IngestRaw(context.Background(), &domain.RawDocument{URI: "a.txt", Content: []byte("text")}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestIngestRaw_FailedReingestKeepsPreviousVersion(t *testing.T) {
	ctx := context.Background()
	embedder := &mockEmbeddingService{}
	store := memory.NewChunkStore(embedder)
	svc := NewIngestService(store, &mockNormaliserRegistry{}, lineChunker{})

	v1 := &domain.RawDocument{URI: "/p/policy.txt", Content: []byte("v1 a\nv1 b\nv1 c")}
	res, err := svc.IngestRaw(ctx, v1, 0)
	require.NoError(t, err)
	require.Equal(t, 3, res.Fragments)

	// The second fragment of the new version fails to embed.
	embedder.failAt = embedder.calls + 2
	v2 := &domain.RawDocument{URI: "/p/policy.txt", Content: []byte("v2 a\nv2 b")}
	_, err = svc.IngestRaw(ctx, v2, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding quota exceeded")

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := store.Query(ctx, "policy", 10, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, strings.HasPrefix(r.Content, "v1 "), r.Content)
	}
}

func TestIngestSource_CollectsResultsAndErrors(t *testing.T) {
	store := &mockChunkStore{}
	svc := NewIngestService(store, &mockNormaliserRegistry{}, lineChunker{})

	source := &mockSource{
		docs: []domain.RawDocument{
			{URI: "a.txt", Content: []byte("alpha")},
			{URI: "b.txt", Content: []byte("beta")},
			{URI: "huge.txt", Content: make([]byte, MaxDocumentSize+1)},
		},
		errs: []error{errors.New("unreadable c.txt")},
	}

	var reported []error
	results, err := svc.IngestSource(context.Background(), source, func(err error) {
		reported = append(reported, err)
	})
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Len(t, reported, 2)
	assert.Len(t, store.indexed, 2)
}

func TestIngestSource_ValidateError(t *testing.T) {
	svc := NewIngestService(&mockChunkStore{}, &mockNormaliserRegistry{}, lineChunker{})

	_, err := svc.IngestSource(context.Background(), &mockSource{validateErr: domain.ErrNotFound}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestIngestSource_Cancelled(t *testing.T) {
	svc := NewIngestService(&mockChunkStore{}, &mockNormaliserRegistry{}, lineChunker{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A blocking source never yields; cancellation must end the loop.
	blocking := &blockingSource{}
	_, err := svc.IngestSource(ctx, blocking, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

type blockingSource struct{}

func (blockingSource) Name() string                   { return "blocking" }
func (blockingSource) Validate(context.Context) error { return nil }
func (blockingSource) Fetch(context.Context) (<-chan domain.RawDocument, <-chan error) {
	return make(chan domain.RawDocument), make(chan error)
}

func TestDeleteDocument(t *testing.T) {
	store := &mockChunkStore{}
	svc := NewIngestService(store, &mockNormaliserRegistry{}, lineChunker{})

	require.NoError(t, svc.DeleteDocument(context.Background(), 5))
	assert.Equal(t, []int64{5}, store.deletedDocs)

	assert.ErrorIs(t, svc.DeleteDocument(context.Background(), 0), domain.ErrInvalidInput)
}

func TestDocumentIDFor(t *testing.T) {
	assert.Equal(t, DocumentIDFor("/a"), DocumentIDFor("/a"))
	assert.NotEqual(t, DocumentIDFor("/a"), DocumentIDFor("/b"))
	assert.Positive(t, DocumentIDFor(""))
}

// watchSource replays scripted changes and then closes.
type watchSource struct {
	mockSource
	changes  []domain.DocumentChange
	watchErr error
}

func (w *watchSource) Watch(_ context.Context) (<-chan domain.DocumentChange, error) {
	if w.watchErr != nil {
		return nil, w.watchErr
	}
	ch := make(chan domain.DocumentChange, len(w.changes))
	for _, c := range w.changes {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func TestWatch_AppliesChanges(t *testing.T) {
	store := &mockChunkStore{}
	svc := NewIngestService(store, &mockNormaliserRegistry{}, lineChunker{})

	source := &watchSource{changes: []domain.DocumentChange{
		{Type: domain.ChangeCreated, URI: "/p/a.txt", Document: &domain.RawDocument{URI: "/p/a.txt", Content: []byte("alpha")}},
		{Type: domain.ChangeUpdated, URI: "/p/a.txt", Document: &domain.RawDocument{URI: "/p/a.txt", Content: []byte("beta")}},
		{Type: domain.ChangeDeleted, URI: "/p/old.txt"},
	}}

	var applied []domain.ChangeType
	err := svc.Watch(context.Background(), source, func(c domain.DocumentChange, err error) {
		assert.NoError(t, err)
		applied = append(applied, c.Type)
	})
	require.NoError(t, err)

	assert.Equal(t, []domain.ChangeType{domain.ChangeCreated, domain.ChangeUpdated, domain.ChangeDeleted}, applied)
	assert.Len(t, store.indexed, 2)
	assert.Equal(t, []int64{DocumentIDFor("/p/a.txt"), DocumentIDFor("/p/a.txt")}, store.replacedDocs)
	assert.Equal(t, []int64{DocumentIDFor("/p/old.txt")}, store.deletedDocs)
}

func TestWatch_ReportsChangeErrors(t *testing.T) {
	svc := NewIngestService(&mockChunkStore{}, &mockNormaliserRegistry{err: domain.ErrUnsupportedType}, lineChunker{})

	source := &watchSource{changes: []domain.DocumentChange{
		{Type: domain.ChangeCreated, URI: "x.bin", Document: &domain.RawDocument{URI: "x.bin", Content: []byte{1}}},
	}}

	var errs []error
	require.NoError(t, svc.Watch(context.Background(), source, func(_ domain.DocumentChange, err error) {
		errs = append(errs, err)
	}))
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrUnsupportedType)
}

func TestWatch_StartError(t *testing.T) {
	svc := NewIngestService(&mockChunkStore{}, &mockNormaliserRegistry{}, lineChunker{})

	err := svc.Watch(context.Background(), &watchSource{watchErr: domain.ErrNotFound}, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChangeTypeString(t *testing.T) {
	assert.Equal(t, "created", domain.ChangeCreated.String())
	assert.Equal(t, "updated", domain.ChangeUpdated.String())
	assert.Equal(t, "deleted", domain.ChangeDeleted.String())
	assert.Equal(t, "unknown", domain.ChangeType(0).String())
}
