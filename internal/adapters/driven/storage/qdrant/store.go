// Package qdrant provides a driven.ChunkStore backed by the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// pointNamespace derives deterministic point IDs from fragment IDs.
var pointNamespace = uuid.MustParse("6f1f4f7e-3c1a-4f5e-9b7a-2d3c4e5f6a7b")

const (
	payloadContent    = "content"
	payloadFragmentID = "fragment_id"
	defaultTimeout    = 15 * time.Second
)

// Config holds Qdrant connection settings.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Store is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection on first write.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
	embedder   driven.EmbeddingService

	mu    sync.Mutex
	ready bool
}

// NewStore creates a Qdrant chunk store.
func NewStore(cfg Config, embedder driven.EmbeddingService) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("qdrant store requires an embedding service: %w", domain.ErrEmbeddingUnavailable)
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url required: %w", domain.ErrInvalidInput)
	}
	if cfg.Collection == "" {
		cfg.Collection = domain.DefaultCollection
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Store{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
		embedder:   embedder,
	}, nil
}

// Index embeds a fragment and upserts it as a point.
func (s *Store) Index(ctx context.Context, fragment domain.Fragment) error {
	if fragment.ID == "" {
		return fmt.Errorf("fragment id required: %w", domain.ErrInvalidInput)
	}
	if err := fragment.Validate(); err != nil {
		return err
	}

	vec, err := s.embedder.Embed(ctx, fragment.Content)
	if err != nil {
		return fmt.Errorf("embed fragment %s: %w", fragment.ID, err)
	}
	if err := s.ensureCollection(ctx, len(vec)); err != nil {
		return err
	}

	body := map[string]any{"points": []map[string]any{point(fragment, vec)}}
	return s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"), body, nil)
}

// ReplaceDocument upserts the new points in one request, then deletes the
// document's points that are not part of the new set. Embedding happens
// before either request, so a failure there leaves the old points alone.
func (s *Store) ReplaceDocument(ctx context.Context, documentID int64, fragments []domain.Fragment) error {
	vectors, err := storage.EmbedFragments(ctx, s.embedder, documentID, fragments)
	if err != nil {
		return err
	}
	if len(fragments) == 0 {
		return s.DeleteDocument(ctx, documentID)
	}
	if err := s.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	points := make([]map[string]any, len(fragments))
	ids := make([]string, len(fragments))
	for i, f := range fragments {
		points[i] = point(f, vectors[i])
		ids[i] = PointID(f.ID)
	}
	if err := s.do(ctx, http.MethodPut, s.collectionPath("/points?wait=true"),
		map[string]any{"points": points}, nil); err != nil {
		return err
	}

	body := map[string]any{
		"filter": map[string]any{
			"must":     []map[string]any{matchCondition(domain.MetaDocumentID, documentID)},
			"must_not": []map[string]any{{"has_id": ids}},
		},
	}
	if err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, nil); err != nil {
		return fmt.Errorf("delete stale points of document %d: %w", documentID, err)
	}
	return nil
}

func point(fragment domain.Fragment, vec []float32) map[string]any {
	payload := storage.MetadataPayload(fragment.Metadata)
	payload[payloadContent] = fragment.Content
	payload[payloadFragmentID] = fragment.ID
	return map[string]any{
		"id":      PointID(fragment.ID),
		"vector":  vec,
		"payload": payload,
	}
}

// Query searches the collection with the scope as a filter.must clause.
func (s *Store) Query(
	ctx context.Context, text string, limit int, scope domain.Scope,
) ([]domain.RankedFragment, error) {
	if limit <= 0 {
		return []domain.RankedFragment{}, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := map[string]any{
		"vector":       vec,
		"limit":        limit,
		"with_payload": true,
	}
	if filter := scopeFilter(scope); filter != nil {
		req["filter"] = filter
	}

	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	err = s.do(ctx, http.MethodPost, s.collectionPath("/points/search"), req, &resp)
	if isNotFound(err) {
		// Nothing has been indexed yet.
		return []domain.RankedFragment{}, nil
	}
	if err != nil {
		return nil, err
	}

	results := make([]domain.RankedFragment, 0, len(resp.Result))
	for _, r := range resp.Result {
		content, _ := r.Payload[payloadContent].(string)
		id, _ := r.Payload[payloadFragmentID].(string)
		delete(r.Payload, payloadContent)
		delete(r.Payload, payloadFragmentID)

		results = append(results, domain.RankedFragment{
			Fragment: domain.Fragment{
				ID:       id,
				Content:  content,
				Metadata: storage.NormaliseMetadata(r.Payload),
			},
			Score: storage.ClampScore(r.Score),
		})
	}
	return results, nil
}

// DeleteDocument removes every point of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64) error {
	body := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{matchCondition(domain.MetaDocumentID, documentID)},
		},
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/delete?wait=true"), body, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodPost, s.collectionPath("/points/count"), map[string]any{"exact": true}, &resp)
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return resp.Result.Count, nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// PointID maps a fragment ID to its Qdrant point UUID.
func PointID(fragmentID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(fragmentID)).String()
}

func (s *Store) ensureCollection(ctx context.Context, dimension int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid embedding dimension %d: %w", dimension, domain.ErrInvalidInput)
	}

	err := s.do(ctx, http.MethodGet, s.collectionPath(""), nil, nil)
	if isNotFound(err) {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     dimension,
				"distance": "Cosine",
			},
		}
		err = s.do(ctx, http.MethodPut, s.collectionPath(""), body, nil)
	}
	if err != nil {
		return fmt.Errorf("ensure collection %s: %w", s.collection, err)
	}
	s.ready = true
	return nil
}

func (s *Store) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// statusError is a non-2xx response from Qdrant.
type statusError struct {
	method string
	url    string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant error (status %d): %s %s: %s", e.status, e.method, e.url, e.body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.status == http.StatusNotFound
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &statusError{method: method, url: url, status: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// scopeFilter converts a scope into a Qdrant filter with one must clause per key.
func scopeFilter(scope domain.Scope) map[string]any {
	if scope.IsEmpty() {
		return nil
	}
	must := make([]map[string]any, 0, len(scope))
	for k, v := range scope {
		if k == domain.MetaDocumentID || k == domain.MetaChunkIndex {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				must = append(must, matchCondition(k, n))
				continue
			}
		}
		must = append(must, matchCondition(k, v))
	}
	return map[string]any{"must": must}
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}
