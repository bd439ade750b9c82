package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure ChunkStore implements the interface.
var _ driven.ChunkStore = (*ChunkStore)(nil)

type entry struct {
	fragment  domain.Fragment
	embedding []float32
	seq       int
}

// ChunkStore is an in-memory implementation of driven.ChunkStore.
// Contents are lost when the process exits.
type ChunkStore struct {
	mu       sync.RWMutex
	embedder driven.EmbeddingService
	entries  map[string]entry
	seq      int
}

// NewChunkStore creates an in-memory chunk store that embeds with embedder.
func NewChunkStore(embedder driven.EmbeddingService) *ChunkStore {
	return &ChunkStore{
		embedder: embedder,
		entries:  make(map[string]entry),
	}
}

// Index embeds and stores a fragment. Re-indexing an ID replaces it.
func (s *ChunkStore) Index(ctx context.Context, fragment domain.Fragment) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(fragment, vec)
	return nil
}

// ReplaceDocument embeds the new fragments, then swaps them in under one lock.
func (s *ChunkStore) ReplaceDocument(ctx context.Context, documentID int64, fragments []domain.Fragment) error {
	vectors, err := storage.EmbedFragments(ctx, s.embedder, documentID, fragments)
	if err != nil {
		return err
	}

	keep := make(map[string]bool, len(fragments))
	for _, f := range fragments {
		keep[f.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.fragment.Metadata.DocumentID == documentID && !keep[id] {
			delete(s.entries, id)
		}
	}
	for i, f := range fragments {
		s.put(f, vectors[i])
	}
	return nil
}

// put stores a fragment, keeping the insertion sequence of a known ID.
// Callers hold s.mu.
func (s *ChunkStore) put(fragment domain.Fragment, vec []float32) {
	seq := s.seq
	if prev, ok := s.entries[fragment.ID]; ok {
		seq = prev.seq
	} else {
		s.seq++
	}
	s.entries[fragment.ID] = entry{fragment: fragment, embedding: vec, seq: seq}
}

// Query ranks in-scope fragments by cosine similarity to text.
func (s *ChunkStore) Query(
	ctx context.Context, text string, limit int, scope domain.Scope,
) ([]domain.RankedFragment, error) {
	if limit <= 0 {
		return []domain.RankedFragment{}, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	type candidate struct {
		ranked domain.RankedFragment
		seq    int
	}
	candidates := make([]candidate, 0, len(s.entries))
	for _, e := range s.entries {
		if !scope.Matches(e.fragment.Metadata) {
			continue
		}
		candidates = append(candidates, candidate{
			ranked: domain.RankedFragment{
				Fragment: e.fragment,
				Score:    storage.CosineScore(vec, e.embedding),
			},
			seq: e.seq,
		})
	}
	s.mu.RUnlock()

	// Insertion order breaks ties so results are deterministic.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ranked.Score != candidates[j].ranked.Score {
			return candidates[i].ranked.Score > candidates[j].ranked.Score
		}
		return candidates[i].seq < candidates[j].seq
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	results := make([]domain.RankedFragment, len(candidates))
	for i, c := range candidates {
		results[i] = c.ranked
	}
	return results, nil
}

// DeleteDocument removes every fragment of a document.
func (s *ChunkStore) DeleteDocument(_ context.Context, documentID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if e.fragment.Metadata.DocumentID == documentID {
			delete(s.entries, id)
		}
	}
	return nil
}

// Count returns the number of stored fragments.
func (s *ChunkStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Close releases resources (no-op for memory store).
func (s *ChunkStore) Close() error {
	return nil
}
