package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"path/filepath"
	"time"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/core/ports/driving"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// MaxDocumentSize is the largest raw document accepted for ingestion.
const MaxDocumentSize = 50 << 20

// IngestService normalises, chunks and indexes documents.
type IngestService struct {
	store       driven.ChunkStore
	normalisers driven.NormaliserRegistry
	chunker     driven.Chunker
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	store driven.ChunkStore,
	normalisers driven.NormaliserRegistry,
	chunker driven.Chunker,
) *IngestService {
	return &IngestService{
		store:       store,
		normalisers: normalisers,
		chunker:     chunker,
	}
}

// IngestRaw normalises, chunks and indexes one raw document.
// Fragments already stored for the same document are replaced as a unit:
// if indexing fails the previous version stays searchable.
func (s *IngestService) IngestRaw(
	ctx context.Context, raw *domain.RawDocument, documentID int64,
) (*driving.IngestResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if len(raw.Content) > MaxDocumentSize {
		return nil, fmt.Errorf("%s is larger than %d bytes: %w", raw.URI, MaxDocumentSize, domain.ErrInvalidInput)
	}
	if documentID == 0 {
		documentID = DocumentIDFor(raw.URI)
	}

	logger.Debug("Ingesting %s as document %d", raw.URI, documentID)

	doc, err := s.normalisers.Normalise(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", raw.URI, err)
	}
	doc.ID = documentID
	for k, v := range raw.Metadata {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]string, len(raw.Metadata))
		}
		if _, ok := doc.Metadata[k]; !ok {
			doc.Metadata[k] = v
		}
	}
	if doc.Filename == "" {
		doc.Filename = raw.Filename
	}
	if doc.Filename == "" {
		doc.Filename = filepath.Base(raw.URI)
	}
	if doc.FileType == "" {
		doc.FileType = domain.FileTypeFromName(doc.Filename)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	fragments, err := s.chunker.Chunk(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", raw.URI, err)
	}

	valid := fragments[:0]
	for _, f := range fragments {
		if f.Validate() == nil {
			valid = append(valid, f)
		}
	}
	if err := s.store.ReplaceDocument(ctx, documentID, valid); err != nil {
		return nil, fmt.Errorf("index %s: %w", raw.URI, err)
	}
	indexed := len(valid)

	logger.Debug("Indexed %d fragments for %s", indexed, doc.Filename)

	return &driving.IngestResult{
		DocumentID: documentID,
		Filename:   doc.Filename,
		Fragments:  indexed,
	}, nil
}

// IngestSource ingests every document a source yields.
func (s *IngestService) IngestSource(
	ctx context.Context, source driven.DocumentSource, onError func(error),
) ([]driving.IngestResult, error) {
	if onError == nil {
		onError = func(error) {}
	}

	logger.Section("Ingest " + source.Name())

	if err := source.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate source %s: %w", source.Name(), err)
	}

	docs, errs := source.Fetch(ctx)
	var results []driving.IngestResult

	for docs != nil || errs != nil {
		select {
		case <-ctx.Done():
			return results, ctx.Err()

		case raw, ok := <-docs:
			if !ok {
				docs = nil
				continue
			}
			res, err := s.IngestRaw(ctx, &raw, 0)
			if err != nil {
				logger.Warn("Skipping %s: %v", raw.URI, err)
				onError(err)
				continue
			}
			results = append(results, *res)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			onError(err)
		}
	}

	logger.Info("Ingested %d documents from %s", len(results), source.Name())
	return results, nil
}

// Watch re-indexes created and updated documents and removes deleted ones
// as the source reports them.
func (s *IngestService) Watch(
	ctx context.Context, source driven.WatchableSource, onChange func(domain.DocumentChange, error),
) error {
	if onChange == nil {
		onChange = func(domain.DocumentChange, error) {}
	}

	changes, err := source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch source %s: %w", source.Name(), err)
	}
	logger.Info("Watching %s for changes", source.Name())

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			onChange(change, s.applyChange(ctx, change))
		}
	}
}

func (s *IngestService) applyChange(ctx context.Context, change domain.DocumentChange) error {
	logger.Debug("Change %s: %s", change.Type, change.URI)

	if change.Type == domain.ChangeDeleted || change.Document == nil {
		return s.DeleteDocument(ctx, DocumentIDFor(change.URI))
	}
	_, err := s.IngestRaw(ctx, change.Document, 0)
	return err
}

// DeleteDocument removes a document's fragments from the store.
func (s *IngestService) DeleteDocument(ctx context.Context, documentID int64) error {
	if documentID <= 0 {
		return domain.ErrInvalidInput
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %d: %w", documentID, err)
	}
	return nil
}

// DocumentIDFor derives a stable positive document ID from a URI.
func DocumentIDFor(uri string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(uri))
	id := int64(h.Sum64() & math.MaxInt64)
	if id == 0 {
		return 1
	}
	return id
}
