// Package pgvector provides a driven.ChunkStore backed by PostgreSQL with
// the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store keeps fragments in a PostgreSQL table with a vector column.
type Store struct {
	db       *sql.DB
	table    string
	embedder driven.EmbeddingService
}

// NewStore connects to dsn and creates the fragment table if missing.
// The table is named after the collection.
func NewStore(ctx context.Context, dsn, collection string, embedder driven.EmbeddingService) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("pgvector store requires an embedding service: %w", domain.ErrEmbeddingUnavailable)
	}
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn required: %w", domain.ErrInvalidInput)
	}
	if collection == "" {
		collection = domain.DefaultCollection
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	s := &Store{
		db:       db,
		table:    pq.QuoteIdentifier(collection),
		embedder: embedder,
	}
	if err := s.createTable(ctx, embedder.Dimensions()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("pgvector store ready (table %s)", s.table)
	return s, nil
}

// createTable creates the vector extension, the fragment table and its indexes.
// A non-positive dimension leaves the vector column unconstrained.
func (s *Store) createTable(ctx context.Context, dimension int) error {
	vectorType := "vector"
	if dimension > 0 {
		vectorType = fmt.Sprintf("vector(%d)", dimension)
	}

	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id          TEXT PRIMARY KEY,
			document_id BIGINT NOT NULL,
			filename    TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			file_type   TEXT NOT NULL DEFAULT '',
			content     TEXT NOT NULL,
			metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding   %s NOT NULL,
			seq         BIGSERIAL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table, vectorType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (document_id)`,
			pq.QuoteIdentifier(strings.Trim(s.table, `"`)+"_document_idx"), s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIN (metadata)`,
			pq.QuoteIdentifier(strings.Trim(s.table, `"`)+"_metadata_idx"), s.table),
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating fragment table: %w", err)
		}
	}
	return nil
}

// Index embeds and upserts a fragment.
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

	return s.saveFragment(ctx, s.db, fragment, vec)
}

// ReplaceDocument embeds the new fragments first, then deletes the old
// rows and inserts the new ones in a single transaction.
func (s *Store) ReplaceDocument(ctx context.Context, documentID int64, fragments []domain.Fragment) error {
	vectors, err := storage.EmbedFragments(ctx, s.embedder, documentID, fragments)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.table), documentID); err != nil {
		return fmt.Errorf("deleting document fragments: %w", err)
	}
	for i, f := range fragments {
		if err := s.saveFragment(ctx, tx, f, vectors[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) saveFragment(ctx context.Context, db execer, fragment domain.Fragment, vec []float32) error {
	extra := fragment.Metadata.Extra
	if extra == nil {
		extra = map[string]string{}
	}
	metaJSON, err := json.Marshal(extra)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	meta := fragment.Metadata
	_, err = db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, document_id, filename, chunk_index, file_type, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			filename = EXCLUDED.filename,
			chunk_index = EXCLUDED.chunk_index,
			file_type = EXCLUDED.file_type,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			embedding = EXCLUDED.embedding
	`, s.table), fragment.ID, meta.DocumentID, meta.Filename, meta.ChunkIndex, meta.FileType,
		fragment.Content, string(metaJSON), pgvector.NewVector(vec))
	if err != nil {
		return fmt.Errorf("saving fragment: %w", err)
	}
	return nil
}

// Query orders in-scope rows by cosine distance to the embedded text.
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

	args := []any{pgvector.NewVector(vec), limit}
	where, args, ok := scopeClause(scope, args)
	if !ok {
		return []domain.RankedFragment{}, nil
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, document_id, filename, chunk_index, file_type, content, metadata,
			1 - (embedding <=> $1) AS score
		FROM %s%s
		ORDER BY embedding <=> $1, seq
		LIMIT $2
	`, s.table, where), args...)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	results := []domain.RankedFragment{}
	for rows.Next() {
		var (
			f        domain.RankedFragment
			metaJSON []byte
			score    sql.NullFloat64
		)
		if err := rows.Scan(&f.ID, &f.Metadata.DocumentID, &f.Metadata.Filename,
			&f.Metadata.ChunkIndex, &f.Metadata.FileType, &f.Content, &metaJSON, &score); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}

		var raw map[string]any
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &raw); err != nil {
				return nil, fmt.Errorf("unmarshalling metadata: %w", err)
			}
		}
		if len(raw) > 0 {
			f.Metadata.Extra = storage.NormaliseMetadata(raw).Extra
		}
		// Zero vectors yield a NULL distance.
		f.Score = storage.ClampScore(score.Float64)
		results = append(results, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}
	return results, nil
}

// DeleteDocument removes every fragment of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE document_id = $1`, s.table), documentID)
	if err != nil {
		return fmt.Errorf("deleting document fragments: %w", err)
	}
	return nil
}

// Count returns the number of stored fragments.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// scopeClause appends scope conditions to args and returns the WHERE clause.
// ok is false when the scope can never match.
func scopeClause(scope domain.Scope, args []any) (string, []any, bool) {
	if scope.IsEmpty() {
		return "", args, true
	}

	keys := make([]string, 0, len(scope))
	for k := range scope {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	for _, k := range keys {
		v := scope[k]
		switch k {
		case domain.MetaDocumentID, domain.MetaChunkIndex:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return "", nil, false
			}
			args = append(args, n)
			conds = append(conds, fmt.Sprintf("%s = $%d", k, len(args)))
		case domain.MetaFilename, domain.MetaFileType:
			args = append(args, v)
			conds = append(conds, fmt.Sprintf("%s = $%d", k, len(args)))
		default:
			args = append(args, k, v)
			conds = append(conds, fmt.Sprintf("metadata->>$%d = $%d", len(args)-1, len(args)))
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}
