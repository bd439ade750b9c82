package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage"
	"github.com/custodia-labs/complyqa/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.ChunkStore = (*Store)(nil)

// Store is a SQLite-backed chunk store.
type Store struct {
	db       *sql.DB
	path     string
	embedder driven.EmbeddingService
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.complyqa/data/fragments.db.
func NewStore(dataDir string, embedder driven.EmbeddingService) (*Store, error) {
	if embedder == nil {
		return nil, fmt.Errorf("sqlite store requires an embedding service: %w", domain.ErrEmbeddingUnavailable)
	}

	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".complyqa", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "fragments.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:       db,
		path:     dbPath,
		embedder: embedder,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_fragments.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// Index embeds and stores a fragment. Re-indexing an ID replaces it.
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveFragment(ctx, tx, fragment, vec); err != nil {
		return err
	}
	return tx.Commit()
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

	if _, err := tx.ExecContext(ctx, "DELETE FROM fragments WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting document fragments: %w", err)
	}
	for i, f := range fragments {
		if err := saveFragment(ctx, tx, f, vectors[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// saveFragment upserts a fragment row and its extra metadata.
func saveFragment(ctx context.Context, tx *sql.Tx, fragment domain.Fragment, vec []float32) error {
	meta := fragment.Metadata
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fragments (id, document_id, filename, chunk_index, file_type, content, embedding, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM fragments))
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			filename = excluded.filename,
			chunk_index = excluded.chunk_index,
			file_type = excluded.file_type,
			content = excluded.content,
			embedding = excluded.embedding
	`, fragment.ID, meta.DocumentID, meta.Filename, meta.ChunkIndex, meta.FileType,
		fragment.Content, float32SliceToBytes(vec))
	if err != nil {
		return fmt.Errorf("saving fragment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM fragment_metadata WHERE fragment_id = ?", fragment.ID); err != nil {
		return fmt.Errorf("clearing fragment metadata: %w", err)
	}
	for k, v := range meta.Extra {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO fragment_metadata (fragment_id, key, value) VALUES (?, ?, ?)",
			fragment.ID, k, v)
		if err != nil {
			return fmt.Errorf("saving fragment metadata: %w", err)
		}
	}
	return nil
}

// Query ranks in-scope fragments by cosine similarity to text.
// The scope becomes a WHERE clause, so out-of-scope rows are never ranked.
func (s *Store) Query(
	ctx context.Context, text string, limit int, scope domain.Scope,
) ([]domain.RankedFragment, error) {
	if limit <= 0 {
		return []domain.RankedFragment{}, nil
	}

	where, args, ok := scopeClause(scope)
	if !ok {
		return []domain.RankedFragment{}, nil
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, filename, chunk_index, file_type, content, embedding
		FROM fragments f`+where+`
		ORDER BY seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	var ranked []domain.RankedFragment
	for rows.Next() {
		var (
			f    domain.Fragment
			blob []byte
		)
		if err := rows.Scan(&f.ID, &f.Metadata.DocumentID, &f.Metadata.Filename,
			&f.Metadata.ChunkIndex, &f.Metadata.FileType, &f.Content, &blob); err != nil {
			return nil, fmt.Errorf("scanning fragment: %w", err)
		}
		ranked = append(ranked, domain.RankedFragment{
			Fragment: f,
			Score:    storage.CosineScore(vec, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}

	// Rows arrive in insertion order, so a stable sort keeps ties deterministic.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for i := range ranked {
		extra, err := s.loadExtra(ctx, ranked[i].ID)
		if err != nil {
			return nil, err
		}
		ranked[i].Metadata.Extra = extra
	}

	if ranked == nil {
		ranked = []domain.RankedFragment{}
	}
	return ranked, nil
}

func (s *Store) loadExtra(ctx context.Context, fragmentID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM fragment_metadata WHERE fragment_id = ?", fragmentID)
	if err != nil {
		return nil, fmt.Errorf("querying fragment metadata: %w", err)
	}
	defer rows.Close()

	raw := make(map[string]any)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning fragment metadata: %w", err)
		}
		raw[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return storage.NormaliseMetadata(raw).Extra, nil
}

// DeleteDocument removes every fragment of a document.
func (s *Store) DeleteDocument(ctx context.Context, documentID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM fragments WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting document fragments: %w", err)
	}
	return nil
}

// Count returns the number of stored fragments.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM fragments").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return n, nil
}

// scopeClause turns a scope into a WHERE clause over fragments f.
// ok is false when the scope can never match, e.g. a non-numeric document_id.
func scopeClause(scope domain.Scope) (clause string, args []any, ok bool) {
	if scope.IsEmpty() {
		return "", nil, true
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
			conds = append(conds, "f."+k+" = ?")
			args = append(args, n)
		case domain.MetaFilename, domain.MetaFileType:
			conds = append(conds, "f."+k+" = ?")
			args = append(args, v)
		default:
			conds = append(conds,
				"EXISTS (SELECT 1 FROM fragment_metadata m WHERE m.fragment_id = f.id AND m.key = ? AND m.value = ?)")
			args = append(args, k, v)
		}
	}
	return " WHERE " + strings.Join(conds, " AND "), args, true
}

// float32SliceToBytes converts a float32 slice to bytes for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts bytes back to a float32 slice.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		floats[i] = math.Float32frombits(bits)
	}
	return floats
}
