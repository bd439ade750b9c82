package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

func writeFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// collect drains both channels of a fetch.
func collect(t *testing.T, s *Source) ([]domain.RawDocument, []error) {
	t.Helper()

	docsCh, errsCh := s.Fetch(context.Background())
	var docs []domain.RawDocument
	var errs []error
	timeout := time.After(5 * time.Second)
	for docsCh != nil || errsCh != nil {
		select {
		case d, ok := <-docsCh:
			if !ok {
				docsCh = nil
				continue
			}
			docs = append(docs, d)
		case e, ok := <-errsCh:
			if !ok {
				errsCh = nil
				continue
			}
			errs = append(errs, e)
		case <-timeout:
			t.Fatal("fetch did not finish")
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs, errs
}

func TestNew(t *testing.T) {
	s := New("/srv/policies/")
	assert.Equal(t, "/srv/policies", s.Root())
	assert.Equal(t, "filesystem:/srv/policies", s.Name())

	var _ driven.WatchableSource = s
}

func TestFetch_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "retention.md", "# Retention")
	writeFile(t, dir, "handbook/conduct.txt", "Be kind.")
	writeFile(t, dir, "logo.png", "binary")
	writeFile(t, dir, ".hidden.txt", "secret")
	writeFile(t, dir, ".git/config.txt", "git")

	docs, errs := collect(t, New(dir))
	assert.Empty(t, errs)
	require.Len(t, docs, 2)

	conduct := docs[0]
	assert.Equal(t, "conduct.txt", conduct.Filename)
	assert.Equal(t, "text/plain", conduct.MIMEType)
	assert.Equal(t, []byte("Be kind."), conduct.Content)
	assert.Equal(t, "handbook/conduct.txt", conduct.Metadata["path"])
	assert.Equal(t, "txt", conduct.Metadata["extension"])
	assert.NotEmpty(t, conduct.Metadata["modified"])
	assert.True(t, filepath.IsAbs(conduct.URI))

	assert.Equal(t, "retention.md", docs[1].Filename)
	assert.Equal(t, "text/markdown", docs[1].MIMEType)
}

func TestFetch_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "policy.docx", "PK")
	writeFile(t, dir, "other.txt", "ignored")

	docs, errs := collect(t, New(path))
	assert.Empty(t, errs)
	require.Len(t, docs, 1)
	assert.Equal(t, "policy.docx", docs[0].Filename)
	assert.Equal(t, "policy.docx", docs[0].Metadata["path"])
}

func TestFetch_ExtensionFilter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "b.txt", "b")
	writeFile(t, dir, "c.html", "c")

	docs, _ := collect(t, New(dir, WithExtensions("md", ".HTML")))
	require.Len(t, docs, 2)
	assert.Equal(t, "a.md", docs[0].Filename)
	assert.Equal(t, "c.html", docs[1].Filename)
}

func TestFetch_CustomFilterAndMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.md", "a")
	writeFile(t, dir, "b.md", "b")

	s := New(dir,
		WithFilter(func(name string) bool { return name == "b.md" }),
		WithMetadata(map[string]string{"owner_id": "9"}),
	)
	docs, _ := collect(t, s)
	require.Len(t, docs, 1)
	assert.Equal(t, "b.md", docs[0].Filename)
	assert.Equal(t, "9", docs[0].Metadata["owner_id"])
}

func TestFetch_OversizedFileReported(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "small.txt", "ok")
	writeFile(t, dir, "large.txt", "0123456789")

	docs, errs := collect(t, New(dir, WithMaxFileSize(5)))
	require.Len(t, docs, 1)
	assert.Equal(t, "small.txt", docs[0].Filename)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrInvalidInput)
}

func TestFetch_MissingRoot(t *testing.T) {
	docs, errs := collect(t, New(filepath.Join(t.TempDir(), "missing")))
	assert.Empty(t, docs)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrNotFound)
	assert.Contains(t, errs[0].Error(), "does not exist")
}

func TestFetch_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs, errs := New(dir).Fetch(ctx)
	for range docs {
	}
	for range errs {
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.txt", "a")

	assert.NoError(t, New(dir).Validate(context.Background()))
	assert.NoError(t, New(file).Validate(context.Background()))
	assert.ErrorIs(t, New(filepath.Join(dir, "nope")).Validate(context.Background()), domain.ErrNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(dir).Validate(ctx), context.Canceled)

	closed := New(dir)
	require.NoError(t, closed.Close())
	require.NoError(t, closed.Close())
	assert.ErrorIs(t, closed.Validate(context.Background()), domain.ErrInvalidInput)
}

func TestIsHidden(t *testing.T) {
	tests := map[string]bool{
		".hidden":             true,
		"path/to/.hidden":     true,
		"dir/.git/config":     true,
		".config/.cache/data": true,
		"file.txt":            false,
		"path/to/file.txt":    false,
		".":                   false,
		"..":                  false,
		"path/./file":         false,
		"path/../file":        false,
		"":                    false,
		"file.hidden":         false,
		"directory.name/file": false,
		"policies/2024/q1.md": false,
	}
	for path, expected := range tests {
		assert.Equal(t, expected, isHidden(path), path)
	}
}

func TestHandleFsEvent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	file := writeFile(t, dir, "policy.md", "# Policy")
	hidden := writeFile(t, dir, ".draft.md", "draft")
	image := writeFile(t, dir, "chart.png", "png")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub.md"), 0o755))

	tests := []struct {
		name     string
		event    fsnotify.Event
		ok       bool
		expected domain.ChangeType
	}{
		{"create", fsnotify.Event{Name: file, Op: fsnotify.Create}, true, domain.ChangeCreated},
		{"write", fsnotify.Event{Name: file, Op: fsnotify.Write}, true, domain.ChangeUpdated},
		{"remove", fsnotify.Event{Name: filepath.Join(dir, "gone.md"), Op: fsnotify.Remove}, true, domain.ChangeDeleted},
		{"rename", fsnotify.Event{Name: filepath.Join(dir, "old.md"), Op: fsnotify.Rename}, true, domain.ChangeDeleted},
		{"chmod ignored", fsnotify.Event{Name: file, Op: fsnotify.Chmod}, false, 0},
		{"directory ignored", fsnotify.Event{Name: filepath.Join(dir, "sub.md"), Op: fsnotify.Create}, false, 0},
		{"hidden ignored", fsnotify.Event{Name: hidden, Op: fsnotify.Write}, false, 0},
		{"hidden remove ignored", fsnotify.Event{Name: hidden, Op: fsnotify.Remove}, false, 0},
		{"unknown type ignored", fsnotify.Event{Name: image, Op: fsnotify.Create}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			change, ok := s.handleFsEvent(tt.event)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.expected, change.Type)
			if tt.expected == domain.ChangeDeleted {
				assert.Nil(t, change.Document)
			} else {
				require.NotNil(t, change.Document)
				assert.Equal(t, "policy.md", change.Document.Filename)
				assert.Equal(t, change.URI, change.Document.URI)
			}
		})
	}
}

func TestWatch_ReportsNewFile(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := New(dir).Watch(ctx)
	require.NoError(t, err)

	writeFile(t, dir, "new-policy.txt", "content")

	select {
	case change := <-changes:
		assert.Contains(t, []domain.ChangeType{domain.ChangeCreated, domain.ChangeUpdated}, change.Type)
		assert.Contains(t, change.URI, "new-policy.txt")
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change")
	}

	cancel()
	for range changes {
	}
}

func TestWatch_Errors(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "a.txt", "a")

	_, err := New(filepath.Join(dir, "missing")).Watch(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = New(file).Watch(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
