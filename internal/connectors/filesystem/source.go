package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
	"github.com/custodia-labs/complyqa/internal/normalisers"
)

// Ensure Source implements the interfaces.
var (
	_ driven.DocumentSource  = (*Source)(nil)
	_ driven.WatchableSource = (*Source)(nil)
)

// DefaultMaxFileSize skips files larger than this many bytes.
const DefaultMaxFileSize = 50 << 20

// Source reads compliance documents from a local file or directory tree.
type Source struct {
	root        string
	accept      func(name string) bool
	maxFileSize int64
	metadata    map[string]string

	mu     sync.Mutex
	closed bool
}

// Option configures a Source.
type Option func(*Source)

// WithFilter accepts only files for which fn returns true.
// The default accepts every extension the built-in normalisers support.
func WithFilter(fn func(name string) bool) Option {
	return func(s *Source) {
		if fn != nil {
			s.accept = fn
		}
	}
}

// WithExtensions accepts only files with the given extensions ("md" or ".md").
func WithExtensions(exts ...string) Option {
	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return func(s *Source) {
		if len(allowed) == 0 {
			return
		}
		prev := s.accept
		s.accept = func(name string) bool {
			return allowed[strings.ToLower(filepath.Ext(name))] && prev(name)
		}
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(n int64) Option {
	return func(s *Source) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithMetadata attaches metadata, such as an owner ID, to every document.
func WithMetadata(md map[string]string) Option {
	return func(s *Source) {
		for k, v := range md {
			s.metadata[k] = v
		}
	}
}

// New creates a source rooted at a file or directory.
func New(root string, opts ...Option) *Source {
	s := &Source{
		root:        filepath.Clean(root),
		accept:      knownType,
		maxFileSize: DefaultMaxFileSize,
		metadata:    make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// knownType accepts files the built-in normalisers can read.
var knownType = normalisers.Defaults().Supports

// Name identifies the source in logs.
func (s *Source) Name() string {
	return "filesystem:" + s.root
}

// Root returns the file or directory the source reads.
func (s *Source) Root() string {
	return s.root
}

// Validate checks the root exists and is readable.
func (s *Source) Validate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return domain.ErrInvalidInput
	}

	info, err := os.Stat(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s does not exist: %w", s.root, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.root, err)
	}
	if info.IsDir() {
		f, err := os.Open(s.root)
		if err != nil {
			return fmt.Errorf("open %s: %w", s.root, err)
		}
		return f.Close()
	}
	return nil
}

// Fetch walks the root and streams every accepted file.
// Unreadable or oversized files are reported on the error channel.
func (s *Source) Fetch(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 16)

	go func() {
		defer close(docs)
		defer close(errs)

		send := func(err error) bool {
			select {
			case errs <- err:
				return true
			case <-ctx.Done():
				return false
			}
		}

		info, err := os.Stat(s.root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				err = fmt.Errorf("%s does not exist: %w", s.root, domain.ErrNotFound)
			}
			send(err)
			return
		}

		base := s.root
		if !info.IsDir() {
			base = filepath.Dir(s.root)
		}

		walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				if !send(fmt.Errorf("walk %s: %w", path, err)) {
					return ctx.Err()
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}

			rel, _ := filepath.Rel(base, path)
			if path != s.root && isHidden(rel) {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() || !s.accept(d.Name()) {
				return nil
			}

			raw, err := s.read(path, rel)
			if err != nil {
				if !send(err) {
					return ctx.Err()
				}
				return nil
			}

			select {
			case docs <- *raw:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if walkErr != nil && !errors.Is(walkErr, context.Canceled) && !errors.Is(walkErr, context.DeadlineExceeded) {
			send(walkErr)
		}
	}()

	return docs, errs
}

// read loads one file as a raw document.
func (s *Source) read(path, rel string) (*domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("%s is larger than %d bytes: %w", path, s.maxFileSize, domain.ErrInvalidInput)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	name := filepath.Base(path)
	metadata := make(map[string]string, len(s.metadata)+4)
	for k, v := range s.metadata {
		metadata[k] = v
	}
	metadata["path"] = filepath.ToSlash(rel)
	metadata["extension"] = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	metadata["modified"] = info.ModTime().UTC().Format(time.RFC3339)

	return &domain.RawDocument{
		URI:      abs,
		Filename: name,
		MIMEType: normalisers.MIMETypeFromName(name),
		Content:  content,
		Metadata: metadata,
	}, nil
}

// Watch reports created, updated and deleted files under a directory root
// until ctx is cancelled.
func (s *Source) Watch(ctx context.Context) (<-chan domain.DocumentChange, error) {
	if s.isClosed() {
		return nil, domain.ErrInvalidInput
	}

	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s does not exist: %w", s.root, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("stat %s: %w", s.root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", s.root, domain.ErrInvalidInput)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := s.addTree(w, s.root); err != nil {
		w.Close()
		return nil, err
	}

	changes := make(chan domain.DocumentChange)
	go func() {
		defer close(changes)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						rel, _ := filepath.Rel(s.root, ev.Name)
						if !isHidden(rel) {
							if err := s.addTree(w, ev.Name); err != nil {
								logger.Warn("Cannot watch %s: %v", ev.Name, err)
							}
						}
						continue
					}
				}
				change, ok := s.handleFsEvent(ev)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}

			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("Filesystem watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}

// addTree watches dir and every non-hidden directory below it.
func (s *Source) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, _ := filepath.Rel(s.root, path)
		if path != s.root && isHidden(rel) {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleFsEvent converts a file event into a document change.
// Directories, hidden files and filtered-out files yield no change.
func (s *Source) handleFsEvent(ev fsnotify.Event) (domain.DocumentChange, bool) {
	rel, err := filepath.Rel(s.root, ev.Name)
	if err != nil || isHidden(rel) || !s.accept(filepath.Base(ev.Name)) {
		return domain.DocumentChange{}, false
	}

	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		abs = ev.Name
	}

	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		return domain.DocumentChange{Type: domain.ChangeDeleted, URI: abs}, true

	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		fi, err := os.Stat(ev.Name)
		if err != nil || fi.IsDir() {
			return domain.DocumentChange{}, false
		}
		raw, err := s.read(ev.Name, rel)
		if err != nil {
			logger.Warn("Skipping %s: %v", ev.Name, err)
			return domain.DocumentChange{}, false
		}
		changeType := domain.ChangeUpdated
		if ev.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return domain.DocumentChange{Type: changeType, URI: abs, Document: raw}, true
	}

	return domain.DocumentChange{}, false
}

// Close marks the source closed. It is idempotent.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// isHidden reports whether any element of a relative path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "" || part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
