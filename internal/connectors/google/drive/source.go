package drive

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/complyqa/internal/connectors/google"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
	"github.com/custodia-labs/complyqa/internal/normalisers"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Source fetches compliance documents from Google Drive folders.
type Source struct {
	cfg     Config
	svc     *drive.Service
	limiter *google.RateLimiter
	accept  func(name string) bool
}

// New creates a Drive source. A nil accept uses the built-in normalisers'
// supported formats.
func New(ctx context.Context, cfg Config, accept func(name string) bool) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	svc, err := google.NewDriveService(ctx, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if accept == nil {
		accept = normalisers.Defaults().Supports
	}
	return &Source{
		cfg:     cfg,
		svc:     svc,
		limiter: google.NewRateLimiter(google.DriveRateLimit),
		accept:  accept,
	}, nil
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return "gdrive:" + strings.Join(s.cfg.FolderIDs, ",")
}

// Validate checks every configured folder exists and is a folder.
func (s *Source) Validate(ctx context.Context) error {
	for _, id := range s.cfg.FolderIDs {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		f, err := s.svc.Files.Get(id).
			Fields("id, name, mimeType").
			SupportsAllDrives(true).
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("drive folder %s: %w", id, google.WrapError(err))
		}
		if f.MimeType != MimeTypeFolder {
			return fmt.Errorf("drive item %s (%s) is not a folder: %w", id, f.Name, domain.ErrInvalidInput)
		}
	}
	return nil
}

// Fetch walks the configured folders and streams each accepted file.
// Files that cannot be downloaded are reported on the error channel.
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

		l := &lister{svc: s.svc, limiter: s.limiter, cfg: &s.cfg}
		seen := make(map[string]bool)

		for _, folderID := range s.cfg.FolderIDs {
			entries, ok := l.walk(ctx, folderID, "", s.accept, send)
			logger.Debug("Fetching %d files from drive folder %s", len(entries), folderID)

			for _, e := range entries {
				// A file can live in several configured folders.
				if seen[e.file.Id] {
					continue
				}
				seen[e.file.Id] = true

				raw, err := l.document(ctx, e)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					if !send(err) {
						return
					}
					continue
				}

				select {
				case docs <- *raw:
				case <-ctx.Done():
					return
				}
			}
			if !ok {
				return
			}
		}
	}()

	return docs, errs
}
