package github

import (
	"context"
	"fmt"
	"path"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
	"github.com/custodia-labs/complyqa/internal/normalisers"
)

// Ensure Source implements the interface.
var _ driven.DocumentSource = (*Source)(nil)

// Source fetches compliance documents from one GitHub repository.
type Source struct {
	cfg    Config
	client *Client
	accept func(name string) bool
}

// New creates a GitHub source. A nil accept uses the built-in normalisers'
// supported formats.
func New(ctx context.Context, cfg Config, accept func(name string) bool) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := NewClient(ctx, cfg.Token, cfg.BaseURL, 0)
	if err != nil {
		return nil, err
	}
	return NewWithClient(cfg, client, accept)
}

// NewWithClient creates a GitHub source over an existing client.
func NewWithClient(cfg Config, client *Client, accept func(name string) bool) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if accept == nil {
		accept = normalisers.Defaults().Supports
	}
	return &Source{cfg: cfg, client: client, accept: accept}, nil
}

// Name identifies the source in logs.
func (s *Source) Name() string {
	return fmt.Sprintf("github:%s/%s", s.cfg.Owner, s.cfg.Repo)
}

// Validate checks the repository is reachable with the configured token.
func (s *Source) Validate(ctx context.Context) error {
	_, err := s.client.GetRepository(ctx, s.cfg.Owner, s.cfg.Repo)
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return fmt.Errorf("%w: %s/%s: %w", ErrRepoNotFound, s.cfg.Owner, s.cfg.Repo, domain.ErrNotFound)
	case IsUnauthorized(err):
		return fmt.Errorf("github token rejected: %w", domain.ErrInvalidInput)
	case IsRateLimited(err):
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	default:
		return err
	}
}

// Fetch lists the branch tree and streams each accepted file.
// Files whose blob cannot be fetched are reported on the error channel.
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

		owner, repo := s.cfg.Owner, s.cfg.Repo

		branch := s.cfg.Branch
		if branch == "" {
			r, err := s.client.GetRepository(ctx, owner, repo)
			if err != nil {
				send(fmt.Errorf("get repository %s/%s: %w", owner, repo, err))
				return
			}
			branch = r.GetDefaultBranch()
		}

		tree, err := s.client.GetTree(ctx, owner, repo, branch)
		if err != nil {
			if IsNotFound(err) {
				err = fmt.Errorf("%w: %s: %w", ErrBranchNotFound, branch, err)
			}
			send(fmt.Errorf("list %s/%s@%s: %w", owner, repo, branch, err))
			return
		}
		if tree.GetTruncated() {
			logger.Warn("GitHub tree for %s/%s is truncated; some files will be skipped", owner, repo)
		}

		entries := selectEntries(tree, &s.cfg, s.accept)
		logger.Debug("Fetching %d of %d tree entries from %s/%s@%s",
			len(entries), len(tree.Entries), owner, repo, branch)

		for _, entry := range entries {
			p := entry.GetPath()
			content, err := s.client.GetBlobContent(ctx, owner, repo, entry.GetSHA())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !send(fmt.Errorf("fetch %s: %w", p, err)) {
					return
				}
				continue
			}

			name := path.Base(p)
			raw := domain.RawDocument{
				URI:      buildFileURI(owner, repo, branch, p),
				Filename: name,
				MIMEType: normalisers.MIMETypeFromName(name),
				Content:  content,
				Metadata: map[string]string{
					"owner":    owner,
					"repo":     repo,
					"branch":   branch,
					"path":     p,
					"sha":      entry.GetSHA(),
					"html_url": buildHTMLURL(owner, repo, branch, p),
				},
			}

			select {
			case docs <- raw:
			case <-ctx.Done():
				return
			}
		}
	}()

	return docs, errs
}
