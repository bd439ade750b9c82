package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gh "github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// fakeGitHub serves a single repository with the given files.
type fakeGitHub struct {
	files      map[string]string // path -> content
	missing    bool
	brokenBlob string

	mu        sync.Mutex
	tokenSeen string
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/repos/acme/policies", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokenSeen = r.Header.Get("Authorization")
		f.mu.Unlock()
		if f.missing {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"name": "policies", "default_branch": "main"})
	})

	mux.HandleFunc("/repos/acme/policies/git/trees/", func(w http.ResponseWriter, r *http.Request) {
		ref := strings.TrimPrefix(r.URL.Path, "/repos/acme/policies/git/trees/")
		if ref != "main" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))

		entries := []map[string]any{{"path": "docs", "type": "tree", "sha": "dir"}}
		for p, content := range f.files {
			entries = append(entries, map[string]any{
				"path": p, "type": "blob", "sha": "sha-" + p, "size": len(content),
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sha": "tree", "tree": entries, "truncated": false})
	})

	mux.HandleFunc("/repos/acme/policies/git/blobs/", func(w http.ResponseWriter, r *http.Request) {
		p := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/repos/acme/policies/git/blobs/"), "sha-")
		content, ok := f.files[p]
		if !ok || p == f.brokenBlob {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"boom"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sha":      "sha-" + p,
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(content)),
		})
	})

	return mux
}

func newTestSource(t *testing.T, f *fakeGitHub, cfg Config) *Source {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	client, err := NewClientWithHTTPClient(srv.Client(), srv.URL, 1000)
	require.NoError(t, err)

	if cfg.Owner == "" {
		cfg.Owner, cfg.Repo = "acme", "policies"
	}
	s, err := NewWithClient(cfg, client, nil)
	require.NoError(t, err)
	return s
}

func drain(t *testing.T, s *Source) ([]domain.RawDocument, []error) {
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
	return docs, errs
}

func byPath(docs []domain.RawDocument) map[string]domain.RawDocument {
	out := make(map[string]domain.RawDocument, len(docs))
	for _, d := range docs {
		out[d.Metadata["path"]] = d
	}
	return out
}

func TestSource_Fetch(t *testing.T) {
	f := &fakeGitHub{files: map[string]string{
		"docs/security.md":         "# Security",
		"docs/privacy.txt":         "We respect privacy.",
		"src/main.go":              "package main",
		".github/workflows/ci.yml": "on: push",
		"assets/logo.png":          "png",
	}}
	s := newTestSource(t, f, Config{})

	docs, errs := drain(t, s)
	assert.Empty(t, errs)

	got := byPath(docs)
	require.Len(t, got, 2)

	sec := got["docs/security.md"]
	assert.Equal(t, "security.md", sec.Filename)
	assert.Equal(t, "text/markdown", sec.MIMEType)
	assert.Equal(t, []byte("# Security"), sec.Content)
	assert.Equal(t, "github://acme/policies/blob/main/docs/security.md", sec.URI)
	assert.Equal(t, "main", sec.Metadata["branch"])
	assert.Equal(t, "https://github.com/acme/policies/blob/main/docs/security.md", sec.Metadata["html_url"])

	assert.Contains(t, got, "docs/privacy.txt")
}

func TestSource_FetchFilters(t *testing.T) {
	f := &fakeGitHub{files: map[string]string{
		"docs/a.md":     "a",
		"docs/b.txt":    "b",
		"handbook/c.md": "c",
		"docs/big.md":   strings.Repeat("x", 100),
	}}
	s := newTestSource(t, f, Config{Branch: "main", Paths: []string{"/docs/"}, FilePatterns: []string{"*.md"}, MaxFileSize: 50})

	docs, errs := drain(t, s)
	assert.Empty(t, errs)
	got := byPath(docs)
	require.Len(t, got, 1)
	assert.Contains(t, got, "docs/a.md")
}

func TestSource_FetchReportsBlobErrors(t *testing.T) {
	f := &fakeGitHub{
		files:      map[string]string{"a.md": "a", "b.md": "b"},
		brokenBlob: "b.md",
	}
	s := newTestSource(t, f, Config{})

	docs, errs := drain(t, s)
	require.Len(t, docs, 1)
	assert.Equal(t, "a.md", docs[0].Filename)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "b.md")
}

func TestSource_FetchUnknownBranch(t *testing.T) {
	s := newTestSource(t, &fakeGitHub{files: map[string]string{"a.md": "a"}}, Config{Branch: "release"})

	docs, errs := drain(t, s)
	assert.Empty(t, docs)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrBranchNotFound)
}

func TestSource_Validate(t *testing.T) {
	s := newTestSource(t, &fakeGitHub{}, Config{})
	assert.NoError(t, s.Validate(context.Background()))

	missing := newTestSource(t, &fakeGitHub{missing: true}, Config{})
	err := missing.Validate(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, err, ErrRepoNotFound)
}

func TestSource_Name(t *testing.T) {
	s := newTestSource(t, &fakeGitHub{}, Config{})
	assert.Equal(t, "github:acme/policies", s.Name())

	var _ driven.DocumentSource = s
}

func TestNew_RequiresRepository(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNewClient_SendsToken(t *testing.T) {
	f := &fakeGitHub{}
	srv := httptest.NewServer(f.handler(t))
	defer srv.Close()

	client, err := NewClient(context.Background(), "ghp_test", srv.URL, 1000)
	require.NoError(t, err)

	_, err = client.GetRepository(context.Background(), "acme", "policies")
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "Bearer ghp_test", f.tokenSeen)
}

func TestParseRepository(t *testing.T) {
	owner, repo, err := ParseRepository("acme/policies")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "policies", repo)

	owner, repo, err = ParseRepository("https://github.com/acme/handbook.git")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "handbook", repo)

	for _, bad := range []string{"", "acme", "/policies", "acme/", "a/b/c"} {
		_, _, err := ParseRepository(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, bad)
	}
}

func TestParsePatterns(t *testing.T) {
	assert.Equal(t, []string{"*.md", "docs/*.txt"}, ParsePatterns(" *.md, ,docs/*.txt "))
	assert.Empty(t, ParsePatterns(""))
}

func TestMatchesPatterns(t *testing.T) {
	assert.True(t, matchesPatterns("docs/a.md", nil))
	assert.True(t, matchesPatterns("docs/a.md", []string{"*.md"}))
	assert.True(t, matchesPatterns("docs/a.md", []string{"docs/*"}))
	assert.False(t, matchesPatterns("docs/a.md", []string{"*.txt"}))
}

func TestUnderPaths(t *testing.T) {
	assert.True(t, underPaths("docs/a.md", nil))
	assert.True(t, underPaths("docs/a.md", []string{"docs"}))
	assert.True(t, underPaths("docs/sub/a.md", []string{"/docs/"}))
	assert.False(t, underPaths("docsx/a.md", []string{"docs"}))
}

func TestWrapError(t *testing.T) {
	c := &Client{throttle: newThrottle(0)}

	reset := time.Now().Add(time.Hour).Truncate(time.Second)
	rl := &gh.RateLimitError{Rate: gh.Rate{Limit: 5000, Remaining: 0, Reset: gh.Timestamp{Time: reset}}}
	err := c.wrapError(rl, "get tree")
	assert.True(t, IsRateLimited(err))

	resp := &http.Response{StatusCode: http.StatusUnauthorized, Request: httptest.NewRequest(http.MethodGet, "/user", nil)}
	err = c.wrapError(&gh.ErrorResponse{Response: resp, Message: "Bad credentials"}, "get repo")
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "Bad credentials")

	assert.NoError(t, c.wrapError(nil, "noop"))
}

func TestThrottle_Observe(t *testing.T) {
	th := newThrottle(1000)
	reset := gh.Timestamp{Time: time.Unix(1700000000, 0)}

	th.observe(gh.Rate{Limit: 60, Remaining: 42, Reset: reset})
	assert.Equal(t, gh.Rate{Limit: 60, Remaining: 42, Reset: reset}, th.snapshot())

	th.observe(gh.Rate{})
	assert.Equal(t, 42, th.snapshot().Remaining, "responses without rate headers are ignored")

	require.NoError(t, th.wait(context.Background()), "a past reset does not pause")
}

func TestThrottle_WaitHonoursContext(t *testing.T) {
	th := newThrottle(1000)
	th.observe(gh.Rate{Limit: 5000, Remaining: 0, Reset: gh.Timestamp{Time: time.Now().Add(time.Hour)}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, th.wait(ctx), context.DeadlineExceeded)
}

func TestWrapError_RateLimitUpdatesThrottle(t *testing.T) {
	c := &Client{throttle: newThrottle(0)}
	rl := &gh.RateLimitError{Rate: gh.Rate{Limit: 5000, Remaining: 3}}

	_ = c.wrapError(rl, "get blob")
	assert.Equal(t, 3, c.throttle.snapshot().Remaining)
}
