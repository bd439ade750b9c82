package drive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"google.golang.org/api/drive/v3"

	"github.com/custodia-labs/complyqa/internal/connectors/google"
	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/normalisers"
)

// Google Workspace MIME types.
const (
	MimeTypeGoogleDoc   = "application/vnd.google-apps.document"
	MimeTypeGoogleSheet = "application/vnd.google-apps.spreadsheet"
	MimeTypeFolder      = "application/vnd.google-apps.folder"
)

// Export formats for Google Workspace files.
const (
	ExportMimeText = "text/plain"
	ExportMimeCSV  = "text/csv"
)

const listFields = "nextPageToken, files(id, name, mimeType, size, modifiedTime, webViewLink, parents)"

// export describes how a Workspace file is converted for ingestion.
type export struct {
	mimeType  string
	extension string
}

// exportFor returns the export format for a Workspace file, if enabled.
func exportFor(cfg *Config, mimeType string) (export, bool) {
	switch {
	case mimeType == MimeTypeGoogleDoc && cfg.HasContentType(ContentDocs):
		return export{mimeType: ExportMimeText, extension: ".txt"}, true
	case mimeType == MimeTypeGoogleSheet && cfg.HasContentType(ContentSheets):
		return export{mimeType: ExportMimeCSV, extension: ".csv"}, true
	default:
		return export{}, false
	}
}

// entry is a Drive file with its folder-relative path.
type entry struct {
	file *drive.File
	path string
}

// lister walks Drive folders.
type lister struct {
	svc     *drive.Service
	limiter *google.RateLimiter
	cfg     *Config
}

// children lists the non-trashed items directly inside a folder.
func (l *lister) children(ctx context.Context, folderID string) ([]*drive.File, error) {
	var files []*drive.File
	q := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	call := l.svc.Files.List().
		Q(q).
		PageSize(l.cfg.MaxResults).
		Fields(listFields).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true)

	err := call.Pages(ctx, func(page *drive.FileList) error {
		files = append(files, page.Files...)
		return l.limiter.Wait(ctx)
	})
	if err != nil {
		return nil, l.wrap(err)
	}
	return files, nil
}

// walk collects the documents under a folder in listing order.
// Folder errors are reported through onErr and the walk continues.
func (l *lister) walk(
	ctx context.Context, folderID, prefix string, accept func(string) bool, onErr func(error) bool,
) ([]entry, bool) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, false
	}
	files, err := l.children(ctx, folderID)
	if err != nil {
		return nil, onErr(fmt.Errorf("list folder %s: %w", folderID, err))
	}

	var out []entry
	for _, f := range files {
		p := path.Join(prefix, f.Name)
		switch {
		case f.MimeType == MimeTypeFolder:
			if !l.cfg.Recursive {
				continue
			}
			sub, ok := l.walk(ctx, f.Id, p, accept, onErr)
			out = append(out, sub...)
			if !ok {
				return out, false
			}
		case strings.HasPrefix(f.MimeType, "application/vnd.google-apps."):
			if _, ok := exportFor(l.cfg, f.MimeType); ok {
				out = append(out, entry{file: f, path: p})
			}
		default:
			if l.cfg.HasContentType(ContentFiles) && accept(f.Name) {
				out = append(out, entry{file: f, path: p})
			}
		}
	}
	return out, true
}

// document downloads or exports a file and builds its RawDocument.
func (l *lister) document(ctx context.Context, e entry) (*domain.RawDocument, error) {
	f := e.file
	name := f.Name
	mimeType := normalisers.MIMETypeFromName(name)

	var body io.ReadCloser
	if ex, ok := exportFor(l.cfg, f.MimeType); ok {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := l.svc.Files.Export(f.Id, ex.mimeType).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", e.path, l.wrap(err))
		}
		body = resp.Body
		mimeType = ex.mimeType
		if !strings.HasSuffix(strings.ToLower(name), ex.extension) {
			name += ex.extension
		}
	} else {
		if f.Size > l.cfg.MaxFileSize {
			return nil, fmt.Errorf("%s is %d bytes, over the %d byte limit: %w",
				e.path, f.Size, l.cfg.MaxFileSize, domain.ErrInvalidInput)
		}
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := l.svc.Files.Get(f.Id).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", e.path, l.wrap(err))
		}
		body = resp.Body
	}
	defer body.Close()

	content, err := io.ReadAll(io.LimitReader(body, l.cfg.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.path, err)
	}
	if int64(len(content)) > l.cfg.MaxFileSize {
		return nil, fmt.Errorf("%s exceeds the %d byte limit: %w", e.path, l.cfg.MaxFileSize, domain.ErrInvalidInput)
	}

	meta := map[string]string{
		"file_id":        f.Id,
		"path":           e.path,
		"drive_mimetype": f.MimeType,
	}
	if f.WebViewLink != "" {
		meta["web_link"] = f.WebViewLink
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		meta["modified"] = t.UTC().Format(time.RFC3339)
	}

	return &domain.RawDocument{
		URI:      "gdrive://files/" + f.Id,
		Filename: name,
		MIMEType: mimeType,
		Content:  content,
		Metadata: meta,
	}, nil
}

// wrap classifies API errors and backs off after a 429.
func (l *lister) wrap(err error) error {
	if google.IsRateLimited(err) {
		l.limiter.RecordRateLimitError(0)
	}
	return google.WrapError(err)
}
