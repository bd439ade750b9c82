// Package xlsx provides a Normaliser implementation for Excel workbooks.
// Each sheet becomes a "Sheet: <name>" block with one line per non-empty
// row and cells joined by " | ", which keeps control matrices and risk
// registers readable after chunking.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the content type of Office Open XML workbooks.
const MIMEType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const cellSeparator = " | "

// Normaliser handles XLSX workbooks.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts a workbook to text using cached cell values.
// Formulas are not recalculated.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%s is not an xlsx workbook: %w", raw.URI, domain.ErrInvalidInput)
	}
	defer f.Close()

	content, err := workbookText(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw.URI, err)
	}

	filename := raw.Filename
	if filename == "" {
		filename = filepath.Base(raw.URI)
	}

	metadata := make(map[string]string, len(raw.Metadata)+3)
	for k, v := range raw.Metadata {
		metadata[k] = v
	}
	metadata["mime_type"] = raw.MIMEType
	metadata["format"] = "xlsx"
	metadata["sheets"] = fmt.Sprint(f.SheetCount)

	return &domain.Document{
		URI:       raw.URI,
		Filename:  filename,
		FileType:  "xlsx",
		Title:     extractTitle(f, filename),
		Content:   content,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}, nil
}

func workbookText(ctx context.Context, f *excelize.File) (string, error) {
	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %q: %w", sheet, domain.ErrInvalidInput)
		}

		fmt.Fprintf(&b, "Sheet: %s\n", sheet)
		for _, row := range rows {
			row = trimEmptyCells(row)
			if len(row) == 0 {
				continue
			}
			b.WriteString(strings.Join(row, cellSeparator))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// trimEmptyCells drops trailing blank cells; a blank row becomes empty.
func trimEmptyCells(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}

// extractTitle reads the workbook title from docProps/core.xml or falls
// back to the file name.
func extractTitle(f *excelize.File, filename string) string {
	props, err := f.GetDocProps()
	if err != nil {
		logger.Debug("xlsx doc props: %v", err)
	} else if t := strings.TrimSpace(props.Title); t != "" {
		return t
	}

	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
