package services

import (
	"sort"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// Defaults for fragments with incomplete metadata.
const (
	unknownFilename = "Unknown"
	unknownFileType = "unknown"
)

// FormatSources maps ranked fragments to source references.
// The output is ordered by descending score; equal scores keep their
// retrieval order. The input slice is not modified.
func FormatSources(fragments []domain.RankedFragment) []domain.SourceReference {
	ordered := make([]domain.RankedFragment, len(fragments))
	copy(ordered, fragments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	sources := make([]domain.SourceReference, 0, len(ordered))
	for _, f := range ordered {
		sources = append(sources, formatSource(f))
	}
	return sources
}

func formatSource(f domain.RankedFragment) domain.SourceReference {
	ref := domain.SourceReference{
		DocumentID:     f.Metadata.DocumentID,
		Filename:       f.Metadata.Filename,
		ChunkIndex:     f.Metadata.ChunkIndex,
		RelevanceScore: f.Score,
		FileType:       f.Metadata.FileType,
		ContentPreview: preview(f.Content),
	}
	if ref.Filename == "" {
		ref.Filename = unknownFilename
	}
	if ref.FileType == "" {
		ref.FileType = unknownFileType
	}
	return ref
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) > domain.MaxPreviewLength {
		return string(runes[:domain.MaxPreviewLength])
	}
	return content
}
