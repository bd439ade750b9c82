// Package chunker provides the fragment-producing stage of the ingestion pipeline.
package chunker

import (
	"context"
	"strconv"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// fragmentNamespace scopes fragment IDs derived from document position.
var fragmentNamespace = uuid.MustParse("0b6f6d1e-3c1a-5f0e-9a57-6a0c1f3d2b10")

// Processor splits document content into overlapping chunks of at most
// chunkSize characters, cutting at sentence or word boundaries when one
// falls in the second half of the window.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// FragmentID returns the stable fragment ID for a document position, so
// re-ingesting a document overwrites rather than duplicates its fragments.
func FragmentID(documentID int64, chunkIndex int) string {
	key := strconv.FormatInt(documentID, 10) + ":" + strconv.Itoa(chunkIndex)
	return uuid.NewSHA1(fragmentNamespace, []byte(key)).String()
}

// Process splits the document content into fragments.
// Input fragments are ignored; this processor creates new ones.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Fragment) ([]domain.Fragment, error) {
	text := []rune(doc.Content)
	if len(text) == 0 {
		return nil, nil
	}

	fragments := make([]domain.Fragment, 0, len(text)/(p.chunkSize-p.overlap)+1)
	start := 0
	for start < len(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := min(start+p.chunkSize, len(text))
		if end < len(text) {
			end = p.boundary(text, start, end)
		}

		index := len(fragments)
		fragments = append(fragments, domain.Fragment{
			ID:       FragmentID(doc.ID, index),
			Content:  string(text[start:end]),
			Metadata: fragmentMetadata(doc, index),
		})

		if end == len(text) {
			break
		}
		next := p.nextStart(text, end)
		if next <= start {
			next = end
		}
		start = next
	}

	return fragments, nil
}

// boundary picks the cut point in (start, end]. It prefers the last sentence
// end, then the last whitespace, within the second half of the window.
func (p *Processor) boundary(text []rune, start, end int) int {
	floor := start + p.chunkSize/2
	for i := end; i > floor; i-- {
		if isSentenceEnd(text, i) {
			return i
		}
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(text[i-1]) {
			return i
		}
	}
	return end
}

// nextStart backs up by the overlap, then moves forward to a word start so
// the next chunk does not begin mid-word.
func (p *Processor) nextStart(text []rune, end int) int {
	next := end - p.overlap
	if next <= 0 || p.overlap == 0 {
		return end
	}
	for i := next; i < end; i++ {
		if unicode.IsSpace(text[i-1]) && !unicode.IsSpace(text[i]) {
			return i
		}
	}
	return next
}

// isSentenceEnd reports whether a cut before text[i] follows a sentence end:
// terminal punctuation then whitespace, or a blank line.
func isSentenceEnd(text []rune, i int) bool {
	if i < 2 || i > len(text) {
		return false
	}
	prev, last := text[i-2], text[i-1]
	if !unicode.IsSpace(last) {
		return false
	}
	return prev == '.' || prev == '!' || prev == '?' || (prev == '\n' && last == '\n')
}

func fragmentMetadata(doc *domain.Document, index int) domain.FragmentMetadata {
	meta := domain.FragmentMetadata{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		ChunkIndex: index,
		FileType:   doc.FileType,
	}
	if len(doc.Metadata) > 0 {
		meta.Extra = make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			switch k {
			case domain.MetaDocumentID, domain.MetaFilename, domain.MetaChunkIndex, domain.MetaFileType:
				continue
			}
			meta.Extra[k] = v
		}
	}
	return meta
}
