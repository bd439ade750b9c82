package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/complyqa/internal/postprocessors/clean"
)

// DefaultStages is the pipeline used when configuration names none.
var DefaultStages = []string{"chunker", "clean"}

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("clean", buildClean)
}

// BuildPipeline builds a pipeline from stage names, each configured from
// cfg[name]. The first stage must create fragments, so it must be "chunker".
func BuildPipeline(r *Registry, stages []string, cfg map[string]map[string]any) (*Pipeline, error) {
	if len(stages) == 0 {
		stages = DefaultStages
	}
	if stages[0] != "chunker" {
		return nil, fmt.Errorf("pipeline must start with chunker, got %q", stages[0])
	}

	p := NewPipeline()
	for _, name := range stages {
		proc, err := r.Build(name, cfg[name])
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1000)
//   - overlap (int): Overlapping characters between chunks (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size, ok := getIntFromConfig(cfg, "chunk_size"); ok && size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if overlap, ok := getIntFromConfig(cfg, "overlap"); ok && overlap >= 0 {
			opts = append(opts, chunker.WithOverlap(overlap))
		}
	}

	return chunker.New(opts...), nil
}

// buildClean creates the whitespace cleanup processor.
// Supported config keys:
//   - min_length (int): Fragments shorter than this are dropped (default: 1)
func buildClean(cfg map[string]any) (driven.PostProcessor, error) {
	minLength := 1
	if n, ok := getIntFromConfig(cfg, "min_length"); ok && n > 0 {
		minLength = n
	}
	return clean.New(minLength), nil
}

// getIntFromConfig extracts an int from a generic config map.
// Handles int, int64, and float64 types that come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) (int, bool) {
	val, ok := cfg[key]
	if !ok {
		return 0, false
	}

	switch v := val.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
