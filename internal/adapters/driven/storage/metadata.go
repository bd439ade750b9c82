package storage

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/custodia-labs/complyqa/internal/core/domain"
)

// legacyKeys maps alternative metadata key spellings to canonical keys.
var legacyKeys = map[string]string{
	"file_name": domain.MetaFilename,
	"fileName":  domain.MetaFilename,
	"chunk_id":  domain.MetaChunkIndex,
	"doc_id":    domain.MetaDocumentID,
}

// NormaliseMetadata converts backend metadata into canonical fragment metadata.
// Legacy key names are accepted, numeric fields may arrive as numbers or
// strings, and unparsable values are left at their zero value.
func NormaliseMetadata(raw map[string]any) domain.FragmentMetadata {
	var meta domain.FragmentMetadata

	for key, value := range raw {
		canonical := key
		if alias, ok := legacyKeys[key]; ok {
			canonical = alias
			// The canonical spelling wins when both are present.
			if _, both := raw[alias]; both {
				continue
			}
		}

		switch canonical {
		case domain.MetaDocumentID:
			if n, ok := toInt64(value); ok {
				meta.DocumentID = n
			}
		case domain.MetaChunkIndex:
			if n, ok := toInt64(value); ok {
				meta.ChunkIndex = int(n)
			}
		case domain.MetaFilename:
			meta.Filename = toString(value)
		case domain.MetaFileType:
			meta.FileType = toString(value)
		default:
			if value == nil {
				continue
			}
			if meta.Extra == nil {
				meta.Extra = make(map[string]string)
			}
			meta.Extra[key] = toString(value)
		}
	}

	return meta
}

// MetadataPayload converts fragment metadata into a backend payload map
// using canonical keys only.
func MetadataPayload(meta domain.FragmentMetadata) map[string]any {
	payload := make(map[string]any, len(meta.Extra)+4)
	for k, v := range meta.Extra {
		payload[k] = v
	}
	payload[domain.MetaDocumentID] = meta.DocumentID
	payload[domain.MetaChunkIndex] = meta.ChunkIndex
	payload[domain.MetaFilename] = meta.Filename
	payload[domain.MetaFileType] = meta.FileType
	return payload
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return int64(n), true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return parsed, err == nil
	case fmt.Stringer:
		parsed, err := strconv.ParseInt(n.String(), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		if s == math.Trunc(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
