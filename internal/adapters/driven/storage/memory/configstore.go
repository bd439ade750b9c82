package memory

import (
	"sync"

	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

var _ driven.ConfigStore = (*ConfigStore)(nil)

// ConfigStore keeps settings in a map. It backs tests and runs that
// should not touch ~/.complyqa/config.toml.
type ConfigStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewConfigStore creates an empty store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{values: make(map[string]any)}
}

func (s *ConfigStore) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok
}

func (s *ConfigStore) GetString(key string) string {
	str, _ := lookup(s, key, func(v any) (string, bool) {
		str, ok := v.(string)
		return str, ok
	})
	return str
}

// GetInt accepts any numeric value, truncating floats.
func (s *ConfigStore) GetInt(key string) int {
	f, _ := lookup(s, key, asFloat)
	return int(f)
}

func (s *ConfigStore) GetFloat(key string) float64 {
	f, _ := lookup(s, key, asFloat)
	return f
}

func (s *ConfigStore) GetBool(key string) bool {
	b, _ := lookup(s, key, func(v any) (bool, bool) {
		b, ok := v.(bool)
		return b, ok
	})
	return b
}

// GetStringSlice drops non-string elements of a mixed slice.
func (s *ConfigStore) GetStringSlice(key string) []string {
	out, _ := lookup(s, key, func(v any) ([]string, bool) {
		switch v := v.(type) {
		case []string:
			return v, true
		case []any:
			strs := make([]string, 0, len(v))
			for _, item := range v {
				if str, ok := item.(string); ok {
					strs = append(strs, str)
				}
			}
			return strs, true
		}
		return nil, false
	})
	return out
}

func (s *ConfigStore) Set(key string, value any) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

// Save and Load are no-ops; nothing is persisted.
func (s *ConfigStore) Save() error { return nil }
func (s *ConfigStore) Load() error { return nil }

func (s *ConfigStore) Path() string { return ":memory:" }

// lookup reads key and converts it, returning the zero value when the key
// is missing or has the wrong type.
func lookup[T any](s *ConfigStore, key string, conv func(any) (T, bool)) (T, bool) {
	var zero T
	val, ok := s.Get(key)
	if !ok {
		return zero, false
	}
	out, ok := conv(val)
	if !ok {
		return zero, false
	}
	return out, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
