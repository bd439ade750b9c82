package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads answer prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains the embedded prompts, keyed by prompt name.
var defaultPrompts = map[string]string{
	driven.PromptComplianceSystem: domain.DefaultComplianceSystemPrompt,
	driven.PromptComplianceUser:   domain.DefaultComplianceUserTemplate,
}

// PromptNames returns the names of the prompts the store manages, sorted.
func PromptNames() []string {
	return []string{driven.PromptComplianceSystem, driven.PromptComplianceUser}
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.complyqa/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".complyqa", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// A missing or empty file falls back to the embedded default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		if err == nil {
			err = domain.ErrNotFound
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Reset overwrites every prompt file with its embedded default.
func (s *PromptStore) Reset() error {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	for name, content := range defaultPrompts {
		if err := os.WriteFile(s.path(name), []byte(content), 0600); err != nil {
			return fmt.Errorf("reset prompt %q: %w", name, err)
		}
	}
	s.Reload()
	return nil
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// IsPromptFile reports whether path is one of the managed prompt files.
func (s *PromptStore) IsPromptFile(path string) bool {
	if filepath.Dir(filepath.Clean(path)) != filepath.Clean(s.promptDir) {
		return false
	}
	_, ok := defaultPrompts[strings.TrimSuffix(filepath.Base(path), ".txt")]
	return ok && strings.HasSuffix(path, ".txt")
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.promptDir, name+".txt")
}

// initialise creates the prompt directory and default files.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	for name, content := range defaultPrompts {
		path := s.path(name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil
	}

	content := `# complyqa prompts

These files control how complyqa asks the model to answer compliance questions.

## Files

- ` + "`compliance_system.txt`" + ` - system instruction sent with every question
- ` + "`compliance_user.txt`" + ` - user message wrapping the retrieved documents

## Placeholders

` + "`compliance_user.txt`" + ` must contain ` + "`{context}`" + ` and ` + "`{question}`" + `.
They are replaced with the retrieved compliance documents and the question.

Edits take effect on the next command. ` + "`complyqa serve`" + ` reloads them as soon
as the file is saved. Run ` + "`complyqa prompts reset`" + ` to restore the defaults.
`
	return os.WriteFile(path, []byte(content), 0600)
}
