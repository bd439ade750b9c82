package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
	"github.com/custodia-labs/complyqa/internal/logger"
)

// PromptRenderer builds the system instruction and user prompt for a question.
type PromptRenderer struct {
	store driven.PromptStore
}

// NewPromptRenderer creates a renderer. A nil store uses the built-in prompts.
func NewPromptRenderer(store driven.PromptStore) *PromptRenderer {
	return &PromptRenderer{store: store}
}

// Render returns the system instruction and the user prompt embedding the
// assembled context and question.
func (r *PromptRenderer) Render(question, context string) (system, prompt string, err error) {
	system, err = r.load(driven.PromptComplianceSystem, domain.DefaultComplianceSystemPrompt)
	if err != nil {
		return "", "", err
	}
	template, err := r.load(driven.PromptComplianceUser, domain.DefaultComplianceUserTemplate)
	if err != nil {
		return "", "", err
	}

	prompt = strings.NewReplacer(
		"{context}", context,
		"{question}", question,
	).Replace(template)

	return system, prompt, nil
}

func (r *PromptRenderer) load(name, fallback string) (string, error) {
	if r.store == nil {
		return fallback, nil
	}
	text, err := r.store.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn("Prompt %s is empty, using built-in default", name)
		return fallback, nil
	}
	return text, nil
}
