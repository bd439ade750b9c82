package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/complyqa/internal/core/domain"
	"github.com/custodia-labs/complyqa/internal/core/ports/driven"
)

func TestPromptRenderer_Defaults(t *testing.T) {
	r := NewPromptRenderer(nil)

	system, prompt, err := r.Render("How long?", "CTX")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultComplianceSystemPrompt, system)
	assert.Contains(t, prompt, "CTX")
	assert.Contains(t, prompt, "How long?")
	assert.NotContains(t, prompt, "{context}")
	assert.NotContains(t, prompt, "{question}")
}

func TestPromptRenderer_EmptyStoredPromptFallsBack(t *testing.T) {
	r := NewPromptRenderer(&mockPromptStore{prompts: map[string]string{
		driven.PromptComplianceSystem: "  ",
		driven.PromptComplianceUser:   "{question}|{context}",
	}})

	system, prompt, err := r.Render("q", "c")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultComplianceSystemPrompt, system)
	assert.Equal(t, "q|c", prompt)
}

func TestPromptRenderer_PlaceholdersInQuestionAreNotExpanded(t *testing.T) {
	r := NewPromptRenderer(&mockPromptStore{prompts: map[string]string{
		driven.PromptComplianceSystem: "sys",
		driven.PromptComplianceUser:   "{context} / {question}",
	}})

	_, prompt, err := r.Render("what is {context}?", "CTX")
	require.NoError(t, err)
	assert.Equal(t, "CTX / what is {context}?", prompt)
}

func TestPromptRenderer_StoreError(t *testing.T) {
	r := NewPromptRenderer(&mockPromptStore{err: errors.New("read failed")})
	_, _, err := r.Render("q", "c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read failed")
}
