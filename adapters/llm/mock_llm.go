package llm

import (
	"context"
	"strings"

	"github.com/danuartha/swara/repository"
)

// MockLLM is a placeholder implementation for reply generation
type MockLLM struct{}

// NewMockLLM creates a new mock LLM client
func NewMockLLM() repository.LargeLanguageModel {
	return &MockLLM{}
}

// Generate implements repository.LargeLanguageModel
func (m *MockLLM) Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
	switch {
	case strings.Contains(strings.ToLower(prompt), "lights"):
		return "Sure, turning on the lights now.", nil
	case strings.Contains(strings.ToLower(prompt), "story"):
		return "Once upon a time there was a little robot who loved to listen.", nil
	default:
		return "I heard you! What would you like to talk about?", nil
	}
}
