package repository

import "context"

// LargeLanguageModel abstracts any chat/LLM provider
type LargeLanguageModel interface {
	// Generate takes a user prompt plus a system instruction and returns the
	// model's reply text. maxTokens caps the reply length; zero means the
	// provider default.
	Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error)
}
