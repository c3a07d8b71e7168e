package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/danuartha/swara/repository"
)

const defaultOpenAIModel = openai.ChatModelGPT4oMini

// OpenAILLM implements the LargeLanguageModel interface using the OpenAI
// chat completions API.
type OpenAILLM struct {
	client openai.Client
	model  openai.ChatModel
}

// Ensure OpenAILLM implements the LargeLanguageModel interface
var _ repository.LargeLanguageModel = (*OpenAILLM)(nil)

// NewOpenAILLM creates a new OpenAI-backed LLM. An empty model selects
// gpt-4o-mini.
func NewOpenAILLM(apiKey, model string) (*OpenAILLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	m := openai.ChatModel(model)
	if model == "" {
		m = defaultOpenAIModel
	}
	return &OpenAILLM{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}, nil
}

// Generate implements repository.LargeLanguageModel
func (o *OpenAILLM) Generate(ctx context.Context, prompt, systemPrompt string, maxTokens int) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	params := openai.ChatCompletionNewParams{
		Model:    o.model,
		Messages: messages,
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(maxTokens))
	}

	response, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no content generated")
	}

	reply := response.Choices[0].Message.Content
	if reply == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return reply, nil
}
