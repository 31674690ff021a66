package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Groq exposes an OpenAI-compatible chat-completions endpoint, so the
// standard OpenAI client pointed at their base URL is all that is needed.
const groqBaseURL = "https://api.groq.com/openai/v1"

type groqProvider struct {
	client openai.Client
}

func newGroqProvider(apiKey string) *groqProvider {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(groqBaseURL),
	)
	return &groqProvider{client: client}
}

func (p *groqProvider) Complete(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("groq chat completion failed: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
