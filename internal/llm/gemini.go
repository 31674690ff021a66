package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Groq-style model ids don't exist on Gemini, so the adapter pins its own
// chat model instead of forwarding the requested one.
const defaultGeminiModel = "gemini-1.5-flash-latest"

// geminiProvider maps the gateway contract onto the Gemini SDK: the system
// message becomes the model's system instruction, prior turns are replayed
// as chat history, and the final user message is sent.
type geminiProvider struct {
	client *genai.Client
}

func newGeminiProvider(ctx context.Context, apiKey string) (*geminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &geminiProvider{client: client}, nil
}

func (p *geminiProvider) Complete(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages for chat completion")
	}
	last := messages[len(messages)-1]
	if last.Role != "user" {
		return "", fmt.Errorf("last message in sequence is not from 'user'")
	}

	m := p.client.GenerativeModel(defaultGeminiModel)
	temp := float32(temperature)
	tokens := int32(maxTokens)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     &temp,
		MaxOutputTokens: &tokens,
	}

	var history []*genai.Content
	for _, msg := range messages[:len(messages)-1] {
		switch msg.Role {
		case "system":
			m.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(msg.Content)},
			}
		case "assistant":
			history = append(history, &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		default:
			history = append(history, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.Text(msg.Content)},
			})
		}
	}

	session := m.StartChat()
	session.History = history

	resp, err := session.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", fmt.Errorf("gemini SendMessage failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini response had no valid candidates")
	}

	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			out.WriteString(string(txt))
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("gemini response contained no text parts")
	}
	return out.String(), nil
}

func (p *geminiProvider) Close() error {
	return p.client.Close()
}
