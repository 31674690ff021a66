package llm

import (
	"context"
	"io"
	"log"

	"charhub.dev/character-chat/internal/config"
)

// Defaults for chat-completion requests. The orchestrator passes these on
// every call; they are constants here rather than magic per-call values.
const (
	DefaultModel       = "Llama3-8b-8192"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

const apologyReply = "I'm having trouble responding right now."

// Message is a single turn in a chat-completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider issues one chat-completion request against a remote model.
type Provider interface {
	Complete(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) (string, error)
}

// Service is the gateway in front of the remote model. It guarantees callers
// always get a string back: transport and provider failures are logged and
// replaced with a fixed apology, and without a credential it answers
// deterministically offline (stub mode).
type Service struct {
	provider Provider // nil means stub mode
}

func NewService(cfg config.Config) *Service {
	var (
		provider Provider
		err      error
	)

	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			log.Println("LLM gateway running in STUB mode (GEMINI_API_KEY not set)")
			return &Service{}
		}
		provider, err = newGeminiProvider(context.Background(), cfg.GeminiAPIKey)
	default:
		if cfg.GroqAPIKey == "" {
			log.Println("LLM gateway running in STUB mode (GROQ_API_KEY not set)")
			return &Service{}
		}
		provider = newGroqProvider(cfg.GroqAPIKey)
	}

	if err != nil {
		log.Printf("Failed to initialize %s provider, falling back to stub: %v", cfg.LLMProvider, err)
		return &Service{}
	}
	return &Service{provider: provider}
}

// NewStubService returns a Service locked to stub mode, regardless of
// environment. Use in tests.
func NewStubService() *Service {
	return &Service{}
}

// StubMode reports whether the gateway answers offline.
func (s *Service) StubMode() bool {
	return s.provider == nil
}

// Chat sends the full message sequence to the model and returns the reply
// text. It never returns an error: provider failures degrade to a fixed
// apology string so conversations continue instead of terminating.
func (s *Service) Chat(ctx context.Context, messages []Message, model string, temperature float64, maxTokens int) string {
	if s.provider == nil {
		return stubReply(messages)
	}

	text, err := s.provider.Complete(ctx, messages, model, temperature, maxTokens)
	if err != nil {
		log.Printf("LLM chat error: %v", err)
		return apologyReply
	}
	return text
}

func (s *Service) Close() {
	if closer, ok := s.provider.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Printf("Error closing LLM provider: %v", err)
		}
	}
}

// stubReply echoes the most recent user message so offline behavior is
// deterministic for development and tests.
func stubReply(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return "[stub] You said: " + messages[i].Content
		}
	}
	return "[stub] You said: "
}
