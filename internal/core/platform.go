package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"charhub.dev/character-chat/internal/llm"
	"charhub.dev/character-chat/internal/store"
)

// ErrRespondFailed wraps unexpected failures on the respond path. Callers
// should treat it as a server-side fault; store.ErrCharacterNotFound is the
// only user-attributable error Respond returns.
var ErrRespondFailed = errors.New("failed to generate response")

// Farewell is sent when an exit phrase ends a streaming session.
const Farewell = "Goodbye! Let me know if you'd like to continue our conversation later."

// exitPhrases end a streaming chat session when any of them appears in a
// lowercased inbound turn.
var exitPhrases = []string{"thank you", "thanks", "bye", "goodbye", "exit", "stop"}

// responsePrefixes are role echoes some models prepend to a reply; Respond
// strips the first match only.
var responsePrefixes = []string{
	"MessageRole.ASSISTANT:",
	"MessageRole.ASSISTANT",
	"Assistant:",
	"assistant:",
	"ASSISTANT:",
	"Response:",
	"Answer:",
}

// Gateway is the slice of the LLM service the platform needs.
type Gateway interface {
	Chat(ctx context.Context, messages []llm.Message, model string, temperature float64, maxTokens int) string
}

// Platform is the conversation orchestrator: it ties the character,
// conversation and user stores to the LLM gateway.
type Platform struct {
	characters    *store.CharacterStore
	conversations *store.ConversationStore
	users         *store.UserStore
	llm           Gateway
}

func NewPlatform(characters *store.CharacterStore, conversations *store.ConversationStore, users *store.UserStore, gateway Gateway) *Platform {
	return &Platform{
		characters:    characters,
		conversations: conversations,
		users:         users,
		llm:           gateway,
	}
}

type RespondResult struct {
	ConversationID string
	Response       string
}

// Respond turns one inbound user message into a persisted exchange: it
// resolves the character, ensures the conversation, assembles the prompt,
// invokes the gateway, cleans the reply and appends user then assistant
// turns before persisting.
func (p *Platform) Respond(ctx context.Context, message, conversationID, characterID, userID string) (RespondResult, error) {
	character, err := p.characters.Get(characterID)
	if err != nil {
		return RespondResult{}, err
	}

	convID := p.conversations.Ensure(conversationID, userID, characterID)
	conversation, err := p.conversations.Get(convID)
	if err != nil {
		log.Printf("Error generating response for conversation %s: %v", convID, err)
		return RespondResult{}, ErrRespondFailed
	}

	// First message iff no prior user turn exists. Recomputed from history
	// every call, never cached.
	firstMessage := true
	for _, m := range conversation.Messages {
		if m.Role == store.RoleUser {
			firstMessage = false
			break
		}
	}

	systemPrompt := character.SystemPrompt
	if firstMessage {
		systemPrompt = fmt.Sprintf(
			"%s\n\nYou are %s. %s\nPersonality: %s\n\nThis is the first message from the user. Introduce yourself briefly and then respond to their message.",
			systemPrompt, character.Name, character.Description, character.Personality,
		)
	}

	// System messages stored in history are excluded from the replay so the
	// system role appears exactly once, at the head.
	messages := []llm.Message{{Role: "system", Content: systemPrompt}}
	for _, m := range conversation.Messages {
		if m.Role == store.RoleSystem {
			continue
		}
		messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: message})

	reply := p.llm.Chat(ctx, messages, llm.DefaultModel, llm.DefaultTemperature, llm.DefaultMaxTokens)
	cleaned := cleanResponse(reply)

	if err := p.conversations.Append(convID, store.RoleUser, message); err != nil {
		log.Printf("Error appending user message to conversation %s: %v", convID, err)
		return RespondResult{}, ErrRespondFailed
	}
	if err := p.conversations.Append(convID, store.RoleAssistant, cleaned); err != nil {
		log.Printf("Error appending assistant message to conversation %s: %v", convID, err)
		return RespondResult{}, ErrRespondFailed
	}
	p.conversations.Persist(convID)

	return RespondResult{ConversationID: convID, Response: cleaned}, nil
}

func cleanResponse(response string) string {
	response = strings.TrimSpace(response)
	for _, prefix := range responsePrefixes {
		if strings.HasPrefix(response, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(response, prefix))
		}
	}
	return response
}

// IsExitMessage reports whether a lowercased turn contains any exit phrase.
func IsExitMessage(text string) bool {
	lowered := strings.ToLower(text)
	for _, phrase := range exitPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// Character flows

func (p *Platform) GenerateCharacter(ctx context.Context, topic string, traits []string) store.Character {
	return p.characters.Generate(ctx, topic, traits)
}

func (p *Platform) Character(id string) (store.Character, error) {
	return p.characters.Get(id)
}

func (p *Platform) Characters() []store.Character {
	return p.characters.List()
}

// Conversation queries

// ConversationMessages returns a conversation's non-system messages in
// order.
func (p *Platform) ConversationMessages(conversationID string) ([]store.Message, error) {
	conversation, err := p.conversations.Get(conversationID)
	if err != nil {
		return nil, err
	}
	messages := make([]store.Message, 0, len(conversation.Messages))
	for _, m := range conversation.Messages {
		if m.Role == store.RoleSystem {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// UserConversations lists a user's conversation summaries, decorated with
// the character's name. A conversation whose character was deleted degrades
// to "Unknown Character" rather than failing.
func (p *Platform) UserConversations(userID string) []store.ConversationSummary {
	summaries := p.conversations.ListForUser(userID)
	for i := range summaries {
		character, err := p.characters.Get(summaries[i].CharacterID)
		if err != nil {
			summaries[i].CharacterName = "Unknown Character"
			continue
		}
		summaries[i].CharacterName = character.Name
	}
	return summaries
}

// User flows

func (p *Platform) CreateUser(username, password string) (*store.UserProfile, error) {
	return p.users.Create(username, password)
}

func (p *Platform) AuthenticateUser(username, password string) (*store.UserProfile, error) {
	return p.users.Authenticate(username, password)
}
