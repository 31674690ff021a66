package store

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrCharacterNotFound    = errors.New("character not found")
	ErrConversationNotFound = errors.New("conversation not found")
	ErrUserNotFound         = errors.New("user not found")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// rolePrefixes are artifacts some models echo at the start of a turn.
var rolePrefixes = []string{
	"MessageRole.ASSISTANT:",
	"MessageRole.ASSISTANT",
	"Assistant:",
	"assistant:",
	"ASSISTANT:",
	"user:",
	"USER:",
	"system:",
	"SYSTEM:",
}

// NewMessage normalizes content on construction: the first matching
// role-echo prefix is stripped, further matches are left alone.
func NewMessage(role Role, content string) Message {
	content = strings.TrimSpace(content)
	for _, prefix := range rolePrefixes {
		if strings.HasPrefix(content, prefix) {
			content = strings.TrimSpace(strings.TrimPrefix(content, prefix))
			break
		}
	}
	return Message{Role: role, Content: content, Timestamp: time.Now()}
}

type Character struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Personality  string   `json:"personality"`
	SystemPrompt string   `json:"system_prompt"`
	AvatarURL    string   `json:"avatar_url"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
}

type ConversationState struct {
	Messages     []Message `json:"messages"`
	LastActivity time.Time `json:"last_activity"`
	CharacterID  string    `json:"character_id"`
	UserID       string    `json:"user_id"`
	Active       bool      `json:"active"`
}

// ConversationSummary is one row of a per-user conversation listing.
// CharacterName is filled in by the platform layer; a dangling character
// reference becomes "Unknown Character" there rather than an error.
type ConversationSummary struct {
	ID            string    `json:"id"`
	CharacterID   string    `json:"character_id"`
	CharacterName string    `json:"character_name,omitempty"`
	LastActivity  time.Time `json:"last_activity"`
	MessageCount  int       `json:"message_count"`
	Preview       string    `json:"preview"`
}

type UserProfile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	LastLogin    time.Time `json:"last_login"`
	Favorites    []string  `json:"favorites"`
}
