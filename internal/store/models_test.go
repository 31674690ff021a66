package store

import (
	"testing"
	"time"
)

func TestNewMessageStripsRolePrefixes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"assistant prefix", "Assistant: Hello there", "Hello there"},
		{"uppercase prefix", "ASSISTANT: Hello", "Hello"},
		{"lowercase prefix", "assistant: Hello", "Hello"},
		{"enum artifact", "MessageRole.ASSISTANT: Hello", "Hello"},
		{"user prefix", "user: Hi", "Hi"},
		{"no prefix", "Just a normal message", "Just a normal message"},
		{"prefix mid-message untouched", "I said Assistant: hello", "I said Assistant: hello"},
		{"only first match stripped", "Assistant: Assistant: hi", "Assistant: hi"},
		{"surrounding whitespace", "  Assistant:   spaced out  ", "spaced out"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewMessage(RoleAssistant, tt.content)
			if msg.Content != tt.want {
				t.Errorf("NewMessage content = %q, want %q", msg.Content, tt.want)
			}
		})
	}
}

func TestNewMessageSetsTimestamp(t *testing.T) {
	before := time.Now()
	msg := NewMessage(RoleUser, "hello")
	after := time.Now()

	if msg.Role != RoleUser {
		t.Errorf("role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Timestamp.Before(before) || msg.Timestamp.After(after) {
		t.Errorf("timestamp %v not in [%v, %v]", msg.Timestamp, before, after)
	}
}
