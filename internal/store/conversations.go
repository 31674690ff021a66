package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ConversationStore owns conversation lifecycle: an in-memory map keyed by
// conversation id, one JSON file per conversation on disk.
//
// Two locks are involved. mu guards the map and all ConversationState
// fields. locks holds one mutex per conversation id, taken around
// Append/Persist so two concurrent turns on the same conversation serialize
// their mutations and file writes in call order instead of losing updates.
// The sweeper only ever takes mu, so sweeping can never block behind a
// conversation's file write.
type ConversationStore struct {
	dir string

	mu            sync.RWMutex
	conversations map[string]*ConversationState

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewConversationStore loads all persisted conversations from dataDir. It
// fails only if the conversations directory cannot be created; individual
// corrupt records are skipped with a log line.
func NewConversationStore(dataDir string) (*ConversationStore, error) {
	dir := filepath.Join(dataDir, "conversations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}

	s := &ConversationStore{
		dir:           dir,
		conversations: make(map[string]*ConversationState),
		locks:         make(map[string]*sync.Mutex),
	}
	s.load()
	return s, nil
}

func (s *ConversationStore) load() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Printf("Error loading conversations: %v", err)
		return
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Error loading conversation %s: %v", path, err)
			continue
		}
		var conversation ConversationState
		if err := json.Unmarshal(data, &conversation); err != nil {
			log.Printf("Error loading conversation %s: %v", path, err)
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		s.conversations[id] = &conversation
		loaded++
	}
	log.Printf("Loaded %d conversations", loaded)
}

func (s *ConversationStore) lockFor(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// Ensure is the sole creation path for conversations. An empty or unknown id
// mints a fresh UUID-backed conversation; a known id is returned unchanged.
func (s *ConversationStore) Ensure(conversationID, userID, characterID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversationID != "" {
		if _, ok := s.conversations[conversationID]; ok {
			return conversationID
		}
	}

	id := uuid.NewString()
	s.conversations[id] = &ConversationState{
		Messages:     []Message{},
		LastActivity: time.Now(),
		CharacterID:  characterID,
		UserID:       userID,
		Active:       true,
	}
	return id
}

// Append normalizes content and adds it as a new message, advancing
// last_activity. Message order is append order; nothing ever reorders it.
func (s *ConversationStore) Append(conversationID string, role Role, content string) error {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	conversation, ok := s.conversations[conversationID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	conversation.Messages = append(conversation.Messages, NewMessage(role, content))
	conversation.LastActivity = time.Now()
	return nil
}

// Persist writes one conversation to its file. Unknown ids are a no-op and
// write failures are logged, not returned: the conversation keeps living in
// memory until the next successful write.
func (s *ConversationStore) Persist(conversationID string) {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	conversation, ok := s.conversations[conversationID]
	if !ok {
		s.mu.RUnlock()
		return
	}
	data, err := json.MarshalIndent(conversation, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		log.Printf("Error saving conversation %s: %v", conversationID, err)
		return
	}

	path := filepath.Join(s.dir, conversationID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Printf("Error saving conversation %s: %v", conversationID, err)
		return
	}
	log.Printf("Saved conversation %s", conversationID)
}

// Get returns a snapshot of one conversation.
func (s *ConversationStore) Get(conversationID string) (ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[conversationID]
	if !ok {
		return ConversationState{}, fmt.Errorf("%w: %s", ErrConversationNotFound, conversationID)
	}
	snapshot := *conversation
	snapshot.Messages = append([]Message(nil), conversation.Messages...)
	return snapshot, nil
}

// SweepInactive flags every active conversation whose last activity is older
// than timeout. It only flips the flag; data is never deleted, and re-running
// it on an already-inactive conversation changes nothing.
func (s *ConversationStore) SweepInactive(timeout time.Duration) error {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, conversation := range s.conversations {
		if conversation.Active && now.Sub(conversation.LastActivity) > timeout {
			conversation.Active = false
			log.Printf("Conversation %s marked as inactive due to timeout", id)
		}
	}
	return nil
}

// ListForUser summarizes a user's conversations, most recently active first.
// Counts and previews consider non-system messages only.
func (s *ConversationStore) ListForUser(userID string) []ConversationSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]ConversationSummary, 0)
	for id, conversation := range s.conversations {
		if conversation.UserID != userID {
			continue
		}

		count := 0
		preview := ""
		for _, m := range conversation.Messages {
			if m.Role == RoleSystem {
				continue
			}
			count++
			preview = m.Content
		}
		if len(preview) > 100 {
			preview = preview[:100] + "..."
		}

		summaries = append(summaries, ConversationSummary{
			ID:           id,
			CharacterID:  conversation.CharacterID,
			LastActivity: conversation.LastActivity,
			MessageCount: count,
			Preview:      preview,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].LastActivity.Equal(summaries[j].LastActivity) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries
}
