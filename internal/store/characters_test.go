package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"charhub.dev/character-chat/internal/llm"
)

// fixedChatter returns a canned reply regardless of input.
type fixedChatter struct {
	reply string
}

func (f *fixedChatter) Chat(ctx context.Context, messages []llm.Message, model string, temperature float64, maxTokens int) string {
	return f.reply
}

func TestNewCharacterStoreSeedsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCharacterStore(dir, llm.NewStubService())
	if err != nil {
		t.Fatalf("NewCharacterStore: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "characters.json")); err != nil {
		t.Errorf("defaults were not persisted: %v", err)
	}

	coach, err := s.Get("coach")
	if err != nil {
		t.Fatalf("Get(coach): %v", err)
	}
	if coach.Name != "Interview Coach" {
		t.Errorf("coach name = %q", coach.Name)
	}
	if got := len(s.List()); got != 3 {
		t.Errorf("seeded %d characters, want 3", got)
	}
}

func TestGetUnknownCharacter(t *testing.T) {
	s, err := NewCharacterStore(t.TempDir(), llm.NewStubService())
	if err != nil {
		t.Fatalf("NewCharacterStore: %v", err)
	}
	if _, err := s.Get("doesnotexist"); !errors.Is(err, ErrCharacterNotFound) {
		t.Errorf("error = %v, want ErrCharacterNotFound", err)
	}
}

func TestLoadCorruptFileFallsBackToCoach(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "characters.json"), []byte("{{{"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	s, err := NewCharacterStore(dir, llm.NewStubService())
	if err != nil {
		t.Fatalf("NewCharacterStore must not fail on corrupt data: %v", err)
	}
	if _, err := s.Get("coach"); err != nil {
		t.Errorf("fallback coach missing: %v", err)
	}
	if got := len(s.List()); got != 1 {
		t.Errorf("fallback set has %d characters, want 1", got)
	}
}

func TestGenerateStructuredReply(t *testing.T) {
	dir := t.TempDir()
	reply := "Here is your character:\n```json\n" + `{
  "name": "Captain Nova",
  "description": "A fearless starship captain.",
  "personality": "Bold and curious.",
  "system_prompt": "You are Captain Nova, a starship captain.",
  "category": "scifi",
  "tags": ["space", "adventure"]
}` + "\n```\nEnjoy!"

	s, err := NewCharacterStore(dir, &fixedChatter{reply: reply})
	if err != nil {
		t.Fatalf("NewCharacterStore: %v", err)
	}

	character := s.Generate(context.Background(), "space", []string{"curious", "brave"})
	if !strings.HasPrefix(character.ID, "gen_") || len(character.ID) != len("gen_")+8 {
		t.Errorf("generated id = %q, want gen_<8 hex>", character.ID)
	}
	if character.Name != "Captain Nova" {
		t.Errorf("name = %q", character.Name)
	}
	if character.Category != "scifi" {
		t.Errorf("category = %q", character.Category)
	}
	if _, err := s.Get(character.ID); err != nil {
		t.Errorf("generated character not in store: %v", err)
	}
}

func TestGenerateBraceExtraction(t *testing.T) {
	reply := `Sure thing! {"name":"Sage","description":"A wise guide.","personality":"Calm.","system_prompt":"You are Sage."} Hope that helps.`
	s, err := NewCharacterStore(t.TempDir(), &fixedChatter{reply: reply})
	if err != nil {
		t.Fatalf("NewCharacterStore: %v", err)
	}

	character := s.Generate(context.Background(), "wisdom", nil)
	if character.Name != "Sage" {
		t.Errorf("name = %q, want Sage", character.Name)
	}
	// Missing category/tags fall back to generated defaults.
	if character.Category != "generated" {
		t.Errorf("category = %q, want generated", character.Category)
	}
	if len(character.Tags) == 0 || character.Tags[0] != "wisdom" {
		t.Errorf("tags = %v, want topic first", character.Tags)
	}
}

func TestGenerateFallbackOnInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	// The stub gateway echoes the prompt back, which is not valid JSON, so
	// generation must fall back rather than fail.
	s, err := NewCharacterStore(dir, llm.NewStubService())
	if err != nil {
		t.Fatalf("NewCharacterStore: %v", err)
	}

	character := s.Generate(context.Background(), "space", []string{"curious", "brave"})
	if !strings.HasPrefix(character.ID, "gen_") {
		t.Errorf("fallback id = %q, want gen_ prefix", character.ID)
	}
	if character.Name != "Generated Space" {
		t.Errorf("fallback name = %q", character.Name)
	}
	if len(character.Description) > 200 {
		t.Errorf("fallback description is %d chars, want <= 200", len(character.Description))
	}
	if character.Personality != "curious, brave" {
		t.Errorf("fallback personality = %q", character.Personality)
	}
	if _, err := s.Get(character.ID); err != nil {
		t.Errorf("fallback character not in store: %v", err)
	}

	// The store file must contain the full updated set.
	data, err := os.ReadFile(filepath.Join(dir, "characters.json"))
	if err != nil {
		t.Fatalf("read store file: %v", err)
	}
	var persisted []Character
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("unmarshal store file: %v", err)
	}
	if len(persisted) != 4 {
		t.Errorf("persisted %d characters, want 4 (3 defaults + generated)", len(persisted))
	}
	found := false
	for _, c := range persisted {
		if c.ID == character.ID {
			found = true
		}
	}
	if !found {
		t.Error("generated character missing from persisted set")
	}
}
