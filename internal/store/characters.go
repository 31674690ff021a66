package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/google/uuid"

	"charhub.dev/character-chat/internal/llm"
)

// Chatter is the slice of the LLM gateway the character store needs for
// LLM-assisted generation.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message, model string, temperature float64, maxTokens int) string
}

var defaultCharacters = []Character{
	{
		ID:          "coach",
		Name:        "Interview Coach",
		Description: "An expert interview coach helping you prepare for job interviews.",
		Personality: "Professional, supportive, and insightful.",
		SystemPrompt: "You are an expert interview coach helping prepare candidates for interviews. " +
			"Provide helpful advice, use the STAR framework, and be supportive but honest.",
		AvatarURL: "coach.png",
		Category:  "professional",
		Tags:      []string{"interview", "career", "advice"},
	},
	{
		ID:          "philosopher",
		Name:        "Socrates",
		Description: "The ancient Greek philosopher known for his Socratic method of questioning.",
		Personality: "Curious, thoughtful, and always questioning assumptions.",
		SystemPrompt: "You are Socrates, the ancient Greek philosopher. Engage in thoughtful dialogue using the Socratic method. " +
			"Ask questions that help the user examine their assumptions and beliefs. Speak as Socrates would, with wisdom and curiosity.",
		AvatarURL: "socrates.png",
		Category:  "philosophy",
		Tags:      []string{"philosophy", "wisdom", "questions"},
	},
	{
		ID:          "storyteller",
		Name:        "The Storyteller",
		Description: "A creative storyteller who can weave tales of any genre on demand.",
		Personality: "Creative, expressive, and imaginative.",
		SystemPrompt: "You are a master storyteller capable of creating engaging stories across various genres. " +
			"Respond to the user's prompts by crafting imaginative tales, helping develop story ideas, or discussing narrative techniques. " +
			"Be creative and engaging in your responses.",
		AvatarURL: "storyteller.png",
		Category:  "entertainment",
		Tags:      []string{"stories", "creativity", "fiction"},
	},
}

// CharacterStore owns all character definitions: an in-memory map keyed by
// id, mirrored to a single JSON array file.
type CharacterStore struct {
	file string
	llm  Chatter

	mu         sync.RWMutex
	characters map[string]Character
}

// NewCharacterStore loads the character collection from dataDir, seeding the
// built-in defaults when no file exists yet. It fails only if the data
// directory cannot be created; load and parse problems degrade to defaults.
func NewCharacterStore(dataDir string, gateway Chatter) (*CharacterStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	s := &CharacterStore{
		file:       filepath.Join(dataDir, "characters.json"),
		llm:        gateway,
		characters: make(map[string]Character),
	}
	s.load()
	return s, nil
}

func (s *CharacterStore) load() {
	if _, err := os.Stat(s.file); os.IsNotExist(err) {
		log.Println("No characters.json found, writing defaults")
		for _, c := range defaultCharacters {
			s.characters[c.ID] = c
		}
		s.Save()
		return
	}

	data, err := os.ReadFile(s.file)
	if err == nil {
		var loaded []Character
		if uerr := json.Unmarshal(data, &loaded); uerr == nil {
			for _, c := range loaded {
				s.characters[c.ID] = c
			}
			log.Printf("Loaded %d characters", len(s.characters))
			return
		} else {
			err = uerr
		}
	}

	// A corrupt or unreadable file must not take startup down; fall back to
	// the built-in coach and keep going in memory.
	log.Printf("Error loading characters: %v", err)
	s.characters = map[string]Character{defaultCharacters[0].ID: defaultCharacters[0]}
}

func (s *CharacterStore) Get(id string) (Character, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	character, ok := s.characters[id]
	if !ok {
		return Character{}, fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	return character, nil
}

// List returns all characters, ordered by id for stable output.
func (s *CharacterStore) List() []Character {
	s.mu.RLock()
	defer s.mu.RUnlock()
	characters := make([]Character, 0, len(s.characters))
	for _, c := range s.characters {
		characters = append(characters, c)
	}
	sortCharacters(characters)
	return characters
}

// Save mirrors the in-memory set to the backing file. Write failures are
// logged and swallowed: the store keeps serving from memory until the next
// successful save.
func (s *CharacterStore) Save() {
	s.mu.RLock()
	characters := make([]Character, 0, len(s.characters))
	for _, c := range s.characters {
		characters = append(characters, c)
	}
	s.mu.RUnlock()
	sortCharacters(characters)

	data, err := json.MarshalIndent(characters, "", "  ")
	if err != nil {
		log.Printf("Error saving characters: %v", err)
		return
	}
	if err := os.WriteFile(s.file, data, 0o644); err != nil {
		log.Printf("Error saving characters: %v", err)
		return
	}
	log.Printf("Saved %d characters", len(characters))
}

func sortCharacters(characters []Character) {
	sort.Slice(characters, func(i, j int) bool { return characters[i].ID < characters[j].ID })
}

// generatedCharacter is the structured variant of a model's reply to the
// generation prompt.
type generatedCharacter struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Personality  string   `json:"personality"`
	SystemPrompt string   `json:"system_prompt"`
	Category     string   `json:"category"`
	Tags         []string `json:"tags"`
}

// Generate asks the model for a new character definition built around topic
// and traits. It never fails: an unparseable reply falls back to a minimal
// character synthesized from the inputs. The result is inserted and the full
// set persisted before returning.
func (s *CharacterStore) Generate(ctx context.Context, topic string, traits []string) Character {
	prompt := fmt.Sprintf(`Create a detailed AI character based on the following specifications:

Topic or theme: %s
Personality traits: %s

Please provide:
1. A unique name for this character
2. A short description
3. A detailed personality description
4. A system prompt that would guide an AI to accurately represent this character
5. A category for this character
6. A list of relevant tags

Format your response as a JSON object with fields: name, description, personality, system_prompt, category, tags.`,
		topic, strings.Join(traits, ", "))

	reply := s.llm.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}},
		llm.DefaultModel, llm.DefaultTemperature, llm.DefaultMaxTokens)

	gen, ok := parseGeneratedCharacter(reply)
	if !ok {
		log.Println("Falling back to minimal character from LLM text")
		gen = fallbackCharacter(reply, topic, traits)
	}
	if gen.Category == "" {
		gen.Category = "generated"
	}
	if len(gen.Tags) == 0 {
		gen.Tags = append([]string{topic}, traits...)
	}

	character := Character{
		ID:           "gen_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Name:         gen.Name,
		Description:  gen.Description,
		Personality:  gen.Personality,
		SystemPrompt: gen.SystemPrompt,
		AvatarURL:    "generated_avatar.png",
		Category:     gen.Category,
		Tags:         gen.Tags,
	}

	s.mu.Lock()
	s.characters[character.ID] = character
	s.mu.Unlock()
	s.Save()
	return character
}

// parseGeneratedCharacter tries, in order: a fenced ```json block, the
// outermost {...} slice of the reply, then the whole reply. A candidate only
// counts when all of name, description, personality and system_prompt came
// through.
func parseGeneratedCharacter(raw string) (generatedCharacter, bool) {
	var candidates []string
	if start := strings.Index(raw, "```json"); start >= 0 {
		rest := raw[start+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			candidates = append(candidates, strings.TrimSpace(rest[:end]))
		}
	}
	if start, end := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); start >= 0 && end > start {
		candidates = append(candidates, raw[start:end+1])
	}
	candidates = append(candidates, raw)

	for _, candidate := range candidates {
		var gen generatedCharacter
		if err := json.Unmarshal([]byte(candidate), &gen); err != nil {
			continue
		}
		if gen.Name == "" || gen.Description == "" || gen.Personality == "" || gen.SystemPrompt == "" {
			continue
		}
		return gen, true
	}
	return generatedCharacter{}, false
}

func fallbackCharacter(reply, topic string, traits []string) generatedCharacter {
	description := reply
	if len(description) > 200 {
		description = description[:200]
	}
	personality := strings.Join(traits, ", ")
	if personality == "" {
		personality = "helpful"
	}
	return generatedCharacter{
		Name:         "Generated " + titleCase(topic),
		Description:  description,
		Personality:  personality,
		SystemPrompt: fmt.Sprintf("You are a helpful assistant about %s.", topic),
		Category:     "generated",
		Tags:         append([]string{topic}, traits...),
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
