package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"charhub.dev/character-chat/internal/config"
	"charhub.dev/character-chat/internal/core"
	"charhub.dev/character-chat/internal/store"
)

type APIHandler struct {
	platform *core.Platform
	cfg      config.Config
}

func NewAPIHandler(platform *core.Platform, cfg config.Config) *APIHandler {
	return &APIHandler{platform: platform, cfg: cfg}
}

type HealthResponse struct {
	Status      string `json:"status"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(HealthResponse{
		Status:      "ok",
		Name:        h.cfg.AppName,
		Version:     h.cfg.AppVersion,
		Environment: h.cfg.Environment,
	})
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.platform.CreateUser(req.Username, req.Password)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.Username, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// LoginHandler verifies credentials; an unknown username creates the account
// on the spot, matching the original login flow.
func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.platform.AuthenticateUser(req.Username, req.Password)
	if errors.Is(err, store.ErrUserNotFound) {
		user, err = h.platform.CreateUser(req.Username, req.Password)
	}
	if err != nil {
		log.Printf("Error logging in user %s: %v", req.Username, err)
		http.Error(w, "Failed to log in", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(user)
}

func (h *APIHandler) ListCharactersHandler(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(h.platform.Characters())
}

func (h *APIHandler) GetCharacterHandler(w http.ResponseWriter, r *http.Request) {
	characterID := chi.URLParam(r, "characterID")

	character, err := h.platform.Character(characterID)
	if err != nil {
		http.Error(w, "Character not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(character)
}

type GenerateCharacterRequest struct {
	Topic  string `json:"topic"`
	Traits string `json:"traits"`
}

func (h *APIHandler) GenerateCharacterHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateCharacterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		http.Error(w, "Topic is required", http.StatusBadRequest)
		return
	}

	var traits []string
	for _, trait := range strings.Split(req.Traits, ",") {
		if trait = strings.TrimSpace(trait); trait != "" {
			traits = append(traits, trait)
		}
	}

	character := h.platform.GenerateCharacter(r.Context(), req.Topic, traits)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(character)
}

type ChatRequest struct {
	CharacterID    string `json:"character_id"`
	Message        string `json:"message"`
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type ChatResponse struct {
	CharacterID    string `json:"character_id"`
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		http.Error(w, "Message cannot be empty", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		req.UserID = "anonymous"
	}

	result, err := h.platform.Respond(r.Context(), req.Message, req.ConversationID, req.CharacterID, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrCharacterNotFound) {
			http.Error(w, "Character not found", http.StatusNotFound)
			return
		}
		log.Printf("Error generating response for character %s: %v", req.CharacterID, err)
		http.Error(w, "Failed to generate response", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(ChatResponse{
		CharacterID:    req.CharacterID,
		ConversationID: result.ConversationID,
		Reply:          result.Response,
	})
}

func (h *APIHandler) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(h.platform.UserConversations(userID))
}

func (h *APIHandler) GetConversationMessagesHandler(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	messages, err := h.platform.ConversationMessages(conversationID)
	if err != nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(messages)
}
