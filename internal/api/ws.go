package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"charhub.dev/character-chat/internal/core"
	"charhub.dev/character-chat/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The browser UI is served from wherever; origin checks are not part of
	// the auth story here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEvent is the frame format for the streaming chat channel. Type is
// "welcome", "message" or "error"; the other fields are filled per type.
type wsEvent struct {
	Type           string           `json:"type"`
	Role           string           `json:"role,omitempty"`
	Content        string           `json:"content,omitempty"`
	ConversationID string           `json:"conversation_id,omitempty"`
	Timestamp      string           `json:"timestamp,omitempty"`
	Character      *store.Character `json:"character,omitempty"`
	Message        string           `json:"message,omitempty"`
}

// ChatSocketHandler runs one bidirectional chat session. Each inbound text
// frame is a user turn; an exit phrase ends the session with a fixed
// farewell without touching the gateway. Disconnection is normal
// termination, not an error.
func (h *APIHandler) ChatSocketHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	characterID := chi.URLParam(r, "characterID")
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "null" || conversationID == "undefined" {
		conversationID = ""
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	character, err := h.platform.Character(characterID)
	if err != nil {
		conn.WriteJSON(wsEvent{
			Type:    "error",
			Message: fmt.Sprintf("Character with ID %s not found", characterID),
		})
		return
	}

	if err := conn.WriteJSON(wsEvent{
		Type:      "welcome",
		Character: &character,
		Message:   fmt.Sprintf("Welcome to your conversation with %s!", character.Name),
	}); err != nil {
		log.Printf("Error sending welcome to user %s: %v", userID, err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("WebSocket connection closed for conversation %s: %v", conversationID, err)
			return
		}
		text := string(data)

		if core.IsExitMessage(text) {
			conn.WriteJSON(wsEvent{
				Type:      "message",
				Role:      "assistant",
				Content:   core.Farewell,
				Timestamp: time.Now().Format(time.RFC3339),
			})
			return
		}

		result, err := h.platform.Respond(r.Context(), text, conversationID, characterID, userID)
		if err != nil {
			log.Printf("Error in WebSocket chat for conversation %s: %v", conversationID, err)
			conn.WriteJSON(wsEvent{
				Type:    "error",
				Message: "An error occurred during the conversation.",
			})
			continue
		}
		conversationID = result.ConversationID

		if err := conn.WriteJSON(wsEvent{
			Type:           "message",
			Role:           "assistant",
			Content:        result.Response,
			ConversationID: conversationID,
			Timestamp:      time.Now().Format(time.RFC3339),
		}); err != nil {
			log.Printf("Error writing WebSocket message for conversation %s: %v", conversationID, err)
			return
		}
	}
}
