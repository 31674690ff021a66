package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)

		r.Get("/characters", apiHandler.ListCharactersHandler)
		r.Post("/characters/generate", apiHandler.GenerateCharacterHandler)
		r.Get("/characters/{characterID}", apiHandler.GetCharacterHandler)

		r.Post("/chat", apiHandler.ChatHandler)

		r.Get("/conversations", apiHandler.ListConversationsHandler)
		r.Get("/conversations/{conversationID}/messages", apiHandler.GetConversationMessagesHandler)
	})

	r.Get("/ws/chat/{userID}/{characterID}/{conversationID}", apiHandler.ChatSocketHandler)

	return r
}
