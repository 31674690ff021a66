package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"charhub.dev/character-chat/internal/api"
	"charhub.dev/character-chat/internal/config"
	"charhub.dev/character-chat/internal/core"
	"charhub.dev/character-chat/internal/llm"
	"charhub.dev/character-chat/internal/store"
)

func main() {
	cfg := config.Load()

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("%s %s starting (environment: %s)", cfg.AppName, cfg.AppVersion, cfg.Environment)

	// Initialize LLM gateway (stub mode when no credential is configured)
	gateway := llm.NewService(cfg)
	defer gateway.Close()

	// Initialize stores
	characterStore, err := store.NewCharacterStore(cfg.DataDir, gateway)
	if err != nil {
		log.Fatalf("Failed to initialize character store: %v", err)
	}

	conversationStore, err := store.NewConversationStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to initialize conversation store: %v", err)
	}

	userStore, err := store.NewUserStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize user store: %v", err)
	}
	defer userStore.Close()

	// Initialize platform orchestrator
	platform := core.NewPlatform(characterStore, conversationStore, userStore, gateway)

	// Start background sweeper, stopped via context on shutdown
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweeper := core.NewSweeper(conversationStore)
	sweeper.Start(sweepCtx)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(platform, cfg)
	router := api.NewRouter(apiHandler)

	serverAddr := net.JoinHostPort(cfg.Host, cfg.Port)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopSweeper()
	sweeper.Wait()

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}
