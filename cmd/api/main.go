package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"finassist/internal/agent"
	"finassist/internal/api"
	"finassist/internal/api/handlers"
	"finassist/internal/auth"
	"finassist/internal/config"
	"finassist/internal/ledger"
	"finassist/internal/logger"
	"finassist/internal/rag"
)

func main() {
	var port = flag.String("port", "", "HTTP server port (overrides PORT env)")
	flag.Parse()

	// Load .env if present; real deployments set the environment directly.
	_ = godotenv.Load()

	log := logger.New()

	cfg := config.Load()
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize token verifier")
	}

	ctx := context.Background()

	// The Gemini client and the vector store are optional at startup: the
	// server comes up degraded without them and /health reports it.
	var (
		assistant handlers.ChatService
		store     *rag.Store
		health    = &handlers.HealthHandler{}
	)

	sessions := agent.NewSessions(time.Hour)

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create Gemini client - chat will be unavailable")
	} else {
		health.AgentInitialized = true
		assistant = agent.New(genaiClient.Models, cfg.GeminiModel, sessions, log)

		store, err = rag.NewStore(cfg.IndexPath, rag.GeminiEmbedding(genaiClient, cfg.EmbeddingModel), log)
		if err != nil {
			log.Error().Err(err).Str("path", cfg.IndexPath).Msg("Failed to open vector store - knowledge retrieval will be unavailable")
		} else {
			health.StoreInitialized = true
		}
	}

	buildTools := func(token string, userID int64) []agent.Tool {
		ledgerClient := ledger.NewClient(cfg.LedgerURL, token, userID, cfg.LedgerTimeout, log)
		return agent.NewToolset(ledgerClient, store, cfg.RetrievalK, log)
	}

	chatHandler := handlers.NewChatHandler(assistant, buildTools, sessions, log)

	router := api.NewRouter(chatHandler, health, verifier, cfg.ChatRateLimit, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
