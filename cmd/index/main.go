package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"finassist/internal/config"
	"finassist/internal/logger"
	"finassist/internal/rag"
)

func main() {
	log := logger.New()

	docsDir := flag.String("docs", "", "directory of markdown knowledge files (defaults to DOCS_DIR)")
	indexPath := flag.String("index", "", "vector store path (defaults to RAG_INDEX_PATH)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	if *docsDir == "" {
		*docsDir = cfg.DocsDir
	}
	if *indexPath == "" {
		*indexPath = cfg.IndexPath
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	store, err := rag.NewStore(*indexPath, rag.GeminiEmbedding(client, cfg.EmbeddingModel), log)
	if err != nil {
		log.Fatal().Err(err).Str("path", *indexPath).Msg("Failed to open vector store")
	}

	log.Info().Str("docs", *docsDir).Str("index", *indexPath).Msg("Starting indexing")

	n, err := store.IndexDirectory(ctx, *docsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Indexing failed")
	}

	fmt.Printf("Indexed %d documents into %s.\n", n, *indexPath)
}
