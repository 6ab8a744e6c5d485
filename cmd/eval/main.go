package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/genai"

	"finassist/internal/auth"
	"finassist/internal/config"
	"finassist/internal/eval"
	"finassist/internal/logger"
)

func main() {
	log := logger.New()

	var (
		dataset = flag.String("dataset", "eval_dataset.json", "path to the JSON test set")
		baseURL = flag.String("url", "http://localhost:8000", "base URL of a running chat server")
		userID  = flag.Int64("user", 1, "ledger user ID the eval token is minted for")
		email   = flag.String("email", "eval@example.com", "subject claim for the eval token")
		jsonOut = flag.String("json-out", "eval_results.json", "results JSON output path")
		csvOut  = flag.String("csv-out", "eval_results.csv", "results CSV output path")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.GeminiAPIKey == "" {
		log.Fatal().Msg("Error: GEMINI_API_KEY is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("Error: JWT_SECRET is required")
	}

	cases, err := eval.LoadCases(*dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load dataset")
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize signer")
	}
	token, err := verifier.Mint(*userID, *email, time.Hour)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to mint eval token")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	asker := eval.NewHTTPAsker(*baseURL, token, 2*time.Minute)
	judge := eval.NewLLMJudge(client.Models, cfg.GeminiModel)
	runner := eval.NewRunner(asker, judge, log)

	log.Info().Int("cases", len(cases)).Str("url", *baseURL).Msg("Starting evaluation")

	results := runner.Run(ctx, cases)

	if err := eval.WriteJSON(*jsonOut, results); err != nil {
		log.Fatal().Err(err).Msg("Failed to write JSON results")
	}
	if err := eval.WriteCSV(*csvOut, results); err != nil {
		log.Fatal().Err(err).Msg("Failed to write CSV results")
	}

	failed := 0
	for _, r := range results {
		if r.Err != "" {
			failed++
		}
	}

	avg := eval.Summary(results)
	fmt.Printf("Evaluated %d cases (%d failed).\n", len(results), failed)
	fmt.Printf("Average faithfulness: %.3f\n", avg.Faithfulness)
	fmt.Printf("Average relevance:    %.3f\n", avg.Relevance)
	fmt.Printf("Results written to %s and %s.\n", *jsonOut, *csvOut)
}
