package main

import (
	"context"
	"log"

	"github.com/maya/opportunity-hub/internal/ai"
	"github.com/maya/opportunity-hub/internal/api"
	"github.com/maya/opportunity-hub/internal/config"
	"github.com/maya/opportunity-hub/internal/db"
)

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	aiClient := ai.NewClient(cfg.OpenAIBaseURL, cfg.OpenAIKey)
	if !aiClient.Configured() {
		log.Print("OPENAI_API_KEY is not set; generation endpoints will return a configuration error")
	}

	srv := api.NewServer(pool, aiClient, cfg.CORSOrigins)
	log.Printf("Server starting on port %s...", cfg.Port)
	if err := srv.Start(cfg.Port); err != nil {
		log.Fatal(err)
	}
}
