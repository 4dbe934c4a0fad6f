package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/mikeboe/web-research/pkg/browser"
	"github.com/mikeboe/web-research/pkg/chat"
	"github.com/mikeboe/web-research/pkg/clients"
	"github.com/mikeboe/web-research/pkg/config"
	"github.com/mikeboe/web-research/pkg/research"
	"github.com/mikeboe/web-research/pkg/research/tools"
	"github.com/mikeboe/web-research/pkg/server"
	"github.com/mikeboe/web-research/pkg/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Shared LLM clients; the rest of the pipeline is assembled per run so
	// each run logs through its own capture handler.
	primary, err := clients.GoogleAi(context.Background(), clients.ModelType(cfg.ResearchModel))
	if err != nil {
		log.Fatalf("Failed to init Google AI client: %v", err)
	}
	fallback, err := clients.Ollama()
	if err != nil {
		log.Fatalf("Failed to init Ollama client: %v", err)
	}

	rcfg := cfg.ResearchConfig()
	factory := func(logger *slog.Logger) (*research.Orchestrator, error) {
		llm := research.NewInferenceClient(primary, fallback, rcfg, logger)
		resolver := tools.NewSearchClient(rcfg.SourceLimit, logger)
		return research.NewOrchestrator(llm, resolver, browser.Factory(logger), rcfg, logger), nil
	}

	st := store.NewStore()

	// Initialize Chat Service
	chatSvc, err := chat.NewService(context.Background(), st, cfg)
	if err != nil {
		log.Fatalf("Failed to init chat service: %v", err)
	}

	// Initialize Service & Handler
	svc := server.NewService(st, factory)
	handler := server.NewHandler(svc, chatSvc)

	// Web Server Setup
	r := gin.Default()

	// CORS Setup
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"}, // Allow all for dev
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	handler.RegisterRoutes(r)

	fmt.Printf("Server starting on port %s\n", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
