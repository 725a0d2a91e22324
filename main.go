package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/lepestok-ai/server/internal/agent/catalog"
	"github.com/lepestok-ai/server/internal/agent/cities"
	"github.com/lepestok-ai/server/internal/agent/extract"
	"github.com/lepestok-ai/server/internal/agent/matching"
	"github.com/lepestok-ai/server/internal/agent/model"
	"github.com/lepestok-ai/server/internal/agent/orchestrator"
	"github.com/lepestok-ai/server/internal/agent/session"
	"github.com/lepestok-ai/server/internal/core"
	logx "github.com/lepestok-ai/server/pkg/logger"
	pkgredis "github.com/lepestok-ai/server/pkg/redis"

	geoclient "github.com/lepestok-ai/server/internal/agent/geo"
)

// AppConfig defines all configurable parameters for the assistant, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Collaborators
	Catalog model.CatalogConfig
	Geo     model.GeoConfig

	// Agent configs
	Session  model.SessionConfig
	Response model.ResponseModelConfig
	Turn     model.TurnConfig
	Prompt   model.PromptConfig
}

func main() {
	ctx := context.Background()
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}
	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	store, err := buildStore(cfg.Session)
	if err != nil {
		log.Fatalf("Failed to initialise session store: %v", err)
	}
	defer store.Close()

	catalogClient := catalog.NewHTTPClient(cfg.Catalog)
	geocoder := geoclient.NewHTTPClient(cfg.Geo)

	cityCache, err := cities.NewCache(ctx, catalogClient)
	if err != nil {
		log.Fatalf("Failed to preload city reference set: %v", err)
	}

	chatModel, err := orchestrator.NewGeminiChatModel(ctx, orchestrator.ChatModelConfig{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Response: cfg.Response,
	})
	if err != nil {
		log.Fatalf("Failed to create chat model: %v", err)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Store:     store,
		Chat:      chatModel,
		Cities:    cityCache,
		Catalog:   catalogClient,
		Matcher:   matching.NewEngine(catalogClient, geocoder),
		Extractor: extract.NewEngine(cityCache),
		Prompt:    cfg.Prompt,
		Turn:      cfg.Turn,
	})
	if err != nil {
		log.Fatalf("Failed to build orchestrator: %v", err)
	}

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Initial greeting",
			query:       "Здравствуйте! Хочу заказать букет",
		},
		{
			description: "Recipient and occasion",
			query:       "Маме на день рождения",
		},
		{
			description: "City unlocks search",
			query:       "Доставка в Москву, бюджет до 4000 руб. Она любит белые розы, но у неё аллергия на лилии",
		},
		{
			description: "Pick a bouquet",
			query:       "Возьму первый вариант",
		},
	}

	sessionID := "demo-session-1"

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)

		result, err := orch.RunTurn(ctx, orchestrator.TurnRequest{
			SessionID: sessionID,
			Message:   test.query,
		})
		if err != nil {
			log.Fatalf("Failed to run turn %d: %v", i+1, err)
		}

		fmt.Printf("Reply: %s\n", result.Reply)
		if len(result.Products) > 0 {
			fmt.Printf("Products: %d offered\n", len(result.Products))
		}
		if result.Cart.ItemCount > 0 {
			fmt.Printf("Cart: %d item(s), %.0f rub\n", result.Cart.ItemCount, result.Cart.TotalPrice)
		}
		fmt.Println("────────────────────────────────────────────")

		time.Sleep(500 * time.Millisecond)
	}

	stats, err := orch.SessionStats(ctx)
	if err != nil {
		log.Fatalf("Failed to read session stats: %v", err)
	}
	fmt.Printf("\nSessions: %d live, %d awaiting sweep\n", stats.Live, stats.Expired)
}

func buildStore(cfg model.SessionConfig) (session.Store, error) {
	ttl, err := time.ParseDuration(cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", cfg.TTL, err)
	}
	sweep, err := time.ParseDuration(cfg.SweepInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL %q: %w", cfg.SweepInterval, err)
	}

	if cfg.Store == string(session.StoreTypeRedis) {
		var redisCfg pkgredis.Config
		if err := envconfig.Process("REDIS", &redisCfg); err != nil {
			return nil, fmt.Errorf("process redis config: %w", err)
		}
		rdb, err := redisCfg.New()
		if err != nil {
			return nil, fmt.Errorf("initialise redis client: %w", err)
		}
		return session.NewStore(session.StoreTypeRedis,
			session.WithRedisClient(rdb),
			session.WithTTL(ttl),
		)
	}

	return session.NewStore(session.StoreTypeMemory,
		session.WithTTL(ttl),
		session.WithSweepInterval(sweep),
	)
}
