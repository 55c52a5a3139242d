package main

import (
	"context"
	"log"

	"github.com/stellaephile/whats-up-doc/internal/config"
	"github.com/stellaephile/whats-up-doc/internal/logger"
	"github.com/stellaephile/whats-up-doc/internal/repository"
	"github.com/stellaephile/whats-up-doc/internal/service"
)

// app holds the wired services shared by every command
type app struct {
	cfg        *config.Config
	quota      *service.DailyQuota
	triage     *service.TriageService
	repo       *repository.PostgresRepository
	locator    *service.Locator
	embeddings *service.EmbeddingService
}

// newApp wires the model clients, the triage pipeline and, when a database is
// configured, the facility directory. A failing database is logged and the
// facility features are left off.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger.SetLevel(cfg.Logging.Level)
	a := &app{cfg: cfg}

	// Model clients share one token bucket and one daily quota
	var stage1Client, stage2Client service.ModelClient
	if cfg.Bedrock.Enabled {
		transport, err := service.NewBedrockTransport(ctx, &cfg.Bedrock)
		if err != nil {
			return nil, err
		}
		limiter := service.NewTokenBucket(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize, cfg.RateLimit.AcquireTimeout)
		a.quota = service.NewDailyQuota(cfg.RateLimit.DailyQuota)

		stage1Client = service.NewBedrockClient(transport, limiter, a.quota, clientConfig(cfg, cfg.Bedrock.Stage1Model))
		stage2Client = service.NewBedrockClient(transport, limiter, a.quota, clientConfig(cfg, cfg.Bedrock.Stage2Model))

		log.Printf("✅ Bedrock client initialized")
		log.Printf("   - Region: %s", cfg.Bedrock.Region)
		log.Printf("   - Stage 1 model: %s", cfg.Bedrock.Stage1Model)
		log.Printf("   - Stage 2 model: %s", cfg.Bedrock.Stage2Model)
		log.Printf("   - Rate limit: %.1f rps, burst %d", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize)
		if cfg.RateLimit.DailyQuota > 0 {
			log.Printf("   - Daily quota: %d calls", cfg.RateLimit.DailyQuota)
		} else {
			log.Printf("   - Daily quota: unlimited")
		}
	} else {
		log.Println("⚠️  LLM is disabled - assessments will answer 503")
		log.Println("   Set LLM_ENABLED=true and AWS credentials to enable triage")
	}

	signer := service.NewCacheSigner(cfg.Triage.CacheSecret)
	if !signer.Enabled() {
		log.Println("⚠️  STAGE1_CACHE_SECRET is not set - clarification caches are unsigned")
	}

	// Facility directory
	var finder service.FacilityFinder
	if cfg.DatabaseEnabled() {
		repo, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			log.Printf("⚠️  Facility search disabled: %v", err)
		} else {
			log.Println("✅ Connected to PostgreSQL database")
			a.repo = repo
			a.locator = service.NewLocator(repo, service.LocatorConfig{
				MinQuality:   cfg.Locator.MinQuality,
				DefaultLimit: cfg.Locator.DefaultLimit,
				MaxLimit:     cfg.Locator.MaxLimit,
			})
			a.embeddings = service.NewEmbeddingService(repo, cfg.Locator.EmbeddingDimensions)
			finder = a.locator
		}
	} else {
		log.Println("⚠️  No database configured - facility search is disabled")
	}

	a.triage = service.NewTriageService(
		service.NewClassifier(stage1Client, cfg.Triage.Stage1MaxTokens),
		service.NewAssessor(stage2Client, cfg.Triage.Stage2MaxTokens),
		signer,
		finder,
		cfg.Triage.RequestTimeout,
	)

	log.Println("✅ Services initialized")
	return a, nil
}

func clientConfig(cfg *config.Config, modelID string) service.BedrockClientConfig {
	return service.BedrockClientConfig{
		ModelID:        modelID,
		MaxTokens:      cfg.Bedrock.MaxTokens,
		Temperature:    cfg.Bedrock.Temperature,
		TopP:           cfg.Bedrock.TopP,
		MaxRetries:     cfg.RateLimit.MaxRetries,
		BaseDelay:      cfg.RateLimit.BaseDelay,
		MaxDelay:       cfg.RateLimit.MaxDelay,
		AttemptTimeout: cfg.Bedrock.AttemptTimeout,
	}
}

// Close releases the database pool
func (a *app) Close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			log.Printf("⚠️  Failed to close database: %v", err)
		}
	}
}
