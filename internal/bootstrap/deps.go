// Package bootstrap assembles the dependency graph for the API server and
// the background worker.
package bootstrap

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/adapter/out/cache"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/adapter/out/docstore"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/adapter/out/llm"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/adapter/out/persistence"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/adapter/out/provider"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/config"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/port/out"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/analysis"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/attachment"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/forecast"
	syncsvc "github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/core/service/sync"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/infra/database"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client
	Mongo  *mongo.Database

	// Repositories
	AccountRepo    out.AccountRepository
	MessageRepo    out.MessageRepository
	AttachmentRepo out.AttachmentRepository
	MetricsRepo    out.MetricsRepository

	// Services
	SyncService     *syncsvc.Service
	ForecastService *forecast.Service
}

// NewDependencies connects backing stores and wires services. Redis, Mongo
// and the LLM backend are optional: their absence degrades the related
// feature instead of failing startup.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}

	pool, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = pool

	sqlDB, err := database.NewSqlx(cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	deps.SQLDB = sqlDB

	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Warn("[Bootstrap] Redis unavailable, dedup fast path disabled: %v", err)
		} else {
			deps.Redis = redisClient
		}
	}

	if cfg.MongoDBURL != "" {
		mongoDB, err := database.NewMongo(cfg.MongoDBURL, cfg.MongoDBName)
		if err != nil {
			logger.Warn("[Bootstrap] MongoDB unavailable, attachment text store disabled: %v", err)
		} else {
			deps.Mongo = mongoDB
		}
	}

	// Repositories
	deps.AccountRepo = persistence.NewAccountAdapter(sqlDB)
	deps.MessageRepo = persistence.NewMessageAdapter(sqlDB)
	deps.AttachmentRepo = persistence.NewAttachmentAdapter(sqlDB)
	deps.MetricsRepo = persistence.NewMetricsAdapter(sqlDB)

	// Optional collaborators
	var dedup out.DedupCache
	if deps.Redis != nil {
		dedup = cache.NewRedisDedupCache(deps.Redis)
	}

	var texts out.AttachmentTextStore
	if deps.Mongo != nil {
		texts = docstore.NewAttachmentTextAdapter(deps.Mongo)
	}

	var backend out.ClassificationBackend
	if cfg.OpenAIAPIKey != "" {
		backend = llm.NewClient(llm.ClientConfig{
			APIKey:      cfg.OpenAIAPIKey,
			BaseURL:     cfg.OpenAIBaseURL,
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
		})
	} else {
		logger.Info("[Bootstrap] No OpenAI key, classification runs rule-based only")
	}

	// Providers
	providers := []out.MailProviderPort{provider.NewIMAPAdapter()}
	if cfg.GoogleClientID != "" {
		providers = append(providers, provider.NewGmailAdapter(&provider.GmailConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		}))
	}

	// Services
	engine := analysis.NewEngine(backend)
	processor := attachment.NewProcessor(deps.AttachmentRepo, texts)
	deps.SyncService = syncsvc.NewService(
		deps.AccountRepo, deps.MessageRepo, deps.AttachmentRepo,
		providers, dedup, engine, processor,
	)
	deps.ForecastService = forecast.NewService(deps.MetricsRepo)

	cleanup := func() {
		if deps.Redis != nil {
			_ = deps.Redis.Close()
		}
		_ = sqlDB.Close()
		pool.Close()
	}
	return deps, cleanup, nil
}
