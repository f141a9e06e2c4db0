package bootstrap

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	apihttp "github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/adapter/in/http"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/config"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/infra/middleware"
	"github.com/gpopzrawproduction-afk/MbarieIntelligenceConsole-sub001/pkg/logger"
)

// NewAPI builds the fiber app with all routes registered. Backing stores
// are owned by Dependencies; closing them is the caller's job.
func NewAPI(cfg *config.Config, deps *Dependencies) *fiber.App {
	logLevel := logger.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = logger.LevelDebug
	}
	logger.Init(logger.Config{Level: logLevel, Service: "mbarie-api"})

	app := fiber.New(fiber.Config{
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		BodyLimit:             10 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(compress.New())
	app.Use(cors.New())

	apihttp.NewHealthHandler(deps.DB, deps.Redis).Register(app)

	limiter := middleware.NewRateLimiter(120, time.Minute)
	api := app.Group("/api", middleware.JWTAuth(cfg.JWTSecret), limiter.Handler())
	apihttp.NewSyncHandler(deps.SyncService, deps.AccountRepo).Register(api)
	apihttp.NewForecastHandler(deps.ForecastService).Register(api)

	return app
}
