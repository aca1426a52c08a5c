package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/http/handlers"
	httpapi "server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/pipeline"
	"server/internal/providers"
	"server/internal/providers/animation"
	"server/internal/providers/image"
	"server/internal/providers/text"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	contentRepo := repo.NewContentRepository(dbpool)
	if err := contentRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	store, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	registry := buildRegistry(cfg, logger)
	runner := pipeline.NewRunner(contentRepo, registry, store, logger)
	app := handlers.NewApp(contentRepo, registry, runner, logger, cfg.MaxProcessingPerOwner)

	router := httpapi.NewRouter(app, logger, cfg.RateLimitPerMin, cfg.StoragePath)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}

// buildRegistry wires every configured provider under its exact model id.
// Providers whose API key is missing are listed as unavailable so clients can
// grey them out; requests naming them are rejected before a record exists.
func buildRegistry(cfg *infra.Config, logger infra.Logger) *providers.Registry {
	registry := providers.NewRegistry()

	if cfg.GeminiAPIKey != "" {
		textGen, err := text.NewGeminiGenerator(text.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build gemini text provider")
		}
		registry.RegisterText(providers.ModelInfo{ID: cfg.GeminiModel, Name: "Gemini", Available: true}, textGen)

		imageGen, err := image.NewGeminiGenerator(image.GeminiOptions{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build gemini image provider")
		}
		registry.RegisterImage(providers.ModelInfo{ID: "gemini-2.5-flash-image", Name: "Gemini Flash Image", Available: true}, imageGen)
	} else {
		logger.Warn().Msg("GEMINI_API_KEY missing, gemini models unavailable")
		registry.RegisterText(providers.ModelInfo{ID: cfg.GeminiModel, Name: "Gemini"}, nil)
		registry.RegisterImage(providers.ModelInfo{ID: "gemini-2.5-flash-image", Name: "Gemini Flash Image"}, nil)
	}

	if cfg.CGDreamAPIKey != "" {
		gen := image.NewCGDreamGenerator(image.CGDreamOptions{
			APIKey:  cfg.CGDreamAPIKey,
			BaseURL: cfg.CGDreamBaseURL,
			Timeout: cfg.ProviderTimeout,
		})
		registry.RegisterImage(providers.ModelInfo{ID: "cgdream", Name: "CGDream", Available: true}, gen)
	} else {
		registry.RegisterImage(providers.ModelInfo{ID: "cgdream", Name: "CGDream"}, nil)
	}

	if cfg.KlingAPIKey != "" {
		gen := animation.NewKlingGenerator(animation.KlingOptions{
			APIKey:  cfg.KlingAPIKey,
			BaseURL: cfg.KlingBaseURL,
			Timeout: cfg.ProviderTimeout,
		})
		registry.RegisterAnimation(providers.ModelInfo{ID: "kling-v1.6", Name: "Kling", Available: true}, gen)
	} else {
		registry.RegisterAnimation(providers.ModelInfo{ID: "kling-v1.6", Name: "Kling"}, nil)
	}

	if cfg.RunwayAPIKey != "" {
		gen := animation.NewRunwayGenerator(animation.RunwayOptions{
			APIKey:  cfg.RunwayAPIKey,
			BaseURL: cfg.RunwayBaseURL,
			Timeout: cfg.ProviderTimeout,
		})
		registry.RegisterAnimation(providers.ModelInfo{ID: "runway-gen3", Name: "Runway Gen-3", Available: true}, gen)
	} else {
		registry.RegisterAnimation(providers.ModelInfo{ID: "runway-gen3", Name: "Runway Gen-3"}, nil)
	}

	return registry
}
