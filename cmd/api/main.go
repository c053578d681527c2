package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"storyboard/internal/extract"
	"storyboard/internal/http/handlers"
	httpapi "storyboard/internal/http/httpapi"
	"storyboard/internal/infra"
	"storyboard/internal/providers/image"
	"storyboard/internal/storage"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	// Configuration & logger
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// Style preset (defaults layered under an optional YAML override)
	preset, err := extract.LoadPreset(cfg.StylePresetPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load style preset")
	}

	// Image store: flat files under the output directory
	store, err := storage.NewImageStore(cfg.OutputDir, preset.Output.Format)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}

	// Scene extraction via Gemini
	extractor, err := extract.NewGeminiExtractor(extract.GeminiOptions{
		APIKey:     cfg.GeminiAPIKey,
		Model:      cfg.GeminiModel,
		BaseURL:    cfg.GeminiBaseURL,
		SceneCount: cfg.SceneCount,
		Preset:     preset,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build scene extractor")
	}

	// Image providers. Pollinations is keyless and always available;
	// Replicate joins when a token is configured.
	providers := map[string]image.Generator{
		"pollinations": image.NewPollinationsGenerator(image.PollinationsOptions{}),
	}
	if cfg.ReplicateAPIToken != "" {
		replicate, err := image.NewReplicateGenerator(image.ReplicateOptions{
			APIToken: cfg.ReplicateAPIToken,
			Model:    cfg.ReplicateModel,
			Logger:   &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build replicate provider")
		}
		providers["replicate"] = replicate
	}
	if _, ok := providers[cfg.ImageProvider]; !ok {
		logger.Fatal().Str("provider", cfg.ImageProvider).Msg("configured image provider is not available")
	}

	// App container
	app := handlers.NewApp(cfg, &logger, extractor, providers, store, preset)

	// Router via package httpapi (chi middleware included)
	router := httpapi.NewRouter(app)

	// HTTP server wrapper from infra
	server := infra.NewHTTPServer(cfg, router)

	// Start async
	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != os.ErrClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Graceful shutdown
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
