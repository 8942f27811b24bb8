package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-history/internal/api/http"
	"github.com/i474232898/weather-history/internal/config"
	"github.com/i474232898/weather-history/internal/logging"
	"github.com/i474232898/weather-history/internal/scheduler"
	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("weather-history stopped", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	recordStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	if cfg.WeatherAPIKey == "" {
		logger.Warn("WEATHER_API_KEY is not set; ingestion requests will fail")
	}

	// Shared HTTP client for the upstream provider.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewWeatherAPIProvider(providers.HTTPClientConfig{
		Client:           httpClient,
		FailureThreshold: cfg.BreakerFailures,
		OpenTimeout:      cfg.BreakerTimeout,
	}, cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL)

	service := weather.NewService(recordStore, provider,
		weather.WithTimestampParser(weather.NewLayoutParser(cfg.UpstreamTimeLayout)),
		weather.WithLogger(logger.Named("ingest")),
	)

	// Scheduler that periodically ingests the watched cities.
	sched := scheduler.New(cfg.WatchCities, cfg.FetchInterval, service, logger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	app := httpapi.NewApp(service, logger.Named("http"))

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("fiber server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (weather.Store, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Info("using in-memory record store; records are lost on exit")
		return store.NewMemoryStore(), nil
	}
	sqliteStore, err := store.OpenSQLite(ctx, cfg.DatabasePath, logger.Named("store"))
	if err != nil {
		return nil, err
	}
	return sqliteStore, nil
}
