package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

const (
	StoreDriverSQLite = "sqlite"
	StoreDriverMemory = "memory"
)

type AppConfig struct {
	WeatherAPIKey     string
	WeatherAPIBaseURL string

	// UpstreamTimeLayout is the Go layout used to parse current.last_updated.
	UpstreamTimeLayout string

	// HTTPTimeout bounds each outbound provider call.
	HTTPTimeout time.Duration

	// Circuit breaker around the provider.
	BreakerFailures uint32
	BreakerTimeout  time.Duration

	StoreDriver  string
	DatabasePath string

	// WatchCities are ingested by the scheduler every FetchInterval (empty = scheduler off).
	WatchCities   []string
	FetchInterval time.Duration

	LogLevel string
	Env      string

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	cfg.WeatherAPIBaseURL = getenvDefault("WEATHER_API_BASE_URL", providers.DefaultWeatherAPIURL)
	cfg.UpstreamTimeLayout = getenvDefault("UPSTREAM_TIME_LAYOUT", weather.DefaultTimestampLayout)

	timeout, err := getenvDuration("HTTP_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.HTTPTimeout = timeout

	failures := getenvInt("BREAKER_FAILURES", 5)
	if failures < 1 {
		return nil, fmt.Errorf("invalid BREAKER_FAILURES %d: must be at least 1", failures)
	}
	cfg.BreakerFailures = uint32(failures)
	breakerTimeout, err := getenvDuration("BREAKER_TIMEOUT", "1m")
	if err != nil {
		return nil, err
	}
	cfg.BreakerTimeout = breakerTimeout

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", StoreDriverSQLite))
	switch cfg.StoreDriver {
	case StoreDriverSQLite, StoreDriverMemory:
	default:
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want %q or %q", cfg.StoreDriver, StoreDriverSQLite, StoreDriverMemory)
	}
	cfg.DatabasePath = getenvDefault("DATABASE_PATH", "data/weather.db")

	cfg.WatchCities = splitList(os.Getenv("WATCH_CITIES"))
	interval, err := getenvDuration("FETCH_INTERVAL", "60m")
	if err != nil {
		return nil, err
	}
	cfg.FetchInterval = interval

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.Env = getenvDefault("APP_ENV", "production")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: %s is not positive", key, d)
	}
	return d, nil
}
