package config

import (
	"errors"
	"os"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	DataDir         string

	// Upstream sources.
	AlertsFeedURL      string
	HeightsFeedURL     string
	TelemetryURL       string
	TelemetryWarmupURL string
	// TelemetryLegacyTLS relaxes TLS verification for the SHN endpoint only,
	// whose ancient cipher configuration modern clients refuse. Leave it off
	// for any source that negotiates properly.
	TelemetryLegacyTLS bool

	FetchTimeout   time.Duration
	RefreshTimeout time.Duration
	CacheFreshFor  time.Duration
	CacheStaleFor  time.Duration

	// Surge transition publishing (feature-flagged via KAFKA_ENABLED).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := durationEnv("FETCH_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	refreshTimeout, err := durationEnv("REFRESH_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheFresh, err := durationEnv("CACHE_FRESH_FOR", "5m")
	if err != nil {
		return nil, err
	}
	cacheStale, err := durationEnv("CACHE_STALE_FOR", "30m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		DataDir:         envOrDefault("DATA_DIR", "./data"),

		AlertsFeedURL:      envOrDefault("ALERTS_FEED_URL", "https://alerta.ina.gob.ar/rss/alertas.xml"),
		HeightsFeedURL:     envOrDefault("HEIGHTS_FEED_URL", "https://alerta.ina.gob.ar/rss/alturas.xml"),
		TelemetryURL:       envOrDefault("TELEMETRY_URL", "https://www.hidro.gob.ar/mobile/datosMareografo.asp"),
		TelemetryWarmupURL: envOrDefault("TELEMETRY_WARMUP_URL", "https://www.hidro.gob.ar/mobile/index.asp"),
		TelemetryLegacyTLS: envOrDefault("TELEMETRY_LEGACY_TLS", "true") == "true",

		FetchTimeout:   fetchTimeout,
		RefreshTimeout: refreshTimeout,
		CacheFreshFor:  cacheFresh,
		CacheStaleFor:  cacheStale,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: splitBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "sudestada-transitions"),
	}

	if cfg.DataDir == "" {
		return nil, errors.New("DATA_DIR is required")
	}
	if cfg.AlertsFeedURL == "" || cfg.HeightsFeedURL == "" {
		return nil, errors.New("ALERTS_FEED_URL and HEIGHTS_FEED_URL are required")
	}
	if cfg.TelemetryURL == "" || cfg.TelemetryWarmupURL == "" {
		return nil, errors.New("TELEMETRY_URL and TELEMETRY_WARMUP_URL are required")
	}
	if cfg.CacheFreshFor >= cfg.CacheStaleFor {
		return nil, errors.New("CACHE_FRESH_FOR must be shorter than CACHE_STALE_FOR")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func durationEnv(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, errors.New("invalid " + name)
	}
	return d, nil
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
