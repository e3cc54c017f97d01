package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/tom-villanueva/marea-tigre/internal/adapter/feed"
	httpadapter "github.com/tom-villanueva/marea-tigre/internal/adapter/http"
	kafkaadapter "github.com/tom-villanueva/marea-tigre/internal/adapter/kafka"
	"github.com/tom-villanueva/marea-tigre/internal/config"
	"github.com/tom-villanueva/marea-tigre/internal/filestore"
	"github.com/tom-villanueva/marea-tigre/internal/observability"
	"github.com/tom-villanueva/marea-tigre/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()

	store, err := filestore.New(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open data dir", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	// The INA feeds ride the cache; the SHN telemetry endpoint gets its own
	// client because only it may relax TLS, and its responses are never
	// cached (each poll advances the surge tracker).
	rssClient := feed.NewClient(feed.Options{Timeout: cfg.FetchTimeout}, metrics, logger)
	rss := feed.NewCachedClient(rssClient, cfg.CacheFreshFor, cfg.CacheStaleFor, cfg.RefreshTimeout, clk, metrics, logger)
	telemetry := feed.NewClient(feed.Options{Timeout: cfg.FetchTimeout, LegacyTLS: cfg.TelemetryLegacyTLS}, metrics, logger)

	// Surge transition publishing (feature-flagged via KAFKA_ENABLED).
	var publisher service.TransitionPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	svc := service.New(cfg, rss, telemetry, store, publisher, clk, metrics, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
