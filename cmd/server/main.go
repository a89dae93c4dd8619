// Command server runs the talent-flow service: a periodic refresh loop over
// the Census ACS tables plus the HTTP API that serves the derived snapshot.
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

	"github.com/policymetrics/talent-flow-etl/internal/adapter/census"
	httpadapter "github.com/policymetrics/talent-flow-etl/internal/adapter/http"
	kafkaadapter "github.com/policymetrics/talent-flow-etl/internal/adapter/kafka"
	"github.com/policymetrics/talent-flow-etl/internal/alerts"
	"github.com/policymetrics/talent-flow-etl/internal/config"
	"github.com/policymetrics/talent-flow-etl/internal/domain"
	"github.com/policymetrics/talent-flow-etl/internal/observability"
	"github.com/policymetrics/talent-flow-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	// Census fetcher, optionally wrapped with the table cache.
	var fetcher domain.TableFetcher
	client := census.NewClient(cfg.CensusAPIKey, cfg.ACSYear, cfg.CensusTimeout, metrics, logger)
	client.SetBaseURL(cfg.CensusBaseURL)
	fetcher = client
	if cfg.CensusCacheSize > 0 {
		fetcher = census.NewCachedFetcher(client, cfg.CensusCacheSize, metrics)
		logger.Info("census fetch cache enabled", "size", cfg.CensusCacheSize)
	}

	// Kafka publishing (feature-flagged via KAFKA_BROKERS / KAFKA_ENABLED).
	var publisher pipeline.SnapshotPublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	// Segment-transition alerting (enabled when an alerts file is configured).
	var notifier pipeline.TransitionNotifier
	if cfg.Alerts != nil {
		notifier = alerts.NewEngine(cfg.Alerts, clock, metrics, logger)
		logger.Info("segment alerts enabled", "webhooks", len(cfg.Alerts.Webhooks), "cooldown", cfg.Alerts.Cooldown)
	} else {
		logger.Info("segment alerts disabled")
	}

	store := pipeline.NewStore()
	refresher := pipeline.New(fetcher, store, publisher, notifier, logger, metrics, clock, cfg.RefreshInterval, cfg.ACSYear)

	srv := httpadapter.NewServer(cfg.HTTPAddr, refresher, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
