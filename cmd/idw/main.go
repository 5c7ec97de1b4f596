package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	httpadapter "github.com/couchcryptid/sensor-idw-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/sensor-idw-service/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/sensor-idw-service/internal/adapter/mqtt"
	"github.com/couchcryptid/sensor-idw-service/internal/adapter/sqlite"
	"github.com/couchcryptid/sensor-idw-service/internal/config"
	"github.com/couchcryptid/sensor-idw-service/internal/observability"
	"github.com/couchcryptid/sensor-idw-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to open measurement store", "error", err)
		os.Exit(1)
	}

	checks := []sharedobs.ReadinessChecker{store}
	var ingests []*pipeline.Ingest

	// Kafka ingest (enabled via KAFKA_BROKERS / KAFKA_ENABLED).
	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		ingest := pipeline.NewIngest("kafka", reader, pipeline.NewTransformer(), store, logger, metrics, cfg.BatchSize)
		ingests = append(ingests, ingest)
		checks = append(checks, ingest)
		logger.Info("kafka ingest enabled", "topic", cfg.KafkaSourceTopic, "group", cfg.KafkaGroupID)
	} else {
		logger.Info("kafka ingest disabled")
	}

	// MQTT ingest (enabled via MQTT_BROKER).
	var subscriber *mqttadapter.Subscriber
	if cfg.MQTTEnabled() {
		subscriber = mqttadapter.NewSubscriber(cfg, logger)
		ingests = append(ingests, pipeline.NewIngest("mqtt", subscriber, pipeline.NewTransformer(), store, logger, metrics, cfg.BatchSize))
		checks = append(checks, subscriber)
		logger.Info("mqtt ingest enabled", "broker", cfg.MQTTBroker, "topic", cfg.MQTTTopic)
	}

	opts := httpadapter.IDWOptions{
		Workers:    cfg.EstimateWorkers,
		FlushEvery: cfg.StreamFlushEvery,
		Window:     cfg.MeasurementWindow,
	}
	var summaries *kafkaadapter.SummaryWriter
	if cfg.KafkaSummaryTopic != "" {
		summaries = kafkaadapter.NewSummaryWriter(cfg, logger)
		opts.Summaries = summaries
		logger.Info("interpolation summaries enabled", "topic", cfg.KafkaSummaryTopic)
	}

	idw := httpadapter.NewIDWHandler(store, opts, metrics, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.AllReady(checks...), idw, httpadapter.NewStatsHandler(store, logger), logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if subscriber != nil {
		go func() {
			if err := subscriber.Connect(ctx); err != nil && ctx.Err() == nil {
				logger.Error("mqtt connect error", "error", err)
			}
		}()
	}

	// Start ingest loops.
	var wg sync.WaitGroup
	for _, ingest := range ingests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ingest.Run(ctx); err != nil {
				logger.Error("ingest error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if subscriber != nil {
		subscriber.Disconnect()
	}
	wg.Wait()
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if summaries != nil {
		if err := summaries.Close(); err != nil {
			logger.Error("kafka summary writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("measurement store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
