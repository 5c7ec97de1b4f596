package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/sensor-idw-service/internal/config"
	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by SummaryWriter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// SummaryWriter publishes one completion event per computed interpolation.
type SummaryWriter struct {
	writer messageWriter
	logger *slog.Logger
}

// NewSummaryWriter creates a producer for the configured summary topic.
func NewSummaryWriter(cfg *config.Config, logger *slog.Logger) *SummaryWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &SummaryWriter{writer: w, logger: logger}
}

// PublishSummary writes s keyed by its request id.
func (w *SummaryWriter) PublishSummary(ctx context.Context, s domain.InterpolationSummary) error {
	msg, err := serializeToMessage(s)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish interpolation summary: %w", err)
	}
	w.logger.Debug("interpolation summary published", "request_id", s.RequestID, "cells", s.Cells)
	return nil
}

func (w *SummaryWriter) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a summary into a Kafka message.
func serializeToMessage(s domain.InterpolationSummary) (kafkago.Message, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize interpolation summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(s.RequestID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "phenomenon", Value: []byte(s.Phenomenon)},
			{Key: "computed_at", Value: []byte(s.ComputedAt.Format(time.RFC3339))},
		},
	}, nil
}
