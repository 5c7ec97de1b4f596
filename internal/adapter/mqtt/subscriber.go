// Package mqtt feeds measurement messages published by sensor boxes into the
// ingest pipeline.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/couchcryptid/sensor-idw-service/internal/config"
	"github.com/couchcryptid/sensor-idw-service/internal/domain"
)

// ErrStopped is returned once Disconnect has been called.
var ErrStopped = errors.New("mqtt subscriber stopped")

const bufferSize = 1024

// Subscriber receives measurement payloads from the configured topic and
// hands them out in batches. It implements pipeline.BatchExtractor.
type Subscriber struct {
	client        mqtt.Client
	topic         string
	flushInterval time.Duration
	logger        *slog.Logger

	mu        sync.RWMutex
	connected bool

	msgs     chan domain.RawMessage
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSubscriber creates a subscriber for cfg.MQTTBroker. Call Connect to
// start receiving.
func NewSubscriber(cfg *config.Config, logger *slog.Logger) *Subscriber {
	s := newSubscriber(cfg.MQTTTopic, cfg.BatchFlushInterval, logger)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Subscriptions are not kept by a clean session, so resubscribe on
	// every (re)connect.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := s.subscribe(c); err != nil {
			logger.Error("mqtt subscribe failed", "topic", s.topic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	s.client = mqtt.NewClient(opts)
	return s
}

func newSubscriber(topic string, flushInterval time.Duration, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		topic:         topic,
		flushInterval: flushInterval,
		logger:        logger,
		msgs:          make(chan domain.RawMessage, bufferSize),
		stopCh:        make(chan struct{}),
	}
}

// Connect starts the connection attempt and waits for it in a ctx-aware loop.
func (s *Subscriber) Connect(ctx context.Context) error {
	select {
	case <-s.stopCh:
		return ErrStopped
	default:
	}
	if s.IsConnected() {
		return nil
	}

	token := s.client.Connect()
	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			s.client.Disconnect(0)
			return ctx.Err()
		case <-s.stopCh:
			s.client.Disconnect(0)
			return ErrStopped
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (s *Subscriber) subscribe(c mqtt.Client) error {
	const qos = byte(1)
	token := c.Subscribe(s.topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", s.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}
	s.logger.Info("subscribed to mqtt topic", "topic", s.topic, "qos", qos)
	return nil
}

// handleMessage queues a payload for the next batch. It blocks while the
// buffer is full, which stalls the paho router and paces the broker.
func (s *Subscriber) handleMessage(topic string, payload []byte) {
	s.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))
	raw := domain.RawMessage{
		Value:     append([]byte(nil), payload...),
		Topic:     topic,
		Timestamp: time.Now().UTC(),
	}
	select {
	case s.msgs <- raw:
	case <-s.stopCh:
	}
}

// ExtractBatch waits up to the flush interval for messages and returns at
// most batchSize of them. An empty batch means nothing arrived in time.
func (s *Subscriber) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawMessage, error) {
	timer := time.NewTimer(s.flushInterval)
	defer timer.Stop()

	batch := make([]domain.RawMessage, 0, batchSize)
	for len(batch) < batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.stopCh:
			if len(batch) > 0 {
				return batch, nil
			}
			return nil, ErrStopped
		case raw := <-s.msgs:
			batch = append(batch, raw)
		case <-timer.C:
			return batch, nil
		}
	}
	return batch, nil
}

// IsConnected returns whether the client is connected.
func (s *Subscriber) IsConnected() bool {
	s.mu.RLock()
	connected := s.connected
	s.mu.RUnlock()
	return connected && s.client != nil && s.client.IsConnected()
}

// CheckReadiness reports an error while the broker connection is down.
func (s *Subscriber) CheckReadiness(context.Context) error {
	if !s.IsConnected() {
		return errors.New("mqtt broker not connected")
	}
	return nil
}

// Disconnect stops the subscriber and closes the MQTT connection.
// Safe to call multiple times.
func (s *Subscriber) Disconnect() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	if s.client != nil && s.IsConnected() {
		token := s.client.Unsubscribe(s.topic)
		token.WaitTimeout(2 * time.Second)
	}
	if s.client != nil {
		s.client.Disconnect(250)
	}

	s.setConnected(false)
	s.logger.Info("mqtt subscriber disconnected")
}

func (s *Subscriber) setConnected(v bool) {
	s.mu.Lock()
	s.connected = v
	s.mu.Unlock()
}
