package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Interpolation engine.
	DBPath            string
	EstimateWorkers   int
	StreamFlushEvery  int
	MeasurementWindow time.Duration

	// Kafka ingest and summary events.
	KafkaEnabled      bool
	KafkaBrokers      []string
	KafkaSourceTopic  string
	KafkaGroupID      string
	KafkaSummaryTopic string

	BatchSize          int
	BatchFlushInterval time.Duration

	// MQTT ingest.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

// MQTTEnabled reports whether an MQTT broker has been configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	workers, err := positiveInt("ESTIMATE_WORKERS", runtime.GOMAXPROCS(0))
	if err != nil {
		return nil, err
	}

	flushEvery, err := positiveInt("STREAM_FLUSH_EVERY", 100)
	if err != nil {
		return nil, err
	}

	mqttPort, err := positiveInt("MQTT_PORT", 1883)
	if err != nil {
		return nil, err
	}

	window, err := positiveDuration("MEASUREMENT_WINDOW", 48*time.Hour)
	if err != nil {
		return nil, err
	}

	brokers := os.Getenv("KAFKA_BROKERS")
	kafkaEnabled := brokers != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath:            sharedcfg.EnvOrDefault("DB_PATH", "idw.db"),
		EstimateWorkers:   workers,
		StreamFlushEvery:  flushEvery,
		MeasurementWindow: window,

		KafkaEnabled:      kafkaEnabled,
		KafkaBrokers:      sharedcfg.ParseBrokers(brokers),
		KafkaSourceTopic:  sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "measurements"),
		KafkaGroupID:      sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "sensor-idw-ingest"),
		KafkaSummaryTopic: os.Getenv("KAFKA_SUMMARY_TOPIC"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		MQTTBroker:   os.Getenv("MQTT_BROKER"),
		MQTTPort:     mqttPort,
		MQTTTopic:    sharedcfg.EnvOrDefault("MQTT_TOPIC", "measurements/#"),
		MQTTClientID: sharedcfg.EnvOrDefault("MQTT_CLIENT_ID", "sensor-idw"),
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if (cfg.KafkaEnabled || cfg.KafkaSummaryTopic != "") && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when Kafka is enabled")
	}
	if cfg.KafkaEnabled && cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}

	return cfg, nil
}

func positiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func positiveDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}
