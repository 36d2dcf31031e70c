package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	HTTPPort    int
	StaticDir   string
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
}

// DatabaseConfig holds the embedded datalog settings
type DatabaseConfig struct {
	Path string
}

// RabbitMQConfig holds the optional AMQP ingest bridge settings. An empty
// URL disables the bridge entirely.
type RabbitMQConfig struct {
	URL                string
	IngestExchange     string
	IngestQueue        string
	IngestRoutingKey   string
	AcceptedExchange   string
	AcceptedRoutingKey string
	DLQQueue           string
	PrefetchCount      int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "temperature-datalog"),
		HTTPPort:    getEnvAsInt("HTTP_PORT", 8080),
		StaticDir:   getEnv("STATIC_DIR", "static"),
		Database: DatabaseConfig{
			Path: getEnv("DATALOG_DB_PATH", "datalog.db"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                getEnv("RABBITMQ_URL", ""),
			IngestExchange:     getEnv("RABBITMQ_INGEST_EXCHANGE", "datalog.ingest.exchange"),
			IngestQueue:        getEnv("RABBITMQ_INGEST_QUEUE", "datalog.ingest.queue"),
			IngestRoutingKey:   getEnv("RABBITMQ_INGEST_ROUTING_KEY", "sensor.reading.raw"),
			AcceptedExchange:   getEnv("RABBITMQ_ACCEPTED_EXCHANGE", "datalog.events.exchange"),
			AcceptedRoutingKey: getEnv("RABBITMQ_ACCEPTED_ROUTING_KEY", "sensor.reading.accepted"),
			DLQQueue:           getEnv("RABBITMQ_DLQ_QUEUE", "datalog.ingest.dlq"),
			PrefetchCount:      getEnvAsInt("RABBITMQ_PREFETCH", 10),
		},
	}

	if cfg.Database.Path == "" {
		return nil, fmt.Errorf("DATALOG_DB_PATH must not be empty")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
