// Package config loads agent configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the payops agent.
type Config struct {
	// Anthropic
	AnthropicAPIKey string
	Model           string
	MaxTokens       int64
	ProviderTimeout time.Duration

	// Loop timing
	CycleInterval time.Duration
	FeedInterval  time.Duration
	BatchSize     int

	// Event source. "simulator" generates synthetic traffic; "kafka"
	// consumes real transaction events.
	EventSource        string
	KafkaBrokers       []string
	KafkaConsumerGroup string
	KafkaTopic         string

	// Reporting
	ListenAddr string

	// Incident recall. The ONNX paths are only consulted by binaries built
	// with -tags onnx; the default build embeds with the mock hasher.
	RecallEnabled     bool
	OnnxModelPath     string
	OnnxTokenizerPath string
	OnnxRuntimePath   string

	// Alerting
	AlertCooldown time.Duration
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		Model:           getEnv("PAYOPS_MODEL", ""),
		MaxTokens:       getEnvInt64("PAYOPS_MAX_TOKENS", 0),
		ProviderTimeout: getEnvDuration("PAYOPS_PROVIDER_TIMEOUT", 30*time.Second),

		CycleInterval: getEnvDuration("PAYOPS_CYCLE_INTERVAL", 8*time.Second),
		FeedInterval:  getEnvDuration("PAYOPS_FEED_INTERVAL", 2*time.Second),
		BatchSize:     getEnvInt("PAYOPS_BATCH_SIZE", 40),

		EventSource:        getEnv("PAYOPS_EVENT_SOURCE", "simulator"),
		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:19092"), ","),
		KafkaConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "payops-agent"),
		KafkaTopic:         getEnv("KAFKA_TRANSACTIONS_TOPIC", "payments.transactions"),

		ListenAddr: getEnv("PAYOPS_LISTEN_ADDR", ":8090"),

		RecallEnabled:     getEnvBool("PAYOPS_RECALL_ENABLED", true),
		OnnxModelPath:     getEnv("PAYOPS_ONNX_MODEL", "models/all-MiniLM-L6-v2/model.onnx"),
		OnnxTokenizerPath: getEnv("PAYOPS_ONNX_TOKENIZER", "models/all-MiniLM-L6-v2/tokenizer.json"),
		OnnxRuntimePath:   getEnv("PAYOPS_ONNX_RUNTIME", ""),

		AlertCooldown: getEnvDuration("PAYOPS_ALERT_COOLDOWN", 5*time.Minute),
	}

	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	if cfg.EventSource != "simulator" && cfg.EventSource != "kafka" {
		return nil, fmt.Errorf("PAYOPS_EVENT_SOURCE must be \"simulator\" or \"kafka\", got %q", cfg.EventSource)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
