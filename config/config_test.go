package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AnthropicAPIKey)
	assert.Equal(t, 8*time.Second, cfg.CycleInterval)
	assert.Equal(t, 2*time.Second, cfg.FeedInterval)
	assert.Equal(t, 40, cfg.BatchSize)
	assert.Equal(t, "simulator", cfg.EventSource)
	assert.Equal(t, []string{"localhost:19092"}, cfg.KafkaBrokers)
	assert.Equal(t, ":8090", cfg.ListenAddr)
	assert.True(t, cfg.RecallEnabled)
	assert.Equal(t, "models/all-MiniLM-L6-v2/model.onnx", cfg.OnnxModelPath)
	assert.Equal(t, "models/all-MiniLM-L6-v2/tokenizer.json", cfg.OnnxTokenizerPath)
	assert.Equal(t, 5*time.Minute, cfg.AlertCooldown)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("PAYOPS_CYCLE_INTERVAL", "15s")
	t.Setenv("PAYOPS_BATCH_SIZE", "100")
	t.Setenv("PAYOPS_EVENT_SOURCE", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("PAYOPS_RECALL_ENABLED", "false")
	t.Setenv("PAYOPS_ONNX_MODEL", "/opt/models/minilm.onnx")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.CycleInterval)
	assert.Equal(t, "/opt/models/minilm.onnx", cfg.OnnxModelPath)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, "kafka", cfg.EventSource)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.RecallEnabled)
}

func TestLoadRejectsUnknownEventSource(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("PAYOPS_EVENT_SOURCE", "carrier_pigeon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("PAYOPS_BATCH_SIZE", "a lot")
	t.Setenv("PAYOPS_CYCLE_INTERVAL", "whenever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.BatchSize)
	assert.Equal(t, 8*time.Second, cfg.CycleInterval)
}
