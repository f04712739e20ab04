package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, 12, cfg.RetrievalTopK)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.Equal(t, 20*time.Second, cfg.UpstreamTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RETRIEVAL_TOP_K", "5")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("SESSION_IDLE_TTL", "10m")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.RetrievalTopK)
	assert.True(t, cfg.RedisTLS)
	assert.Equal(t, 10*time.Minute, cfg.SessionIdleTTL)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("RETRIEVAL_TOP_K", "lots")
	t.Setenv("SESSION_IDLE_TTL", "soon")
	t.Setenv("REDIS_TLS", "maybe")

	cfg := Load()

	assert.Equal(t, 12, cfg.RetrievalTopK)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTTL)
	assert.False(t, cfg.RedisTLS)
}
