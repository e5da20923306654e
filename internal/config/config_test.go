package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "PARTICIPANT_A", "PARTICIPANT_B", "LIVENESS_WINDOW", "ACK_POLICY",
		"SEED_WATERMARKS", "STORE_BACKEND", "STATE_FILE", "SQLITE_PATH", "DATABASE_URL",
		"REDIS_URL", "PERSISTENCE_POLICY", "RATE_LIMIT_WHITELIST", "RATE_LIMIT_AUTOBLOCK",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "marti", cfg.ParticipantA)
	assert.Equal(t, "ella", cfg.ParticipantB)
	assert.Equal(t, 30*time.Second, cfg.LivenessWindow)
	assert.Equal(t, "file", cfg.StoreBackend)
	assert.Equal(t, "best_effort", cfg.PersistencePolicy)
	assert.True(t, cfg.SeedWatermarks)
	assert.True(t, cfg.IsDevelopment())
	assert.Empty(t, cfg.RateLimitWhitelist)
	assert.False(t, cfg.RateLimitAutoBlock)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LIVENESS_WINDOW", "45s")
	t.Setenv("STORE_BACKEND", "SQLite")
	t.Setenv("SEED_WATERMARKS", "false")
	t.Setenv("RATE_LIMIT_WHITELIST", "10.0.0.1, 192.168.0.0/16,")

	cfg := Load()
	assert.Equal(t, 45*time.Second, cfg.LivenessWindow)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.False(t, cfg.SeedWatermarks)
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.RateLimitWhitelist)
}

func TestLoadPanicsOnBadValues(t *testing.T) {
	t.Setenv("LIVENESS_WINDOW", "soon")
	assert.Panics(t, func() { Load() })

	t.Setenv("LIVENESS_WINDOW", "30s")
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "")
	assert.Panics(t, func() { Load() })
}
