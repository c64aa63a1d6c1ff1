package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paraiso-astral/gate-service/internal/security"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TICKET_SIGNING_SECRET", strings.Repeat("s", 32))
	t.Setenv("AUTH_JWT_SECRET", "jwt-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "paraiso-astral", cfg.Ticket.Issuer)
	assert.Equal(t, []string{"1.0"}, cfg.Ticket.Versions)
	assert.Equal(t, 365*24*time.Hour, cfg.Ticket.MaxAge)
	assert.Equal(t, 1000, cfg.Validation.CacheSize)
	assert.Equal(t, 5*time.Minute, cfg.Validation.CacheTTL)
	assert.Equal(t, 10, cfg.Validation.HistorySize)
	assert.Equal(t, time.Minute, cfg.Validation.ReplayWindow)
	assert.Equal(t, 3*time.Second, cfg.Validation.OnlineTimeout)
	assert.True(t, cfg.Validation.OnlineOpportunistic)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("VALIDATION_REPLAY_WINDOW", "90s")
	t.Setenv("TICKET_SUPPORTED_VERSIONS", "1.0, 1.1")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("VALIDATION_CACHE_TTL", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Validation.ReplayWindow)
	assert.Equal(t, []string{"1.0", "1.1"}, cfg.Ticket.Versions)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Validation.CacheTTL, "invalid values fall back to defaults")
}

func TestLoadRejectsMissingSigningSecret(t *testing.T) {
	t.Setenv("TICKET_SIGNING_SECRET", "too-short")
	t.Setenv("AUTH_JWT_SECRET", "jwt-secret")

	_, err := Load()
	assert.ErrorIs(t, err, security.ErrWeakSecret)
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), AppConfig{}.RequestTimeout())
	assert.Equal(t, 2*time.Second, AppConfig{RequestTimeoutSeconds: 2}.RequestTimeout())
}
