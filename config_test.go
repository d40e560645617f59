package identity_test

import (
	"strings"
	"testing"
	"time"

	identity "github.com/flowmatic/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_KEY", strings.Repeat("k", 32))

	cfg, err := identity.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5678", cfg.BaseURL)
	assert.Equal(t, "smtp", cfg.EmailMode)
	assert.Equal(t, 14, cfg.BcryptCost)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "go-identity", cfg.Issuer)
	assert.True(t, cfg.EmailConfigured())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("IDENTITY_SIGNING_KEY", strings.Repeat("k", 32))
	t.Setenv("IDENTITY_BASE_URL", "https://automation.example.com")
	t.Setenv("IDENTITY_EMAIL_MODE", "")
	t.Setenv("IDENTITY_SESSION_TTL", "24h")

	cfg, err := identity.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://automation.example.com", cfg.BaseURL)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.EmailConfigured())
}

func TestConfigValidateRejectsShortSigningKey(t *testing.T) {
	cfg := &identity.Config{
		BaseURL:    "http://localhost:5678",
		SigningKey: "too-short",
	}

	require.Error(t, cfg.Validate())
}

func TestConfigValidateRequiresSigningKey(t *testing.T) {
	cfg := &identity.Config{BaseURL: "http://localhost:5678"}

	require.Error(t, cfg.Validate())
}
