package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, ":3000", cfg.ListenAddr())
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 24*time.Hour, cfg.Token.TTL)
	assert.Equal(t, 6, cfg.Code.Length)
	assert.Equal(t, 10*time.Minute, cfg.Code.TTL)
	assert.Equal(t, 587, cfg.Email.Port)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.NoEmailVerify)
	assert.False(t, cfg.Email.Enabled())
}

func TestLoadCleansQuotedValues(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "\"quoted\"")
	t.Setenv("EMAIL_SERVER_HOST", "'smtp.example.com'")
	t.Setenv("EMAIL_FROM", " noreply@example.com ")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, ,192.168.0.0/16")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "quoted", cfg.Token.Secret)
	assert.Equal(t, "smtp.example.com", cfg.Email.Host)
	assert.True(t, cfg.Email.Enabled())
	assert.Equal(t, []string{"10.0.0.1", "192.168.0.0/16"}, cfg.TrustedProxies)
}

func TestLoadRequiresDatabaseForPostgres(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestValidateRejectsBadCodeSettings(t *testing.T) {
	base := Config{
		StoreDriver: StoreDriverMemory,
		Token:       TokenConfig{Secret: "k", TTL: time.Hour},
		Code:        CodeConfig{Length: 6, TTL: time.Minute},
	}
	require.NoError(t, base.Validate())

	short := base
	short.Code.Length = 2
	assert.Error(t, short.Validate())

	noTTL := base
	noTTL.Code.TTL = 0
	assert.Error(t, noTTL.Validate())

	unknown := base
	unknown.StoreDriver = "mysql"
	assert.ErrorContains(t, unknown.Validate(), "STORE_DRIVER")
}
