package config

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	os.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ultimatemcp", cfg.Server.Name)
	assert.Equal(t, 60, cfg.RateLimit.PerMinute)
	assert.Equal(t, 5, cfg.Breaker.ReadF)
}

func TestValidate_WeakKeyRejectedInProduction(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		key     string
		wantErr bool
	}{
		{"too short", "production", "short", true},
		{"long but not in denylist", "production", "change-me-change-me-change-me-xy", false}, // 32 bytes, distinct chars
		{"all same char", "production", strings.Repeat("a", 40), true},
		{"strong key", "production", "a-sufficiently-long-random-signing-key-value", false},
		{"weak key allowed in dev", "development", "short", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{Server: ServerConfig{Env: tc.env}, Auth: AuthConfig{SigningKey: tc.key}}
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_LiteralChangeMeRejected(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Env: "production"}, Auth: AuthConfig{SigningKey: "change-me"}}
	assert.Error(t, cfg.Validate())
}

func clearEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"BIND_ADDR", "PORT", "ENV", "ALLOWED_ORIGINS", "AUTH_SIGNING_KEY",
		"AUTH_TOKEN_TTL_HOURS", "RATE_LIMIT_PER_MINUTE", "RATE_LIMIT_PER_HOUR",
		"RATE_LIMIT_PER_DAY", "RATE_LIMIT_BURST", "GRAPH_URI", "GRAPH_USER",
		"GRAPH_PASSWORD", "GRAPH_DATABASE", "POOL_MAX", "POOL_ACQ_TIMEOUT_S",
		"CONN_LIFETIME_S", "EXEC_WORKERS", "EXEC_TIMEOUT_S_MAX", "EXEC_MEM_BYTES",
		"EXEC_OUTPUT_BYTES", "CACHE_CAPACITY", "CACHE_TTL_S", "BREAKER_READ_F",
		"BREAKER_READ_S", "BREAKER_READ_T", "BREAKER_WRITE_F", "BREAKER_WRITE_S",
		"BREAKER_WRITE_T", "LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}
