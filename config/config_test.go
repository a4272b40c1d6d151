package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "AUTH_RATE_POINTS", "MATCH_RATE_WINDOW", "ALLOWED_ORIGINS", "RATE_LIMIT_BACKEND"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 5, cfg.AuthLimit.Points)
	assert.Equal(t, 60*time.Second, cfg.AuthLimit.Window)
	assert.Equal(t, 1, cfg.MatchLimit.Points)
	assert.Equal(t, time.Second, cfg.MatchLimit.Window)
	assert.Equal(t, []string{"http://localhost:1420", "https://tauri.localhost"}, cfg.AllowedOrigins)
	assert.Equal(t, BackendMemory, cfg.LimitBackend)
	assert.False(t, cfg.TrustProxy)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("AUTH_RATE_POINTS", "10")
	t.Setenv("AUTH_RATE_WINDOW", "2m")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("TRUST_PROXY_HEADERS", "true")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("RIOT_BASE_URL", "https://euw1.api.riotgames.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.AuthLimit.Points)
	assert.Equal(t, 2*time.Minute, cfg.AuthLimit.Window)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.TrustProxy)
	assert.Equal(t, BackendRedis, cfg.LimitBackend)
	assert.Equal(t, "https://euw1.api.riotgames.com", cfg.RiotBaseURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{name: "bad int", key: "AUTH_RATE_POINTS", value: "five", want: "AUTH_RATE_POINTS"},
		{name: "bad duration", key: "MATCH_RATE_WINDOW", value: "soon", want: "MATCH_RATE_WINDOW"},
		{name: "bad bool", key: "TRUST_PROXY_HEADERS", value: "maybe", want: "TRUST_PROXY_HEADERS"},
		{name: "zero points", key: "MATCH_RATE_POINTS", value: "0", want: "points must be positive"},
		{name: "unknown backend", key: "RATE_LIMIT_BACKEND", value: "memcached", want: "memcached"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
