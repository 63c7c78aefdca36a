package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"HTTP_ADDR", "DATABASE_DSN", "CHANGE_FEED", "LOADING_TIMEOUT", "ALLOW_ANONYMOUS_AUTH", "IMAGE_MAX_WIDTH", "CORS_ALLOW_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr)
	require.Equal(t, FeedLocal, cfg.ChangeFeed)
	require.Equal(t, 5*time.Second, cfg.LoadingTimeout)
	require.True(t, cfg.AllowAnonymousAuth)
	require.Equal(t, uint(800), cfg.ImageMaxWidth)
	require.Equal(t, []string{"*"}, cfg.CORSAllowOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://x")
	t.Setenv("CHANGE_FEED", "RabbitMQ")
	t.Setenv("LOADING_TIMEOUT", "250ms")
	t.Setenv("ALLOW_ANONYMOUS_AUTH", "no")
	t.Setenv("IMAGE_MAX_WIDTH", "640")
	t.Setenv("CORS_ALLOW_ORIGINS", "http://a, http://b ,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, FeedRabbitMQ, cfg.ChangeFeed)
	require.Equal(t, 250*time.Millisecond, cfg.LoadingTimeout)
	require.False(t, cfg.AllowAnonymousAuth)
	require.Equal(t, uint(640), cfg.ImageMaxWidth)
	require.Equal(t, []string{"http://a", "http://b"}, cfg.CORSAllowOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"unknown feed":           {"CHANGE_FEED": "kafka", "DATABASE_DSN": "postgres://x"},
		"remote feed without db": {"CHANGE_FEED": "redis", "DATABASE_DSN": ""},
	}
	for name, vars := range tests {
		t.Run(name, func(t *testing.T) {
			for k, v := range vars {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestParseDuration_Fallback(t *testing.T) {
	require.Equal(t, time.Second, parseDuration("nope", time.Second))
	require.Equal(t, time.Second, parseDuration("-1s", time.Second))
}
