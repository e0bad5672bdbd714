package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load looks at, so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		name := envPrefix + "_" + strings.ToUpper(key)
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	for env := range legacyEnv {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/app/config.json", cfg.StorePath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.HapticFeedback)
	assert.False(t, cfg.HapticOnRejected)
	assert.False(t, cfg.HueEnabled)
	assert.True(t, cfg.WebsocketEnabled)
	assert.Equal(t, 2*time.Second, cfg.StateCacheTTL)

	port, err := cfg.Port()
	require.NoError(t, err)
	assert.Equal(t, 8080, port)
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mediacard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":9090\"\nhue_enabled: true\nstate_cache_ttl: 5s\nlog_level: debug\n"), 0o600))
	t.Setenv("MEDIACARD_LOG_LEVEL", "warning")
	t.Setenv("MEDIACARD_HASS_URL", "http://ha:8123")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.True(t, cfg.HueEnabled)
	assert.Equal(t, 5*time.Second, cfg.StateCacheTTL)
	assert.Equal(t, "warning", cfg.LogLevel)
	assert.Equal(t, "http://ha:8123", cfg.HassURL)
}

func TestLoad_LegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("HASS_URL", "http://legacy:8123")
	t.Setenv("HASS_TOKEN", "abc")
	t.Setenv("CONFIG_PATH", "/data/config.json")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://legacy:8123", cfg.HassURL)
	assert.Equal(t, "abc", cfg.HassToken)
	assert.Equal(t, "/data/config.json", cfg.StorePath)

	// The prefixed variable wins over the legacy one.
	t.Setenv("MEDIACARD_STORE_PATH", "/srv/store.json")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "/srv/store.json", cfg.StorePath)
}

func TestLoad_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("MEDIACARD_LOG_LEVEL", "loud")
	_, err := Load("")
	assert.ErrorContains(t, err, "invalid log level: loud")

	clearEnv(t)
	t.Setenv("MEDIACARD_LISTEN_ADDR", "8080")
	_, err = Load("")
	assert.ErrorContains(t, err, "invalid listen_addr")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    LogLevel
		wantErr bool
	}{
		{"error", LogLevelError, false},
		{"WARN", LogLevelWarn, false},
		{"warning", LogLevelWarn, false},
		{"Info", LogLevelInfo, false},
		{"debug", LogLevelDebug, false},
		{"trace", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogLevelWarn, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "card", "abc")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown card=abc")
}
