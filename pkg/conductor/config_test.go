package conductor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.ShutdownTimeout))
	assert.False(t, cfg.Bridge.Enabled)
	assert.Equal(t, "127.0.0.1:0", cfg.Bridge.ListenAddr)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conductor.yaml")
	content := `
log_level: debug
shutdown_timeout: 5s
bridge:
  enabled: true
  listen_addr: "127.0.0.1:9400"
metrics:
  enabled: true
  namespace: my_conductor
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, time.Duration(cfg.ShutdownTimeout))
	assert.True(t, cfg.Bridge.Enabled)
	assert.Equal(t, "127.0.0.1:9400", cfg.Bridge.ListenAddr)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "my_conductor", cfg.Metrics.Namespace)
}

func TestLoadConfigPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conductor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, time.Duration(cfg.ShutdownTimeout))
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: [unclosed"), 0o600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
