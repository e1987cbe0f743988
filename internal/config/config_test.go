package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Server.Port)
	assert.Equal(t, "disk", cfg.Storage.Type)
	assert.Equal(t, time.Second, cfg.Poller.Interval)
	assert.Equal(t, 3*time.Second, cfg.Poller.GracePeriod)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Same(t, cfg, Get())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
storage:
  type: sqlite
  sqlite_path: /tmp/x.db
poller:
  interval: 250ms
generation:
  provider: openai
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 250*time.Millisecond, cfg.Poller.Interval)
	assert.Equal(t, "openai", cfg.Generation.Provider)
	// 未覆盖的键保持默认值
	assert.Equal(t, 3*time.Second, cfg.Poller.GracePeriod)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LLMDESK_SERVER_PORT", "9999")
	t.Setenv("LLMDESK_BACKEND_TOKEN", "secret-token")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "secret-token", cfg.Backend.Token)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
