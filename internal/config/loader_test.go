package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://localhost:11434", cfg.AI.BaseURL)
	assert.Equal(t, 30*time.Minute, cfg.Decompose.ProposalTTL)
	assert.Equal(t, 20, cfg.Decompose.MaxSiblings)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "decompd", cfg.Telemetry.ServiceName)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9000
ai:
  model: llama3
decompose:
  proposal_ttl: 15m
store:
  driver: sqlite
  path: /tmp/tasks.db
`, 0600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "llama3", cfg.AI.Model)
	assert.Equal(t, 15*time.Minute, cfg.Decompose.ProposalTTL)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/tasks.db", cfg.Store.Path)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n", 0600)
	t.Setenv("SERVER_PORT", "9100")
	t.Setenv("AI_MODEL", "mistral")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "mistral", cfg.AI.Model)
}

func TestLoad_InsecurePermissionsRejected(t *testing.T) {
	path := writeConfigFile(t, "server:\n  port: 9000\n", 0644)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permissions")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8787, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		applyDefaults(cfg)
		return cfg
	}

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad log level", func(t *testing.T) {
		cfg := base()
		cfg.Log.Level = "verbose"
		assert.Error(t, cfg.Validate())
	})

	t.Run("sqlite without path", func(t *testing.T) {
		cfg := base()
		cfg.Store.Driver = "sqlite"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Store.Driver = "postgres"
		assert.Error(t, cfg.Validate())
	})

	t.Run("telemetry without endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Telemetry.Enabled = true
		assert.Error(t, cfg.Validate())
	})
}
