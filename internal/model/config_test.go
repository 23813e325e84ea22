package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "todo-assistant.db", cfg.Database.Path)
	assert.Equal(t, 30, cfg.Auth.TokenTTLMinutes)
	assert.Equal(t, 1024, cfg.AI.MaxTokens)
}

func TestLoadConfigReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
database:
  path: /tmp/test.db
auth:
  secret: file-secret
  token_ttl_minutes: 5
ai:
  model: test-model
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, "file-secret", cfg.Auth.Secret)
	assert.Equal(t, 5, cfg.Auth.TokenTTLMinutes)
	assert.Equal(t, "test-model", cfg.AI.Model)
	// Unset keys keep their defaults.
	assert.Equal(t, 1024, cfg.AI.MaxTokens)
}

func TestLoadConfigSecretsFromEnv(t *testing.T) {
	t.Setenv("TODO_AUTH_SECRET", "env-secret")
	t.Setenv("ANTHROPIC_API_KEY", "env-key")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Auth.Secret)
	assert.Equal(t, "env-key", cfg.AI.APIKey)
}
