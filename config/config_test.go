package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, 10, cfg.Agent.MaxIterations)
	assert.True(t, cfg.Agent.ThinkingEnabled)
	assert.Equal(t, 20, cfg.Planning.MaxSubtasks)
	assert.Equal(t, 3, cfg.Planning.MaxAttempts)
	assert.True(t, cfg.Planning.AllowReplanning)
	assert.Equal(t, 2, cfg.Planning.MaxReplans)
	assert.Equal(t, 0.7, cfg.Evaluation.SuccessThreshold)
	assert.Equal(t, 100, cfg.Memory.MaxMessages)
	assert.Equal(t, 64, cfg.Stream.SubscriberBuffer)
	assert.Equal(t, 256, cfg.Stream.HistorySize)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
model:
  provider: anthropic
  name: claude-3-5-sonnet-20241022
agent:
  thinking_enabled: false
planning:
  allow_replanning: false
  max_replans: 1
evaluation:
  success_threshold: 0.8
server:
  addr: ":9000"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Model.Name)
	assert.False(t, cfg.Agent.ThinkingEnabled)
	assert.False(t, cfg.Planning.AllowReplanning)
	assert.Equal(t, 1, cfg.Planning.MaxReplans)
	assert.Equal(t, 0.8, cfg.Evaluation.SuccessThreshold)
	assert.Equal(t, ":9000", cfg.Server.Addr)

	// Unset fields keep their defaults.
	assert.Equal(t, 20, cfg.Planning.MaxSubtasks)
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Model.Provider)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":9000\"\n"), 0o600))

	t.Setenv("PLANLOOP_SERVER_ADDR", ":7070")
	t.Setenv("PLANLOOP_MODEL_PROVIDER", "mock")
	t.Setenv("PLANLOOP_EVALUATION_SUCCESS_THRESHOLD", "0.5")
	t.Setenv("PLANLOOP_AGENT_THINKING_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.Equal(t, 0.5, cfg.Evaluation.SuccessThreshold)
	assert.False(t, cfg.Agent.ThinkingEnabled)
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [not: closed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("rejects unknown provider", func(t *testing.T) {
		cfg := Default()
		cfg.Model.Provider = "carrier-pigeon"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects out-of-range threshold", func(t *testing.T) {
		cfg := Default()
		cfg.Evaluation.SuccessThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects zero iterations", func(t *testing.T) {
		cfg := Default()
		cfg.Agent.MaxIterations = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects negative replans", func(t *testing.T) {
		cfg := Default()
		cfg.Planning.MaxReplans = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects unknown log level", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "loud"
		assert.Error(t, cfg.Validate())
	})
}

func TestEnvTransform(t *testing.T) {
	assert.Equal(t, "server.addr", envTransform("PLANLOOP_SERVER_ADDR"))
	assert.Equal(t, "evaluation.success_threshold", envTransform("PLANLOOP_EVALUATION_SUCCESS_THRESHOLD"))
	assert.Equal(t, "model.max_tokens", envTransform("PLANLOOP_MODEL_MAX_TOKENS"))
}
