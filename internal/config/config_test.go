package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, "http://localhost:11434", cfg.Model.Endpoint)
	assert.Equal(t, 32768, cfg.Model.ContextWindow)
	assert.Equal(t, 5, cfg.Pipeline.MaxToolRounds)
	assert.Equal(t, 5, cfg.History.MaxRecent)
	assert.Equal(t, 20, cfg.History.MaxSummaries)
	assert.True(t, cfg.Learning.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := NewConfig()
	cfg.Model.Name = "qwen2.5"
	cfg.Pipeline.StrictMode = true
	cfg.Budget.MinMemoryTokens = 4000
	require.NoError(t, Save(cfg, path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5", loaded.Model.Name)
	assert.True(t, loaded.Pipeline.StrictMode)
	assert.Equal(t, 4000, loaded.Budget.MinMemoryTokens)
}

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Model.Name, cfg.Model.Name)

	_, err = os.Stat(path)
	assert.NoError(t, err, "defaults should be persisted")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvModel, "mistral")
	t.Setenv(EnvEndpoint, "http://gpu-box:11434")
	t.Setenv(EnvWorkspace, "/srv/work")
	t.Setenv(EnvLearning, "false")

	cfg := NewConfig()
	cfg.ApplyEnv()

	assert.Equal(t, "mistral", cfg.Model.Name)
	assert.Equal(t, "http://gpu-box:11434", cfg.Model.Endpoint)
	assert.Equal(t, "/srv/work", cfg.Workspace)
	assert.False(t, cfg.Learning.Enabled)
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := NewConfig()
	cfg.Model.Endpoint = "localhost"
	cfg.Model.ContextWindow = 100
	cfg.Pipeline.MaxToolRounds = 0
	cfg.Logging.Level = "chatty"

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "model.endpoint")
	assert.Contains(t, msg, "model.contextWindow")
	assert.Contains(t, msg, "pipeline.maxToolRounds")
	assert.Contains(t, msg, "logging.level")
}

func TestValidateMinMemoryMustFit(t *testing.T) {
	cfg := NewConfig()
	cfg.Budget.MinMemoryTokens = cfg.Model.ContextWindow
	assert.ErrorContains(t, cfg.Validate(), "budget.minMemoryTokens")
}
