package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnhancedErrors(t *testing.T) {
	t.Run("config_not_found_has_hint", func(t *testing.T) {
		_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)

		var notFound *ConfigNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, err.Error(), "config reset")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("permission_error_has_fix", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file permissions")
		}
		path := filepath.Join(t.TempDir(), "readonly.yaml")
		require.NoError(t, os.WriteFile(path, []byte("model: {}\n"), 0000))
		defer os.Chmod(path, 0644)

		_, err := LoadFrom(path)
		var permErr *PermissionError
		require.ErrorAs(t, err, &permErr)
		assert.Contains(t, err.Error(), "Fix:")
		assert.ErrorIs(t, err, fs.ErrPermission)
	})

	t.Run("invalid_yaml_mentions_backup", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("model: [unclosed\n"), 0644))

		_, err := LoadFrom(path)
		var invalid *InvalidConfigError
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, err.Error(), ".bak")
	})
}

func TestLoadFromFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  name: phi3\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "phi3", cfg.Model.Name)
	assert.Equal(t, 32768, cfg.Model.ContextWindow)
	assert.Equal(t, 5, cfg.Pipeline.MaxToolRounds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  endpoint: ftp://nope\n"), 0644))

	_, err := LoadFrom(path)
	var invalid *InvalidConfigError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Message, "model.endpoint")
	assert.Contains(t, err.Error(), "config reset")
	assert.Error(t, invalid.Unwrap())
}
