package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/freightml/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.ModelDir)
	assert.Equal(t, "xgboost_model.json", cfg.DistanceModelFile)
	assert.Equal(t, "xgboost_amount_model.json", cfg.AmountModelFile)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 1.2, cfg.DefaultSrcFactor)
	assert.Equal(t, 1.2, cfg.DefaultDstFactor)
	assert.Equal(t, 0.1, cfg.SearchThreshold)
	assert.Equal(t, 10, cfg.SearchTop)
	assert.Equal(t, "model_config.yaml", cfg.LayoutPath())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yml := "model_dir: /srv/models\nsearch_top: 5\nlog_level: debug\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "freightml.yaml"), []byte(yml), 0o600))

	t.Setenv("FREIGHTML_SEARCH_TOP", "3")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/srv/models", cfg.ModelDir)
	assert.Equal(t, 3, cfg.SearchTop, "environment wins over the file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/models/xgboost_amount_model.json", cfg.AmountModelPath())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("FREIGHTML_DEFAULT_SOURCE_FACTOR=1.4\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("FREIGHTML_DEFAULT_SOURCE_FACTOR") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 1.4, cfg.DefaultSrcFactor)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("FREIGHTML_DEFAULT_DEST_FACTOR", "-1")

	_, err := Load(t.TempDir())
	require.Error(t, err)

	var valErr *errors.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "default_dest_factor", valErr.ParamName)
}

func TestAbsoluteModelFile(t *testing.T) {
	cfg := &Config{ModelDir: "models", DistanceModelFile: "/abs/model.json"}
	assert.Equal(t, "/abs/model.json", cfg.DistanceModelPath())
}
