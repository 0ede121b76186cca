package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, DefaultMaxIterations, cfg.MaxIterations)
	assert.Equal(t, DefaultHistoryWindow, cfg.HistoryWindow)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)

	gen := cfg.Stage(StageGenerate)
	assert.Equal(t, "google/gemini-2.5-pro", gen.Model)
	assert.InDelta(t, 0.8, gen.Temperature, 1e-9)
	assert.Equal(t, 60, gen.TimeoutSeconds)

	fmtStage := cfg.Stage(StageFormat)
	assert.InDelta(t, 0.1, fmtStage.Temperature, 1e-9)
	assert.Equal(t, 20, fmtStage.TimeoutSeconds)
}

func TestLoadConfigPartialOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
		"max_iterations": 5,
		"stages": {
			"generate": {"model": "anthropic/claude-sonnet-4", "temperature": 0.9}
		},
		"storage": {"backend": "file", "path": "` + dir + `"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.MaxIterations)

	gen := cfg.Stage(StageGenerate)
	assert.Equal(t, "anthropic/claude-sonnet-4", gen.Model)
	assert.InDelta(t, 0.9, gen.Temperature, 1e-9)
	// Omitted timeout falls back to the stage default.
	assert.Equal(t, 60, gen.TimeoutSeconds)

	// Untouched stages keep defaults.
	assert.Equal(t, "google/gemini-2.5-flash", cfg.Stage(StageClassify).Model)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestLoadConfigEnvSubstitution(t *testing.T) {
	t.Setenv("STORY_TEST_MODEL", "openai/gpt-4o")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"stages": {"classify": {"model": "${STORY_TEST_MODEL}"}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", cfg.Stage(StageClassify).Model)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative iterations", `{"max_iterations": -1}`},
		{"bad temperature", `{"stages": {"generate": {"model": "m", "temperature": 3.0, "timeout_seconds": 10}}}`},
		{"unknown backend", `{"storage": {"backend": "redis"}}`},
		{"file backend without path", `{"storage": {"backend": "file"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadConfig(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestStageTimeout(t *testing.T) {
	sc := StageConfig{TimeoutSeconds: 45}
	assert.Equal(t, "45s", sc.Timeout().String())
}
