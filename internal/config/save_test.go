package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetValue_CreatesNewFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, SetValue(configPath, "api.base_url", "https://brgy.example.ph"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "api:")
	assert.Contains(t, string(data), "base_url: https://brgy.example.ph")
}

func TestSetValue_PreservesComments(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	initial := `# top comment
api:
  base_url: http://localhost:8080 # local
  timeout: 10s
draft:
  backend: sqlite
`
	require.NoError(t, os.WriteFile(configPath, []byte(initial), 0o600))

	require.NoError(t, SetValue(configPath, "draft.backend", "redis"))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "# top comment")
	assert.Contains(t, content, "# local")
	assert.Contains(t, content, "timeout: 10s")
	assert.Contains(t, content, "backend: redis")
	assert.NotContains(t, content, "backend: sqlite")
}

func TestSetValue_AddsNestedSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("api:\n  timeout: 5s\n"), 0o600))

	require.NoError(t, SetValue(configPath, "tracing.exporter", "stdout"))

	v := viper.New()
	v.SetConfigFile(configPath)
	require.NoError(t, v.ReadInConfig())
	require.Equal(t, "stdout", v.GetString("tracing.exporter"))
	require.Equal(t, "5s", v.GetString("api.timeout"))
}

func TestSetValue_RejectsSection(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("api:\n  timeout: 5s\n"), 0o600))

	err := SetValue(configPath, "api", "x")
	require.Error(t, err)
	require.Contains(t, err.Error(), "is a section")
}

func TestSetValue_RejectsThroughScalar(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("api: none\n"), 0o600))

	require.Error(t, SetValue(configPath, "api.base_url", "x"))
}

func TestSetValue_InvalidKey(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.Error(t, SetValue(configPath, "api..base_url", "x"))
}

func TestSetValue_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")

	require.NoError(t, SetValue(configPath, "ui.markdown_style", "light"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "config.yaml", entries[0].Name())
}
