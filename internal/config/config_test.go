package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	content := "listenAddr: \":9000\"\nchatModel: gpt-4o-mini\nverbose: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "planweave.yml"), []byte(content), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.True(t, cfg.Verbose)
}

func TestLoad_MissingFileIsZeroValue(t *testing.T) {
	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoad_InvalidYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "planweave.yaml"), []byte(":\n:::"), 0o644))

	_, err := Load(dir)

	assert.Error(t, err)
}

func TestKeysFromEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "ok-key")
	t.Setenv("PERPLEXITY_API_KEY", "pk-key")

	keys := KeysFromEnv()

	assert.Equal(t, "ok-key", keys.OpenAI)
	assert.Equal(t, "pk-key", keys.Perplexity)
}
