package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		t.Setenv("AI_PLUGIN", "")
		os.Unsetenv("AI_PLUGIN")

		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "deepseek", cfg.AI.Plugin)
		assert.Equal(t, "deepseek-chat", cfg.AI.DeepSeek.Model)
		assert.Equal(t, "https://api.deepseek.com/v1", cfg.AI.DeepSeek.BaseURL)
		assert.Equal(t, 30*time.Second, cfg.SerpAPI.Timeout)
		assert.Equal(t, 2, cfg.Corpus.MaxResults)
		assert.Equal(t, 3, cfg.Chat.WindowSize)
		assert.Equal(t, 3, cfg.Chat.TopK)
		assert.Equal(t, 2, cfg.Chat.MaxSearchAttempts)
		assert.Equal(t, "8000", cfg.Server.Port)
	})

	t.Run("EnvironmentVariables", func(t *testing.T) {
		t.Setenv("AI_PLUGIN", "ollama")
		t.Setenv("SERPAPI_KEY", "serp-key")
		t.Setenv("CHAT_TOP_K", "5")

		cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
		require.NoError(t, err)
		assert.Equal(t, "ollama", cfg.AI.Plugin)
		assert.Equal(t, "serp-key", cfg.SerpAPI.APIKey)
		assert.Equal(t, 5, cfg.Chat.TopK)
	})

	t.Run("YAMLFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ai:\n  plugin: gemini\ncorpus:\n  dir: /srv/corpus\n"), 0o600))

		cfg, err := LoadFrom(path)
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.AI.Plugin)
		assert.Equal(t, "/srv/corpus", cfg.Corpus.Dir)
	})

	t.Run("UnknownPlugin", func(t *testing.T) {
		t.Setenv("AI_PLUGIN", "gpt-9")

		_, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "gpt-9")
	})
}
