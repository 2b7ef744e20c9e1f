package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `{
	"port": 8080,
	"jwt_secret": "secret",
	"database": {"host": "localhost", "user": "kb", "db_name": "kb"},
	"ai": {
		"chat": {"provider": "openai", "model": "gpt-4o-mini", "data": {"api_key": "k"}},
		"embedding": {"provider": "gemini", "model": "text-embedding-004", "data": {"api_key": "k"}},
		"dimension": 768
	}
}`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "local", cfg.FileStore.Type)
	require.Equal(t, 1000, cfg.Ingest.DefaultChunkSize)
	require.Equal(t, 200, cfg.Ingest.DefaultOverlap)
	require.Equal(t, 4, cfg.Ingest.EmbedConcurrency)
	require.Equal(t, 3, cfg.Ingest.EmbedRetries)
	require.Equal(t, int64(10<<20), cfg.Ingest.MaxFileSizeBytes)
	require.Equal(t, []string{".txt", ".md", ".pdf"}, cfg.Ingest.AllowedExtensions)
	require.Equal(t, 5, cfg.Retrieval.TopK)
	require.Equal(t, 8000, cfg.Retrieval.MaxContextChars)
	require.Equal(t, 15, cfg.Answer.TimeoutSeconds)
	require.Equal(t, 3, cfg.Answer.MaxAttempts)
	require.Equal(t, "*/5 * * * *", cfg.Reaper.Spec)
	require.Equal(t, 30, cfg.Reaper.LeaseMinutes)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{name: "missing port", content: `{"jwt_secret": "s"}`},
		{name: "missing jwt", content: `{"port": 8080}`},
		{
			name:    "missing db",
			content: `{"port": 8080, "jwt_secret": "s", "ai": {"chat": {"provider": "p", "model": "m"}, "embedding": {"provider": "p", "model": "m"}, "dimension": 768}}`,
		},
		{
			name:    "missing embedding",
			content: `{"port": 8080, "jwt_secret": "s", "database": {"host": "h"}, "ai": {"chat": {"provider": "p", "model": "m"}, "dimension": 768}}`,
		},
		{
			name:    "missing dimension",
			content: `{"port": 8080, "jwt_secret": "s", "database": {"host": "h"}, "ai": {"chat": {"provider": "p", "model": "m"}, "embedding": {"provider": "p", "model": "m"}}}`,
		},
		{name: "bad json", content: `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadOverlapGuard(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"port": 8080,
		"jwt_secret": "secret",
		"database": {"host": "localhost"},
		"ai": {
			"chat": {"provider": "openai", "model": "m", "data": {}},
			"embedding": {"provider": "openai", "model": "m", "data": {}},
			"dimension": 768
		},
		"ingest": {"default_chunk_size": 100, "default_overlap": 150}
	}`))
	require.NoError(t, err)
	require.Less(t, cfg.Ingest.DefaultOverlap, cfg.Ingest.DefaultChunkSize)
}
