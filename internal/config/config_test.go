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
	cfg, err := LoadFiles()
	require.NoError(t, err)

	assert.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.ListenAddr)
	assert.NotEmpty(t, cfg.DBPath)
	assert.NotEmpty(t, cfg.VisionBackend)
	assert.Equal(t, 30*time.Second, cfg.AnalysisTimeout)
}

func TestLoadCustomValues(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("DB_PATH", "/custom/db.sqlite")
	t.Setenv("VISION_BACKEND", " Claude ")
	t.Setenv("CLAUDE_API_KEY", "sk-test123")
	t.Setenv("ANALYSIS_TIMEOUT", "45s")
	t.Setenv("DEV_MODE", "true")

	cfg, err := LoadFiles()
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/custom/db.sqlite", cfg.DBPath)
	assert.Equal(t, "claude", cfg.VisionBackend)
	assert.Equal(t, "sk-test123", cfg.APIKey())
	assert.True(t, cfg.NeedsAPIKey())
	assert.Equal(t, 45*time.Second, cfg.AnalysisTimeout)
	assert.True(t, cfg.DevMode)
}

func TestLoadAPIKeyPerBackend(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("GEMINI_API_KEY", "sk-gemini")

	tests := []struct {
		backend string
		wantKey string
		needs   bool
	}{
		{"openai", "sk-openai", true},
		{"gemini", "sk-gemini", true},
		{"claude", "", true},
		{"ollama", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			t.Setenv("VISION_BACKEND", tt.backend)
			cfg, err := LoadFiles()
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, cfg.APIKey())
			assert.Equal(t, tt.needs, cfg.NeedsAPIKey())
		})
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown backend", "VISION_BACKEND", "watson"},
		{"bad duration", "ANALYSIS_TIMEOUT", "soon"},
		{"zero timeout", "ANALYSIS_TIMEOUT", "0s"},
		{"bad log format", "LOG_FORMAT", "xml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadFiles()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("APP_NAME=Attic\nCURRENCY=EUR\n"), 0o600))
	// Registered so the values set by godotenv are removed after the test.
	t.Setenv("APP_NAME", "")
	t.Setenv("CURRENCY", "")
	require.NoError(t, os.Unsetenv("APP_NAME"))
	require.NoError(t, os.Unsetenv("CURRENCY"))

	cfg, err := LoadFiles(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "Attic", cfg.AppName)
	assert.Equal(t, "EUR", cfg.Currency)
}
