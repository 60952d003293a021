package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const (
	BackendOpenAI = "openai"
	BackendClaude = "claude"
	BackendGemini = "gemini"
	BackendOllama = "ollama"
)

type Config struct {
	ListenAddr         string `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath             string `env:"DB_PATH" envDefault:"/data/mystuff.db"`
	PhotoPath          string `env:"PHOTO_LOCAL_PATH" envDefault:"/data/photos"`
	ExportDir          string `env:"EXPORT_DIR" envDefault:"/data/exports"`
	AppName            string `env:"APP_NAME" envDefault:"MyStuff"`
	Currency           string `env:"CURRENCY" envDefault:"USD"`
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS"`
	DevMode            bool   `env:"DEV_MODE"`

	VisionBackend   string        `env:"VISION_BACKEND" envDefault:"openai"`
	AnalysisTimeout time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"30s"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com"`
	OpenAIModel     string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	ClaudeAPIKey    string        `env:"CLAUDE_API_KEY"`
	ClaudeModel     string        `env:"CLAUDE_MODEL" envDefault:"claude-sonnet-4-5"`
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	OllamaHost      string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel     string        `env:"OLLAMA_MODEL" envDefault:"moondream"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile   string `env:"LOG_FILE"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load reads an optional .env file from the working directory, then the
// environment. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	return LoadFiles(".env")
}

// LoadFiles is Load with explicit dotenv files. Missing files are ignored.
func LoadFiles(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.VisionBackend = strings.ToLower(strings.TrimSpace(cfg.VisionBackend))
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.VisionBackend {
	case BackendOpenAI, BackendClaude, BackendGemini, BackendOllama:
	default:
		return fmt.Errorf("unknown VISION_BACKEND %q", c.VisionBackend)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("ANALYSIS_TIMEOUT must be positive, got %s", c.AnalysisTimeout)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// APIKey returns the key configured in the environment for the active
// backend. It seeds the stored credential on first run.
func (c *Config) APIKey() string {
	switch c.VisionBackend {
	case BackendOpenAI:
		return c.OpenAIAPIKey
	case BackendClaude:
		return c.ClaudeAPIKey
	case BackendGemini:
		return c.GeminiAPIKey
	default:
		return ""
	}
}

// NeedsAPIKey reports whether the active backend authenticates with a key.
func (c *Config) NeedsAPIKey() bool {
	return c.VisionBackend != BackendOllama
}
