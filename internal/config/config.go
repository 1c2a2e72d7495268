package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Invocation styles for the synthesis CLI.
const (
	InvocationArgs       = "args"
	InvocationConfigFile = "config-file"
)

// Config holds all configuration for the TTS gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Synthesis CLI configuration
	SynthBin     string `envconfig:"SYNTH_BIN" default:"f5-tts_infer-cli"`
	Device       string `envconfig:"DEVICE" default:"cuda"`
	InputDir     string `envconfig:"INPUT_DIR" default:"/data/input"`
	OutputDir    string `envconfig:"OUTPUT_DIR" default:"/data/output"`
	SynthTimeout int    `envconfig:"SYNTH_TIMEOUT" default:"600"` // seconds

	// How the CLI is invoked: "args" (flag vector) or "config-file" (-c <toml>)
	InvocationStyle string `envconfig:"INVOCATION_STYLE" default:"args"`

	// Transcoder configuration (WAV -> MP3)
	FFmpegBin string `envconfig:"FFMPEG_BIN" default:"ffmpeg"`

	// Model artifact cache (HuggingFace hub layout)
	ModelCacheDir     string `envconfig:"MODEL_CACHE_DIR" default:"/root/.cache/huggingface/hub"`
	ModelRepo         string `envconfig:"MODEL_REPO" default:"Misha24-10/F5-TTS_RUSSIAN"`
	ModelCkptSubpath  string `envconfig:"MODEL_CKPT_SUBPATH" default:"F5TTS_v1_Base_v2/model_last_inference.safetensors"`
	ModelVocabSubpath string `envconfig:"MODEL_VOCAB_SUBPATH" default:"F5TTS_v1_Base/vocab.txt"`

	// Process-wide reference overrides. When these point at existing files they
	// take precedence over per-request references.
	RefAudioPath string `envconfig:"REF_AUDIO_PATH" default:""`
	RefTextPath  string `envconfig:"REF_TEXT_PATH" default:""`

	// Remote reference fetching
	FetchTimeout int `envconfig:"FETCH_TIMEOUT" default:"10"` // seconds

	// Accent annotation helper configuration
	AccentBin           string `envconfig:"ACCENT_BIN" default:"ruaccent-worker"`
	AccentModelSize     string `envconfig:"ACCENT_MODEL_SIZE" default:"turbo3.1"`
	AccentUseDictionary bool   `envconfig:"ACCENT_USE_DICTIONARY" default:"true"`
	AccentTinyMode      bool   `envconfig:"ACCENT_TINY_MODE" default:"false"`

	// Concurrency gate for synthesis subprocesses (0 = unlimited)
	MaxConcurrentSynth int `envconfig:"MAX_CONCURRENT_SYNTH" default:"0"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.InvocationStyle != InvocationArgs && c.InvocationStyle != InvocationConfigFile {
		return fmt.Errorf("INVOCATION_STYLE must be %q or %q, got %q",
			InvocationArgs, InvocationConfigFile, c.InvocationStyle)
	}
	if c.SynthTimeout <= 0 {
		return fmt.Errorf("SYNTH_TIMEOUT must be positive, got %d", c.SynthTimeout)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %d", c.FetchTimeout)
	}
	if c.ModelRepo == "" {
		return fmt.Errorf("MODEL_REPO is required")
	}
	return nil
}

// SynthTimeoutDuration returns the synthesis wall-clock budget
func (c *Config) SynthTimeoutDuration() time.Duration {
	return time.Duration(c.SynthTimeout) * time.Second
}

// FetchTimeoutDuration returns the remote reference fetch budget
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
