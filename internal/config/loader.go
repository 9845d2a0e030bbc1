package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir string `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	// Runtime selects the model runtime: "llama" (default) or "fake".
	Runtime string `json:"runtime" yaml:"runtime" toml:"runtime"`

	// Model is loaded at startup when set.
	Model          string `json:"model" yaml:"model" toml:"model"`
	ModelGPULayers uint32 `json:"model_gpu_layers" yaml:"model_gpu_layers" toml:"model_gpu_layers"`

	ContextSize uint32  `json:"context_size" yaml:"context_size" toml:"context_size"`
	MaxTokens   uint32  `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	BatchWidth  uint32  `json:"batch_width" yaml:"batch_width" toml:"batch_width"`
	Threads     int     `json:"threads" yaml:"threads" toml:"threads"`
	TotalVRAMGB float64 `json:"total_vram_gb" yaml:"total_vram_gb" toml:"total_vram_gb"`

	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`
	// LogFile enables rotated file logging in addition to stderr.
	LogFile    string `json:"log_file" yaml:"log_file" toml:"log_file"`
	LogConsole bool   `json:"log_console" yaml:"log_console" toml:"log_console"`

	MaxBodyBytes           int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	GenerateTimeoutSeconds int64 `json:"generate_timeout_seconds" yaml:"generate_timeout_seconds" toml:"generate_timeout_seconds"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
}

// Defaults used by WithDefaults.
const (
	DefaultAddr         = ":8080"
	DefaultModelsDir    = "~/models/llm"
	DefaultRuntime      = "llama"
	DefaultLogLevel     = "info"
	DefaultMaxBodyBytes = 64 << 20
	DefaultMaxTokens    = 512
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WithDefaults fills unset fields. Engine sizes left at zero are resolved
// by the manager.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ModelsDir == "" {
		c.ModelsDir = DefaultModelsDir
	}
	if c.Runtime == "" {
		c.Runtime = DefaultRuntime
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	switch c.Runtime {
	case "", "llama", "fake":
	default:
		return fmt.Errorf("unknown runtime %q (want llama or fake)", c.Runtime)
	}
	if c.Threads < 0 {
		return fmt.Errorf("threads must be >= 0, got %d", c.Threads)
	}
	if c.TotalVRAMGB < 0 {
		return fmt.Errorf("total_vram_gb must be >= 0, got %g", c.TotalVRAMGB)
	}
	if c.GenerateTimeoutSeconds < 0 {
		return fmt.Errorf("generate_timeout_seconds must be >= 0, got %d", c.GenerateTimeoutSeconds)
	}
	return nil
}

// Resolve builds the effective configuration: file (optional), then the
// environment overlay, then defaults.
func Resolve(path, envFile string) (Config, error) {
	var cfg Config
	if path != "" {
		c, err := Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	if err := ApplyEnv(&cfg, envFile); err != nil {
		return cfg, err
	}
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}
