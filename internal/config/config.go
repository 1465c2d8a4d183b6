// Package config loads rexolve configuration.
// Configuration source priority (highest to lowest):
// 1. Command-line flags (applied by cmd)
// 2. Environment variables, including those from ./.env
// 3. Config file path specified via --config flag, or ~/.config/rexolve/config.yaml
// 4. Defaults
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed providers_default.yaml
var defaultProvidersYAML []byte

// DefaultBackend is the PrepSeek answering service.
const DefaultBackend = "prepseek"

// DefaultAPIBase is where the PrepSeek service listens when nothing else is set.
const DefaultAPIBase = "http://localhost:8000"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
	DriverMemory = "memory"
)

// ProviderDefaults holds the default base URL and model for a provider.
type ProviderDefaults struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
}

// ProviderConfig holds configuration for a single answering backend.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// StorageConfig selects where sessions are persisted.
type StorageConfig struct {
	// Driver: "sqlite" (default) | "file" | "memory"
	Driver string `yaml:"driver"`
	// Path overrides the driver's default location. Ignored by "memory".
	Path string `yaml:"path"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	// Level: debug | info | warn | error
	Level string `yaml:"level"`
	// File is the log destination. Empty uses the data directory; "stderr" logs to stderr.
	File string `yaml:"file"`
}

// Config is the complete configuration structure for rexolve.
type Config struct {
	// Backend is the answering backend: "prepseek", "anthropic", "openai" or
	// any OpenAI-compatible provider name.
	Backend string `yaml:"backend"`

	// APIBase is the PrepSeek service root; /ask-doubt and /ocr hang off it.
	APIBase string `yaml:"api_base"`

	// Model overrides the backend's default model.
	Model string `yaml:"model"`

	// OCR sends image attachments to {api_base}/ocr before answering.
	OCR bool `yaml:"ocr"`

	// RequestTimeout bounds a single send. 0 = no timeout.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	Providers map[string]*ProviderConfig `yaml:"providers"`
	Storage   StorageConfig              `yaml:"storage"`
	Log       LogConfig                  `yaml:"log"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Backend:   DefaultBackend,
		APIBase:   DefaultAPIBase,
		OCR:       true,
		Providers: make(map[string]*ProviderConfig),
		Storage:   StorageConfig{Driver: DriverSQLite},
		Log:       LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.config/rexolve/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", "rexolve", "config.yaml"), nil
}

// Load reads .env, the config file and environment overrides, in that order.
// A missing config file is not an error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("invalid .env file: %w", err)
	}

	cfg := DefaultConfig()

	if configPath == "" {
		if p, err := DefaultPath(); err == nil {
			configPath = p
		}
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]*ProviderConfig)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can act on.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverSQLite
	case DriverSQLite, DriverFile, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q (want sqlite, file or memory)", c.Storage.Driver)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	return nil
}

// GetProviderConfig returns the config for the named provider, or an empty config if not found.
func (c *Config) GetProviderConfig(name string) *ProviderConfig {
	if pc, ok := c.Providers[name]; ok && pc != nil {
		return pc
	}
	return &ProviderConfig{}
}

// LoadProviderDefaults parses the embedded provider table.
func LoadProviderDefaults() map[string]ProviderDefaults {
	defs := make(map[string]ProviderDefaults)
	_ = yaml.Unmarshal(defaultProvidersYAML, &defs)
	return defs
}

var (
	// KnownProviderBaseURLs maps OpenAI-compatible provider names to their base URLs.
	KnownProviderBaseURLs map[string]string

	// KnownProviderModels maps provider names to their default models.
	KnownProviderModels map[string]string
)

func init() {
	defs := LoadProviderDefaults()
	KnownProviderBaseURLs = make(map[string]string, len(defs))
	KnownProviderModels = make(map[string]string, len(defs))
	for name, d := range defs {
		if d.BaseURL != "" {
			KnownProviderBaseURLs[name] = d.BaseURL
		}
		if d.DefaultModel != "" {
			KnownProviderModels[name] = d.DefaultModel
		}
	}
}

// Save writes cfg as YAML to path with owner-only permissions, creating the
// directory if needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) provider(name string) *ProviderConfig {
	if c.Providers[name] == nil {
		c.Providers[name] = &ProviderConfig{}
	}
	return c.Providers[name]
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Backend selection first so the generic LLM_* keys land on it.
	if v := os.Getenv("REXOLVE_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("REXOLVE_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("REXOLVE_STORAGE"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("REXOLVE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("LLM_API_KEY"); v != "" {
		cfg.provider(cfg.Backend).APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.provider(cfg.Backend).BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.Model = v
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.provider("anthropic").APIKey = v
	}
}
