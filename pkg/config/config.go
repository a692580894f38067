// Package config loads and validates the engine configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the full engine configuration
type Config struct {
	// Browser session settings
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Selector resolution settings
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`

	// Third-party sign-in automation
	SignIn SignInConfig `yaml:"signin" json:"signin"`

	// Report compilation settings
	Report ReportConfig `yaml:"report" json:"report"`

	// Feedback store settings
	Feedback FeedbackConfig `yaml:"feedback" json:"feedback"`

	// HTTP API settings
	Server ServerConfig `yaml:"server" json:"server"`

	// Text-generation provider settings
	Model ModelConfig `yaml:"model" json:"model"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig defines browser session behavior
type BrowserConfig struct {
	Headless       bool    `yaml:"headless" json:"headless"`
	ViewportWidth  int     `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int     `yaml:"viewport_height" json:"viewport_height"`
	StepTimeoutMs  float64 `yaml:"step_timeout_ms" json:"step_timeout_ms"`
	MaxSessions    int     `yaml:"max_sessions" json:"max_sessions"`
	IdleTimeout    int     `yaml:"idle_timeout_seconds" json:"idle_timeout_seconds"`
}

// ResolverConfig defines selector resolution behavior
type ResolverConfig struct {
	// ConfidenceThreshold is the minimum heuristic score accepted as a match
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`

	// UseModel enables the model-assisted resolution strategy
	UseModel bool `yaml:"use_model" json:"use_model"`
}

// SignInConfig defines third-party sign-in automation behavior.
//
// Credentials are referenced by environment variable name only; values are
// read at execution time and never written to config or disk.
type SignInConfig struct {
	Enabled        bool    `yaml:"enabled" json:"enabled"`
	ScanTimeoutMs  float64 `yaml:"scan_timeout_ms" json:"scan_timeout_ms"`
	FieldTimeoutMs float64 `yaml:"field_timeout_ms" json:"field_timeout_ms"`
	EmailEnv       string  `yaml:"email_env" json:"email_env"`
	PasswordEnv    string  `yaml:"password_env" json:"password_env"`
}

// ReportConfig defines report compilation behavior
type ReportConfig struct {
	OutputDir       string `yaml:"output_dir" json:"output_dir"`
	UseModel        bool   `yaml:"use_model" json:"use_model"`
	MaxPromptTokens int    `yaml:"max_prompt_tokens" json:"max_prompt_tokens"`
}

// FeedbackConfig defines feedback store behavior
type FeedbackConfig struct {
	DatabasePath        string  `yaml:"database_path" json:"database_path"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
}

// ServerConfig defines the HTTP API listener
type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

// ModelConfig defines the text-generation provider.
//
// APIKeyEnv names the environment variable holding the key; the key itself
// never appears in config files.
type ModelConfig struct {
	Provider  string `yaml:"provider" json:"provider"`
	Model     string `yaml:"model" json:"model"`
	BaseURL   string `yaml:"base_url" json:"base_url"`
	APIKeyEnv string `yaml:"api_key_env" json:"api_key_env"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// Validate validates the configuration and fills defaulted fields
func (c *Config) Validate() error {
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}

	if c.Browser.StepTimeoutMs < 0 {
		return fmt.Errorf("step_timeout_ms cannot be negative")
	}

	if c.Browser.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive")
	}

	if c.Resolver.ConfidenceThreshold < 0 || c.Resolver.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1")
	}

	if c.Feedback.SimilarityThreshold < 0 || c.Feedback.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be between 0 and 1")
	}

	if c.SignIn.Enabled {
		if c.SignIn.EmailEnv == "" || c.SignIn.PasswordEnv == "" {
			return fmt.Errorf("signin requires email_env and password_env when enabled")
		}
	}

	if c.Report.MaxPromptTokens < 0 {
		return fmt.Errorf("max_prompt_tokens cannot be negative")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:       true,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			StepTimeoutMs:  30000,
			MaxSessions:    5,
			IdleTimeout:    300,
		},
		Resolver: ResolverConfig{
			ConfidenceThreshold: 0.5,
			UseModel:            false,
		},
		SignIn: SignInConfig{
			Enabled:        false,
			ScanTimeoutMs:  3000,
			FieldTimeoutMs: 5000,
			EmailEnv:       "WEBPILOT_SIGNIN_EMAIL",
			PasswordEnv:    "WEBPILOT_SIGNIN_PASSWORD",
		},
		Report: ReportConfig{
			OutputDir:       ".webpilot/artifacts",
			UseModel:        true,
			MaxPromptTokens: 6000,
		},
		Feedback: FeedbackConfig{
			DatabasePath:        ".webpilot/feedback.db",
			SimilarityThreshold: 0.4,
		},
		Server: ServerConfig{
			Addr: ":8791",
		},
		Model: ModelConfig{
			Provider:  "openai",
			Model:     "gpt-4o",
			APIKeyEnv: "OPENAI_API_KEY",
		},
	}
}

// Load reads a YAML config file over the defaults and validates the result.
// An empty path returns the validated defaults.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if unmarshalErr := yaml.Unmarshal(data, config); unmarshalErr != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// APIKey resolves the provider API key from the configured environment
// variable. It returns an empty string when unset.
func (m *ModelConfig) APIKey() string {
	if m.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(m.APIKeyEnv)
}
