package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Validates(t *testing.T) {
	config := DefaultConfig()
	require.NoError(t, config.Validate())

	assert.True(t, config.Browser.Headless)
	assert.Equal(t, 1280, config.Browser.ViewportWidth)
	assert.Equal(t, 0.5, config.Resolver.ConfidenceThreshold)
	assert.Equal(t, ":8791", config.Server.Addr)
	assert.Equal(t, "normal", config.Logging.Verbosity)
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero viewport",
			mutate:  func(c *Config) { c.Browser.ViewportWidth = 0 },
			wantErr: "viewport dimensions",
		},
		{
			name:    "negative step timeout",
			mutate:  func(c *Config) { c.Browser.StepTimeoutMs = -1 },
			wantErr: "step_timeout_ms",
		},
		{
			name:    "zero max sessions",
			mutate:  func(c *Config) { c.Browser.MaxSessions = 0 },
			wantErr: "max_sessions",
		},
		{
			name:    "confidence threshold above one",
			mutate:  func(c *Config) { c.Resolver.ConfidenceThreshold = 1.5 },
			wantErr: "confidence_threshold",
		},
		{
			name:    "similarity threshold below zero",
			mutate:  func(c *Config) { c.Feedback.SimilarityThreshold = -0.1 },
			wantErr: "similarity_threshold",
		},
		{
			name: "signin enabled without env names",
			mutate: func(c *Config) {
				c.SignIn.Enabled = true
				c.SignIn.EmailEnv = ""
			},
			wantErr: "email_env",
		},
		{
			name:    "bad verbosity",
			mutate:  func(c *Config) { c.Logging.Verbosity = "loud" },
			wantErr: "invalid logging verbosity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webpilot.yaml")
	doc := `
browser:
  headless: false
  viewport_width: 1920
  viewport_height: 1080
  step_timeout_ms: 15000
  max_sessions: 2
resolver:
  confidence_threshold: 0.7
  use_model: true
server:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0600))

	config, err := Load(path)
	require.NoError(t, err)

	assert.False(t, config.Browser.Headless)
	assert.Equal(t, 1920, config.Browser.ViewportWidth)
	assert.Equal(t, float64(15000), config.Browser.StepTimeoutMs)
	assert.Equal(t, 0.7, config.Resolver.ConfidenceThreshold)
	assert.True(t, config.Resolver.UseModel)
	assert.Equal(t, ":9000", config.Server.Addr)

	// Untouched sections keep their defaults
	assert.Equal(t, ".webpilot/artifacts", config.Report.OutputDir)
	assert.Equal(t, 0.4, config.Feedback.SimilarityThreshold)
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Addr, config.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webpilot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("browser:\n  max_sessions: -1\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_sessions")
}

func TestModelConfigAPIKey(t *testing.T) {
	t.Setenv("WEBPILOT_TEST_KEY", "sk-test")

	m := ModelConfig{APIKeyEnv: "WEBPILOT_TEST_KEY"}
	assert.Equal(t, "sk-test", m.APIKey())

	empty := ModelConfig{}
	assert.Equal(t, "", empty.APIKey())
}
