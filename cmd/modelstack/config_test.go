package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "docker-compose.yml", cfg.Compose.File)
	assert.Equal(t, "modelstack", cfg.Compose.Project)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "./data/modelstack.db", cfg.Store.DSN)
	assert.Equal(t, "127.0.0.1", cfg.Serve.Host)
	assert.Equal(t, 7070, cfg.Serve.Port)
	assert.Equal(t, []string{"./data", "./data/models", "./data/app"}, cfg.DataDirs)

	// The asymmetric readiness policy is encoded in the defaults.
	assert.True(t, cfg.Services.Inference.Critical)
	assert.False(t, cfg.Services.App.Critical)
	assert.Equal(t, 11434, cfg.Services.Inference.Port)
	assert.Equal(t, 8080, cfg.Services.App.Port)
	assert.Equal(t, 60*time.Second, cfg.Services.Inference.HealthTimeout)
	assert.Equal(t, 2*time.Second, cfg.Services.Inference.HealthInterval)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	configContent := `
compose:
  file: "stack.yml"
  project: "mystack"

log:
  level: "debug"
  format: "json"

services:
  inference:
    port: 11500
    health_url: "http://localhost:11500/api/version"
    health_timeout: 90s
  app:
    critical: true
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "stack.yml", cfg.Compose.File)
	assert.Equal(t, "mystack", cfg.Compose.Project)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 11500, cfg.Services.Inference.Port)
	assert.Equal(t, 90*time.Second, cfg.Services.Inference.HealthTimeout)
	assert.True(t, cfg.Services.App.Critical)

	// Unset keys keep their defaults.
	assert.Equal(t, "modelstack-app", cfg.Services.App.ContainerName)
	assert.Equal(t, 2*time.Second, cfg.Services.App.HealthInterval)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	t.Setenv("MODELSTACK_COMPOSE_PROJECT", "envstack")
	t.Setenv("MODELSTACK_LOG_LEVEL", "warn")
	t.Setenv("MODELSTACK_STORE_DSN", "/custom/path.db")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "envstack", cfg.Compose.Project)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/custom/path.db", cfg.Store.DSN)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "docker-compose.yml", cfg.Compose.File)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Service Spec Tests
// =============================================================================

func TestServiceSpecs_OrderAndMapping(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	specs := cfg.ServiceSpecs()
	require.Len(t, specs, 2)

	// Inference always comes first: it gates the app at bring-up.
	assert.Equal(t, "inference", specs[0].Name)
	assert.Equal(t, "modelstack-inference", specs[0].ContainerName)
	assert.Equal(t, "http://localhost:11434/api/version", specs[0].HealthURL)
	assert.True(t, specs[0].Critical)

	assert.Equal(t, "app", specs[1].Name)
	assert.False(t, specs[1].Critical)
	assert.Equal(t, "http://localhost:8080", specs[1].AccessURL())
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_Formats(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		cfg := &Config{Log: LogConfig{Level: "info", Format: format}}
		assert.NotNil(t, SetupLogger(cfg), format)
	}
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "invalid", Format: "text"}}

	// Should fall back to info level, not panic
	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

// =============================================================================
// Serve Address Tests
// =============================================================================

func TestServeConfig_Address(t *testing.T) {
	cfg := ServeConfig{Host: "localhost", Port: 7070}
	assert.Equal(t, "localhost:7070", cfg.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"MODELSTACK_COMPOSE_FILE",
		"MODELSTACK_COMPOSE_PROJECT",
		"MODELSTACK_DOCKER_HOST",
		"MODELSTACK_LOG_LEVEL",
		"MODELSTACK_LOG_FORMAT",
		"MODELSTACK_STORE_DSN",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
