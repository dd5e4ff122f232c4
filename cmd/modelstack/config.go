package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	corestack "github.com/modelstack/modelstack/internal/core/stack"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	Compose  ComposeConfig  `mapstructure:"compose"`
	Docker   DockerConfig   `mapstructure:"docker"`
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Serve    ServeConfig    `mapstructure:"serve"`
	DataDirs []string       `mapstructure:"data_dirs"`
	Services ServicesConfig `mapstructure:"services"`
}

// ComposeConfig holds compose file and project settings.
type ComposeConfig struct {
	File    string `mapstructure:"file"`
	Project string `mapstructure:"project"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig holds run-history database configuration.
type StoreConfig struct {
	DSN string `mapstructure:"dsn"`
}

// ServeConfig holds status API server configuration.
type ServeConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address returns the server address in host:port format.
func (c ServeConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ServiceConfig holds the per-service stack settings.
type ServiceConfig struct {
	ContainerName string `mapstructure:"container_name"`
	HealthURL     string `mapstructure:"health_url"`
	Port          int    `mapstructure:"port"`

	// Critical controls the readiness-timeout policy: fatal when true,
	// warning when false.
	Critical bool `mapstructure:"critical"`

	HealthTimeout  time.Duration `mapstructure:"health_timeout"`
	HealthInterval time.Duration `mapstructure:"health_interval"`
}

// ServicesConfig holds the two stack services. Order matters at bring-up:
// inference starts and must be ready before the app is considered.
type ServicesConfig struct {
	Inference ServiceConfig `mapstructure:"inference"`
	App       ServiceConfig `mapstructure:"app"`
}

// ServiceSpecs converts the configured services to specs in bring-up order.
func (c *Config) ServiceSpecs() []corestack.ServiceSpec {
	return []corestack.ServiceSpec{
		toSpec("inference", c.Services.Inference),
		toSpec("app", c.Services.App),
	}
}

func toSpec(name string, sc ServiceConfig) corestack.ServiceSpec {
	return corestack.ServiceSpec{
		Name:           name,
		ContainerName:  sc.ContainerName,
		HealthURL:      sc.HealthURL,
		Port:           sc.Port,
		Critical:       sc.Critical,
		HealthTimeout:  sc.HealthTimeout,
		HealthInterval: sc.HealthInterval,
	}
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("compose.file", "docker-compose.yml")
	v.SetDefault("compose.project", "modelstack")
	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("store.dsn", "./data/modelstack.db")
	v.SetDefault("serve.host", "127.0.0.1")
	v.SetDefault("serve.port", 7070)
	v.SetDefault("serve.read_timeout", "30s")
	v.SetDefault("serve.write_timeout", "30s")
	v.SetDefault("serve.shutdown_timeout", "30s")
	v.SetDefault("data_dirs", []string{"./data", "./data/models", "./data/app"})

	// Service defaults: the inference server must come up first and its
	// readiness is mandatory; the app gets a grace warning instead.
	v.SetDefault("services.inference.container_name", "modelstack-inference")
	v.SetDefault("services.inference.health_url", "http://localhost:11434/api/version")
	v.SetDefault("services.inference.port", 11434)
	v.SetDefault("services.inference.critical", true)
	v.SetDefault("services.inference.health_timeout", "60s")
	v.SetDefault("services.inference.health_interval", "2s")

	v.SetDefault("services.app.container_name", "modelstack-app")
	v.SetDefault("services.app.health_url", "http://localhost:8080/health")
	v.SetDefault("services.app.port", 8080)
	v.SetDefault("services.app.critical", false)
	v.SetDefault("services.app.health_timeout", "60s")
	v.SetDefault("services.app.health_interval", "2s")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("MODELSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. Logs go
// to stderr so stdout stays clean for run progress and summaries.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
