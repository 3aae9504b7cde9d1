package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	ListenAddr      string
	OpenSkyAPIURL   string
	IncludeHeading  bool
	ShutdownTimeout time.Duration
	Log             LogConfig
	Registry        RegistryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// RegistryConfig configures the optional aircraft metadata registry.
// The registry is disabled when DBPath is empty.
type RegistryConfig struct {
	DBPath    string
	CSVPaths  []string
	BatchSize int
}

// Enabled reports whether a registry database was configured
func (r RegistryConfig) Enabled() bool {
	return r.DBPath != ""
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", ":3551")
	v.SetDefault("opensky_api_url", "")
	v.SetDefault("include_heading", false)
	v.SetDefault("shutdown_timeout", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("registry.db_path", "")
	v.SetDefault("registry.csv_paths", []string{})
	v.SetDefault("registry.batch_size", 5000)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/celestix")
	v.AddConfigPath(".")

	if configPath := os.Getenv("CELESTIX_CONFIG_PATH"); configPath != "" {
		v.SetConfigFile(configPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: defaults + env vars
	}

	v.SetEnvPrefix("CELESTIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Deployments predating the CELESTIX_ prefix export OPEN_SKY_API_URL
	if err := v.BindEnv("opensky_api_url", "CELESTIX_OPENSKY_API_URL", "OPEN_SKY_API_URL"); err != nil {
		return nil, fmt.Errorf("error binding env: %w", err)
	}

	cfg := &Config{
		ListenAddr:      v.GetString("listen_addr"),
		OpenSkyAPIURL:   v.GetString("opensky_api_url"),
		IncludeHeading:  v.GetBool("include_heading"),
		ShutdownTimeout: time.Duration(v.GetInt("shutdown_timeout")) * time.Second,
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("log.level")),
			Format: strings.ToLower(v.GetString("log.format")),
		},
		Registry: RegistryConfig{
			DBPath:    v.GetString("registry.db_path"),
			CSVPaths:  v.GetStringSlice("registry.csv_paths"),
			BatchSize: v.GetInt("registry.batch_size"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate validates the configuration values.
// The upstream URL is deliberately left alone: a missing URL fails each /api/planes call instead.
func validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be greater than 0")
	}

	if cfg.Registry.Enabled() && cfg.Registry.BatchSize <= 0 {
		return fmt.Errorf("registry.batch_size must be greater than 0")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[cfg.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
