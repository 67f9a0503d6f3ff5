package main

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the reactor server.
type Config struct {
	// Server settings
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Store settings
	Capacity   int `mapstructure:"capacity"`
	BufferSize int `mapstructure:"buffer_size"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// Metrics (empty = disabled)
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DefaultConfig returns a Config with default values: capacity 1024
// live entries, 4096-byte connection buffers.
func DefaultConfig() *Config {
	return &Config{
		Host:        "0.0.0.0",
		Port:        6379,
		Capacity:    hashSlots,
		BufferSize:  4096,
		LogLevel:    "info",
		LogFormat:   "text",
		MetricsAddr: "",
	}
}

// LoadConfig loads configuration from environment variables, an
// optional config file, and command line flags.
func LoadConfig() (*Config, error) {
	config := DefaultConfig()

	viper.SetConfigName("kvreactor")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/kvreactor/")
	viper.AddConfigPath("$HOME/.kvreactor")

	viper.SetEnvPrefix("KVREACTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("host", config.Host)
	viper.SetDefault("port", config.Port)
	viper.SetDefault("capacity", config.Capacity)
	viper.SetDefault("buffer_size", config.BufferSize)
	viper.SetDefault("log_level", config.LogLevel)
	viper.SetDefault("log_format", config.LogFormat)
	viper.SetDefault("metrics_addr", config.MetricsAddr)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK - env/flags/defaults still apply.
	}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return config, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}

	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1")
	}

	if c.BufferSize < 128 {
		return fmt.Errorf("buffer_size must be at least 128")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log_format: %s (must be text or json)", c.LogFormat)
	}

	return nil
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf("kvreactor Config: %s:%d, Capacity: %d, BufferSize: %d, LogLevel: %s",
		c.Host, c.Port, c.Capacity, c.BufferSize, c.LogLevel)
}
