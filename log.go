package main

import (
	"os"

	"github.com/rs/zerolog"
)

// newLogger builds a zerolog.Logger from the configured level/format.
// Text format uses zerolog's console writer for human-readable output;
// json is for log aggregation in production deployments.
func newLogger(cfg *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.LogFormat == "json" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"})
	}

	return logger.Level(level).With().Timestamp().Logger()
}
