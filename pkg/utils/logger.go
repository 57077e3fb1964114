package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every log entry.
const ServiceName = "measurements-syncer"

// NewSugaredLogger creates a sugared logger based on the verbose flag.
// If verbose is true, it creates a development logger at debug level,
// otherwise a JSON production logger at info level.
func NewSugaredLogger(verbose bool) (*zap.SugaredLogger, error) {
	cfg := newLoggerConfig(verbose)
	l, err := cfg.Build()
	if err != nil {
		if verbose {
			return nil, fmt.Errorf("failed to create development logger: %w", err)
		}
		return nil, fmt.Errorf("failed to create production logger: %w", err)
	}
	return l.Sugar(), nil
}

func newLoggerConfig(verbose bool) zap.Config {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{"service": ServiceName}
	return cfg
}
