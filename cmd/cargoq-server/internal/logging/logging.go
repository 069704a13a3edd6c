// Package logging adapts zap to the cargoqueue.Logger interface.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a cargoqueue.Logger backed by a sugared zap logger.
type Logger struct {
	*zap.SugaredLogger
}

// New builds a zap logger at the given level ("debug", "info", "warn", "error")
// with JSON or console encoding.
func New(level, format string) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch format {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	case "json", "":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return FromZap(logger), nil
}

// FromZap wraps an existing zap logger.
func FromZap(logger *zap.Logger) *Logger {
	return &Logger{logger.Sugar()}
}

// Info logs a message without formatting.
func (l *Logger) Info(message string) {
	l.SugaredLogger.Info(message)
}

// Zap returns the underlying structured logger.
func (l *Logger) Zap() *zap.Logger {
	return l.Desugar()
}
