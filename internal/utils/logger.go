package utils

import (
	"fmt"

	"github.com/faunawatch/backend/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger so packages can take named sub-loggers without
// depending on zap's config surface.
type Logger struct {
	*zap.Logger
}

// NewLogger builds the process logger. Production mode emits JSON, anything
// else uses the console encoder; unknown levels fall back to info.
func NewLogger(cfg *config.LogConfig) (*Logger, error) {
	var zapCfg zap.Config
	if cfg.Production {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.OutputPath != "" {
		zapCfg.OutputPaths = []string{cfg.OutputPath}
	}

	level := zapcore.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{logger}, nil
}

// With returns a logger carrying the given structured fields.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{l.Logger.With(fields...)}
}

// Named returns a sub-logger for a component, e.g. "rules" or "scheduler".
func (l *Logger) Named(name string) *Logger {
	return &Logger{l.Logger.Named(name)}
}

// Sugar exposes the printf-style API for places where fields are overkill.
func (l *Logger) Sugar() *zap.SugaredLogger {
	return l.Logger.Sugar()
}
