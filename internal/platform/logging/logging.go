// Package logging builds the zap logger used by the tirecore binary and
// adapts it to core.Logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production JSON logger at level ("debug", "info", "warn", "error").
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// Adapter satisfies core.Logger with a zap SugaredLogger.
type Adapter struct {
	sugar *zap.SugaredLogger
}

// NewAdapter wraps logger. A nil logger yields a no-op adapter.
func NewAdapter(logger *zap.Logger) Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return Adapter{sugar: logger.Sugar()}
}

func (a Adapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a Adapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a Adapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a Adapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }
