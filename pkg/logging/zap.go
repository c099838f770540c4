package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ===== ZAP BACKEND ADAPTER =====

// NewZapLogger creates a Logger backed by a zap sugared logger.
// Level is one of "debug", "info", "warn", "error".
func NewZapLogger(prefix string, level string) (Logger, error) {
	zapLevel, err := parseZapLevel(level)
	if err != nil {
		return nil, err
	}

	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	config.DisableStacktrace = true

	zapLogger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	sugar := zapLogger.Sugar()

	return NewLogger(prefix, LogFuncs{
		Debugf: sugar.Debugf,
		Infof:  sugar.Infof,
		Warnf:  sugar.Warnf,
		Errorf: sugar.Errorf,
	}), nil
}

func parseZapLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %q", level)
	}
}
