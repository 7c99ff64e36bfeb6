package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GetLogger builds the process logger. Debug switches to debug level with
// caller information.
func GetLogger(debug bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		config.Development = true
	} else {
		config.DisableCaller = true
	}
	return config.Build()
}
