package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the logger configuration. Environment picks the encoder and
// defaults: "dev" for human readable console output, anything else for
// production JSON output.
type Config struct {
	Environment string
	Level       Level
}

// NewDefaultConfig creates an instance of config with default values.
func NewDefaultConfig() Config {
	return Config{
		Environment: "dev",
		Level:       InfoLevel,
	}
}

func (c Config) zapConfig() (*zap.Config, zapcore.Level) {
	level := zapcore.Level(c.Level)
	if c.Environment == "dev" {
		cfg := &zap.Config{
			Level:       zap.NewAtomicLevelAt(level),
			Development: true,
			Encoding:    "console",
			EncoderConfig: zapcore.EncoderConfig{
				CallerKey:      "C",
				EncodeCaller:   zapcore.ShortCallerEncoder,
				EncodeDuration: zapcore.StringDurationEncoder,
				EncodeLevel:    zapcore.CapitalLevelEncoder,
				EncodeTime:     zapcore.ISO8601TimeEncoder,
				LevelKey:       "L",
				LineEnding:     "\n",
				MessageKey:     "M",
				NameKey:        "N",
				TimeKey:        "T",
			},
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		}
		return cfg, level
	}
	cfg := &zap.Config{
		Level:       zap.NewAtomicLevelAt(level),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			CallerKey:      "caller",
			EncodeCaller:   zapcore.ShortCallerEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeName:     zapcore.FullNameEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			LevelKey:       "level",
			LineEnding:     "\n",
			MessageKey:     "message",
			NameKey:        "logger",
			StacktraceKey:  "stacktrace",
			TimeKey:        "@timestamp",
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return cfg, level
}

// NewTestLogger creates a logger suitable for unit tests: console encoding,
// debug level, no exit on fatal.
func NewTestLogger() *Logger {
	cfg := Config{
		Environment: "dev",
		Level:       DebugLevel,
	}
	return NewLoggerFromConfig(cfg)
}
