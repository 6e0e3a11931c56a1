// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"harvest-ledger/internal/config"
)

// NewLogger creates a new logger from the log section of the configuration.
// Console output goes to stderr so command output on stdout stays clean.
func NewLogger(cfg config.LogConfig) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg config.LogConfig, console io.Writer) zerolog.Logger {
	var writers []io.Writer

	// Console writer
	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	return zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel maps a config level name onto a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ContextKey is the type for context keys.
type ContextKey string

// LoggerKey is the context key for the logger.
const LoggerKey ContextKey = "logger"

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogSell logs a recorded sell trade.
func LogSell(logger zerolog.Logger, id string, sats int64, usd, premium string) {
	logger.Info().
		Str("event", "sell").
		Str("trade_id", id).
		Int64("sats", sats).
		Str("usd_received", usd).
		Str("premium_gain", premium).
		Msg("Sell trade recorded")
}

// LogReinvestment logs a recorded reinvestment trade.
func LogReinvestment(logger zerolog.Logger, id string, amount string, sats int64, fromPool bool) {
	logger.Info().
		Str("event", "reinvest").
		Str("trade_id", id).
		Str("amount", amount).
		Int64("sats_bought", sats).
		Bool("from_pool", fromPool).
		Msg("Reinvestment recorded")
}

// LogRemoval logs a removal attempt; found is false for an idempotent no-op.
func LogRemoval(logger zerolog.Logger, kind, id string, found bool) {
	logger.Info().
		Str("event", "remove").
		Str("kind", kind).
		Str("trade_id", id).
		Bool("found", found).
		Msg("Trade removal")
}

// LogPersist logs a state write against the key-value store.
func LogPersist(logger zerolog.Logger, key string, size int, duration time.Duration, err error) {
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Persisting ledger failed; changes kept in memory only")
		return
	}
	logger.Debug().
		Str("event", "persist").
		Str("key", key).
		Int("bytes", size).
		Dur("duration", duration).
		Msg("Ledger persisted")
}
