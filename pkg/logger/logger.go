package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the interface for structured logging throughout the application
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Fatal(msg string)

	DebugWithFields(msg string, fields map[string]interface{})
	InfoWithFields(msg string, fields map[string]interface{})
	WarnWithFields(msg string, fields map[string]interface{})
	ErrorWithFields(msg string, fields map[string]interface{})
	FatalWithFields(msg string, fields map[string]interface{})

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
	WithError(err error) Logger

	GetZerolog() *zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string
	Output     io.Writer
	TimeFormat string
	Pretty     bool
}

// zerologAdapter wraps zerolog to implement the Logger interface
type zerologAdapter struct {
	logger zerolog.Logger
}

// New creates a new logger with the given configuration
func New(cfg Config) Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	level := parseLevel(cfg.Level)

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			TimeFormat: "15:04:05",
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
					case "fatal":
						return "\033[35mFTL\033[0m"
					}
				}
				return "???"
			},
		}
	}

	zl := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("app", "liscraper").
		Logger()

	return &zerologAdapter{logger: zl}
}

// NewDefault creates a logger with default settings suitable for CLI use
func NewDefault() Logger {
	return New(Config{
		Level:  "info",
		Output: os.Stderr,
		Pretty: true,
	})
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (z *zerologAdapter) Debug(msg string) { z.logger.Debug().Msg(msg) }
func (z *zerologAdapter) Info(msg string)  { z.logger.Info().Msg(msg) }
func (z *zerologAdapter) Warn(msg string)  { z.logger.Warn().Msg(msg) }
func (z *zerologAdapter) Error(msg string) { z.logger.Error().Msg(msg) }
func (z *zerologAdapter) Fatal(msg string) { z.logger.Fatal().Msg(msg) }

func (z *zerologAdapter) DebugWithFields(msg string, fields map[string]interface{}) {
	z.logger.Debug().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) InfoWithFields(msg string, fields map[string]interface{}) {
	z.logger.Info().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) WarnWithFields(msg string, fields map[string]interface{}) {
	z.logger.Warn().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) ErrorWithFields(msg string, fields map[string]interface{}) {
	z.logger.Error().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) FatalWithFields(msg string, fields map[string]interface{}) {
	z.logger.Fatal().Fields(fields).Msg(msg)
}

func (z *zerologAdapter) WithField(key string, value interface{}) Logger {
	return &zerologAdapter{logger: z.logger.With().Interface(key, value).Logger()}
}

func (z *zerologAdapter) WithFields(fields map[string]interface{}) Logger {
	return &zerologAdapter{logger: z.logger.With().Fields(fields).Logger()}
}

func (z *zerologAdapter) WithError(err error) Logger {
	return &zerologAdapter{logger: z.logger.With().Err(err).Logger()}
}

func (z *zerologAdapter) GetZerolog() *zerolog.Logger {
	return &z.logger
}

// global logger instance
var globalLogger Logger

func init() {
	globalLogger = NewDefault()
}

// Initialize sets up the global logger from configuration values
func Initialize(level, file string) error {
	var output io.Writer = os.Stderr
	pretty := true

	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		output = f
		pretty = false
	}

	globalLogger = New(Config{
		Level:  level,
		Output: output,
		Pretty: pretty,
	})

	return nil
}

// GetLogger returns the global logger instance
func GetLogger() Logger {
	return globalLogger
}
