// Package logging adapts zap to the small Logger interfaces declared by the
// authkit packages.
package logging

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config selects the level and encoding of the root logger
type Config struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
	Name   string `koanf:"name" json:"name"`
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.Format, validation.In(FormatJSON, FormatConsole)),
	)
}

// Logger is a sugared zap logger exposing Debug/Info/Warn/Error with
// key/value arguments.
type Logger struct {
	base *zap.Logger
	s    *zap.SugaredLogger
}

// New builds a Logger from cfg. Empty values default to info and json.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(cfg.Level); raw != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid log level").
				WithMetadata(map[string]any{
					"level": raw,
				})
		}
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format == FormatConsole {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableStacktrace = true
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format(time.RFC3339))
	}

	base, err := zcfg.Build()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build logger")
	}

	logger := FromZap(base)
	if cfg.Name != "" {
		logger = logger.Named(cfg.Name)
	}
	return logger, nil
}

// FromZap wraps an existing zap logger
func FromZap(base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{base: base, s: base.Sugar()}
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return FromZap(zap.NewNop())
}

// Named returns a child logger with name appended to the logger name
func (l *Logger) Named(name string) *Logger {
	return FromZap(l.base.Named(name))
}

// With returns a child logger carrying the given key/value pairs
func (l *Logger) With(args ...any) *Logger {
	child := l.s.With(args...)
	return &Logger{base: child.Desugar(), s: child}
}

// Zap exposes the underlying logger
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

func (l *Logger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.base.Sync()
}
