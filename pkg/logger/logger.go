// Package logger carries a zerolog logger through context so request and job
// fields follow every line written for them.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/angelmondragon/ttml-backend/pkg/config"
	"github.com/angelmondragon/ttml-backend/pkg/env"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// Console switches to zerolog's human readable writer.
	Console   bool
	WarnStack bool
	Output    io.Writer
	// Fields are attached to every entry.
	Fields map[string]any
}

type Logger struct {
	base      zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	builder := zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName)
	for k, v := range opts.Fields {
		builder = builder.Interface(k, v)
	}
	return &Logger{base: builder.Logger(), warnStack: opts.WarnStack}
}

// ForService builds the process logger from the app section of the loaded config.
func ForService(name string, app config.AppConfig) *Logger {
	return New(Options{
		ServiceName: name,
		Level:       ParseLevel(app.LogLevel),
		Console:     strings.EqualFold(app.LogFormat, "console"),
		WarnStack:   app.LogWarnStack,
		Fields: map[string]any{
			"env":      app.Env,
			"instance": env.InstanceID(),
		},
	})
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) current(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if scoped, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return scoped
		}
	}
	return &l.base
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	builder := l.current(ctx).With()
	for k, v := range fields {
		builder = builder.Interface(k, v)
	}
	scoped := builder.Logger()
	return context.WithValue(ctx, ctxKey{}, &scoped)
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

// Enabled reports whether entries at level would be written for ctx.
func (l *Logger) Enabled(ctx context.Context, level zerolog.Level) bool {
	return l.current(ctx).GetLevel() <= level
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.current(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.current(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.current(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stack())
	}
	event.Msg(msg)
}

// Error always records the stack of the caller.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	l.current(ctx).Error().Err(err).Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
