// Package logger builds the process-wide slog.Logger: JSON or text output,
// optional rotating file, sensitive-field masking, request ids from the
// context and error forwarding to Sentry.
package logger

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"safeflow/internal/config"
)

type Options struct {
	Logging config.LoggingConfig
	// Sentry forwards error records when set; sentry.Init must have run.
	Sentry bool
	// Output overrides stdout, mostly for tests.
	Output io.Writer
}

// New returns the logger and the level variable backing it so the level can
// be changed at runtime.
func New(opts Options) (*slog.Logger, *slog.LevelVar) {
	level := new(slog.LevelVar)
	if lvl, ok := config.ParseLevel(opts.Logging.Level); ok {
		level.Set(lvl)
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Logging.File != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   opts.Logging.File,
			MaxSize:    opts.Logging.MaxSizeMB,
			MaxBackups: opts.Logging.MaxBackups,
			MaxAge:     opts.Logging.MaxAgeDays,
			Compress:   true,
		})
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.Logging.Format == "text" {
		handler = slog.NewTextHandler(out, handlerOpts)
	} else {
		handler = slog.NewJSONHandler(out, handlerOpts)
	}

	if opts.Sentry {
		handler = slogmulti.Fanout(
			handler,
			slogsentry.Option{Level: slog.LevelError}.NewSentryHandler(),
		)
	}

	return slog.New(NewContextHandler(NewMaskingHandler(handler))), level
}

// Discard is a logger for tests and tools that should stay quiet.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
