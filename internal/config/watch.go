package config

import (
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-reads the config file on change and applies the new log level.
// Only the level is hot-reloaded; every other setting needs a restart.
func Watch(v *viper.Viper, level *slog.LevelVar, logger *slog.Logger) {
	if v.ConfigFileUsed() == "" {
		return
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, ok := ParseLevel(v.GetString("logging.level"))
		if !ok {
			logger.Warn("ignoring invalid log level from config", slog.String("level", v.GetString("logging.level")))
			return
		}
		if next != level.Level() {
			level.Set(next)
			logger.Info("log level changed", slog.String("level", next.String()), slog.String("file", e.Name))
		}
	})
	v.WatchConfig()
}

// ParseLevel maps debug/info/warn/error to a slog level.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
