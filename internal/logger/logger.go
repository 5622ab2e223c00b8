package logger

import (
	"log/slog"
	"os"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/config"
)

// New builds the process logger for the given environment: readable debug
// output locally, JSON at info level everywhere else. Diagnostics go to
// stderr; operator-facing progress stays on stdout.
func New(env string) *slog.Logger {
	switch env {
	case config.EnvLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	case config.EnvDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	default:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}
}
