package logging

import (
	"log/slog"
	"os"
)

// New returns a JSON logger writing to stdout. Set LOG_FORMAT=console for
// human-readable output during local development.
func New(service string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, opts)
	if os.Getenv("LOG_FORMAT") == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With("service", service)
}
