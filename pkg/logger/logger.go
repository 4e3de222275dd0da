package logger

import (
	"log/slog"
	"os"
)

// New builds the process-wide JSON logger. Every record carries the
// service name so the api and migrate binaries can share one log sink.
func New(service string, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(h).With("service", service)
}
