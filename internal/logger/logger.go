// Package logger builds the application's structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New initializes a slog logger writing to the given output. A nil output
// defaults to stderr so pipeline results on stdout stay machine-readable.
func New(level slog.Level, format string, output io.Writer) *slog.Logger {
	if output == nil {
		output = os.Stderr
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(output, &slog.HandlerOptions{Level: level})
	default:
		handler = slog.NewTextHandler(output, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}
