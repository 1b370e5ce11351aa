package httpapi

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultService = "mapeditor-core"

// LogConfig selects where and how service logs are written.
type LogConfig struct {
	Level   string
	Service string
	// Format is "json" (default) or "console".
	Format string
	// Out defaults to stdout.
	Out io.Writer
}

// NewLogger builds the process logger. The level applies to this logger
// only; the global zerolog level is left alone.
func NewLogger(cfg LogConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(cfg.Format), "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}

	service := strings.TrimSpace(cfg.Service)
	if service == "" {
		service = defaultService
	}

	return zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", service).
		Logger()
}

// parseLevel accepts zerolog level names plus "warning". Empty or unknown
// values mean info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}
