package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/safar/repair-orders/internal/config"
)

// New builds the service logger. Pretty output is meant for local runs;
// everything else gets JSON lines on stdout.
func New(cfg config.LogConfig) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "repair-orders").
		Logger()
}
