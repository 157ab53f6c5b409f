package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"tasktray/internal/config"
)

// NewLogger builds the root logger for the process.
func NewLogger(cfg *config.Config, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	zerolog.TimestampFieldName = "timestamp"

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}

	switch cfg.Env {
	case config.EnvDev:
		if level > zerolog.DebugLevel {
			level = zerolog.DebugLevel
		}
	case config.EnvLocal:
		consoleWriter := zerolog.NewConsoleWriter()
		consoleWriter.TimeFormat = time.DateTime
		consoleWriter.Out = out
		out = consoleWriter
	case config.EnvProd:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown env: %s", cfg.Env)
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger(), nil
}
