package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger in production and a console logger elsewhere.
func New(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level := zerolog.DebugLevel
	if env == "production" {
		level = zerolog.InfoLevel
		return zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", "agreements").Logger()
	}

	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(level).With().Timestamp().Str("service", "agreements").Logger()
}
