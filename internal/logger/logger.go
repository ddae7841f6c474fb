// Package logger builds the zerolog logger the rest of the collector
// threads through via child loggers.
package logger

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/luckymifta/dash-atm-collector/internal/config"
)

// New returns a configured zerolog.Logger. LOG_FILE routes output to
// a file (created/appended) instead of stderr; LOG_LEVEL controls
// verbosity.
func New(cfg *config.Config) zerolog.Logger {
	var out *os.File = os.Stderr
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			out = f
		}
	}

	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var writer zerolog.ConsoleWriter
	if out == os.Stderr {
		writer = zerolog.ConsoleWriter{Out: out}
		return zerolog.New(writer).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
