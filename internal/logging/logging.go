// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	Level      string
	FilePath   string // empty disables the rotating file
	MaxSize    int    // megabytes
	MaxBackups int
	MaxAge     int // days
	Console    io.Writer
}

// Setup installs the global logger and returns it. The file writer, when
// configured, is returned so the caller can close it on shutdown.
func Setup(cfg Config) (zerolog.Logger, io.Closer) {
	var writers []io.Writer

	out := cfg.Console
	if out == nil {
		out = os.Stdout
	}
	writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})

	var closer io.Closer = nopCloser{}
	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
			lj := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    orDefault(cfg.MaxSize, 50),
				MaxBackups: orDefault(cfg.MaxBackups, 7),
				MaxAge:     orDefault(cfg.MaxAge, 30),
				Compress:   true,
			}
			writers = append(writers, lj)
			closer = lj
		}
	}

	var w io.Writer = writers[0]
	if len(writers) > 1 {
		w = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	logger := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = logger
	return logger, closer
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
