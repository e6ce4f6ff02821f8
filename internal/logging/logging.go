// Package logging builds the slog logger used by the server and CLI.
//
// Output is JSON unless the format is "text". The level is held in a
// LevelVar so it can be raised or lowered after the logger is built.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrInvalidLevel is returned by ParseLevel for unknown level names.
var ErrInvalidLevel = errors.New("invalid log level")

// Options configures New.
type Options struct {
	Format string
	Level  string
	// OmitTime drops the time attribute from JSON records.
	OmitTime bool
}

// Logger pairs a slog.Logger with its adjustable level.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// New builds a logger writing to w. An unparsable level falls back to INFO
// and is reported as an error alongside the usable logger.
func New(w io.Writer, opts Options) (Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lv := &slog.LevelVar{}
	level, err := ParseLevel(opts.Level)
	lv.Set(level)

	hopts := &slog.HandlerOptions{Level: lv}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "text") {
		handler = slog.NewTextHandler(w, hopts)
	} else {
		if opts.OmitTime {
			hopts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.Attr{}
				}
				return a
			}
		}
		handler = slog.NewJSONHandler(w, hopts)
	}
	return Logger{Logger: slog.New(handler), level: lv}, err
}

// FromEnv reads STYLELINKS_LOG_FORMAT and STYLELINKS_LOG_LEVEL.
func FromEnv(w io.Writer) (Logger, error) {
	return New(w, Options{
		Format: os.Getenv("STYLELINKS_LOG_FORMAT"),
		Level:  os.Getenv("STYLELINKS_LOG_LEVEL"),
	})
}

func (l Logger) SetLevel(level slog.Level) { l.level.Set(level) }

func (l Logger) Level() slog.Level { return l.level.Level() }

// ParseLevel maps DEBUG, INFO, WARN(ING) and ERROR to slog levels. Empty
// means INFO.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}
