package log

import (
	"fmt"
	"log"
	"strings"
)

// Config declaratively describes a logger.
type Config struct {
	// Level is one of debug|info|warn|error|fatal.
	Level string
	// Format is one of text|json.
	Format string
}

// ParseLevel converts a level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from a Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var formatter Formatter
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		formatter = &JSONFormatter{}
	case "text", "":
		formatter = &TextFormatter{}
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}
	return NewLogger(WithLevel(level), WithFormatter(formatter), WithOutput(NewConsoleOutput())), nil
}

// stdWriter adapts a Logger to an io.Writer for the stdlib log package.
type stdWriter struct{ l Logger }

func (w stdWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.l.Info(msg)
	}
	return len(p), nil
}

// RedirectStdLog routes standard library log output (used by Pebble among
// others) through the given logger.
func RedirectStdLog(l Logger) {
	log.SetFlags(0)
	log.SetOutput(stdWriter{l: l})
}
