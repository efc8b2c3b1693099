// Package logging configures structured logging with zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs intents, supersession and page loads.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs applied pages and server lifecycle.
	LevelInfo LogLevel = "info"

	// LevelWarn logs failed fetches and rate limit throttling.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off.
	LevelDisabled LogLevel = "disabled"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// ParseLevel validates a level name from flags or configuration.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "disabled", "off", "none":
		return LevelDisabled, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level, defaulting to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Intents received, rejected or superseding a fetch
//   - Discarded results of superseded fetches
//   - Page loads (page number, item count, last page)
//   - Retry backoff waits
//
// Info: Normal operation events
//   - Pages applied to a screen
//   - Server startup/shutdown
//
// Warn: Conditions that a user sees as an error state
//   - Failed fetches (business, transport, unexpected)
//   - Session invalidation episodes
//   - Rate limit throttling, retry exhaustion
//
// Error: Conditions requiring operator attention
//   - Critical rate limit blocks
//   - Configuration errors
//
// Context Fields:
//   - component: emitting package (paging, content-client, host, ...)
//   - screen: list screen name
//   - kind: loading kind (full_screen, refresh, load_more)
//   - page: page number
//   - generation: fetch generation of a screen
//   - error_category: business, transport, unexpected, session_invalidated
//   - endpoint: API endpoint path
//   - error_class: client, server, rate_limit, network
//   - remaining: rate limit budget left
