// Package logging provides structured logging setup using Go's standard
// library log/slog package.
//
// It configures slog with logfmt format (human-readable key=value pairs)
// and maps string log levels (WARNING, INFO, DEBUG) to slog levels,
// following the same three-level scheme internal/config's LoggingConfig
// exposes as an integer 0-2.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// levelNames maps the accepted case-insensitive spellings to their slog
// level, so parseLogLevel is a lookup rather than a chain of comparisons.
var levelNames = map[string]slog.Level{
	"ERROR":   slog.LevelError,
	"WARNING": slog.LevelWarn,
	"WARN":    slog.LevelWarn,
	"INFO":    slog.LevelInfo,
	"DEBUG":   slog.LevelDebug,
}

// NewLogger creates a structured logger writing logfmt to stdout at level.
// Supported levels (case-insensitive): ERROR, WARNING, INFO, DEBUG; an
// unrecognized level defaults to INFO. DEBUG additionally attaches the
// call site (file:line) to every record, since that is the level an
// operator reaches for specifically to trace where a log line came from.
func NewLogger(level string) *slog.Logger {
	lvl := parseLogLevel(level)
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(handler)
}

// FromVerbose maps internal/config's 0-2 Verbose scale to a logger, so
// cmd/reactorbus can bootstrap straight from a loaded Config without an
// intermediate string: 0 is WARNING (quiet runs), 1 is INFO, 2 is DEBUG.
func FromVerbose(verbose int) *slog.Logger {
	switch verbose {
	case 0:
		return NewLogger("WARNING")
	case 2:
		return NewLogger("DEBUG")
	default:
		return NewLogger("INFO")
	}
}

// parseLogLevel resolves a level name to its slog.Level, defaulting to INFO
// for anything not found in levelNames.
func parseLogLevel(level string) slog.Level {
	if lvl, ok := levelNames[strings.ToUpper(strings.TrimSpace(level))]; ok {
		return lvl
	}
	return slog.LevelInfo
}
