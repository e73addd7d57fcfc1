package shutdown

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Logger describes ability to write logs. hclog.Logger satisfies it directly.
type Logger interface {
	// Info writes an information log.
	Info(msg string, args ...any)

	// Warn writes a warning log.
	Warn(msg string, args ...any)

	// Error writes an error log.
	Error(msg string, args ...any)
}

// NewLogger returns the hclog logger used by the shutdown coordinator. Level accepts the names known to
// hclog.LevelFromString, an unknown level falls back to info. When json is set, lines are emitted as JSON objects.
func NewLogger(output io.Writer, level string, json bool) hclog.Logger {
	if output == nil {
		output = os.Stderr
	}

	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "shutdown",
		Level:      lvl,
		Output:     output,
		JSONFormat: json,
	})
}

// StandardLogger is a logger that uses the standard log package.
type StandardLogger struct {
	logger *log.Logger
}

// NewStandardLogger creates a logger wrapping a log.Logger instance. A nil logger means log.Default().
func NewStandardLogger(logger *log.Logger) StandardLogger {
	return StandardLogger{logger: logger}
}

func (s StandardLogger) Info(msg string, args ...any) {
	s.print("INFO", msg, args)
}

func (s StandardLogger) Warn(msg string, args ...any) {
	s.print("WARN", msg, args)
}

func (s StandardLogger) Error(msg string, args ...any) {
	s.print("ERROR", msg, args)
}

// print renders key/value pairs the same way hclog does in text mode: key=value after the message.
func (s StandardLogger) print(level, msg string, args []any) {
	b := &strings.Builder{}
	b.WriteString("[" + level + "] " + msg)

	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(b, " EXTRA_VALUE_AT_END=%v", args[i])
		}
	}

	logger := s.logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Print(b.String())
}
