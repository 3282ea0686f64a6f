// Package audit provides the structured audit-log sink used by every
// mutating sync component.
//
// The Logger type wraps zerolog.Logger so standard zerolog methods remain
// available while sync code records events through the narrower
// Log(event, status, fields) API. Output is JSON, written to an audit log
// file under the data root with a stdout fallback when the file cannot be
// opened.
package audit

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Event status values recorded in the audit log.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
	StatusBlocked = "blocked"
)

// Logger is a thin wrapper around zerolog.Logger with an audit-event API.
type Logger struct {
	zerolog.Logger
}

// New constructs a Logger writing JSON entries to audit.log inside logDir.
// If the file cannot be opened the logger falls back to stdout.
func New(logDir string) *Logger {
	var out io.Writer = os.Stdout

	if logDir != "" {
		if err := os.MkdirAll(logDir, 0o755); err == nil {
			path := filepath.Join(logDir, "audit.log")
			if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
				out = f
			}
		}
	}

	logger := zerolog.New(out).With().
		Str("component", "plugsync").
		Timestamp().
		Logger()

	return &Logger{logger}
}

// NewNop returns a Logger that discards all output, for tests.
func NewNop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Log records a single audit event with the given status and context
// fields.
func (l *Logger) Log(event, status string, fields map[string]any) {
	entry := l.Info()
	if status == StatusFailure || status == StatusBlocked {
		entry = l.Warn()
	}
	entry = entry.Str("event", event).Str("status", status)
	for k, v := range fields {
		entry = entry.Interface(k, v)
	}
	entry.Send()
}
