// Package errutil holds helpers for errors that are worth a log line but
// never worth aborting over, like cleanup and flag-binding failures.
package errutil

import (
	"log/slog"
)

// LogMsg warns about a non-nil error with context attributes.
func LogMsg(err error, msg string, args ...any) {
	if err != nil {
		slog.Warn(msg, append([]any{"error", err}, args...)...)
	}
}

// ReportError records an unexpected error. Everything that should not
// happen in normal operation funnels through here, so a future error
// reporter only needs one hook.
func ReportError(err error, msg string, args ...any) {
	if err != nil {
		slog.Error(msg, append([]any{"error", err}, args...)...)
	}
}
