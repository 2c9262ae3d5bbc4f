package auth

import (
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Recorder receives auth events for metrics. The default is a no-op so
// wiring a collector stays optional.
type Recorder interface {
	RecordLoginSuccess()
	RecordLoginFailure(reason string)
	RecordRefresh()
	RecordSessionRenewal()
	RecordVerifyFailure(kind TokenKind)
}

// DefaultLogger returns the fallback logger used when no Logger is
// configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

type noopRecorder struct{}

func (noopRecorder) RecordLoginSuccess()           {}
func (noopRecorder) RecordLoginFailure(string)     {}
func (noopRecorder) RecordRefresh()                {}
func (noopRecorder) RecordSessionRenewal()         {}
func (noopRecorder) RecordVerifyFailure(TokenKind) {}

func normalizeRecorder(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
