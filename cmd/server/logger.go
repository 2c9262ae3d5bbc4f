package main

import (
	"fmt"
	"log/slog"
)

// slogAdapter bridges the printf style Logger interface the app
// packages expect onto slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (l *slogAdapter) Debug(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Info(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Warn(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *slogAdapter) Error(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
