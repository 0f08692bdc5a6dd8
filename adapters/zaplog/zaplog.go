// Package zaplog adapts go.uber.org/zap to the catalog.Logger interface.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/shelfstream/catalog"
)

// Logger wraps a zap.SugaredLogger behind catalog.Logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps an existing zap logger.
func New(logger *zap.Logger) *Logger {
	return &Logger{sugar: logger.Sugar()}
}

// NewProduction builds a production-configured zap logger.
func NewProduction() (*Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(logger), nil
}

// NewDevelopment builds a development-configured zap logger with
// human-readable output.
func NewDevelopment() (*Logger, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return New(logger), nil
}

// Debugf logs at debug level with printf-style formatting.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Infof logs at info level with printf-style formatting.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warnf logs at warn level with printf-style formatting.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Errorf logs at error level with printf-style formatting.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Info logs at info level without formatting.
func (l *Logger) Info(message string) {
	l.sugar.Info(message)
}

// Sync flushes buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Ensure Logger implements catalog.Logger.
var _ catalog.Logger = (*Logger)(nil)
