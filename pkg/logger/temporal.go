package logger

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// TemporalLogger implements the Temporal SDK logger interface using zap
type TemporalLogger struct {
	logger *zap.SugaredLogger
}

var _ log.Logger = (*TemporalLogger)(nil)

// NewTemporalLogger creates a Temporal logger backed by zap
func NewTemporalLogger(zapLogger *zap.Logger) *TemporalLogger {
	return &TemporalLogger{
		logger: zapLogger.Named("temporal").WithOptions(zap.AddCallerSkip(1)).Sugar(),
	}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debugw(msg, keyvals...)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Infow(msg, keyvals...)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warnw(msg, keyvals...)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Errorw(msg, keyvals...)
}
