package observability

import "context"

type Logger interface {
	Trace(ctx context.Context, message string, fields ...interface{}) Logger

	Debug(ctx context.Context, message string, fields ...interface{}) Logger

	Info(ctx context.Context, message string, fields ...interface{}) Logger

	Warn(ctx context.Context, message string, err error, fields ...interface{}) Logger

	Error(ctx context.Context, message string, err error, fields ...interface{}) Logger

	Fatal(ctx context.Context, message string, err error, fields ...interface{}) Logger

	AddFieldsToContext(ctx context.Context, fields map[string]string) context.Context
}

// NopLogger descarta todo. Se usa cuando la configuración no trae sección Log y en los tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger {
	return &NopLogger{}
}

func (l *NopLogger) Trace(context.Context, string, ...interface{}) Logger { return l }

func (l *NopLogger) Debug(context.Context, string, ...interface{}) Logger { return l }

func (l *NopLogger) Info(context.Context, string, ...interface{}) Logger { return l }

func (l *NopLogger) Warn(context.Context, string, error, ...interface{}) Logger { return l }

func (l *NopLogger) Error(context.Context, string, error, ...interface{}) Logger { return l }

func (l *NopLogger) Fatal(context.Context, string, error, ...interface{}) Logger { return l }

func (l *NopLogger) AddFieldsToContext(ctx context.Context, _ map[string]string) context.Context {
	return ctx
}
