package observability

import (
	"context"
	"fmt"

	"github.com/SOLUCIONESSYCOM/scribe"
)

type ScribeLogger struct {
	*scribe.Scribe
}

func NewScribeLogger(l *scribe.Scribe) *ScribeLogger {
	return &ScribeLogger{Scribe: l}
}

// NewLogger construye el logger a partir de la sección Log.
// Sin sección Log devuelve un NopLogger para no ensuciar la salida de la consola.
func NewLogger(logConfig *scribe.ConfigLogger) (Logger, error) {
	if logConfig == nil {
		return NewNopLogger(), nil
	}

	sc, err := scribe.New(logConfig, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create scribe: %w", err)
	}

	return NewScribeLogger(sc), nil
}

func (l *ScribeLogger) Trace(ctx context.Context, message string,
	fields ...interface{}) Logger {
	l.Scribe.TraceCtx(ctx).Fields(fields).Msg(message)
	return l
}

func (l *ScribeLogger) Debug(ctx context.Context, message string,
	fields ...interface{}) Logger {
	l.Scribe.DebugCtx(ctx).Fields(fields).Msg(message)
	return l
}

func (l *ScribeLogger) Info(ctx context.Context, message string,
	fields ...interface{}) Logger {
	l.Scribe.InfoCtx(ctx).Fields(fields).Msg(message)
	return l
}

func (l *ScribeLogger) Warn(ctx context.Context, message string,
	err error, fields ...interface{}) Logger {
	l.Scribe.WarnCtx(ctx).Err(err).Fields(fields).Msg(message)
	return l
}

func (l *ScribeLogger) Error(ctx context.Context, message string,
	err error, fields ...interface{}) Logger {

	l.Scribe.ErrorCtx(ctx).Err(err).Fields(fields).Msg(message)
	return l
}

func (l *ScribeLogger) Fatal(ctx context.Context, message string,
	err error, fields ...interface{}) Logger {
	l.Scribe.FatalCtx(ctx).Err(err).Fields(fields).Msg(message)
	return l
}

// AddFieldsToContext agrega campos (pipeline_id, kind...) al contexto de log.
func (l *ScribeLogger) AddFieldsToContext(ctx context.Context,
	fields map[string]string) context.Context {
	sc := scribe.GetLogContext(ctx)

	for k, v := range fields {
		sc.Set(k, v)
	}

	return sc.WithCtx(ctx)
}
