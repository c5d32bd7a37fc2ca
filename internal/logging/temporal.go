package logging

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalLogger adapts a zerolog.Logger to the Temporal SDK logger so that
// client, worker and replay-safe workflow logs share one structured stream.
type TemporalLogger struct {
	logger zerolog.Logger
}

var (
	_ log.Logger     = (*TemporalLogger)(nil)
	_ log.WithLogger = (*TemporalLogger)(nil)
)

func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal").Logger()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	withFields(l.logger.Debug(), keyvals).Msg(msg)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	withFields(l.logger.Info(), keyvals).Msg(msg)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	withFields(l.logger.Warn(), keyvals).Msg(msg)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	withFields(l.logger.Error(), keyvals).Msg(msg)
}

func (l *TemporalLogger) With(keyvals ...interface{}) log.Logger {
	ctx := l.logger.With()
	for i := 0; i < len(keyvals); i += 2 {
		key, val := pair(keyvals, i)
		ctx = ctx.Interface(key, val)
	}
	return &TemporalLogger{logger: ctx.Logger()}
}

func withFields(e *zerolog.Event, keyvals []interface{}) *zerolog.Event {
	for i := 0; i < len(keyvals); i += 2 {
		key, val := pair(keyvals, i)
		if err, ok := val.(error); ok {
			e = e.AnErr(key, err)
			continue
		}
		e = e.Interface(key, val)
	}
	return e
}

// pair returns the key/value at position i. An odd trailing key is logged
// under "EXTRA_VALUE_AT_END".
func pair(keyvals []interface{}, i int) (string, interface{}) {
	if i+1 >= len(keyvals) {
		return "EXTRA_VALUE_AT_END", keyvals[i]
	}
	key, ok := keyvals[i].(string)
	if !ok {
		key = fmt.Sprint(keyvals[i])
	}
	return key, keyvals[i+1]
}
