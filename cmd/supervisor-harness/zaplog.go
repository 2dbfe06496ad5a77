// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"log/slog"

	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// zapLogger adapts a *zap.Logger to the luxfi/log.Logger interface,
// exercising the real dependency the rest of the module only ever touches
// through the interface. Geth-style calls (msg, key, value, key, value...)
// are folded into zap.Any fields; zap-style calls pass their zap.Field
// arguments straight through.
type zapLogger struct {
	z *zap.Logger
}

// newZapLogger wraps z as a log.Logger.
func newZapLogger(z *zap.Logger) log.Logger {
	return &zapLogger{z: z}
}

func kvToFields(kv []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}
	return fields
}

func (l *zapLogger) With(ctx ...interface{}) log.Logger {
	return &zapLogger{z: l.z.With(kvToFields(ctx)...)}
}

func (l *zapLogger) New(ctx ...interface{}) log.Logger { return l.With(ctx...) }

func (l *zapLogger) Log(level slog.Level, msg string, ctx ...interface{}) {
	switch {
	case level >= slog.LevelError:
		l.Error(msg, ctx...)
	case level >= slog.LevelWarn:
		l.Warn(msg, ctx...)
	case level >= slog.LevelInfo:
		l.Info(msg, ctx...)
	default:
		l.Debug(msg, ctx...)
	}
}

func (l *zapLogger) Trace(msg string, ctx ...interface{}) { l.z.Debug(msg, kvToFields(ctx)...) }
func (l *zapLogger) Debug(msg string, ctx ...interface{}) { l.z.Debug(msg, kvToFields(ctx)...) }
func (l *zapLogger) Info(msg string, ctx ...interface{})  { l.z.Info(msg, kvToFields(ctx)...) }
func (l *zapLogger) Warn(msg string, ctx ...interface{})  { l.z.Warn(msg, kvToFields(ctx)...) }
func (l *zapLogger) Error(msg string, ctx ...interface{}) { l.z.Error(msg, kvToFields(ctx)...) }
func (l *zapLogger) Crit(msg string, ctx ...interface{})  { l.z.Error(msg, kvToFields(ctx)...) }

func (l *zapLogger) WriteLog(level slog.Level, msg string, attrs ...any) { l.Log(level, msg, attrs...) }

func (l *zapLogger) Enabled(_ context.Context, _ slog.Level) bool {
	return l.z.Core().Enabled(zap.InfoLevel)
}

func (l *zapLogger) Handler() slog.Handler { return nil }

func (l *zapLogger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }
func (l *zapLogger) Verbo(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }

func (l *zapLogger) WithFields(fields ...zap.Field) log.Logger {
	return &zapLogger{z: l.z.With(fields...)}
}

func (l *zapLogger) WithOptions(opts ...zap.Option) log.Logger {
	return &zapLogger{z: l.z.WithOptions(opts...)}
}

func (l *zapLogger) SetLevel(slog.Level)           {}
func (l *zapLogger) GetLevel() slog.Level          { return slog.LevelInfo }
func (l *zapLogger) EnabledLevel(slog.Level) bool  { return true }
func (l *zapLogger) StopOnPanic()                  {}
func (l *zapLogger) RecoverAndPanic(f func())      { f() }
func (l *zapLogger) RecoverAndExit(f, exit func()) { f() }
func (l *zapLogger) Stop()                         { _ = l.z.Sync() }

func (l *zapLogger) Write(p []byte) (int, error) {
	l.z.Info(string(p))
	return len(p), nil
}
