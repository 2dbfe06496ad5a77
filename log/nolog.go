// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package log carries the Supervisor's fallback logger: supervisor.New
// substitutes it whenever a caller constructs a Supervisor with a nil
// log.Logger, so tests and the bare schema layer never need a real sink.
package log

import (
	"context"
	"log/slog"

	"github.com/luxfi/log"
	"go.uber.org/zap"
)

// NoLog implements log.Logger by discarding everything. Package
// supervisor's own unit tests construct one implicitly whenever New is
// called with a nil logger.
type NoLog struct{}

// NewNoOpLogger returns the discard logger used as New's default.
func NewNoOpLogger() log.Logger {
	return &NoLog{}
}

// --- structured logging ------------------------------------------------

func (n NoLog) With(ctx ...interface{}) log.Logger { return n }
func (n NoLog) New(ctx ...interface{}) log.Logger  { return n }

func (NoLog) Log(level slog.Level, msg string, ctx ...interface{})   {}
func (NoLog) Trace(msg string, ctx ...interface{})                   {}
func (NoLog) Debug(msg string, ctx ...interface{})                   {}
func (NoLog) Info(msg string, ctx ...interface{})                    {}
func (NoLog) Warn(msg string, ctx ...interface{})                    {}
func (NoLog) Error(msg string, ctx ...interface{})                   {}
func (NoLog) Crit(msg string, ctx ...interface{})                    {}
func (NoLog) WriteLog(level slog.Level, msg string, attrs ...any)    {}

func (NoLog) Enabled(ctx context.Context, level slog.Level) bool { return false }
func (NoLog) Handler() slog.Handler                              { return nil }

// --- zap-flavored methods, kept for callers sharing a log.Logger across
// both the geth-style and zap-style call sites in the surrounding node ---

func (NoLog) Fatal(msg string, fields ...zap.Field) {}
func (NoLog) Verbo(msg string, fields ...zap.Field) {}

func (n NoLog) WithFields(fields ...zap.Field) log.Logger { return n }
func (n NoLog) WithOptions(opts ...zap.Option) log.Logger { return n }

// --- level control and lifecycle ---------------------------------------

func (NoLog) SetLevel(level slog.Level)          {}
func (NoLog) GetLevel() slog.Level               { return slog.Level(0) }
func (NoLog) EnabledLevel(lvl slog.Level) bool   { return false }

func (NoLog) StopOnPanic() {}

func (NoLog) RecoverAndPanic(f func()) { f() }
func (NoLog) RecoverAndExit(f, exit func()) { f() }

func (NoLog) Stop() {}

// Write satisfies io.Writer for callers that pipe raw output through the
// logger instead of calling a leveled method.
func (NoLog) Write(p []byte) (n int, err error) {
	return len(p), nil
}
