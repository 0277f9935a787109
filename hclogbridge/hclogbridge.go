// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package hclogbridge exposes a molog logger through the hclog.Logger
// interface, so libraries from the hashicorp ecosystem emit their records on
// the molog hierarchy.
package hclogbridge

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/mia-platform/molog"
)

// TraceLevel is the severity used for hclog trace records. molog has no
// native trace severity, so one is registered below DEBUG.
const TraceLevel = molog.Level(5)

func init() {
	molog.AddLevelName(TraceLevel, "TRACE")
}

// Bridge implements hclog.Logger on top of a molog logger. The zero value is
// not usable; construct instances with New.
type Bridge struct {
	logger  *molog.Logger
	implied []any
}

// Make sure the bridge covers the whole interface.
var _ hclog.Logger = &Bridge{}

// New returns an hclog.Logger emitting through logger.
func New(logger *molog.Logger) *Bridge {
	return &Bridge{logger: logger}
}

func toMologLevel(level hclog.Level) molog.Level {
	switch level {
	case hclog.Trace:
		return TraceLevel
	case hclog.Debug:
		return molog.DEBUG
	case hclog.Info, hclog.NoLevel:
		return molog.INFO
	case hclog.Warn:
		return molog.WARNING
	case hclog.Error:
		return molog.ERROR
	}
	return molog.INFO
}

func fromMologLevel(level molog.Level) hclog.Level {
	switch {
	case level <= TraceLevel:
		return hclog.Trace
	case level <= molog.DEBUG:
		return hclog.Debug
	case level <= molog.INFO:
		return hclog.Info
	case level <= molog.WARNING:
		return hclog.Warn
	}
	return hclog.Error
}

// extra converts hclog key/value pairs, implied args included, to a record
// extra map. A trailing key without a value is reported the way hclog does.
func (b *Bridge) extra(args []any) map[string]any {
	pairs := args
	if len(b.implied) > 0 {
		pairs = make([]any, 0, len(b.implied)+len(args))
		pairs = append(pairs, b.implied...)
		pairs = append(pairs, args...)
	}
	if len(pairs) == 0 {
		return nil
	}

	extra := make(map[string]any, (len(pairs)+1)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		extra[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	if len(pairs)%2 != 0 {
		extra[hclog.MissingKey] = pairs[len(pairs)-1]
	}
	return extra
}

func (b *Bridge) log(level molog.Level, msg string, args []any) {
	if !b.logger.IsEnabledFor(level) {
		return
	}

	adapter := molog.NewAdapter(b.logger, b.extra(args))
	adapter.LogDepth(2, level, "%s", msg)
}

// Log implements hclog.Logger.
func (b *Bridge) Log(level hclog.Level, msg string, args ...any) {
	if level == hclog.Off {
		return
	}
	b.log(toMologLevel(level), msg, args)
}

// Trace implements hclog.Logger.
func (b *Bridge) Trace(msg string, args ...any) {
	b.log(TraceLevel, msg, args)
}

// Debug implements hclog.Logger.
func (b *Bridge) Debug(msg string, args ...any) {
	b.log(molog.DEBUG, msg, args)
}

// Info implements hclog.Logger.
func (b *Bridge) Info(msg string, args ...any) {
	b.log(molog.INFO, msg, args)
}

// Warn implements hclog.Logger.
func (b *Bridge) Warn(msg string, args ...any) {
	b.log(molog.WARNING, msg, args)
}

// Error implements hclog.Logger.
func (b *Bridge) Error(msg string, args ...any) {
	b.log(molog.ERROR, msg, args)
}

// IsTrace implements hclog.Logger.
func (b *Bridge) IsTrace() bool { return b.logger.IsEnabledFor(TraceLevel) }

// IsDebug implements hclog.Logger.
func (b *Bridge) IsDebug() bool { return b.logger.IsEnabledFor(molog.DEBUG) }

// IsInfo implements hclog.Logger.
func (b *Bridge) IsInfo() bool { return b.logger.IsEnabledFor(molog.INFO) }

// IsWarn implements hclog.Logger.
func (b *Bridge) IsWarn() bool { return b.logger.IsEnabledFor(molog.WARNING) }

// IsError implements hclog.Logger.
func (b *Bridge) IsError() bool { return b.logger.IsEnabledFor(molog.ERROR) }

// ImpliedArgs implements hclog.Logger.
func (b *Bridge) ImpliedArgs() []any {
	return b.implied
}

// With implements hclog.Logger, returning a bridge that attaches the given
// key/value pairs to every record.
func (b *Bridge) With(args ...any) hclog.Logger {
	implied := make([]any, 0, len(b.implied)+len(args))
	implied = append(implied, b.implied...)
	implied = append(implied, args...)
	return &Bridge{logger: b.logger, implied: implied}
}

// Name implements hclog.Logger.
func (b *Bridge) Name() string {
	return b.logger.Name()
}

// Named implements hclog.Logger, descending into a child of the current
// logger.
func (b *Bridge) Named(name string) hclog.Logger {
	return &Bridge{logger: b.logger.Child(name), implied: b.implied}
}

// ResetNamed implements hclog.Logger, switching to the logger with the given
// absolute dotted name.
func (b *Bridge) ResetNamed(name string) hclog.Logger {
	return &Bridge{logger: molog.GetLogger(name), implied: b.implied}
}

// SetLevel implements hclog.Logger.
func (b *Bridge) SetLevel(level hclog.Level) {
	if level == hclog.Off {
		b.logger.SetDisabled(true)
		return
	}
	b.logger.SetDisabled(false)
	b.logger.SetLevel(toMologLevel(level))
}

// GetLevel implements hclog.Logger.
func (b *Bridge) GetLevel() hclog.Level {
	return fromMologLevel(b.logger.EffectiveLevel())
}

// StandardLogger implements hclog.Logger.
func (b *Bridge) StandardLogger(opts *hclog.StandardLoggerOptions) *log.Logger {
	return log.New(b.StandardWriter(opts), "", 0)
}

// StandardWriter implements hclog.Logger. Each written line becomes a record;
// with InferLevels set, a leading "[LEVEL]" tag selects the severity.
func (b *Bridge) StandardWriter(opts *hclog.StandardLoggerOptions) io.Writer {
	if opts == nil {
		opts = &hclog.StandardLoggerOptions{}
	}
	return &standardWriter{bridge: b, inferLevels: opts.InferLevels}
}

type standardWriter struct {
	bridge      *Bridge
	inferLevels bool
}

func (w *standardWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSuffix(string(p), "\n")
	level := molog.INFO

	if w.inferLevels {
		if tagged, ok := strings.CutPrefix(msg, "["); ok {
			if tag, rest, found := strings.Cut(tagged, "] "); found {
				if parsed, ok := inferredLevel(strings.ToUpper(tag)); ok {
					level = parsed
					msg = rest
				}
			}
		}
	}

	w.bridge.log(level, msg, nil)
	return len(p), nil
}

// inferredLevel resolves the level tags the hclog standard writer emits,
// which do not all match molog level names.
func inferredLevel(tag string) (molog.Level, bool) {
	switch tag {
	case "WARN":
		return molog.WARNING, true
	case "ERR", "ERROR":
		return molog.ERROR, true
	}

	level, err := molog.ParseLevel(tag)
	if err != nil {
		return molog.NOTSET, false
	}
	return level, true
}
