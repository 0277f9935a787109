// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"errors"
	"fmt"
	"io"
)

// root is the top of the logger hierarchy. It is not that different from any
// other logger, except that it always has a level and there is only one.
var root = func() *Logger {
	logger := newLoggerNode("root")
	logger.level = WARNING
	newManager(logger)
	return logger
}()

// GetLogger returns the logger with the given dotted name, creating it if
// necessary. The empty name (or "root") returns the root logger. Repeated
// calls with the same name return the same logger.
func GetLogger(name string) *Logger {
	if name == "" || name == root.name {
		return root
	}
	return root.manager.Logger(name)
}

// SetLoggerFactory replaces the factory used when instantiating loggers on
// the package hierarchy.
func SetLoggerFactory(factory LoggerFactory) {
	root.manager.SetLoggerFactory(factory)
}

// LoggerNames returns the names of the loggers materialized so far.
func LoggerNames() []string {
	return root.manager.LoggerNames()
}

// Disable discards all records of severity level and below on every logger.
func Disable(level Level) {
	root.manager.SetDisable(level)
}

// ErrBasicConfig reports invalid BasicConfig option combinations.
var ErrBasicConfig = errors.New("basic config")

// BasicOptions alters the behavior of BasicConfig. The zero value installs a
// stderr stream handler with the basic format on the root logger.
type BasicOptions struct {
	// Writer makes BasicConfig install a StreamHandler on it. Mutually
	// exclusive with Filename and Handlers.
	Writer io.Writer
	// Filename makes BasicConfig install a FileHandler appending to it (or
	// truncating, when Truncate is set). Mutually exclusive with Writer and
	// Handlers.
	Filename string
	Truncate bool
	// Handlers are attached as given; any of them without a formatter gets
	// the one built from Format/DateFormat/Style.
	Handlers []Handler

	Format     string
	DateFormat string
	Style      Style

	// Level, when not NOTSET, becomes the root logger threshold.
	Level Level

	// Force removes and closes the handlers already attached to the root
	// logger before configuring.
	Force bool
}

// BasicConfig performs a one-shot configuration of the root logger. It does
// nothing if the root logger already has handlers, unless Force is set. It is
// intended for simple programs; services should use the config package.
func BasicConfig(opts BasicOptions) error {
	if opts.Writer != nil && opts.Filename != "" {
		return fmt.Errorf("%w: Writer and Filename should not be specified together", ErrBasicConfig)
	}
	if len(opts.Handlers) > 0 && (opts.Writer != nil || opts.Filename != "") {
		return fmt.Errorf("%w: Writer or Filename should not be specified together with Handlers", ErrBasicConfig)
	}

	if opts.Force {
		for _, handler := range root.Handlers() {
			root.RemoveHandler(handler)
			_ = handler.Close()
		}
	}
	if len(root.Handlers()) > 0 {
		return nil
	}

	handlers := opts.Handlers
	if len(handlers) == 0 {
		switch {
		case opts.Filename != "":
			handler, err := NewFileHandler(opts.Filename, opts.Truncate, false)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrBasicConfig, err)
			}
			handlers = []Handler{handler}
		default:
			handlers = []Handler{NewStreamHandler(opts.Writer)}
		}
	}

	format := opts.Format
	if format == "" {
		format = BasicFormat
		if opts.Style == StyleBrace {
			format = braceBasicFormat
		}
	}
	formatter, err := NewTextFormatter(format, opts.Style)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBasicConfig, err)
	}
	formatter.SetDateFormat(opts.DateFormat)

	for _, handler := range handlers {
		if base, ok := handler.(interface{ Formatter() Formatter }); !ok || base.Formatter() == nil {
			handler.SetFormatter(formatter)
		}
		root.AddHandler(handler)
	}

	if opts.Level != NOTSET {
		root.SetLevel(opts.Level)
	}
	return nil
}

// ensureRootHandlers performs the one-shot default configuration used by the
// package-level logging functions.
func ensureRootHandlers() {
	if len(root.Handlers()) == 0 {
		_ = BasicConfig(BasicOptions{})
	}
}

// Debug logs a message with severity DEBUG on the root logger. If the root
// logger has no handlers, BasicConfig is called first with the defaults.
func Debug(msg string, args ...any) {
	ensureRootHandlers()
	if root.IsEnabledFor(DEBUG) {
		root.log(defaultCallDepth, DEBUG, nil, msg, args)
	}
}

// Info logs a message with severity INFO on the root logger.
func Info(msg string, args ...any) {
	ensureRootHandlers()
	if root.IsEnabledFor(INFO) {
		root.log(defaultCallDepth, INFO, nil, msg, args)
	}
}

// Notice logs a message with severity NOTICE on the root logger.
func Notice(msg string, args ...any) {
	ensureRootHandlers()
	if root.IsEnabledFor(NOTICE) {
		root.log(defaultCallDepth, NOTICE, nil, msg, args)
	}
}

// Warning logs a message with severity WARNING on the root logger.
func Warning(msg string, args ...any) {
	ensureRootHandlers()
	if root.IsEnabledFor(WARNING) {
		root.log(defaultCallDepth, WARNING, nil, msg, args)
	}
}

// Error logs a message with severity ERROR on the root logger.
func Error(msg string, args ...any) {
	ensureRootHandlers()
	if root.IsEnabledFor(ERROR) {
		root.log(defaultCallDepth, ERROR, nil, msg, args)
	}
}

// Critical logs a message with severity CRITICAL on the root logger.
func Critical(msg string, args ...any) {
	ensureRootHandlers()
	if root.IsEnabledFor(CRITICAL) {
		root.log(defaultCallDepth, CRITICAL, nil, msg, args)
	}
}

// Log logs a message with an arbitrary severity on the root logger.
func Log(level Level, msg string, args ...any) {
	ensureRootHandlers()
	if root.IsEnabledFor(level) {
		root.log(defaultCallDepth, level, nil, msg, args)
	}
}
