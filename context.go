// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import "context"

type contextKey struct{}

// discardLogger backs FromContext on contexts that carry no logger: it is
// disabled, so every call on it is a cheap no-op.
var discardLogger = func() *Logger {
	logger := newLoggerNode("discard")
	logger.disabled = true
	logger.propagate = false
	return logger
}()

// WithContext returns a copy of ctx carrying the adapter, so request-scoped
// fields travel with the request.
func WithContext(ctx context.Context, adapter *Adapter) context.Context {
	return context.WithValue(ctx, contextKey{}, adapter)
}

// WithLoggerContext returns a copy of ctx carrying logger, wrapped in an
// adapter with no fields.
func WithLoggerContext(ctx context.Context, logger *Logger) context.Context {
	return WithContext(ctx, &Adapter{logger: logger})
}

// FromContext returns the adapter carried by ctx. When ctx carries none, the
// returned adapter silently discards every record.
func FromContext(ctx context.Context) *Adapter {
	if adapter, ok := ctx.Value(contextKey{}).(*Adapter); ok {
		return adapter
	}
	return &Adapter{logger: discardLogger}
}
