// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureHandler keeps the handled records for inspection.
type captureHandler struct {
	BaseHandler

	records []*Record
}

func newCaptureHandler() *captureHandler {
	h := &captureHandler{}
	h.initBase(h, NOTSET, func(record *Record) error {
		h.records = append(h.records, record)
		return nil
	})
	return h
}

func (h *captureHandler) Close() error {
	h.closeBase()
	return nil
}

func TestAdapterExtra(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	handler := NewStreamHandler(buffer)
	t.Cleanup(func() { _ = handler.Close() })
	handler.SetFormatter(mustTextFormatter("%(message)s tenant=%(tenant)s", StylePercent))

	logger := GetLogger("adapter.extra.test")
	logger.SetLevel(DEBUG)
	logger.SetPropagate(false)
	logger.AddHandler(handler)

	logger.WithExtra(map[string]any{"tenant": "acme"}).Info("created")
	assert.Equal(t, "created tenant=acme\n", buffer.String())
}

func TestAdapterExtraMerge(t *testing.T) {
	t.Parallel()

	base := NewAdapter(GetLogger("adapter.merge.test"), map[string]any{
		"tenant": "acme",
		"region": "eu",
	})
	refined := base.WithExtra(map[string]any{
		"region": "us",
		"zone":   "us-east1",
	})

	// Call-site values win; the base adapter is untouched.
	assert.Equal(t, map[string]any{"tenant": "acme", "region": "us", "zone": "us-east1"}, refined.extra)
	assert.Equal(t, map[string]any{"tenant": "acme", "region": "eu"}, base.extra)
}

func TestAdapterError(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	handler := NewStreamHandler(buffer)
	t.Cleanup(func() { _ = handler.Close() })

	logger := GetLogger("adapter.error.test")
	logger.SetLevel(DEBUG)
	logger.SetPropagate(false)
	logger.AddHandler(handler)

	logger.WithError(errors.New("connection refused")).Error("request failed")
	assert.Equal(t, "request failed\nconnection refused\n", buffer.String())
}

func TestAdapterStack(t *testing.T) {
	t.Parallel()

	handler := newCaptureHandler()
	t.Cleanup(func() { _ = handler.Close() })

	logger := GetLogger("adapter.stack.test")
	logger.SetLevel(DEBUG)
	logger.SetPropagate(false)
	logger.AddHandler(handler)

	logger.WithStack().Error("with stack")
	logger.Error("without stack")

	require.Len(t, handler.records, 2)
	assert.Contains(t, handler.records[0].Stack, "goroutine")
	assert.Empty(t, handler.records[1].Stack)
}

func TestAdapterChaining(t *testing.T) {
	t.Parallel()

	handler := newCaptureHandler()
	t.Cleanup(func() { _ = handler.Close() })

	logger := GetLogger("adapter.chain.test")
	logger.SetLevel(DEBUG)
	logger.SetPropagate(false)
	logger.AddHandler(handler)

	failure := errors.New("boom")
	adapter := logger.
		WithExtra(map[string]any{"tenant": "acme"}).
		WithError(failure)

	assert.Same(t, logger, adapter.Logger())
	assert.True(t, adapter.IsEnabledFor(DEBUG))

	adapter.Warning("chained")
	require.Len(t, handler.records, 1)
	record := handler.records[0]
	assert.Equal(t, WARNING, record.Level)
	assert.Same(t, failure, record.Err)
	assert.Equal(t, "acme", record.Extra["tenant"])
}
