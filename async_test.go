// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gateHandler blocks every emit until the gate is opened, to make queue
// pressure deterministic.
type gateHandler struct {
	BaseHandler

	started  chan struct{}
	gate     chan struct{}
	messages []string
}

func newGateHandler() *gateHandler {
	h := &gateHandler{
		started: make(chan struct{}, 16),
		gate:    make(chan struct{}),
	}
	h.initBase(h, NOTSET, h.emitRecord)
	return h
}

func (h *gateHandler) emitRecord(record *Record) error {
	h.started <- struct{}{}
	<-h.gate
	h.messages = append(h.messages, record.Message())
	return nil
}

func (h *gateHandler) Close() error {
	h.closeBase()
	return nil
}

func TestAsyncHandlerDelivery(t *testing.T) {
	t.Parallel()

	buffer := new(bytes.Buffer)
	handler := NewAsyncHandler(NewStreamHandler(buffer), 16)

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "one", nil)))
	require.NoError(t, handler.Handle(NewRecord("test", INFO, "two", nil)))
	require.NoError(t, handler.Close())

	assert.Equal(t, "one\ntwo\n", buffer.String())
}

func TestAsyncHandlerQueueFull(t *testing.T) {
	defer func(report bool) { ReportHandlerErrors = report }(ReportHandlerErrors)
	ReportHandlerErrors = false

	target := newGateHandler()
	handler := NewAsyncHandler(target, 1)

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "first", nil)))
	// Wait for the deliverer to pick the record up and park on the target.
	<-target.started

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "second", nil)))
	assert.ErrorIs(t, handler.Handle(NewRecord("test", INFO, "dropped", nil)), ErrQueueFull)

	close(target.gate)
	require.NoError(t, handler.Stop(context.Background()))

	assert.Equal(t, []string{"first", "second"}, target.messages)
	assert.True(t, target.isClosed())

	// Records handled after the stop are silently discarded.
	assert.NoError(t, handler.Handle(NewRecord("test", INFO, "late", nil)))
	assert.NoError(t, handler.Stop(context.Background()))
}

func TestAsyncHandlerStopTimeout(t *testing.T) {
	t.Parallel()

	target := newGateHandler()
	handler := NewAsyncHandler(target, 1)

	require.NoError(t, handler.Handle(NewRecord("test", INFO, "stuck", nil)))
	<-target.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, handler.Stop(ctx), context.DeadlineExceeded)

	close(target.gate)
}
