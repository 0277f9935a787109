// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrQueueFull reports a record dropped because the async queue was full.
var ErrQueueFull = errors.New("async handler queue full")

// AsyncHandler decouples logging call sites from slow destinations. Records
// are queued on a channel and delivered to the wrapped handler by a dedicated
// goroutine, so a slow sink (file system, HTTP endpoint, cloud service) never
// blocks the caller. When the queue is full records are dropped and the drop
// is reported through the handler error path.
type AsyncHandler struct {
	BaseHandler

	target Handler
	queue  chan *Record

	stopOnce sync.Once
	done     chan struct{}
}

// NewAsyncHandler wraps target with a queue of the given size and starts the
// delivery goroutine.
func NewAsyncHandler(target Handler, queueSize int) *AsyncHandler {
	if queueSize < 1 {
		queueSize = 1
	}

	h := &AsyncHandler{
		target: target,
		queue:  make(chan *Record, queueSize),
		done:   make(chan struct{}),
	}
	h.initBase(h, NOTSET, h.emitRecord)

	go h.deliver()
	return h
}

// deliver moves queued records to the target until the queue is closed.
func (h *AsyncHandler) deliver() {
	defer close(h.done)
	for record := range h.queue {
		_ = h.target.Handle(record)
	}
}

func (h *AsyncHandler) emitRecord(record *Record) error {
	// Handle holds the I/O lock here; closed is flipped under the same lock
	// by Stop, so this check prevents a send on the closed queue.
	if h.closed {
		return nil
	}
	select {
	case h.queue <- record:
		return nil
	default:
		return ErrQueueFull
	}
}

// Flush implements Handler. It waits for the queue to drain and then flushes
// the target.
func (h *AsyncHandler) Flush() error {
	for {
		h.mu.Lock()
		pending := len(h.queue)
		closed := h.closed
		h.mu.Unlock()
		if pending == 0 || closed {
			break
		}
		time.Sleep(time.Millisecond)
	}
	return h.target.Flush()
}

// Close implements Handler. It stops accepting records, waits for the
// delivery goroutine to drain the queue, and closes the target.
func (h *AsyncHandler) Close() error {
	return h.Stop(context.Background())
}

// Stop closes the queue and waits for in-flight records to be delivered,
// honoring ctx for the wait. The target handler is closed afterwards.
func (h *AsyncHandler) Stop(ctx context.Context) error {
	if !h.closeBase() {
		return nil
	}

	h.stopOnce.Do(func() {
		close(h.queue)
	})

	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return h.target.Close()
}
