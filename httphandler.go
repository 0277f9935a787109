// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// HTTPError wraps failures returned while shipping records to an HTTP
// endpoint.
type HTTPError struct {
	err error
}

func (e *HTTPError) Error() string {
	return "http handler: " + e.err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.err
}

// HTTPHandler POSTs each record as a JSON object to a collection endpoint.
// Wrap it in an AsyncHandler when the endpoint latency must not reach the
// logging call sites.
type HTTPHandler struct {
	BaseHandler

	endpoint string
	token    string
	timeout  time.Duration
	client   *http.Client
}

// NewHTTPHandler returns a handler delivering records to endpoint. The token,
// when not empty, is sent as a bearer authorization header.
func NewHTTPHandler(endpoint, token string) (*HTTPHandler, error) {
	if endpoint == "" {
		return nil, &HTTPError{err: errors.New("missing endpoint")}
	}

	h := &HTTPHandler{
		endpoint: endpoint,
		token:    token,
		timeout:  10 * time.Second,
		client:   http.DefaultClient,
	}
	h.SetFormatter(&JSONFormatter{})
	h.initBase(h, NOTSET, h.emitRecord)
	return h, nil
}

// SetTimeout bounds the delivery of a single record.
func (h *HTTPHandler) SetTimeout(timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.timeout = timeout
}

func (h *HTTPHandler) emitRecord(record *Record) error {
	body, err := h.format(record)
	if err != nil {
		return &HTTPError{err: err}
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, strings.NewReader(body))
	if err != nil {
		return &HTTPError{err: err}
	}
	request.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		request.Header.Set("Authorization", "Bearer "+h.token)
	}

	response, err := h.client.Do(request)
	if err != nil {
		return &HTTPError{err: err}
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		return &HTTPError{err: errors.New("unexpected status " + response.Status)}
	}
	return nil
}

// Close implements Handler.
func (h *HTTPHandler) Close() error {
	h.closeBase()
	return nil
}
