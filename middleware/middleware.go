// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package middleware provides a fiber middleware that logs HTTP requests
// through a molog logger and makes a request-scoped adapter available to the
// handlers via the request user context.
package middleware

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/mia-platform/molog"
)

const (
	forwardedHostHeaderKey = "x-forwarded-host"
	forwardedForHeaderKey  = "x-forwarded-for"
	requestIDHeaderName    = "x-request-id"

	IncomingRequestMessage  = "incoming request"
	RequestCompletedMessage = "request completed"
)

type fiberLoggingContext struct {
	c          *fiber.Ctx
	handlerErr error
}

type loggingContext interface {
	Request() requestLoggingContext
	Response() responseLoggingContext
}

type requestLoggingContext interface {
	GetHeader(string) string
	URI() string
	Host() string
	Method() string
}

type responseLoggingContext interface {
	BodySize() int
	StatusCode() int
}

func removePort(host string) string {
	return strings.Split(host, ":")[0]
}

// RequestID returns the request id carried by the x-request-id header, or a
// freshly generated one.
func RequestID(ctx loggingContext) string {
	if requestID := ctx.Request().GetHeader(requestIDHeaderName); requestID != "" {
		return requestID
	}

	requestID, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Errorf("error generating request id: %w", err))
	}
	return requestID.String()
}

// requestExtra builds the request portion of the log record extras.
func requestExtra(ctx loggingContext) map[string]any {
	return map[string]any{
		"http": map[string]any{
			"request": map[string]any{
				"method":    ctx.Request().Method(),
				"userAgent": ctx.Request().GetHeader("user-agent"),
			},
		},
		"url": map[string]any{
			"path": ctx.Request().URI(),
		},
		"host": map[string]any{
			"hostname":      removePort(ctx.Request().Host()),
			"forwardedHost": ctx.Request().GetHeader(forwardedHostHeaderKey),
			"ip":            ctx.Request().GetHeader(forwardedForHeaderKey),
		},
	}
}

func logIncomingRequest(ctx loggingContext, adapter *molog.Adapter) {
	adapter.WithExtra(requestExtra(ctx)).Debug(IncomingRequestMessage)
}

func logRequestCompleted(ctx loggingContext, adapter *molog.Adapter, startTime time.Time) {
	extra := requestExtra(ctx)
	extra["http"].(map[string]any)["response"] = map[string]any{
		"statusCode": ctx.Response().StatusCode(),
		"bytes":      ctx.Response().BodySize(),
	}
	extra["responseTime"] = float64(time.Since(startTime).Milliseconds())

	adapter.WithExtra(extra).Info(RequestCompletedMessage)
}

func (flc *fiberLoggingContext) Request() requestLoggingContext {
	return flc
}

func (flc *fiberLoggingContext) Response() responseLoggingContext {
	return flc
}

func (flc *fiberLoggingContext) GetHeader(key string) string {
	return flc.c.Get(key, "")
}

func (flc *fiberLoggingContext) URI() string {
	return string(flc.c.Request().URI().RequestURI())
}

func (flc *fiberLoggingContext) Host() string {
	return string(flc.c.Request().Host())
}

func (flc *fiberLoggingContext) Method() string {
	return flc.c.Method()
}

func (flc *fiberLoggingContext) getFiberError() *fiber.Error {
	if fiberErr, ok := flc.handlerErr.(*fiber.Error); flc.handlerErr != nil && ok {
		return fiberErr
	}
	return nil
}

func (flc *fiberLoggingContext) setError(err error) {
	flc.handlerErr = err
}

func (flc *fiberLoggingContext) BodySize() int {
	if fiberErr := flc.getFiberError(); fiberErr != nil {
		return len(fiberErr.Error())
	}

	if content := flc.c.GetRespHeader("Content-Length"); content != "" {
		if length, err := strconv.Atoi(content); err == nil {
			return length
		}
	}
	return len(flc.c.Response().Body())
}

func (flc *fiberLoggingContext) StatusCode() int {
	if fiberErr := flc.getFiberError(); fiberErr != nil {
		return fiberErr.Code
	}

	return flc.c.Response().StatusCode()
}

// RequestLogger is a fiber middleware that logs every request through logger:
// one record when the request comes in and one when it completes, with the
// request latency. Paths starting with one of the excluded prefixes are not
// logged. A request-scoped adapter carrying the request id travels on the
// request user context, retrievable with molog.FromContext.
func RequestLogger(logger *molog.Logger, excludedPrefix []string) func(*fiber.Ctx) error {
	return func(fiberCtx *fiber.Ctx) error {
		fiberLoggingContext := &fiberLoggingContext{c: fiberCtx}

		for _, prefix := range excludedPrefix {
			if strings.HasPrefix(fiberLoggingContext.Request().URI(), prefix) {
				return fiberCtx.Next()
			}
		}

		start := time.Now()

		requestID := RequestID(fiberLoggingContext)
		adapter := logger.WithExtra(map[string]any{"requestId": requestID})

		ctx := molog.WithContext(fiberCtx.UserContext(), adapter)
		fiberCtx.SetUserContext(ctx)

		logIncomingRequest(fiberLoggingContext, adapter)
		err := fiberCtx.Next()
		fiberLoggingContext.setError(err)

		logRequestCompleted(fiberLoggingContext, adapter, start)

		return err
	}
}
