// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"bytes"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCaptureStdlog(t *testing.T) {
	previousWriter := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(previousWriter)

	buffer := new(bytes.Buffer)
	handler := NewStreamHandler(buffer)
	handler.SetFormatter(mustTextFormatter("%(levelname)s %(name)s %(message)s", StylePercent))

	logger := GetLogger(stdlogName)
	logger.SetPropagate(false)
	logger.AddHandler(handler)
	defer func() {
		logger.RemoveHandler(handler)
		_ = handler.Close()
	}()

	CaptureStdlog(true)
	CaptureStdlog(true) // enabling twice keeps the original saved state
	log.Print("captured line")
	CaptureStdlog(false)

	assert.Equal(t, "WARNING go.log captured line\n", buffer.String())

	// The previous destination, flags and prefix are back in place.
	assert.Equal(t, io.Discard, log.Writer())
	log.Print("back on the saved writer")
	assert.Equal(t, "WARNING go.log captured line\n", buffer.String())

	// Disabling when not capturing is a no-op.
	CaptureStdlog(false)
	assert.Equal(t, io.Discard, log.Writer())
}
