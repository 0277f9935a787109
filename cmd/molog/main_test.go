// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package main

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/molog"
)

func TestRootCommand(t *testing.T) {
	Version = "test"
	BuildDate = "2026-06-01"

	cmd := rootCmd()
	buffer := new(bytes.Buffer)
	cmd.SetOut(buffer)

	logger := molog.GetLogger("main.test")
	logger.SetPropagate(false)
	handler := molog.NewStreamHandler(buffer)
	t.Cleanup(func() { _ = handler.Close() })
	logger.AddHandler(handler)
	ctx := molog.WithLoggerContext(t.Context(), logger)

	cmd.SetArgs([]string{"--log-level", "ERROR", "version"})
	err := cmd.ExecuteContext(ctx)
	require.NoError(t, err)

	logger.Warning("ignored line for set log level")
	lines := strings.Split(buffer.String(), "\n")
	assert.Len(t, lines, 2) // version output + empty line
	assert.Equal(t, versionString(Version, BuildDate, runtime.Version())+"\n", buffer.String())

	buffer.Reset()
	BuildDate = ""
	cmd.SetArgs([]string{"--log-level", "ERROR", "version"})
	err = cmd.ExecuteContext(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2) // version output + empty line
	assert.Equal(t, versionString(Version, "", runtime.Version())+"\n", buffer.String())
}

func TestRootCommandInvalidLevel(t *testing.T) {
	t.Parallel()

	cmd := rootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--log-level", "VERBOSE", "version"})

	ctx := molog.WithLoggerContext(t.Context(), molog.GetLogger("main.invalid.test"))
	assert.ErrorContains(t, cmd.ExecuteContext(ctx), "unknown level")
}
