// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package hclogbridge

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/molog"
)

func newTestBridge(t *testing.T, name string) (*Bridge, *bytes.Buffer) {
	t.Helper()

	buffer := new(bytes.Buffer)
	handler := molog.NewStreamHandler(buffer)
	handler.SetFormatter(&molog.JSONFormatter{})
	t.Cleanup(func() { _ = handler.Close() })

	logger := molog.GetLogger(name)
	logger.SetLevel(TraceLevel)
	logger.SetPropagate(false)
	logger.AddHandler(handler)
	return New(logger), buffer
}

func decodeLines(t *testing.T, buffer *bytes.Buffer) []map[string]any {
	t.Helper()

	lines := strings.Split(strings.TrimSuffix(buffer.String(), "\n"), "\n")
	decoded := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		payload := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &payload))
		decoded = append(decoded, payload)
	}
	return decoded
}

func TestBridgeLevels(t *testing.T) {
	t.Parallel()

	bridge, buffer := newTestBridge(t, "hclog.levels.test")

	bridge.Trace("trace message")
	bridge.Debug("debug message")
	bridge.Info("info message")
	bridge.Warn("warn message")
	bridge.Error("error message")
	bridge.Log(hclog.Info, "log message")
	bridge.Log(hclog.Off, "never emitted")

	records := decodeLines(t, buffer)
	require.Len(t, records, 6)
	assert.Equal(t, "TRACE", records[0]["level"])
	assert.Equal(t, "trace message", records[0]["message"])
	assert.Equal(t, "DEBUG", records[1]["level"])
	assert.Equal(t, "INFO", records[2]["level"])
	assert.Equal(t, "WARNING", records[3]["level"])
	assert.Equal(t, "ERROR", records[4]["level"])
	assert.Equal(t, "INFO", records[5]["level"])
}

func TestBridgeKeyValueArgs(t *testing.T) {
	t.Parallel()

	bridge, buffer := newTestBridge(t, "hclog.args.test")

	bridge.Info("created", "tenant", "acme", "attempts", 3)
	bridge.Info("dangling", "stray value")

	records := decodeLines(t, buffer)
	require.Len(t, records, 2)

	extra := records[0]["extra"].(map[string]any)
	assert.Equal(t, "acme", extra["tenant"])
	assert.Equal(t, float64(3), extra["attempts"])

	dangling := records[1]["extra"].(map[string]any)
	assert.Equal(t, "stray value", dangling[hclog.MissingKey])
}

func TestBridgeWith(t *testing.T) {
	t.Parallel()

	bridge, buffer := newTestBridge(t, "hclog.with.test")

	derived := bridge.With("tenant", "acme")
	derived.Info("implied", "attempts", 3)

	assert.Equal(t, []any{"tenant", "acme"}, derived.ImpliedArgs())
	assert.Empty(t, bridge.ImpliedArgs())

	records := decodeLines(t, buffer)
	require.Len(t, records, 1)
	extra := records[0]["extra"].(map[string]any)
	assert.Equal(t, "acme", extra["tenant"])
	assert.Equal(t, float64(3), extra["attempts"])
}

func TestBridgeNaming(t *testing.T) {
	t.Parallel()

	bridge, _ := newTestBridge(t, "hclog.naming.test")

	assert.Equal(t, "hclog.naming.test", bridge.Name())
	assert.Equal(t, "hclog.naming.test.child", bridge.Named("child").Name())
	assert.Equal(t, "hclog.other.test", bridge.ResetNamed("hclog.other.test").Name())

	// Named children keep the implied arguments.
	derived := bridge.With("tenant", "acme")
	assert.Equal(t, []any{"tenant", "acme"}, derived.Named("child").ImpliedArgs())
}

func TestBridgeLevelChecks(t *testing.T) {
	t.Parallel()

	bridge, _ := newTestBridge(t, "hclog.checks.test")

	bridge.SetLevel(hclog.Warn)
	assert.False(t, bridge.IsTrace())
	assert.False(t, bridge.IsDebug())
	assert.False(t, bridge.IsInfo())
	assert.True(t, bridge.IsWarn())
	assert.True(t, bridge.IsError())
	assert.Equal(t, hclog.Warn, bridge.GetLevel())

	bridge.SetLevel(hclog.Trace)
	assert.True(t, bridge.IsTrace())
	assert.Equal(t, hclog.Trace, bridge.GetLevel())
}

func TestBridgeOff(t *testing.T) {
	t.Parallel()

	bridge, buffer := newTestBridge(t, "hclog.off.test")

	bridge.SetLevel(hclog.Off)
	bridge.Error("silenced")
	assert.Empty(t, buffer.String())

	bridge.SetLevel(hclog.Info)
	bridge.Error("audible")
	assert.NotEmpty(t, buffer.String())
}

func TestBridgeStandardLogger(t *testing.T) {
	t.Parallel()

	bridge, buffer := newTestBridge(t, "hclog.stdlog.test")

	standard := bridge.StandardLogger(&hclog.StandardLoggerOptions{InferLevels: true})
	standard.Print("[WARN] something odd")
	standard.Print("untagged line")

	records := decodeLines(t, buffer)
	require.Len(t, records, 2)
	assert.Equal(t, "WARNING", records[0]["level"])
	assert.Equal(t, "something odd", records[0]["message"])
	assert.Equal(t, "INFO", records[1]["level"])
	assert.Equal(t, "untagged line", records[1]["message"])
}
