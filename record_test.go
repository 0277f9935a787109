// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	t.Parallel()

	record := NewRecord("input.csv", INFO, "read %d rows", []any{42})

	assert.Equal(t, "input.csv", record.LoggerName)
	assert.Equal(t, INFO, record.Level)
	assert.Equal(t, "INFO", record.LevelName)
	assert.False(t, record.Time.IsZero())
	assert.GreaterOrEqual(t, record.RelativeCreated.Nanoseconds(), int64(0))
	assert.Equal(t, os.Getpid(), record.PID)
}

func TestRecordMessage(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		msg      string
		args     []any
		expected string
	}{
		"no arguments": {
			msg:      "plain message with a stray %d verb",
			expected: "plain message with a stray %d verb",
		},
		"substituted arguments": {
			msg:      "read %d rows from %q",
			args:     []any{42, "data.csv"},
			expected: `read 42 rows from "data.csv"`,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			record := NewRecord("test", INFO, test.msg, test.args)
			assert.Equal(t, test.expected, record.Message())
			// The substitution is cached.
			assert.Equal(t, test.expected, record.Message())
		})
	}
}

func TestRecordCaller(t *testing.T) {
	t.Parallel()

	record := NewRecord("test", INFO, "message", nil)
	record.setCaller(0)

	assert.Equal(t, "record_test.go", record.FileName)
	assert.Equal(t, "molog", record.Module)
	assert.Contains(t, record.FuncName, "TestRecordCaller")
	assert.Greater(t, record.Line, 0)
}

func TestModuleOf(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		funcName string
		expected string
	}{
		"method": {
			funcName: "github.com/acme/app/web.(*Server).Start",
			expected: "web",
		},
		"function": {
			funcName: "github.com/acme/app/web.handle",
			expected: "web",
		},
		"main": {
			funcName: "main.main",
			expected: "main",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, moduleOf(test.funcName))
		})
	}
}

func TestSetRecordFactory(t *testing.T) {
	defer SetRecordFactory(nil)

	SetRecordFactory(func(name string, level Level, msg string, args []any) *Record {
		record := NewRecord(name, level, msg, args)
		record.Extra = map[string]any{"tenant": "acme"}
		return record
	})

	record := newRecord("test", INFO, "message", nil)
	require.NotNil(t, record.Extra)
	assert.Equal(t, "acme", record.Extra["tenant"])

	SetRecordFactory(nil)
	record = newRecord("test", INFO, "message", nil)
	assert.Nil(t, record.Extra)
}
