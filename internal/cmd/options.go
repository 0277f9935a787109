// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mia-platform/molog"
)

// options configures a render run.
type options struct {
	inputPath string
	formatter molog.Formatter
	minLevel  molog.Level

	input  io.Reader
	output io.Writer
}

// validate checks the configured values and reports invalid setups.
func (o *options) validate() error {
	if o.inputPath == "" {
		return nil
	}

	info, err := os.Stat(o.inputPath)
	if err != nil {
		return fmt.Errorf("%w: %s", errInvalidInput, unwrappedError(err))
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %q is a directory", errInvalidInput, o.inputPath)
	}

	return nil
}

// execute re-renders every JSON record read from the input.
func (o *options) execute() error {
	input := o.input
	if o.inputPath != "" {
		file, err := os.Open(o.inputPath)
		if err != nil {
			return fmt.Errorf("%w: %s", errInvalidInput, unwrappedError(err))
		}
		defer file.Close()
		input = file
	}

	scanner := bufio.NewScanner(input)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		record, err := parseRecord(line)
		if err != nil {
			return fmt.Errorf("%w at line %d: %s", errInvalidRecord, lineNumber, err)
		}
		if record.Level < o.minLevel {
			continue
		}

		formatted, err := o.formatter.Format(record)
		if err != nil {
			return fmt.Errorf("%w at line %d: %s", errInvalidRecord, lineNumber, unwrappedError(err))
		}
		fmt.Fprintln(o.output, formatted)
	}

	return scanner.Err()
}

// jsonRecord mirrors the payload written by the JSON formatter.
type jsonRecord struct {
	Level   string         `json:"level"`
	Logger  string         `json:"logger"`
	Message string         `json:"message"`
	Time    string         `json:"time"`
	Caller  string         `json:"caller"`
	Error   string         `json:"error"`
	Stack   string         `json:"stack"`
	Extra   map[string]any `json:"extra"`
}

// parseRecord rebuilds a record from its JSON rendition.
func parseRecord(line string) (*molog.Record, error) {
	payload := jsonRecord{}
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		return nil, err
	}

	level, err := molog.ParseLevel(payload.Level)
	if err != nil {
		return nil, err
	}

	record := molog.NewRecord(payload.Logger, level, payload.Message, nil)
	record.Extra = payload.Extra
	record.Stack = payload.Stack
	if payload.Error != "" {
		record.Err = errors.New(payload.Error)
	}
	if payload.Time != "" {
		parsed, err := time.Parse(time.RFC3339Nano, payload.Time)
		if err != nil {
			return nil, err
		}
		record.Time = parsed
	}
	if payload.Caller != "" {
		if name, lineno, found := strings.Cut(payload.Caller, ":"); found {
			record.FileName = name
			record.Line, _ = strconv.Atoi(lineno)
		}
	}

	return record, nil
}
