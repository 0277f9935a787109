// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"io"
	"log"
	"strings"
	"sync"
)

// stdlogName is the logger that receives records captured from the standard
// library log package.
const stdlogName = "go.log"

var stdlogMu sync.Mutex
var stdlogState *savedStdlog

type savedStdlog struct {
	writer io.Writer
	flags  int
	prefix string
}

// stdlogWriter turns each standard library log line into a WARNING record.
type stdlogWriter struct {
	logger *Logger
}

func (w *stdlogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSuffix(string(p), "\n")
	if w.logger.IsEnabledFor(WARNING) {
		// Depth reaches through log.Output back to the log.Print call site.
		w.logger.log(defaultCallDepth+2, WARNING, nil, "%s", []any{msg})
	}
	return len(p), nil
}

// CaptureStdlog redirects the standard library log package to the "go.log"
// logger at WARNING severity, so code using log.Print flows through the
// configured handlers. Passing false restores the previous destination,
// flags and prefix.
func CaptureStdlog(capture bool) {
	stdlogMu.Lock()
	defer stdlogMu.Unlock()

	if capture {
		if stdlogState != nil {
			return
		}
		stdlogState = &savedStdlog{
			writer: log.Writer(),
			flags:  log.Flags(),
			prefix: log.Prefix(),
		}
		log.SetFlags(0)
		log.SetPrefix("")
		log.SetOutput(&stdlogWriter{logger: GetLogger(stdlogName)})
		return
	}

	if stdlogState == nil {
		return
	}
	log.SetOutput(stdlogState.writer)
	log.SetFlags(stdlogState.flags)
	log.SetPrefix(stdlogState.prefix)
	stdlogState = nil
}
