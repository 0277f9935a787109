// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// startTime is the base used when calculating the relative time of events.
var startTime = time.Now()

var (
	// LogCaller controls whether records resolve the calling file, line and
	// function. Skipping the runtime.Caller lookup is the documented fast path
	// for hot logging call sites.
	LogCaller = true
	// LogProcess controls whether records capture the process id.
	LogProcess = true
)

// Record is a single logging event. All the pertinent information about the
// event is carried as typed fields; arbitrary contextual values travel in
// Extra.
type Record struct {
	// LoggerName is the name of the logger the event was emitted on.
	LoggerName string
	Level      Level
	LevelName  string
	// Time is when the record was created.
	Time time.Time
	// RelativeCreated is the time elapsed between package initialization and
	// record creation.
	RelativeCreated time.Duration

	// Msg is the raw message; when Args is not empty the final message is
	// computed lazily as fmt.Sprintf(Msg, Args...).
	Msg  string
	Args []any

	// Caller information, resolved only when LogCaller is set.
	PathName string
	FileName string
	Module   string
	FuncName string
	Line     int

	// PID is the process id, captured only when LogProcess is set.
	PID int

	// Err is the error attached to the logging call, if any.
	Err error
	// Stack holds a formatted call stack when the call requested one.
	Stack string
	// Extra carries contextual key/value pairs attached to the call.
	Extra map[string]any

	computeOnce sync.Once
	message     string
}

// RecordFactory builds records for the package. It can be replaced with
// SetRecordFactory to create specialized records.
type RecordFactory func(name string, level Level, msg string, args []any) *Record

var recordFactory RecordFactory = NewRecord

// SetRecordFactory replaces the factory used to create records. A nil factory
// restores NewRecord.
func SetRecordFactory(factory RecordFactory) {
	globalMu.Lock()
	defer globalMu.Unlock()

	if factory == nil {
		factory = NewRecord
	}
	recordFactory = factory
}

func newRecord(name string, level Level, msg string, args []any) *Record {
	globalMu.RLock()
	factory := recordFactory
	globalMu.RUnlock()
	return factory(name, level, msg, args)
}

// NewRecord returns a record initialized with the event time, level naming
// and process information. Caller information is filled separately because
// only the logging call site knows the stack depth.
func NewRecord(name string, level Level, msg string, args []any) *Record {
	now := time.Now()
	record := &Record{
		LoggerName:      name,
		Level:           level,
		LevelName:       LevelName(level),
		Time:            now,
		RelativeCreated: now.Sub(startTime),
		Msg:             msg,
		Args:            args,
	}
	if LogProcess {
		record.PID = os.Getpid()
	}
	return record
}

// Message returns the fully substituted user message. The result is computed
// once and cached on the record; the same record may be formatted by several
// handlers on different goroutines (an async queue next to a stream handler),
// so the cache is guarded.
func (r *Record) Message() string {
	r.computeOnce.Do(func() {
		r.message = r.Msg
		if len(r.Args) > 0 {
			r.message = fmt.Sprintf(r.Msg, r.Args...)
		}
	})
	return r.message
}

// setCaller resolves the call site skip+1 frames above the caller of
// setCaller and stores it on the record.
func (r *Record) setCaller(skip int) {
	pc, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		r.PathName = "(unknown file)"
		r.FuncName = "(unknown function)"
		return
	}

	r.PathName = file
	r.FileName = filepath.Base(file)
	r.Line = line
	if fn := runtime.FuncForPC(pc); fn != nil {
		r.FuncName = fn.Name()
		r.Module = moduleOf(fn.Name())
	}
}

// moduleOf extracts the package portion of a fully qualified function name,
// e.g. "github.com/acme/app/web.(*Server).Start" yields "web".
func moduleOf(funcName string) string {
	short := funcName
	if idx := strings.LastIndex(short, "/"); idx >= 0 {
		short = short[idx+1:]
	}
	if idx := strings.Index(short, "."); idx >= 0 {
		short = short[:idx]
	}
	return short
}
