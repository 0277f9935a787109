// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Level is the numeric severity of a log record. Higher values are more
// severe. Values between the predefined constants are valid and compare as
// expected; names for them can be registered with AddLevelName.
type Level int

const (
	NOTSET   Level = 0
	DEBUG    Level = 10
	INFO     Level = 20
	NOTICE   Level = 25
	WARNING  Level = 30
	ERROR    Level = 40
	CRITICAL Level = 50
)

// ErrUnknownLevel reports a level name that is not present in the registry.
var ErrUnknownLevel = errors.New("unknown level")

var (
	levelMu     sync.RWMutex
	levelToName = map[Level]string{
		CRITICAL: "CRITICAL",
		ERROR:    "ERROR",
		WARNING:  "WARNING",
		NOTICE:   "NOTICE",
		INFO:     "INFO",
		DEBUG:    "DEBUG",
		NOTSET:   "NOTSET",
	}
	nameToLevel = map[string]Level{
		"CRITICAL": CRITICAL,
		"ERROR":    ERROR,
		"WARNING":  WARNING,
		"NOTICE":   NOTICE,
		"INFO":     INFO,
		"DEBUG":    DEBUG,
		"NOTSET":   NOTSET,
	}
)

// LevelName returns the registered textual representation of level. When no
// name is registered the string "Level N" is returned.
func LevelName(level Level) string {
	levelMu.RLock()
	defer levelMu.RUnlock()

	if name, ok := levelToName[level]; ok {
		return name
	}
	return "Level " + strconv.Itoa(int(level))
}

// String implements fmt.Stringer using the level name registry.
func (l Level) String() string {
	return LevelName(l)
}

// AddLevelName associates name with level in both directions. It is used when
// converting levels to text during formatting and when parsing level names.
func AddLevelName(level Level, name string) {
	levelMu.Lock()
	defer levelMu.Unlock()

	levelToName[level] = name
	nameToLevel[name] = level
}

// ParseLevel converts a level name, as registered with AddLevelName, into its
// numeric value. Unknown names are reported with ErrUnknownLevel.
func ParseLevel(name string) (Level, error) {
	levelMu.RLock()
	defer levelMu.RUnlock()

	level, ok := nameToLevel[name]
	if !ok {
		return NOTSET, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
	return level, nil
}
