// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"reflect"
	"strings"
	"sync"
)

// Filter decides whether a record is logged. A filter may veto the record by
// returning false, pass it through unchanged, or substitute a different
// record to be used in any further processing of the event.
type Filter interface {
	Filter(record *Record) (*Record, bool)
}

// FilterFunc adapts a function to the Filter interface.
type FilterFunc func(record *Record) (*Record, bool)

// Filter implements Filter.
func (f FilterFunc) Filter(record *Record) (*Record, bool) {
	return f(record)
}

// NameFilter only allows events emitted below a given point in the logger
// hierarchy. A filter for "A.B" allows events logged by "A.B", "A.B.C" and
// "A.B.D" but not "A.BB". The empty name allows every event.
type NameFilter struct {
	name string
}

// NewNameFilter returns a NameFilter rooted at name.
func NewNameFilter(name string) *NameFilter {
	return &NameFilter{name: name}
}

// Filter implements Filter.
func (f *NameFilter) Filter(record *Record) (*Record, bool) {
	if f.name == "" || f.name == record.LoggerName {
		return record, true
	}
	if !strings.HasPrefix(record.LoggerName, f.name) {
		return record, false
	}
	return record, record.LoggerName[len(f.name)] == '.'
}

// filterSet holds the filters shared by loggers and handlers.
type filterSet struct {
	mu      sync.Mutex
	filters []Filter
}

// AddFilter appends filter unless it is already present.
func (s *filterSet) AddFilter(filter Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.filters {
		if sameFilter(f, filter) {
			return
		}
	}
	s.filters = append(s.filters, filter)
}

// RemoveFilter removes filter when present.
func (s *filterSet) RemoveFilter(filter Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.filters {
		if sameFilter(f, filter) {
			s.filters = append(s.filters[:i], s.filters[i+1:]...)
			return
		}
	}
}

// sameFilter reports whether two filters are the same value. Function-typed
// filters are never comparable with ==, so they are matched by identity of
// the underlying code pointer.
func sameFilter(a, b Filter) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Kind() == reflect.Func || vb.Kind() == reflect.Func {
		return va.Kind() == vb.Kind() && va.Pointer() == vb.Pointer()
	}
	return a == b
}

// apply consults all the filters in order. Any veto stops processing; a
// substituted record flows onward to the remaining filters and is returned.
func (s *filterSet) apply(record *Record) (*Record, bool) {
	s.mu.Lock()
	filters := make([]Filter, len(s.filters))
	copy(filters, s.filters)
	s.mu.Unlock()

	for _, f := range filters {
		substituted, ok := f.Filter(record)
		if !ok {
			return nil, false
		}
		if substituted != nil {
			record = substituted
		}
	}
	return record, true
}
