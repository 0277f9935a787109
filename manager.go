// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import "strings"

// placeholder takes the place of a hierarchy node for which no logger has
// been requested yet. It remembers the loggers born below it so their parent
// links can be fixed up when the real logger appears.
type placeholder struct {
	children map[*Logger]struct{}
}

func newPlaceholder(child *Logger) *placeholder {
	return &placeholder{children: map[*Logger]struct{}{child: {}}}
}

func (p *placeholder) append(child *Logger) {
	p.children[child] = struct{}{}
}

// LoggerFactory builds loggers for a manager. Replace it with
// Manager.SetLoggerFactory to create specialized loggers.
type LoggerFactory func(name string) *Logger

// Manager holds the hierarchy of loggers. Under normal circumstances there is
// exactly one manager, owned by the package root logger.
type Manager struct {
	root    *Logger
	disable Level
	// loggers maps dotted names to either a *Logger or a *placeholder.
	loggers map[string]any
	factory LoggerFactory

	emittedNoHandlerWarning bool
}

func newManager(root *Logger) *Manager {
	m := &Manager{
		root:    root,
		loggers: map[string]any{},
	}
	root.manager = m
	return m
}

// SetLoggerFactory replaces the factory used when instantiating loggers. A
// nil factory restores the default.
func (m *Manager) SetLoggerFactory(factory LoggerFactory) {
	globalMu.Lock()
	defer globalMu.Unlock()
	m.factory = factory
}

// SetDisable establishes a severity floor: records at level or below are
// discarded on every logger of the hierarchy.
func (m *Manager) SetDisable(level Level) {
	globalMu.Lock()
	m.disable = level
	globalMu.Unlock()
	m.clearCaches()
}

// Logger returns the logger with the given dotted name, creating it (and any
// missing ancestors as placeholders) when needed.
func (m *Manager) Logger(name string) *Logger {
	globalMu.Lock()
	defer globalMu.Unlock()

	if node, ok := m.loggers[name]; ok {
		if logger, ok := node.(*Logger); ok {
			return logger
		}

		// A placeholder exists: a descendant was created first. Replace it
		// with the real logger and repair the links that pointed past it.
		ph := node.(*placeholder)
		logger := m.newLogger(name)
		m.loggers[name] = logger
		m.fixupChildren(ph, logger)
		m.fixupParents(logger)
		return logger
	}

	logger := m.newLogger(name)
	m.loggers[name] = logger
	m.fixupParents(logger)
	return logger
}

// newLogger instantiates a logger through the configured factory. Must be
// called with globalMu held.
func (m *Manager) newLogger(name string) *Logger {
	factory := m.factory
	if factory == nil {
		factory = newLoggerNode
	}
	logger := factory(name)
	logger.manager = m
	return logger
}

// fixupParents walks the dotted name from the right, linking the logger to
// its nearest existing ancestor and leaving placeholders on the way. Must be
// called with globalMu held.
func (m *Manager) fixupParents(logger *Logger) {
	name := logger.name
	var parent *Logger

	i := strings.LastIndex(name, ".")
	for i > 0 && parent == nil {
		prefix := name[:i]
		switch node := m.loggers[prefix].(type) {
		case nil:
			m.loggers[prefix] = newPlaceholder(logger)
		case *Logger:
			parent = node
		case *placeholder:
			node.append(logger)
		}
		i = strings.LastIndex(name[:i], ".")
	}

	if parent == nil {
		parent = m.root
	}
	logger.parent = parent
}

// fixupChildren reattaches the placeholder's children to the new logger,
// unless they already hang from a closer ancestor. Must be called with
// globalMu held.
func (m *Manager) fixupChildren(ph *placeholder, logger *Logger) {
	name := logger.name
	for child := range ph.children {
		if !strings.HasPrefix(child.parent.name, name) {
			logger.parent = child.parent
			child.parent = logger
		}
	}
}

// clearCaches drops the per-logger enablement caches. Called whenever a level
// changes anywhere in the hierarchy.
func (m *Manager) clearCaches() {
	globalMu.RLock()
	defer globalMu.RUnlock()

	for _, node := range m.loggers {
		if logger, ok := node.(*Logger); ok {
			logger.clearCache()
		}
	}
	m.root.clearCache()
}

// LoggerNames returns the names of the loggers materialized on the hierarchy,
// in no particular order. Placeholder nodes are not reported.
func (m *Manager) LoggerNames() []string {
	globalMu.RLock()
	defer globalMu.RUnlock()

	names := make([]string, 0, len(m.loggers))
	for name, node := range m.loggers {
		if _, ok := node.(*Logger); ok {
			names = append(names, name)
		}
	}
	return names
}

// noHandlerWarning reports whether the one-off "no handlers" warning is still
// pending, and marks it emitted.
func (m *Manager) noHandlerWarning() bool {
	globalMu.Lock()
	defer globalMu.Unlock()

	if m.emittedNoHandlerWarning {
		return false
	}
	m.emittedNoHandlerWarning = true
	return true
}

// disableLevel returns the severity floor.
func (m *Manager) disableLevel() Level {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return m.disable
}
