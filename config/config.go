// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package config materializes logging configuration from YAML documents and
// from environment variables onto the molog logger hierarchy.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mia-platform/molog"
)

const (
	// KindText selects a placeholder-pattern formatter; it is the default.
	KindText = "text"
	// KindJSON selects the single-line JSON formatter.
	KindJSON = "json"

	// KindStream writes records to stderr or stdout.
	KindStream = "stream"
	// KindFile writes records to a disk file.
	KindFile = "file"
	// KindHTTP posts records to a collection endpoint.
	KindHTTP = "http"
	// KindMemory buffers records and flushes them to a target handler.
	KindMemory = "memory"
	// KindAsync queues records to a target handler on a dedicated goroutine.
	KindAsync = "async"
	// KindNull discards records.
	KindNull = "null"

	// OutputStderr and OutputStdout are the stream handler destinations.
	OutputStderr = "stderr"
	OutputStdout = "stdout"
)

var (
	// ErrParsing reports failures that occur while decoding configuration files.
	ErrParsing = errors.New("error parsing")
	// ErrInvalidConfig reports a configuration that decodes but cannot be
	// materialized.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config is a declarative description of formatters, handlers and loggers.
// Handlers reference formatters by key, loggers reference handlers by key.
type Config struct {
	Formatters map[string]FormatterConfig `yaml:"formatters,omitempty"`
	Handlers   map[string]HandlerConfig   `yaml:"handlers,omitempty"`
	Loggers    map[string]LoggerConfig    `yaml:"loggers,omitempty"`
	Root       *LoggerConfig              `yaml:"root,omitempty"`

	// DisableExistingLoggers turns off the loggers already materialized that
	// the configuration does not mention, ancestors of mentioned loggers
	// excluded.
	DisableExistingLoggers bool `yaml:"disableExistingLoggers,omitempty"`
}

// FormatterConfig describes a single formatter.
type FormatterConfig struct {
	Kind       string         `yaml:"kind,omitempty"`
	Format     string         `yaml:"format,omitempty"`
	DateFormat string         `yaml:"dateFormat,omitempty"`
	Style      string         `yaml:"style,omitempty"`
	UTC        bool           `yaml:"utc,omitempty"`
	Defaults   map[string]any `yaml:"defaults,omitempty"`
}

// HandlerConfig describes a single handler. Kind selects the handler type and
// decides which of the remaining fields apply.
type HandlerConfig struct {
	Kind      string `yaml:"kind"`
	Level     string `yaml:"level,omitempty"`
	Formatter string `yaml:"formatter,omitempty"`

	// Output selects the stream destination, "stderr" or "stdout".
	Output string `yaml:"output,omitempty"`

	// Path, Truncate and Delay configure file handlers.
	Path     string `yaml:"path,omitempty"`
	Truncate bool   `yaml:"truncate,omitempty"`
	Delay    bool   `yaml:"delay,omitempty"`

	// Endpoint, Token and Timeout configure HTTP handlers.
	Endpoint string `yaml:"endpoint,omitempty"`
	Token    string `yaml:"token,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`

	// Capacity, TriggerLevel and FlushOnClose configure memory handlers.
	Capacity     int    `yaml:"capacity,omitempty"`
	TriggerLevel string `yaml:"triggerLevel,omitempty"`
	FlushOnClose *bool  `yaml:"flushOnClose,omitempty"`

	// QueueSize configures async handlers.
	QueueSize int `yaml:"queueSize,omitempty"`

	// Target names the handler that memory and async handlers deliver to.
	Target string `yaml:"target,omitempty"`
}

// LoggerConfig describes a single logger, or the root logger.
type LoggerConfig struct {
	Level     string   `yaml:"level,omitempty"`
	Propagate *bool    `yaml:"propagate,omitempty"`
	Handlers  []string `yaml:"handlers,omitempty"`
}

// NewConfigsFromPath parses the file at path and returns the configurations it
// contains, one per YAML document. Unknown fields are rejected.
func NewConfigsFromPath(path string) ([]*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)

	configs := make([]*Config, 0)
	for {
		config := new(Config)
		err := decoder.Decode(&config)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w %q: %w", ErrParsing, path, err)
		}

		// Skip empty documents.
		if config == nil {
			continue
		}
		configs = append(configs, config)
	}

	return configs, nil
}

// ApplyPath parses the file at path and applies every configuration document
// it contains, in order.
func ApplyPath(path string) error {
	configs, err := NewConfigsFromPath(path)
	if err != nil {
		return err
	}

	for _, config := range configs {
		if err := config.Apply(); err != nil {
			return err
		}
	}
	return nil
}

// Apply materializes the configuration: formatters first, then handlers, then
// loggers and finally the root logger.
func (c *Config) Apply() error {
	formatters, err := c.buildFormatters()
	if err != nil {
		return err
	}

	handlers, err := c.buildHandlers(formatters)
	if err != nil {
		return err
	}

	for name, loggerConfig := range c.Loggers {
		if name == "" {
			return fmt.Errorf("%w: logger with empty name", ErrInvalidConfig)
		}
		if err := applyLoggerConfig(molog.GetLogger(name), loggerConfig, handlers); err != nil {
			return err
		}
	}

	if c.Root != nil {
		if err := applyLoggerConfig(molog.GetLogger(""), *c.Root, handlers); err != nil {
			return err
		}
	}

	if c.DisableExistingLoggers {
		c.disableUnmentionedLoggers()
	}
	return nil
}

// buildFormatters materializes the formatter section.
func (c *Config) buildFormatters() (map[string]molog.Formatter, error) {
	formatters := map[string]molog.Formatter{}
	for name, formatterConfig := range c.Formatters {
		formatter, err := buildFormatter(formatterConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: formatter %q: %w", ErrInvalidConfig, name, err)
		}
		formatters[name] = formatter
	}
	return formatters, nil
}

func buildFormatter(config FormatterConfig) (molog.Formatter, error) {
	switch config.Kind {
	case KindJSON:
		return &molog.JSONFormatter{
			DateFormat: config.DateFormat,
			UTC:        config.UTC,
		}, nil
	case "", KindText:
		style := molog.StylePercent
		if config.Style != "" {
			parsed, err := molog.ParseStyle(config.Style)
			if err != nil {
				return nil, err
			}
			style = parsed
		}

		formatter, err := molog.NewTextFormatter(config.Format, style)
		if err != nil {
			return nil, err
		}
		formatter.SetDateFormat(config.DateFormat)
		formatter.SetUTC(config.UTC)
		formatter.SetDefaults(config.Defaults)
		return formatter, nil
	}
	return nil, fmt.Errorf("unknown formatter kind %q", config.Kind)
}

// buildHandlers materializes the handler section. Memory and async handlers
// reference other handlers as targets, so construction loops until every
// handler's dependencies are satisfied.
func (c *Config) buildHandlers(formatters map[string]molog.Formatter) (map[string]molog.Handler, error) {
	handlers := map[string]molog.Handler{}

	pending := map[string]HandlerConfig{}
	for name, handlerConfig := range c.Handlers {
		pending[name] = handlerConfig
	}

	for len(pending) > 0 {
		progressed := false
		for name, handlerConfig := range pending {
			target := molog.Handler(nil)
			if handlerConfig.Target != "" {
				if _, isHandler := c.Handlers[handlerConfig.Target]; !isHandler {
					return nil, fmt.Errorf("%w: handler %q: unknown target %q", ErrInvalidConfig, name, handlerConfig.Target)
				}
				built, ok := handlers[handlerConfig.Target]
				if !ok {
					continue // the target has not been built yet
				}
				target = built
			}

			handler, err := buildHandler(handlerConfig, target, formatters)
			if err != nil {
				return nil, fmt.Errorf("%w: handler %q: %w", ErrInvalidConfig, name, err)
			}
			if base, ok := handler.(interface{ SetName(name string) }); ok {
				base.SetName(name)
			}

			handlers[name] = handler
			delete(pending, name)
			progressed = true
		}

		if !progressed {
			remaining := make([]string, 0, len(pending))
			for name := range pending {
				remaining = append(remaining, name)
			}
			return nil, fmt.Errorf("%w: circular handler targets: %s", ErrInvalidConfig, strings.Join(remaining, ", "))
		}
	}

	return handlers, nil
}

func buildHandler(config HandlerConfig, target molog.Handler, formatters map[string]molog.Formatter) (molog.Handler, error) {
	var handler molog.Handler

	switch config.Kind {
	case KindStream, "":
		switch config.Output {
		case OutputStdout:
			handler = molog.NewStreamHandler(os.Stdout)
		case OutputStderr, "":
			handler = molog.NewStreamHandler(os.Stderr)
		default:
			return nil, fmt.Errorf("unknown output %q", config.Output)
		}
	case KindFile:
		if config.Path == "" {
			return nil, errors.New("missing path")
		}
		fileHandler, err := molog.NewFileHandler(config.Path, config.Truncate, config.Delay)
		if err != nil {
			return nil, err
		}
		handler = fileHandler
	case KindHTTP:
		httpHandler, err := molog.NewHTTPHandler(config.Endpoint, config.Token)
		if err != nil {
			return nil, err
		}
		if config.Timeout != "" {
			timeout, err := time.ParseDuration(config.Timeout)
			if err != nil {
				return nil, err
			}
			httpHandler.SetTimeout(timeout)
		}
		handler = httpHandler
	case KindMemory:
		triggerLevel := molog.ERROR
		if config.TriggerLevel != "" {
			parsed, err := molog.ParseLevel(config.TriggerLevel)
			if err != nil {
				return nil, err
			}
			triggerLevel = parsed
		}
		memoryHandler := molog.NewMemoryHandler(config.Capacity, triggerLevel, target)
		if config.FlushOnClose != nil {
			memoryHandler.SetFlushOnClose(*config.FlushOnClose)
		}
		handler = memoryHandler
	case KindAsync:
		if target == nil {
			return nil, errors.New("missing target")
		}
		handler = molog.NewAsyncHandler(target, config.QueueSize)
	case KindNull:
		handler = molog.NewNullHandler()
	default:
		return nil, fmt.Errorf("unknown handler kind %q", config.Kind)
	}

	if config.Level != "" {
		level, err := molog.ParseLevel(config.Level)
		if err != nil {
			return nil, err
		}
		handler.SetLevel(level)
	}

	if config.Formatter != "" {
		formatter, ok := formatters[config.Formatter]
		if !ok {
			return nil, fmt.Errorf("unknown formatter %q", config.Formatter)
		}
		handler.SetFormatter(formatter)
	}

	return handler, nil
}

// applyLoggerConfig configures a single logger. The configured handlers
// replace the ones currently attached.
func applyLoggerConfig(logger *molog.Logger, config LoggerConfig, handlers map[string]molog.Handler) error {
	if config.Level != "" {
		level, err := molog.ParseLevel(config.Level)
		if err != nil {
			return fmt.Errorf("%w: logger %q: %w", ErrInvalidConfig, logger.Name(), err)
		}
		logger.SetLevel(level)
	}
	if config.Propagate != nil {
		logger.SetPropagate(*config.Propagate)
	}

	if config.Handlers != nil {
		for _, attached := range logger.Handlers() {
			logger.RemoveHandler(attached)
		}
		for _, name := range config.Handlers {
			handler, ok := handlers[name]
			if !ok {
				return fmt.Errorf("%w: logger %q: unknown handler %q", ErrInvalidConfig, logger.Name(), name)
			}
			logger.AddHandler(handler)
		}
	}

	logger.SetDisabled(false)
	return nil
}

// disableUnmentionedLoggers turns off the materialized loggers that the
// configuration does not mention, keeping ancestors of mentioned loggers
// alive so propagation still works.
func (c *Config) disableUnmentionedLoggers() {
	for _, name := range molog.LoggerNames() {
		if _, mentioned := c.Loggers[name]; mentioned {
			continue
		}

		ancestor := false
		for mentioned := range c.Loggers {
			if strings.HasPrefix(mentioned, name+".") {
				ancestor = true
				break
			}
		}
		if !ancestor {
			molog.GetLogger(name).SetDisabled(true)
		}
	}
}
