// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Formatter converts a Record to text. Formatters are responsible for turning
// a record into a string which can be interpreted by either a human or an
// external system.
type Formatter interface {
	Format(record *Record) (string, error)
}

// Style selects the placeholder syntax understood by TextFormatter.
type Style int

const (
	// StylePercent uses "%(field)s" placeholders, with an optional printf verb
	// in place of the trailing "s".
	StylePercent Style = iota
	// StyleBrace uses "{field}" placeholders.
	StyleBrace
)

// ParseStyle converts a style name ("percent" or "brace") to a Style.
func ParseStyle(name string) (Style, error) {
	switch strings.ToLower(name) {
	case "percent", "%":
		return StylePercent, nil
	case "brace", "{":
		return StyleBrace, nil
	}
	return StylePercent, fmt.Errorf("%w: %q", ErrInvalidFormat, name)
}

const (
	// BasicFormat is the pattern installed by BasicConfig when none is given.
	BasicFormat      = "%(levelname)s:%(name)s:%(message)s"
	braceBasicFormat = "{levelname}:{name}:{message}"

	// defaultTimeFormat renders "2006-01-02 15:04:05,123", an ISO8601-like
	// layout with a comma-separated millisecond suffix.
	defaultTimeFormat = "2006-01-02 15:04:05,000"
)

var (
	// ErrInvalidFormat reports a pattern that cannot be compiled.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrMissingField reports a pattern field that is present neither on the
	// record nor in the formatter defaults.
	ErrMissingField = errors.New("formatting field not found in record")
)

var (
	percentPattern = regexp.MustCompile(`%\((\w+)\)([#0+ -]*(?:\d+)?(?:\.\d+)?[sdfxXeEgGqv])|%%`)
	bracePattern   = regexp.MustCompile(`\{(\w+)\}`)
)

// segment is a compiled piece of a pattern: either a literal or a field
// reference with its printf verb.
type segment struct {
	literal string
	field   string
	verb    string
}

// TextFormatter renders records with a placeholder pattern. The zero value is
// not usable; construct instances with NewTextFormatter.
type TextFormatter struct {
	format     string
	dateFormat string
	style      Style
	utc        bool
	defaults   map[string]any
	segments   []segment
	usesTime   bool
}

// NewTextFormatter compiles format, which must contain at least one field
// placeholder in the given style. An empty format selects the style default,
// which renders only the record message.
func NewTextFormatter(format string, style Style) (*TextFormatter, error) {
	if format == "" {
		switch style {
		case StyleBrace:
			format = "{message}"
		default:
			format = "%(message)s"
		}
	}

	f := &TextFormatter{
		format:     format,
		dateFormat: defaultTimeFormat,
		style:      style,
	}
	if err := f.compile(); err != nil {
		return nil, err
	}
	return f, nil
}

// mustTextFormatter is the package-internal constructor for trusted patterns.
func mustTextFormatter(format string, style Style) *TextFormatter {
	f, err := NewTextFormatter(format, style)
	if err != nil {
		panic(err)
	}
	return f
}

// SetDateFormat overrides the layout used to render the "asctime" field.
func (f *TextFormatter) SetDateFormat(layout string) {
	if layout != "" {
		f.dateFormat = layout
	}
}

// SetUTC makes the formatter render times in UTC instead of local time.
func (f *TextFormatter) SetUTC(utc bool) {
	f.utc = utc
}

// SetDefaults installs fallback values for pattern fields that records may
// not carry.
func (f *TextFormatter) SetDefaults(defaults map[string]any) {
	f.defaults = defaults
}

// compile splits the pattern into literal and field segments.
func (f *TextFormatter) compile() error {
	pattern := percentPattern
	if f.style == StyleBrace {
		pattern = bracePattern
	}

	matches := pattern.FindAllStringSubmatchIndex(f.format, -1)
	fields := 0
	last := 0
	for _, m := range matches {
		if literal := f.format[last:m[0]]; literal != "" {
			f.segments = append(f.segments, segment{literal: literal})
		}
		last = m[1]

		// An unsubmatched group means the "%%" escape was matched.
		if m[2] < 0 {
			f.segments = append(f.segments, segment{literal: "%"})
			continue
		}

		seg := segment{field: f.format[m[2]:m[3]], verb: "s"}
		if f.style == StylePercent {
			seg.verb = f.format[m[4]:m[5]]
		}
		if seg.field == "asctime" {
			f.usesTime = true
		}
		f.segments = append(f.segments, seg)
		fields++
	}
	if literal := f.format[last:]; literal != "" {
		f.segments = append(f.segments, segment{literal: literal})
	}

	if fields == 0 {
		return fmt.Errorf("%w: no fields in %q", ErrInvalidFormat, f.format)
	}
	return nil
}

// Format implements Formatter.
func (f *TextFormatter) Format(record *Record) (string, error) {
	asctime := ""
	if f.usesTime {
		asctime = f.formatTime(record)
	}

	builder := new(strings.Builder)
	for _, seg := range f.segments {
		if seg.field == "" {
			builder.WriteString(seg.literal)
			continue
		}

		value, ok := f.fieldValue(record, seg.field, asctime)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrMissingField, seg.field)
		}

		// Patterns ported from string-based templates use the s verb for any
		// field; render non-string values through their default format.
		verb := seg.verb
		if verb == "s" {
			if _, isString := value.(string); !isString {
				verb = "v"
			}
		}
		fmt.Fprintf(builder, "%"+verb, value)
	}

	out := builder.String()
	if record.Err != nil {
		out = appendBlock(out, record.Err.Error())
	}
	if record.Stack != "" {
		out = appendBlock(out, record.Stack)
	}
	return out, nil
}

// formatTime renders the record creation time with the configured layout.
func (f *TextFormatter) formatTime(record *Record) string {
	t := record.Time
	if f.utc {
		t = t.UTC()
	}
	return t.Format(f.dateFormat)
}

// fieldValue resolves a pattern field against the record, its extras and the
// formatter defaults, in that order of precedence.
func (f *TextFormatter) fieldValue(record *Record, name, asctime string) (any, bool) {
	switch name {
	case "name":
		return record.LoggerName, true
	case "levelno":
		return int(record.Level), true
	case "levelname":
		return record.LevelName, true
	case "message":
		return record.Message(), true
	case "asctime":
		return asctime, true
	case "pathname":
		return record.PathName, true
	case "filename":
		return record.FileName, true
	case "module":
		return record.Module, true
	case "lineno":
		return record.Line, true
	case "funcName":
		return record.FuncName, true
	case "created":
		return float64(record.Time.UnixNano()) / 1e9, true
	case "msecs":
		return record.Time.Nanosecond() / 1e6, true
	case "relativeCreated":
		return float64(record.RelativeCreated.Microseconds()) / 1e3, true
	case "process":
		return record.PID, true
	}

	if value, ok := record.Extra[name]; ok {
		return value, true
	}
	if value, ok := f.defaults[name]; ok {
		return value, true
	}
	return nil, false
}

// appendBlock appends a multi-line block after the message, separated by a
// single newline.
func appendBlock(s, block string) string {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	return s + block
}

// JSONFormatter renders records as single-line JSON objects, suitable for log
// aggregation systems.
type JSONFormatter struct {
	// DateFormat is the layout used for the time field; RFC3339Nano when empty.
	DateFormat string
	// UTC renders the time field in UTC.
	UTC bool
}

// jsonRecord fixes the field order of the marshaled payload.
type jsonRecord struct {
	Level   string         `json:"level"`
	Logger  string         `json:"logger"`
	Message string         `json:"message"`
	Time    string         `json:"time"`
	Caller  string         `json:"caller,omitempty"`
	Error   string         `json:"error,omitempty"`
	Stack   string         `json:"stack,omitempty"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// Format implements Formatter.
func (f *JSONFormatter) Format(record *Record) (string, error) {
	layout := f.DateFormat
	if layout == "" {
		layout = time.RFC3339Nano
	}
	t := record.Time
	if f.UTC {
		t = t.UTC()
	}

	payload := jsonRecord{
		Level:   record.LevelName,
		Logger:  record.LoggerName,
		Message: record.Message(),
		Time:    t.Format(layout),
		Stack:   record.Stack,
		Extra:   record.Extra,
	}
	if record.FileName != "" {
		payload.Caller = record.FileName + ":" + strconv.Itoa(record.Line)
	}
	if record.Err != nil {
		payload.Error = record.Err.Error()
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

// BufferingFormatter formats a batch of records, optionally bracketing them
// with a header and a footer.
type BufferingFormatter struct {
	// Line formats each individual record; the package default formatter is
	// used when nil.
	Line Formatter
	// Header and Footer receive the whole batch and contribute surrounding
	// text when set.
	Header func(records []*Record) string
	Footer func(records []*Record) string
}

// FormatBatch renders all the records joined by newlines.
func (f *BufferingFormatter) FormatBatch(records []*Record) (string, error) {
	if len(records) == 0 {
		return "", nil
	}

	line := f.Line
	if line == nil {
		line = defaultFormatter
	}

	builder := new(strings.Builder)
	if f.Header != nil {
		builder.WriteString(f.Header(records))
	}
	for i, record := range records {
		formatted, err := line.Format(record)
		if err != nil {
			return "", err
		}
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(formatted)
	}
	if f.Footer != nil {
		builder.WriteString(f.Footer(records))
	}
	return builder.String(), nil
}

// defaultFormatter renders only the record message. It is used by handlers
// with no formatter assigned.
var defaultFormatter Formatter = mustTextFormatter("", StylePercent)
