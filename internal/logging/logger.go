// Package logging provides the leveled, optionally-JSON structured
// logger shared by the CLI, the HTTP server, and the engine components
// that report per-request failures.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Level represents the severity level of a log message
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Context provides correlation fields for log messages
type Context struct {
	JobID         string
	RunID         string
	Model         string
	Operation     string
	SequenceIndex int
}

// Logger provides structured logging with proper output streams
type Logger struct {
	debug  *log.Logger
	info   *log.Logger
	warn   *log.Logger
	error  *log.Logger
	fatal  *log.Logger
	asJSON bool
}

// jsonEntry represents a structured log entry for JSON-lines output
type jsonEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Context   *Context               `json:"context,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// New creates a new structured logger. JSON-lines output is selected
// when LOG_FORMAT=json or when running under a container platform that
// sets VCAP_APPLICATION.
func New() *Logger {
	asJSON := os.Getenv("LOG_FORMAT") == "json" || os.Getenv("VCAP_APPLICATION") != ""

	// Normal logs (DEBUG, INFO, WARN) go to stdout, errors to stderr.
	stdout := os.Stdout
	stderr := os.Stderr

	return &Logger{
		debug:  log.New(stdout, "[DEBUG] ", log.LstdFlags),
		info:   log.New(stdout, "[INFO]  ", log.LstdFlags),
		warn:   log.New(stdout, "[WARN]  ", log.LstdFlags),
		error:  log.New(stderr, "[ERROR] ", log.LstdFlags),
		fatal:  log.New(stderr, "[FATAL] ", log.LstdFlags),
		asJSON: asJSON,
	}
}

// Discard returns a logger whose output goes nowhere, for tests.
func Discard() *Logger {
	sink := log.New(io.Discard, "", 0)
	return &Logger{debug: sink, info: sink, warn: sink, error: sink, fatal: sink}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(DEBUG, format, nil, nil, v...)
	} else {
		l.debug.Printf(format, v...)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(INFO, format, nil, nil, v...)
	} else {
		l.info.Printf(format, v...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(WARN, format, nil, nil, v...)
	} else {
		l.warn.Printf(format, v...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(ERROR, format, nil, nil, v...)
	} else {
		l.error.Printf(format, v...)
	}
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(FATAL, format, nil, nil, v...)
	} else {
		l.fatal.Printf(format, v...)
	}
	os.Exit(1)
}

// InfoWithContext logs an info message with correlation context
func (l *Logger) InfoWithContext(ctx *Context, format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(INFO, format, ctx, nil, v...)
	} else {
		l.info.Printf(l.formatContext(ctx)+format, v...)
	}
}

// WarnWithContext logs a warning message with correlation context
func (l *Logger) WarnWithContext(ctx *Context, format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(WARN, format, ctx, nil, v...)
	} else {
		l.warn.Printf(l.formatContext(ctx)+format, v...)
	}
}

// ErrorWithContext logs an error message with correlation context
func (l *Logger) ErrorWithContext(ctx *Context, format string, v ...interface{}) {
	if l.asJSON {
		l.logJSON(ERROR, format, ctx, nil, v...)
	} else {
		l.error.Printf(l.formatContext(ctx)+format, v...)
	}
}

// InfoWithFields logs an info message with structured fields
func (l *Logger) InfoWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	if l.asJSON {
		l.logJSON(INFO, format, nil, fields, v...)
	} else {
		l.info.Printf(format+l.formatFields(fields), v...)
	}
}

// WarnWithFields logs a warning message with structured fields
func (l *Logger) WarnWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	if l.asJSON {
		l.logJSON(WARN, format, nil, fields, v...)
	} else {
		l.warn.Printf(format+l.formatFields(fields), v...)
	}
}

// ErrorWithFields logs an error message with structured fields
func (l *Logger) ErrorWithFields(format string, fields map[string]interface{}, v ...interface{}) {
	if l.asJSON {
		l.logJSON(ERROR, format, nil, fields, v...)
	} else {
		l.error.Printf(format+l.formatFields(fields), v...)
	}
}

// logJSON logs a structured JSON-lines message
func (l *Logger) logJSON(level Level, format string, ctx *Context, fields map[string]interface{}, v ...interface{}) {
	message := format
	if len(v) > 0 {
		message = fmt.Sprintf(format, v...)
	}

	entry := jsonEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Message:   message,
		Context:   ctx,
		Fields:    fields,
	}

	var output io.Writer
	if level >= ERROR {
		output = os.Stderr
	} else {
		output = os.Stdout
	}

	encoder := json.NewEncoder(output)
	encoder.SetEscapeHTML(false)
	encoder.Encode(entry)
}

// formatContext formats context for human-readable logs
func (l *Logger) formatContext(ctx *Context) string {
	if ctx == nil {
		return ""
	}

	out := ""
	if ctx.JobID != "" {
		out += fmt.Sprintf("[Job:%s] ", ctx.JobID)
	}
	if ctx.RunID != "" {
		out += fmt.Sprintf("[Run:%s] ", ctx.RunID)
	}
	if ctx.Model != "" {
		out += fmt.Sprintf("[Model:%s] ", ctx.Model)
	}
	if ctx.Operation != "" {
		out += fmt.Sprintf("[Op:%s] ", ctx.Operation)
	}
	return out
}

// formatFields formats structured fields for human-readable logs
func (l *Logger) formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}

	fieldStr := " |"
	for k, v := range fields {
		fieldStr += fmt.Sprintf(" %s=%v", k, v)
	}
	return fieldStr
}
