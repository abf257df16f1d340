// Package logging is a deliberately small, framework-agnostic structured
// logger, used uniformly across the capture, IPC, supervision and DevTools
// layers so every error kind in the pipeline logs through the same shape.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Field is a key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// Logger is implemented by StdoutLogger and TestLogger. Keep it outside
// any single component so every layer can depend on the interface rather
// than a concrete implementation.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a child logger carrying additional persistent fields
	// (typically {"component": name}).
	With(fields ...Field) Logger
}

// StdoutLogger prints JSON lines to stdout. It is the default logger for
// both the host process and the forked debugger process.
type StdoutLogger struct {
	component string
	fields    []Field
}

// NewStdoutLogger creates a StdoutLogger. component is optional and is
// attached to every line emitted by this logger and its children.
func NewStdoutLogger(component string) *StdoutLogger {
	return &StdoutLogger{component: component}
}

func (s *StdoutLogger) log(level, msg string, fields ...Field) {
	type outEntry struct {
		Level     string         `json:"level"`
		Msg       string         `json:"msg"`
		Component string         `json:"component,omitempty"`
		Time      string         `json:"time"`
		Fields    map[string]any `json:"fields,omitempty"`
	}

	m := make(map[string]any, len(s.fields)+len(fields))
	for _, f := range s.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}

	entry := outEntry{
		Level:     level,
		Msg:       msg,
		Component: s.component,
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Fields:    m,
	}

	enc, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(os.Stdout, "%s %s %v\n", level, msg, m)
		return
	}
	fmt.Fprintln(os.Stdout, string(enc))
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) { s.log("debug", msg, fields...) }
func (s *StdoutLogger) Info(msg string, fields ...Field)  { s.log("info", msg, fields...) }
func (s *StdoutLogger) Warn(msg string, fields ...Field)  { s.log("warn", msg, fields...) }
func (s *StdoutLogger) Error(msg string, fields ...Field) { s.log("error", msg, fields...) }

func (s *StdoutLogger) With(fields ...Field) Logger {
	child := &StdoutLogger{component: s.component}
	child.fields = append(append([]Field{}, s.fields...), fields...)
	for _, f := range fields {
		if f.Key == "component" {
			if str, ok := f.Value.(string); ok {
				child.component = str
			}
		}
	}
	return child
}

// TestLogger writes to stdout unconditionally for warnings/errors, and only
// when verbose for debug/info. Use it in tests that want to inspect output
// by eye rather than by assertion.
type TestLogger struct {
	verbose bool
}

// NewTestLogger creates a test logger.
func NewTestLogger(verbose bool) *TestLogger {
	return &TestLogger{verbose: verbose}
}

func (t *TestLogger) Debug(msg string, fields ...Field) {
	if t.verbose {
		fmt.Printf("[DEBUG] %s %v\n", msg, fields)
	}
}

func (t *TestLogger) Info(msg string, fields ...Field) {
	if t.verbose {
		fmt.Printf("[INFO] %s %v\n", msg, fields)
	}
}

func (t *TestLogger) Warn(msg string, fields ...Field)  { fmt.Printf("[WARN] %s %v\n", msg, fields) }
func (t *TestLogger) Error(msg string, fields ...Field) { fmt.Printf("[ERROR] %s %v\n", msg, fields) }

func (t *TestLogger) With(fields ...Field) Logger { return t }
