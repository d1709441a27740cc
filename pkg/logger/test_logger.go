package logger

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog"
)

// LogMessage is one event recorded by a TestLogger
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   string
}

type recording struct {
	mu     sync.Mutex
	events []LogMessage
}

// TestLogger records events in memory for assertions. Loggers derived with
// WithField, WithFields or WithError append to the same recording.
type TestLogger struct {
	rec    *recording
	fields map[string]interface{}
	err    string
}

// NewTestLogger returns an empty recorder
func NewTestLogger() *TestLogger {
	return &TestLogger{rec: &recording{}}
}

func (l *TestLogger) derive(extra map[string]interface{}, err string) *TestLogger {
	return &TestLogger{rec: l.rec, fields: l.with(extra), err: err}
}

func (l *TestLogger) with(extra map[string]interface{}) map[string]interface{} {
	out := maps.Clone(l.fields)
	if out == nil {
		out = make(map[string]interface{}, len(extra))
	}
	maps.Copy(out, extra)
	return out
}

func (l *TestLogger) record(level, msg string, fields map[string]interface{}) {
	ev := LogMessage{Level: level, Message: msg, Fields: l.with(fields), Error: l.err}
	l.rec.mu.Lock()
	l.rec.events = append(l.rec.events, ev)
	l.rec.mu.Unlock()
}

func (l *TestLogger) Debug(msg string) { l.record("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.record("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.record("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.record("ERROR", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, f map[string]interface{}) { l.record("DEBUG", msg, f) }
func (l *TestLogger) InfoWithFields(msg string, f map[string]interface{})  { l.record("INFO", msg, f) }
func (l *TestLogger) WarnWithFields(msg string, f map[string]interface{})  { l.record("WARN", msg, f) }
func (l *TestLogger) ErrorWithFields(msg string, f map[string]interface{}) { l.record("ERROR", msg, f) }

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.derive(map[string]interface{}{key: value}, l.err)
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	return l.derive(fields, l.err)
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.derive(nil, err.Error())
}

func (l *TestLogger) WithContext(context.Context) Logger { return l }

func (l *TestLogger) GetZerolog() *zerolog.Logger {
	zl := zerolog.Nop()
	return &zl
}

// GetMessages returns a snapshot of everything recorded so far
func (l *TestLogger) GetMessages() []LogMessage {
	l.rec.mu.Lock()
	defer l.rec.mu.Unlock()
	return slices.Clone(l.rec.events)
}

func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var out []LogMessage
	for _, m := range l.GetMessages() {
		if m.Level == level {
			out = append(out, m)
		}
	}
	return out
}

func (l *TestLogger) HasMessage(text string) bool {
	return slices.ContainsFunc(l.GetMessages(), func(m LogMessage) bool { return m.Message == text })
}

func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear forgets every recorded event
func (l *TestLogger) Clear() {
	l.rec.mu.Lock()
	l.rec.events = nil
	l.rec.mu.Unlock()
}
