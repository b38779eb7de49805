package logging

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string         `json:"message"`
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"` // "debug", "info", "warn", "error"
	Logger    string         `json:"logger,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// consoleCore is a zapcore.Core that forwards entries to a console channel
type consoleCore struct {
	zapcore.LevelEnabler
	fields      []zapcore.Field
	consoleChan chan<- ConsoleMessage
}

// NewConsoleCore creates a core that sends every enabled entry to consoleChan.
// Sends never block; entries are dropped while the channel is full.
func NewConsoleCore(enab zapcore.LevelEnabler, consoleChan chan<- ConsoleMessage) zapcore.Core {
	return &consoleCore{LevelEnabler: enab, consoleChan: consoleChan}
}

func (c *consoleCore) With(fields []zapcore.Field) zapcore.Core {
	clone := *c
	clone.fields = append(append([]zapcore.Field(nil), c.fields...), fields...)
	return &clone
}

func (c *consoleCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *consoleCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if c.consoleChan == nil {
		return nil
	}

	msg := ConsoleMessage{
		Message:   ent.Message,
		Timestamp: ent.Time,
		Level:     ent.Level.String(),
		Logger:    ent.LoggerName,
	}
	if len(c.fields)+len(fields) > 0 {
		enc := zapcore.NewMapObjectEncoder()
		for _, f := range c.fields {
			f.AddTo(enc)
		}
		for _, f := range fields {
			f.AddTo(enc)
		}
		msg.Fields = enc.Fields
	}

	select {
	case c.consoleChan <- msg:
	default:
		// Channel full, skip (don't block)
	}
	return nil
}

func (c *consoleCore) Sync() error {
	return nil
}
