package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Entry is one persisted log record. Entries are append-only and never read
// back by the server.
type Entry struct {
	Level     string
	Message   string
	Context   string
	Timestamp time.Time
}

// Sink stores log entries, typically in the logs table.
type Sink interface {
	Append(ctx context.Context, e Entry) error
}

const sinkTimeout = 2 * time.Second

// PersistentLogger forwards every call to an inner Logger and then appends
// the record to a Sink. Sink failures are reported on the inner logger and
// never surface to the caller.
type PersistentLogger struct {
	inner    Logger
	sink     Sink
	minLevel slog.Level
	attrs    []any
	now      func() time.Time
}

// NewPersistentLogger wraps inner. Records below minLevel are logged but not
// persisted.
func NewPersistentLogger(inner Logger, sink Sink, minLevel slog.Level) *PersistentLogger {
	return &PersistentLogger{inner: inner, sink: sink, minLevel: minLevel, now: time.Now}
}

func (p *PersistentLogger) Debug(ctx context.Context, msg string, args ...any) {
	p.inner.Debug(ctx, msg, args...)
	p.persist(ctx, slog.LevelDebug, msg, args)
}

func (p *PersistentLogger) Info(ctx context.Context, msg string, args ...any) {
	p.inner.Info(ctx, msg, args...)
	p.persist(ctx, slog.LevelInfo, msg, args)
}

func (p *PersistentLogger) Warn(ctx context.Context, msg string, args ...any) {
	p.inner.Warn(ctx, msg, args...)
	p.persist(ctx, slog.LevelWarn, msg, args)
}

func (p *PersistentLogger) Error(ctx context.Context, msg string, args ...any) {
	p.inner.Error(ctx, msg, args...)
	p.persist(ctx, slog.LevelError, msg, args)
}

func (p *PersistentLogger) With(args ...any) Logger {
	attrs := make([]any, 0, len(p.attrs)+len(args))
	attrs = append(attrs, p.attrs...)
	attrs = append(attrs, args...)
	return &PersistentLogger{
		inner:    p.inner.With(args...),
		sink:     p.sink,
		minLevel: p.minLevel,
		attrs:    attrs,
		now:      p.now,
	}
}

func (p *PersistentLogger) persist(ctx context.Context, level slog.Level, msg string, args []any) {
	if p.sink == nil || level < p.minLevel {
		return
	}

	// a cancelled request must not drop its audit trail
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	e := Entry{
		Level:     levelName(level),
		Message:   msg,
		Context:   renderContext(p.attrs, args),
		Timestamp: p.now().UTC(),
	}
	if err := p.sink.Append(ctx, e); err != nil {
		p.inner.Error(ctx, "failed to save log to database", "error", err.Error())
	}
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "log"
	default:
		return "debug"
	}
}

// renderContext flattens key/value pairs into a JSON object. An odd trailing
// value is stored under "!BADKEY", matching slog.
func renderContext(groups ...[]any) string {
	fields := map[string]any{}
	for _, kv := range groups {
		for i := 0; i < len(kv); i++ {
			if i+1 >= len(kv) {
				fields["!BADKEY"] = jsonValue(kv[i])
				break
			}
			fields[fmt.Sprint(kv[i])] = jsonValue(kv[i+1])
			i++
		}
	}
	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprint(fields)
	}
	return string(b)
}

func jsonValue(v any) any {
	switch val := v.(type) {
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	default:
		return v
	}
}
