// Package audit records structured events for administrative actions.
// Emission is fire-and-forget: sink failures are logged, never propagated,
// so a broken audit sink cannot fail or block the primary operation.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Level classifies the severity of an audit event.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a structured record of an administrative action.
type Event struct {
	Level   Level
	Message string
	Fields  map[string]any
	At      time.Time
}

// Sink receives audit events. Implementations may persist, forward, or log
// them; the return value is only consulted for operator logging.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// Recorder fans events out to the configured sinks.
type Recorder struct {
	logger *slog.Logger
	sinks  []Sink
}

// NewRecorder builds a Recorder. A nil logger falls back to slog.Default.
func NewRecorder(logger *slog.Logger, sinks ...Sink) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{logger: logger, sinks: sinks}
}

// Record emits the event to every sink. Failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, level Level, message string, fields map[string]any) {
	if r == nil {
		return
	}
	event := Event{Level: level, Message: message, Fields: fields, At: time.Now().UTC()}
	for _, sink := range r.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			r.logger.Error("audit emit failed",
				slog.String("message", message),
				slog.Any("error", err))
		}
	}
}

// Info records an informational event.
func (r *Recorder) Info(ctx context.Context, message string, fields map[string]any) {
	r.Record(ctx, LevelInfo, message, fields)
}

// Warning records a warning event, used before destructive operations.
func (r *Recorder) Warning(ctx context.Context, message string, fields map[string]any) {
	r.Record(ctx, LevelWarning, message, fields)
}

// Error records a failure event.
func (r *Recorder) Error(ctx context.Context, message string, fields map[string]any) {
	r.Record(ctx, LevelError, message, fields)
}
