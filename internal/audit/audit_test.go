package audit

import (
	"context"
	"errors"
	"testing"
)

type captureSink struct {
	events []Event
	err    error
}

func (s *captureSink) Emit(ctx context.Context, event Event) error {
	s.events = append(s.events, event)
	return s.err
}

func TestRecorderFansOut(t *testing.T) {
	first := &captureSink{}
	second := &captureSink{}
	rec := NewRecorder(nil, first, second)

	rec.Info(context.Background(), "user.create", map[string]any{"email": "a@example.com"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("expected both sinks to receive the event, got %d/%d", len(first.events), len(second.events))
	}
	event := first.events[0]
	if event.Level != LevelInfo {
		t.Fatalf("expected info level, got %s", event.Level)
	}
	if event.Fields["email"] != "a@example.com" {
		t.Fatalf("unexpected fields: %v", event.Fields)
	}
	if event.At.IsZero() {
		t.Fatal("expected event timestamp to be set")
	}
}

func TestRecorderSwallowsSinkFailures(t *testing.T) {
	failing := &captureSink{err: errors.New("sink down")}
	healthy := &captureSink{}
	rec := NewRecorder(nil, failing, healthy)

	// Must not panic or propagate; the healthy sink still receives the event.
	rec.Warning(context.Background(), "user.delete.pending", nil)
	rec.Error(context.Background(), "user.delete.failed", nil)

	if len(healthy.events) != 2 {
		t.Fatalf("expected 2 events on healthy sink, got %d", len(healthy.events))
	}
	if healthy.events[0].Level != LevelWarning || healthy.events[1].Level != LevelError {
		t.Fatalf("unexpected levels: %s, %s", healthy.events[0].Level, healthy.events[1].Level)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder
	rec.Info(context.Background(), "noop", nil)
}
