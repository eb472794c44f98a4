package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes audit events through a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink builds a SlogSink. A nil logger falls back to slog.Default.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Emit logs the event with its fields as structured attributes.
func (s *SlogSink) Emit(ctx context.Context, event Event) error {
	attrs := make([]any, 0, len(event.Fields)+1)
	attrs = append(attrs, slog.String("audit", "true"))
	for key, value := range event.Fields {
		attrs = append(attrs, slog.Any(key, value))
	}
	switch event.Level {
	case LevelWarning:
		s.logger.WarnContext(ctx, event.Message, attrs...)
	case LevelError:
		s.logger.ErrorContext(ctx, event.Message, attrs...)
	default:
		s.logger.InfoContext(ctx, event.Message, attrs...)
	}
	return nil
}
