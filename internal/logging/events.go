package logging

import (
	"context"
	"log/slog"

	"github.com/LathasriQuadrant/tableau-datasets-backend/internal/extract"
)

// EventLogger writes extraction events as structured log records.
type EventLogger struct {
	logger *slog.Logger
}

var _ extract.Observer = (*EventLogger)(nil)

// NewEventLogger returns an observer logging through logger. A nil logger
// uses the request-scoped logger of each event's context.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Observe logs ev. Table-level steps go to debug; exports, failures and
// run summaries are logged at info or above.
func (l *EventLogger) Observe(ctx context.Context, ev extract.Event) {
	logger := l.logger
	if logger == nil {
		logger = FromContext(ctx)
	}

	attrs := []any{"event", string(ev.Kind)}
	if ev.Workbook != "" {
		attrs = append(attrs, "workbook", ev.Workbook)
	}
	if ev.Schema != "" {
		attrs = append(attrs, "schema", ev.Schema)
	}
	if ev.Table != "" {
		attrs = append(attrs, "table", ev.Table)
	}
	if ev.File != "" {
		attrs = append(attrs, "file", ev.File)
	}

	switch ev.Kind {
	case extract.EventStart:
		logger.InfoContext(ctx, "extraction started", attrs...)
	case extract.EventSchema:
		logger.DebugContext(ctx, "schema found", append(attrs, "tables", ev.Tables)...)
	case extract.EventTable:
		logger.DebugContext(ctx, "table found", attrs...)
	case extract.EventSkip:
		logger.DebugContext(ctx, "table skipped", attrs...)
	case extract.EventExport:
		logger.InfoContext(ctx, "table exported",
			append(attrs, "rows", ev.Rows, "duration_ms", ev.Duration.Milliseconds())...)
	case extract.EventError:
		logger.ErrorContext(ctx, "extraction step failed", append(attrs, "error", ev.Err)...)
	case extract.EventDone:
		logger.InfoContext(ctx, "extraction finished",
			append(attrs, "tables", ev.Tables, "exported", ev.Exported, "duration_ms", ev.Duration.Milliseconds())...)
	default:
		logger.DebugContext(ctx, "extraction event", attrs...)
	}
}
