package extract

import (
	"context"
	"time"
)

// EventKind names a step of an extraction run.
type EventKind string

const (
	EventStart  EventKind = "start"
	EventSchema EventKind = "schema"
	EventTable  EventKind = "table"
	EventExport EventKind = "export"
	EventSkip   EventKind = "skip"
	EventError  EventKind = "error"
	EventDone   EventKind = "done"
)

// Event describes progress of an extraction run.
type Event struct {
	Kind     EventKind
	Workbook string
	Schema   string
	Table    string
	File     string
	Rows     int
	Tables   int
	Exported int
	Duration time.Duration
	Err      error
}

// Observer receives extraction events. Implementations must not block for long.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}
