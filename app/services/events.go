package services

import (
	"context"
	"log"
	"sync"

	"YellowbellPOS/app/models"
)

// EventSink receives committed events. Publish must not block the caller;
// sinks that do I/O hand the event off to their own goroutine or queue.
type EventSink interface {
	Publish(ctx context.Context, evt models.Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(ctx context.Context, evt models.Event)

func (f EventSinkFunc) Publish(ctx context.Context, evt models.Event) {
	f(ctx, evt)
}

// EventBus fans committed events out to its subscribers
type EventBus struct {
	mu    sync.RWMutex
	sinks []EventSink
}

// NewEventBus creates an event bus with the given initial subscribers
func NewEventBus(sinks ...EventSink) *EventBus {
	return &EventBus{sinks: sinks}
}

// Subscribe adds a sink
func (b *EventBus) Subscribe(sink EventSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Publish delivers evt to every sink. A panicking sink is logged and skipped.
func (b *EventBus) Publish(ctx context.Context, evt models.Event) {
	b.mu.RLock()
	sinks := make([]EventSink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, sink := range sinks {
		deliver(ctx, sink, evt)
	}
}

func deliver(ctx context.Context, sink EventSink, evt models.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("⚠️ Event sink panicked on %s: %v", evt.Type, r)
		}
	}()
	sink.Publish(ctx, evt)
}
