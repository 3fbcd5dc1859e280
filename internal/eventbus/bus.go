// Package eventbus is the in-process, after-commit event publisher.
// Events are collected during a unit of work and dispatched only once
// the enclosing transaction commits (spec.md §4.5); a rollback discards
// them. Listeners run on their own goroutine, never on the publishing
// goroutine, matching the teacher's Consolidator/Reconnector convention
// of never blocking the caller on background work.
package eventbus

import (
	"context"
	"log/slog"
	"sync"
)

// Handler processes one dispatched event. Handlers are expected to
// isolate their own failures; the bus does not retry them.
type Handler func(ctx context.Context, evt Event)

// Bus is a typed, in-process publisher. It is safe for concurrent use.
type Bus struct {
	log      *slog.Logger
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// New creates an empty Bus.
func New(log *slog.Logger) *Bus {
	if log == nil {
		log = slog.Default()
	}
	return &Bus{log: log, handlers: make(map[string][]Handler)}
}

// Subscribe registers handler to run, on its own goroutine, every time
// an event of the same concrete type as sample is dispatched.
func Subscribe[T Event](b *Bus, handler func(ctx context.Context, evt T)) {
	var sample T
	name := sample.eventName()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], func(ctx context.Context, evt Event) {
		typed, ok := evt.(T)
		if !ok {
			return
		}
		handler(ctx, typed)
	})
}

// Dispatch runs every handler registered for evt's type on its own
// goroutine. Call this only after the transaction that produced evt has
// committed.
func (b *Bus) Dispatch(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := b.handlers[evt.eventName()]
	b.mu.RUnlock()
	for _, h := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					b.log.Error("eventbus: handler panicked", "event", evt.eventName(), "panic", r)
				}
			}()
			h(ctx, evt)
		}(h)
	}
}
