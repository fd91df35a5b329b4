package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// Publisher is the side of the bus domain services depend on.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus is an in-process fan-out of gate pass lifecycle events.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
	inflight sync.WaitGroup
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	eb.logger.Debug("event handler registered",
		"event_type", eventType,
		"total_handlers", len(eb.handlers[eventType]))
}

// SubscribeAll registers one handler for several event types.
func (eb *EventBus) SubscribeAll(eventTypes []string, handler Handler) {
	for _, t := range eventTypes {
		eb.Subscribe(t, handler)
	}
}

// Publish runs every handler in its own goroutine. Handlers get a context detached
// from the caller's cancellation because the publishing request usually ends first.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	handlers := eb.handlersFor(event, "publishing event")
	if len(handlers) == 0 {
		return nil
	}

	hctx := context.WithoutCancel(ctx)
	for _, handler := range handlers {
		eb.inflight.Add(1)
		go func(h Handler) {
			defer eb.inflight.Done()
			if err := eb.run(hctx, h, event); err != nil {
				eb.logger.Error("event handler failed",
					"event_type", event.EventType(),
					"event_id", event.EventID(),
					"error", err)
			}
		}(handler)
	}

	return nil
}

// PublishSync stops at the first failing handler.
func (eb *EventBus) PublishSync(ctx context.Context, event Event) error {
	for _, h := range eb.handlersFor(event, "publishing event synchronously") {
		if err := eb.run(ctx, h, event); err != nil {
			eb.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err)
			return fmt.Errorf("handler failed for event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// Wait blocks until all handlers started by Publish have returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}

func (eb *EventBus) handlersFor(event Event, msg string) []Handler {
	eb.mu.RLock()
	handlers := eb.handlers[event.EventType()]
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		eb.logger.Debug("no handlers for event type", "event_type", event.EventType())
		return nil
	}
	eb.logger.Info(msg,
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"handlers_count", len(handlers))
	return handlers
}

// run turns a handler panic into an error so one bad subscriber cannot take the process down.
func (eb *EventBus) run(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, event)
}
