package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flashcards-client/internal/shared/logger"
)

// Event types published inside the client.
const (
	// EventTypeAuthorizationDenied is published by the API client whenever a response
	// carries 401, regardless of which screen issued the request.
	EventTypeAuthorizationDenied = "http.authorization_denied"
	// EventTypeSessionStateChanged is published after every committed session transition.
	EventTypeSessionStateChanged = "session.state_changed"
	// EventTypeNotice carries a user-visible notice (toast).
	EventTypeNotice = "ui.notice"
)

// Event represents a generic event
type Event interface {
	Type() string
	Data() interface{}
	Timestamp() time.Time
	Source() string
}

// Handler defines the event handler function type
type Handler func(ctx context.Context, event Event) error

// Subscription identifies a single registered handler.
type Subscription struct {
	eventType string
	id        uint64
}

// EventBusInterface defines the contract for event bus implementations
type EventBusInterface interface {
	Subscribe(eventType string, handler Handler) Subscription
	Cancel(sub Subscription)
	Publish(ctx context.Context, event Event) error
	PublishAndForget(ctx context.Context, event Event)
	Unsubscribe(eventType string)
	GetSubscriberCount(eventType string) int
}

type registration struct {
	id      uint64
	handler Handler
}

// EventBus is an in-memory event bus. Handlers of one event run in subscription order
// unless AsyncProcessing is set.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]registration
	nextID   uint64
	logger   logger.Logger
	config   BusConfig
}

// BusConfig holds configuration for the event bus
type BusConfig struct {
	AsyncProcessing bool
	MaxRetries      int
	RetryDelay      time.Duration
}

// DefaultBusConfig returns default configuration. Session handlers are not idempotent
// notices, so failed handlers are not retried by default.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		AsyncProcessing: false,
		MaxRetries:      0,
		RetryDelay:      100 * time.Millisecond,
	}
}

// NewEventBus creates a new event bus instance
func NewEventBus(log logger.Logger) *EventBus {
	return NewEventBusWithConfig(log, DefaultBusConfig())
}

// NewEventBusWithConfig creates a new event bus with custom configuration
func NewEventBusWithConfig(log logger.Logger, config BusConfig) *EventBus {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &EventBus{
		handlers: make(map[string][]registration),
		logger:   log,
		config:   config,
	}
}

// Subscribe adds a handler for a specific event type
func (eb *EventBus) Subscribe(eventType string, handler Handler) Subscription {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	eb.handlers[eventType] = append(eb.handlers[eventType], registration{id: eb.nextID, handler: handler})
	eb.logger.Debugf("Subscribed handler for event type: %s", eventType)
	return Subscription{eventType: eventType, id: eb.nextID}
}

// Cancel removes the single handler behind sub. Cancelling twice is a no-op.
func (eb *EventBus) Cancel(sub Subscription) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	regs := eb.handlers[sub.eventType]
	for i, reg := range regs {
		if reg.id == sub.id {
			eb.handlers[sub.eventType] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(eb.handlers[sub.eventType]) == 0 {
		delete(eb.handlers, sub.eventType)
	}
}

// Publish sends an event to all registered handlers
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	eb.mu.RLock()
	regs := append([]registration(nil), eb.handlers[event.Type()]...)
	eb.mu.RUnlock()

	if len(regs) == 0 {
		eb.logger.Debugf("No handlers found for event type: %s", event.Type())
		return nil
	}

	eb.logger.Debugf("Publishing event type: %s to %d handlers", event.Type(), len(regs))

	if eb.config.AsyncProcessing {
		return eb.publishAsync(ctx, event, regs)
	}
	return eb.publishSync(ctx, event, regs)
}

// publishSync runs every handler; the first failure is returned after all have run.
func (eb *EventBus) publishSync(ctx context.Context, event Event, regs []registration) error {
	var firstErr error
	for i, reg := range regs {
		if err := eb.executeHandler(ctx, event, reg.handler, i); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (eb *EventBus) publishAsync(ctx context.Context, event Event, regs []registration) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(regs))

	for i, reg := range regs {
		wg.Add(1)
		go func(h Handler, idx int) {
			defer wg.Done()
			if err := eb.executeHandler(ctx, event, h, idx); err != nil {
				errCh <- err
			}
		}(reg.handler, i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// executeHandler executes a handler with retry logic
func (eb *EventBus) executeHandler(ctx context.Context, event Event, handler Handler, handlerIndex int) error {
	var lastErr error

	for attempt := 0; attempt <= eb.config.MaxRetries; attempt++ {
		if attempt > 0 {
			eb.logger.Warnf("Retrying handler %d for event %s (attempt %d/%d)",
				handlerIndex, event.Type(), attempt+1, eb.config.MaxRetries+1)
			time.Sleep(eb.config.RetryDelay)
		}

		if err := handler(ctx, event); err != nil {
			lastErr = err
			eb.logger.Errorf("Handler %d failed for event %s: %v", handlerIndex, event.Type(), err)
			continue
		}
		return nil
	}

	return fmt.Errorf("handler failed after %d attempts: %w", eb.config.MaxRetries+1, lastErr)
}

// PublishAndForget publishes an event asynchronously without waiting for completion
func (eb *EventBus) PublishAndForget(ctx context.Context, event Event) {
	go func() {
		if err := eb.Publish(ctx, event); err != nil {
			eb.logger.Errorf("Failed to publish event %s: %v", event.Type(), err)
		}
	}()
}

// Unsubscribe removes all handlers for a specific event type
func (eb *EventBus) Unsubscribe(eventType string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.handlers, eventType)
	eb.logger.Debugf("Unsubscribed all handlers for event type: %s", eventType)
}

// GetSubscriberCount returns the number of handlers for an event type
func (eb *EventBus) GetSubscriberCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// BasicEvent implements the Event interface
type BasicEvent struct {
	eventType string
	data      interface{}
	timestamp time.Time
	source    string
}

// NewBasicEvent creates a new basic event
func NewBasicEvent(eventType string, data interface{}) Event {
	return NewBasicEventWithSource(eventType, data, "unknown")
}

// NewBasicEventWithSource creates a new basic event with source
func NewBasicEventWithSource(eventType string, data interface{}, source string) Event {
	return &BasicEvent{
		eventType: eventType,
		data:      data,
		timestamp: time.Now(),
		source:    source,
	}
}

func (e *BasicEvent) Type() string {
	return e.eventType
}

func (e *BasicEvent) Data() interface{} {
	return e.data
}

func (e *BasicEvent) Timestamp() time.Time {
	return e.timestamp
}

func (e *BasicEvent) Source() string {
	return e.source
}
