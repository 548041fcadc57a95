package http

import (
	"context"
	"sync"
	"time"

	"flashcards-client/internal/shared/eventbus"
	"flashcards-client/internal/shared/logger"
	"flashcards-client/internal/shared/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StreamMessage is one frame of the /session/events stream.
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// Stream message types besides the bus event types.
const MessageTypeSnapshot = "session.snapshot"

const subscriberBuffer = 32

// EventHub fans session events out to stream subscribers.
type EventHub struct {
	bus  eventbus.EventBusInterface
	log  logger.Logger
	subs []eventbus.Subscription

	mu      sync.RWMutex
	clients map[string]chan StreamMessage
}

// NewEventHub subscribes to state changes and notices on bus.
func NewEventHub(bus eventbus.EventBusInterface, log logger.Logger) *EventHub {
	h := &EventHub{
		bus:     bus,
		log:     log.WithComponent("event-hub"),
		clients: make(map[string]chan StreamMessage),
	}
	h.subs = append(h.subs,
		bus.Subscribe(eventbus.EventTypeSessionStateChanged, h.forward),
		bus.Subscribe(eventbus.EventTypeNotice, h.forward),
	)
	return h
}

// Attach registers a subscriber and returns its id and channel.
func (h *EventHub) Attach() (string, <-chan StreamMessage) {
	id := uuid.NewString()
	ch := make(chan StreamMessage, subscriberBuffer)

	h.mu.Lock()
	h.clients[id] = ch
	count := len(h.clients)
	h.mu.Unlock()

	metrics.GatewayEventSubscribers.Set(float64(count))
	h.log.With(zap.String("subscriberID", id)).Debug("Event subscriber attached")
	return id, ch
}

// Detach removes a subscriber and closes its channel.
func (h *EventHub) Detach(id string) {
	h.mu.Lock()
	ch, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(ch)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		metrics.GatewayEventSubscribers.Set(float64(count))
		h.log.With(zap.String("subscriberID", id)).Debug("Event subscriber detached")
	}
}

// Subscribers returns the number of attached subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close detaches from the bus and drops all subscribers.
func (h *EventHub) Close() {
	for _, sub := range h.subs {
		h.bus.Cancel(sub)
	}
	h.mu.Lock()
	for id, ch := range h.clients {
		close(ch)
		delete(h.clients, id)
	}
	h.mu.Unlock()
	metrics.GatewayEventSubscribers.Set(0)
}

// forward never blocks the publisher; a subscriber with a full buffer misses the frame.
func (h *EventHub) forward(_ context.Context, event eventbus.Event) error {
	msg := StreamMessage{Type: event.Type(), Data: event.Data(), Timestamp: event.Timestamp()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			h.log.With(zap.String("subscriberID", id), zap.String("type", msg.Type)).Warn("Dropping event for slow subscriber")
		}
	}
	return nil
}
