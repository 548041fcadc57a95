package notify

import (
	"context"
	"time"

	"flashcards-client/internal/shared/eventbus"
	"flashcards-client/internal/shared/logger"

	"go.uber.org/zap"
)

// Notice levels
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notice is a short user-visible message, the toast of a graphical shell.
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// BusNotifier logs notices and publishes them as ui.notice events so that
// attached shells can render them.
type BusNotifier struct {
	bus eventbus.EventBusInterface
	log logger.Logger
}

// NewBusNotifier creates a notifier. A nil bus only logs.
func NewBusNotifier(bus eventbus.EventBusInterface, log logger.Logger) *BusNotifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &BusNotifier{bus: bus, log: log.WithComponent("notifier")}
}

func (n *BusNotifier) Success(ctx context.Context, message string) {
	n.emit(ctx, LevelSuccess, message)
}

func (n *BusNotifier) Error(ctx context.Context, message string) {
	n.emit(ctx, LevelError, message)
}

func (n *BusNotifier) emit(ctx context.Context, level, message string) {
	log := n.log.WithContext(ctx).With(zap.String("level", level))
	if level == LevelError {
		log.Warn(message)
	} else {
		log.Info(message)
	}

	if n.bus == nil {
		return
	}
	event := eventbus.NewBasicEventWithSource(eventbus.EventTypeNotice, Notice{
		Level:   level,
		Message: message,
		At:      time.Now(),
	}, "notifier")
	if err := n.bus.Publish(ctx, event); err != nil {
		log.With(zap.Error(err)).Warn("Notice subscriber failed")
	}
}
