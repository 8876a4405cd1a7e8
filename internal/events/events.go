package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event types published by the booking service.
const (
	TypeSlotBooked      = "slot.booked"
	TypeSlotReleased    = "slot.released"
	TypeSettingsChanged = "settings.changed"

	// TypeSlotUncertain follows a failed or contended write. The slot may be
	// taken, so cached availability for its date must be dropped.
	TypeSlotUncertain = "slot.uncertain"
)

// Types lists every event type the service emits.
var Types = []string{TypeSlotBooked, TypeSlotReleased, TypeSettingsChanged, TypeSlotUncertain}

// Event signals that availability for a shop (and date, for slot events)
// must be re-read. It carries no authority over booking state.
type Event struct {
	Type          string    `json:"type"`
	ShopID        string    `json:"shop_id"`
	Date          string    `json:"date,omitempty"`
	Time          string    `json:"time,omitempty"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	Origin        string    `json:"origin,omitempty"` // set by the relay for events from other instances
	CreatedAt     time.Time `json:"created_at"`
}

// EventHandler reacts to an event.
type EventHandler func(event Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. logger may be nil.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	// Handlers run synchronously; a failing handler does not stop the others.
	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).
				Str("type", event.Type).
				Str("shop_id", event.ShopID).
				Str("date", event.Date).
				Msg("event handler failed")
		}
	}
}
