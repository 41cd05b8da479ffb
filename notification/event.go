package notification

import (
	"time"

	"github.com/google/uuid"
)

// EventsTopic is the bus topic lifecycle events are published to.
const EventsTopic = "notification-events"

// EventSource identifies this service in outbound events.
const EventSource = "notification-service"

// EventType classifies lifecycle events.
type EventType string

const (
	EventCreated   EventType = "NotificationCreated"
	EventSent      EventType = "NotificationSent"
	EventDelivered EventType = "NotificationDelivered"
	EventRead      EventType = "NotificationRead"
	EventFailed    EventType = "NotificationFailed"
	EventExpired   EventType = "NotificationExpired"
	EventCancelled EventType = "NotificationCancelled"
)

// Event is the envelope published to EventsTopic on every lifecycle change.
// Events are keyed by RecipientID so consumers observe a single recipient's
// notifications in order.
type Event struct {
	EventID       string        `json:"eventId"`
	EventType     EventType     `json:"eventType"`
	RecipientID   string        `json:"recipientId"`
	Notification  *Notification `json:"notification"`
	Timestamp     time.Time     `json:"timestamp"`
	Source        string        `json:"source"`
	CorrelationID string        `json:"correlationId,omitempty"`
}

// NewEvent builds a lifecycle event for n. The notification snapshot is
// cloned so later mutations do not leak into published events.
func NewEvent(eventType EventType, n *Notification) Event {
	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		RecipientID:   n.RecipientID,
		Notification:  n.Clone(),
		Timestamp:     time.Now().UTC(),
		Source:        EventSource,
		CorrelationID: n.CorrelationID,
	}
}

// eventForStatus maps a reached status to the event type announcing it.
var eventForStatus = map[Status]EventType{
	StatusSent:      EventSent,
	StatusDelivered: EventDelivered,
	StatusRead:      EventRead,
	StatusFailed:    EventFailed,
	StatusExpired:   EventExpired,
	StatusCancelled: EventCancelled,
}

// EventTypeForStatus returns the event type announcing a transition into s,
// and false for statuses that do not emit events.
func EventTypeForStatus(s Status) (EventType, bool) {
	et, ok := eventForStatus[s]
	return et, ok
}
