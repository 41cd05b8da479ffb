package notification

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery lifecycle state of a notification.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusRead      Status = "READ"
	StatusFailed    Status = "FAILED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Channel identifies the transport a notification is delivered over.
type Channel string

const (
	ChannelEmail   Channel = "EMAIL"
	ChannelSMS     Channel = "SMS"
	ChannelPush    Channel = "PUSH"
	ChannelInApp   Channel = "IN_APP"
	ChannelWebhook Channel = "WEBHOOK"
)

// Priority indicates delivery urgency. It does not affect ordering within
// the engine but is carried to channels and consumers.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Common notification categories. Category is a free-form string; these
// cover the values produced by the event ingest mappers.
const (
	CategoryWelcome       = "welcome"
	CategoryGeneral       = "general"
	CategoryCourseUpdate  = "course_update"
	CategoryGradeUpdate   = "grade_update"
	CategoryEnrollment    = "enrollment_update"
	CategoryPasswordReset = "password_reset"
	CategorySecurityAlert = "security_alert"
)

// Defaults applied at creation time.
const (
	DefaultMaxDeliveryAttempts = 3
	DefaultTTL                 = 7 * 24 * time.Hour
	FirstRetryDelay            = time.Minute
)

// Notification is a single message addressed to one recipient over one
// channel. A multi-channel send is represented as multiple notifications.
type Notification struct {
	ID            string            `json:"id" db:"id" bson:"_id"`
	RecipientID   string            `json:"recipient_id" db:"recipient_id" bson:"recipient_id"`
	RecipientType string            `json:"recipient_type,omitempty" db:"recipient_type" bson:"recipient_type,omitempty"`
	Title         string            `json:"title" db:"title" bson:"title"`
	Body          string            `json:"body" db:"body" bson:"body"`
	Category      string            `json:"category,omitempty" db:"category" bson:"category,omitempty"`
	Priority      Priority          `json:"priority" db:"priority" bson:"priority"`
	Channel       Channel           `json:"channel" db:"channel" bson:"channel"`
	Status        Status            `json:"status" db:"status" bson:"status"`
	SourceService string            `json:"source_service,omitempty" db:"source_service" bson:"source_service,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty" db:"correlation_id" bson:"correlation_id,omitempty"`
	ExternalID    string            `json:"external_id,omitempty" db:"external_id" bson:"external_id,omitempty"`
	LastError     string            `json:"last_error,omitempty" db:"last_error" bson:"last_error,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty" db:"metadata" bson:"metadata,omitempty"`

	DeliveryAttempts    int        `json:"delivery_attempts" db:"delivery_attempts" bson:"delivery_attempts"`
	MaxDeliveryAttempts int        `json:"max_delivery_attempts" db:"max_delivery_attempts" bson:"max_delivery_attempts"`
	NextRetryAt         *time.Time `json:"next_retry_at,omitempty" db:"next_retry_at" bson:"next_retry_at,omitempty"`
	ExpiresAt           time.Time  `json:"expires_at" db:"expires_at" bson:"expires_at"`
	SentAt              *time.Time `json:"sent_at,omitempty" db:"sent_at" bson:"sent_at,omitempty"`
	DeliveredAt         *time.Time `json:"delivered_at,omitempty" db:"delivered_at" bson:"delivered_at,omitempty"`
	ReadAt              *time.Time `json:"read_at,omitempty" db:"read_at" bson:"read_at,omitempty"`

	CreatedAt time.Time `json:"created_at" db:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at" bson:"updated_at"`
}

// CreateParams carries caller-supplied fields for a new notification.
// Zero values fall back to defaults in New.
type CreateParams struct {
	RecipientID         string
	RecipientType       string
	Title               string
	Body                string
	Category            string
	Priority            Priority
	Channel             Channel
	SourceService       string
	CorrelationID       string
	Metadata            map[string]string
	MaxDeliveryAttempts int
	ExpiresAt           time.Time
}

// New builds a pending notification from params, applying defaults:
// three delivery attempts, a seven day expiry and a first retry checkpoint
// one minute out so the reconciler can pick up a failed async dispatch.
func New(params CreateParams) (*Notification, error) {
	if params.RecipientID == "" {
		return nil, ErrMissingRecipient
	}
	if params.Title == "" || params.Body == "" {
		return nil, ErrEmptyContent
	}
	if params.Channel == "" {
		return nil, ErrMissingChannel
	}
	if !params.Channel.Valid() {
		return nil, ErrUnknownChannel
	}
	if params.Priority == "" {
		params.Priority = PriorityMedium
	}
	if !params.Priority.Valid() {
		return nil, ErrUnknownPriority
	}

	now := time.Now().UTC()

	maxAttempts := params.MaxDeliveryAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxDeliveryAttempts
	}
	expiresAt := params.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = now.Add(DefaultTTL)
	}
	nextRetry := now.Add(FirstRetryDelay)

	return &Notification{
		ID:                  uuid.New().String(),
		RecipientID:         params.RecipientID,
		RecipientType:       params.RecipientType,
		Title:               params.Title,
		Body:                params.Body,
		Category:            params.Category,
		Priority:            params.Priority,
		Channel:             params.Channel,
		Status:              StatusPending,
		SourceService:       params.SourceService,
		CorrelationID:       params.CorrelationID,
		Metadata:            params.Metadata,
		DeliveryAttempts:    0,
		MaxDeliveryAttempts: maxAttempts,
		NextRetryAt:         &nextRetry,
		ExpiresAt:           expiresAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Valid reports whether the channel is one of the supported transports.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelInApp, ChannelWebhook:
		return true
	}
	return false
}

// Valid reports whether the priority is a known level.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusRead, StatusFailed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// transitions enumerates the allowed status graph. Absent keys are terminal.
var transitions = map[Status][]Status{
	StatusPending:   {StatusSent, StatusFailed, StatusExpired, StatusCancelled},
	StatusSent:      {StatusDelivered},
	StatusDelivered: {StatusRead},
}

// CanTransition reports whether moving from s to target is allowed.
func (s Status) CanTransition(target Status) bool {
	for _, next := range transitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Expired reports whether the notification is past its expiry at the given time.
func (n *Notification) Expired(now time.Time) bool {
	return now.After(n.ExpiresAt)
}

// AttemptsExhausted reports whether delivery attempts have reached the limit.
func (n *Notification) AttemptsExhausted() bool {
	return n.DeliveryAttempts >= n.MaxDeliveryAttempts
}

// RetryDue reports whether a pending notification is due for a delivery
// attempt at the given time.
func (n *Notification) RetryDue(now time.Time) bool {
	return n.Status == StatusPending && n.NextRetryAt != nil && !n.NextRetryAt.After(now)
}

// Clone returns a deep copy, so concurrent readers never observe partial writes.
func (n *Notification) Clone() *Notification {
	c := *n
	if n.Metadata != nil {
		c.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			c.Metadata[k] = v
		}
	}
	c.NextRetryAt = cloneTime(n.NextRetryAt)
	c.SentAt = cloneTime(n.SentAt)
	c.DeliveredAt = cloneTime(n.DeliveredAt)
	c.ReadAt = cloneTime(n.ReadAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
