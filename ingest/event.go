package ingest

import (
	"encoding/json"
	"strconv"
	"time"
)

// Topics the adapter consumes from upstream services.
const (
	TopicStudentEvents    = "student-events"
	TopicCourseEvents     = "course-events"
	TopicGradeEvents      = "grade-events"
	TopicEnrollmentEvents = "enrollment-events"
	TopicIdentityEvents   = "identity-events"
)

// Topics lists every topic the adapter subscribes to.
func Topics() []string {
	return []string{
		TopicStudentEvents,
		TopicCourseEvents,
		TopicGradeEvents,
		TopicEnrollmentEvents,
		TopicIdentityEvents,
	}
}

// InboundEvent is the envelope upstream services publish: a flat JSON
// object carrying routing fields next to event-specific domain fields
// (courseName, grade, email) used to render the notification text.
// Identity events address the recipient as userId instead of studentId.
type InboundEvent struct {
	EventID       string
	EventType     string
	StudentID     string
	UserID        string
	Timestamp     time.Time
	Source        string
	CorrelationID string

	// Fields holds the remaining scalar payload fields, stringified.
	Fields map[string]string
}

// routing field names peeled off the flat payload.
const (
	keyEventID       = "eventId"
	keyEventType     = "eventType"
	keyStudentID     = "studentId"
	keyUserID        = "userId"
	keyTimestamp     = "timestamp"
	keySource        = "source"
	keyCorrelationID = "correlationId"
)

// UnmarshalJSON decodes the flat payload shape. Unknown fields land in
// Fields with string-or-default access; a nested "data" object, when
// present, is flattened into Fields as well so either shape works.
func (e *InboundEvent) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	e.EventID = stringField(raw, keyEventID)
	e.EventType = stringField(raw, keyEventType)
	e.StudentID = stringField(raw, keyStudentID)
	e.UserID = stringField(raw, keyUserID)
	e.Source = stringField(raw, keySource)
	e.CorrelationID = stringField(raw, keyCorrelationID)
	if ts := stringField(raw, keyTimestamp); ts != "" {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = parsed
		}
	}

	e.Fields = make(map[string]string)
	if nested, ok := raw["data"].(map[string]any); ok {
		for k, v := range nested {
			if s, ok := stringify(v); ok {
				e.Fields[k] = s
			}
		}
	}
	for k, v := range raw {
		switch k {
		case keyEventID, keyEventType, keyStudentID, keyUserID,
			keyTimestamp, keySource, keyCorrelationID, "data":
			continue
		}
		if s, ok := stringify(v); ok {
			e.Fields[k] = s
		}
	}
	return nil
}

// RecipientID is the notification recipient: studentId when present,
// userId otherwise.
func (e InboundEvent) RecipientID() string {
	if e.StudentID != "" {
		return e.StudentID
	}
	return e.UserID
}

// field returns the named payload field, or fallback when absent or empty.
func (e InboundEvent) field(key, fallback string) string {
	if v := e.Fields[key]; v != "" {
		return v
	}
	return fallback
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// stringify renders scalar JSON values; objects, arrays and nulls report
// false.
func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}
