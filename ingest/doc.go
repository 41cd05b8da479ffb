// Package ingest consumes events from upstream student-system services and
// turns them into notifications.
//
// A routing table maps each known event type to a category, priority,
// channel and message template; unknown types are logged and acknowledged.
// Messages are acknowledged only after the notification is stored, so a
// failed create is redelivered. An optional Deduplicator (in-memory or
// Redis) suppresses redelivered events by their event ID; it records an ID
// only once the create committed, so a failure never masks the redelivery.
package ingest
