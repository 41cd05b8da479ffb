// Package engine implements the notification lifecycle.
//
// Create stores a pending notification, publishes NotificationCreated and
// launches the first delivery attempt in the background. AttemptDelivery
// dispatches over the notification's channel and either advances it to SENT
// or records the failure and schedules a retry with linear backoff, failing
// the notification permanently once its attempt budget is spent.
// MarkDelivered, MarkRead, Cancel and Expire drive the remaining
// transitions; Delete removes a notification without ceremony.
//
// Concurrency control is two-layered: a per-ID lock serializes attempts in
// this process, and the storage compare-and-swap rejects writes whose
// expected status went stale, so the first committed transition always wins
// across processes.
package engine
