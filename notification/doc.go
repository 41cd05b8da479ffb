// Package notification defines the notification domain model, its lifecycle
// state machine and the storage contract.
//
// A notification moves through PENDING, SENT, DELIVERED and READ, or ends in
// FAILED, EXPIRED or CANCELLED. Terminal states are immutable. The allowed
// transitions are encoded in Status.CanTransition; the engine package drives
// them.
//
// Storage implementations (in-memory, PostgreSQL, MongoDB) share a
// compare-and-swap Update: the write only applies when the stored status
// still matches the caller's expectation, which serializes racing lifecycle
// writers without row locks.
//
// Every committed transition is announced as an Event on EventsTopic, keyed
// by recipient so a single recipient's history replays in order.
package notification
