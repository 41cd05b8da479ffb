package ingest

import "errors"

var (
	ErrEngineNil        = errors.New("engine is required")
	ErrBusNil           = errors.New("event bus is required")
	ErrMalformedEvent   = errors.New("malformed inbound event")
	ErrMissingRecipient = errors.New("inbound event has no recipient id")
	ErrDeduplication    = errors.New("deduplication failed")
	ErrCreateFailed     = errors.New("failed to create notification from event")
)
