package dispatch

import "errors"

var (
	ErrNoSenderForChannel = errors.New("no sender registered for channel")
	ErrSendFailed         = errors.New("send failed")
	ErrSenderPanicked     = errors.New("sender panicked")
	ErrMissingAddress     = errors.New("recipient address is missing")
	ErrInvalidConfig      = errors.New("invalid dispatch configuration")
)
