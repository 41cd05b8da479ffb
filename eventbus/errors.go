package eventbus

import "errors"

var (
	ErrBusClosed      = errors.New("event bus is closed")
	ErrEmptyTopic     = errors.New("topic is required")
	ErrNilHandler     = errors.New("handler is required")
	ErrPublishFailed  = errors.New("failed to publish message")
	ErrDecodeEnvelope = errors.New("failed to decode message envelope")
)
