package engine

import "errors"

var (
	ErrStorageNil        = errors.New("storage is required")
	ErrDispatcherNil     = errors.New("dispatcher is required")
	ErrInvalidTransition = errors.New("invalid status transition")
)
