package scheduler

import "errors"

var (
	ErrEngineNil  = errors.New("engine is required")
	ErrStorageNil = errors.New("storage is required")
)
