package notification

import "errors"

var (
	ErrNotFound         = errors.New("notification not found")
	ErrAlreadyExists    = errors.New("notification already exists")
	ErrStatusConflict   = errors.New("notification status conflict")
	ErrMissingRecipient = errors.New("recipient id is required")
	ErrEmptyContent     = errors.New("notification title and body are required")
	ErrMissingChannel   = errors.New("notification channel is required")
	ErrUnknownChannel   = errors.New("unknown notification channel")
	ErrUnknownPriority  = errors.New("unknown notification priority")
	ErrStorageFailure   = errors.New("notification storage failure")
)
