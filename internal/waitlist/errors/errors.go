package errors

import "errors"

var (
	ErrNotFound = errors.New("waitlist entry not found")

	ErrAlreadyQueued = errors.New("user already queued for this slot")
)
