package errors

import "errors"

var (
	ErrNotFound = errors.New("invite not found")

	ErrInvalidID = errors.New("invalid invite ID format")

	ErrDuplicatePending = errors.New("pending invite already exists for this email")
)
