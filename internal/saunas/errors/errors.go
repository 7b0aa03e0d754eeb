package errors

import "errors"

var (
	ErrNotFound = errors.New("sauna not found")

	ErrInvalidID = errors.New("invalid sauna ID format")
)
