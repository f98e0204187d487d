package errors

import "errors"

var (
	ErrNotFound = errors.New("resident not found")

	ErrAlreadyRegistered = errors.New("resident already registered for this month")
)
