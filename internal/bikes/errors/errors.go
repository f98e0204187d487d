package errors

import "errors"

var (
	ErrNotFound = errors.New("bike not found")
)
