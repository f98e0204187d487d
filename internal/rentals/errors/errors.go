package errors

import "errors"

var (
	ErrNoOpenRental = errors.New("no open rental for bike")

	ErrBikeInUse = errors.New("bike already has an open rental")

	ErrAlreadyClosed = errors.New("rental is already closed")
)
