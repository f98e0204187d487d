package errors

import "errors"

var (
	ErrInvalidYearMonth = errors.New("invalid year-month, expected YYYYMM")
)
