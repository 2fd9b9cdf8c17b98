package types

import "errors"

// GUID-related errors
var (
	// ErrInvalidGUIDLength is returned when a GUID byte slice has incorrect length
	ErrInvalidGUIDLength = errors.New("invalid GUID length")

	// ErrInvalidGUIDFormat is returned when a GUID string is not of the form
	// {XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX}
	ErrInvalidGUIDFormat = errors.New("invalid GUID format")
)

// Amount-related errors
var (
	// ErrAmountOverflow is returned when a decimal amount cannot be represented
	// in the 64-bit scaled range
	ErrAmountOverflow = errors.New("amount overflows scaled range")
)
