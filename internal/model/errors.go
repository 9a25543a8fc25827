package model

import "errors"

// Error kinds surfaced by the sizing engine. Callers match them with errors.Is;
// every returned error wraps exactly one of these with context.
var (
	// ErrInvalidInput marks malformed or mismatched time series.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfiguration marks negative, non-finite or out-of-bound unit counts
	// and malformed search spaces.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidEconomicParameter marks economic assumptions that make discounting
	// undefined (e.g. a discount rate of -1).
	ErrInvalidEconomicParameter = errors.New("invalid economic parameter")

	// ErrInvalidSpec marks a non-physical asset specification.
	ErrInvalidSpec = errors.New("invalid asset spec")
)
