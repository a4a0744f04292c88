package domain

import "errors"

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrSolverUnavailable is returned when the LP runtime cannot be used
	ErrSolverUnavailable = errors.New("solver runtime unavailable")

	// ErrMalformedModel is returned when a built model references unknown
	// variables or has inconsistent dimensions. This is an internal defect,
	// not a caller mistake
	ErrMalformedModel = errors.New("malformed linear program model")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrSuperseded is returned when a newer solve for the same client was
	// accepted while this one was in flight
	ErrSuperseded = errors.New("request superseded by a newer solve")
)
