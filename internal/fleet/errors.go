package fleet

import "errors"

var (
	// ErrValidation marks bad input rejected before touching the store.
	ErrValidation = errors.New("validation error")

	// ErrNoCandidate means no drone satisfies capability and autonomy constraints.
	ErrNoCandidate = errors.New("no candidate drone")

	// ErrInvalidTransition marks a state machine precondition violation.
	ErrInvalidTransition = errors.New("invalid transition")

	ErrNotFound = errors.New("not found")

	// ErrUnsafeWeather blocks dispatch when the weather gate says no.
	ErrUnsafeWeather = errors.New("unsafe weather")
)
