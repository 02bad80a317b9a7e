package signal

import "errors"

// Domain errors for engine construction and lifecycle.
var (
	// ErrEmptyRegistry indicates a profile registry with no profiles.
	ErrEmptyRegistry = errors.New("choreo: profile registry is empty")

	// ErrUnknownAlias indicates an alias pointing at a profile that does not exist.
	ErrUnknownAlias = errors.New("choreo: alias targets unknown profile")

	// ErrUnknownProfile indicates a reference to a profile key that is not registered.
	ErrUnknownProfile = errors.New("choreo: unknown profile")

	// ErrInvalidRange indicates a field spec or tunable outside its valid bounds.
	ErrInvalidRange = errors.New("choreo: value out of valid range")

	// ErrEngineStarted indicates Start was called on a running engine.
	ErrEngineStarted = errors.New("choreo: engine already started")

	// ErrNilTickSource indicates Start was called without a tick source.
	ErrNilTickSource = errors.New("choreo: nil tick source")
)

// RangeError reports a named value outside its allowed interval.
type RangeError struct {
	Name     string
	Value    float64
	Min, Max float64
}

func (e *RangeError) Error() string {
	return "choreo: " + e.Name + " out of range"
}

func (e *RangeError) Unwrap() error {
	return ErrInvalidRange
}

// ErrTornDown indicates use of an engine after Close.
var ErrTornDown = errors.New("choreo: engine closed")
