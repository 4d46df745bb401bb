package dynamo

import "errors"

// Domain errors for host-side simulation operations.
var (
	// ErrInvalidState indicates NaN or Inf in a device's currents or state.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNotConverged indicates the outer iteration hit its limit.
	ErrNotConverged = errors.New("dynamo: solution did not converge")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrUnknownParam indicates an edit named a parameter the device lacks.
	ErrUnknownParam = errors.New("dynamo: unknown parameter")

	// ErrNoActiveModel indicates a handle table call with nothing selected.
	ErrNoActiveModel = errors.New("dynamo: no active model")

	// ErrUnknownModel indicates a factory lookup for an unregistered name.
	ErrUnknownModel = errors.New("dynamo: unknown model")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	Sample  Sample
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
