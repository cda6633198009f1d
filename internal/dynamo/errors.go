package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for flight-loop operations.
var (
	// ErrInvalidState indicates a state with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrLinkTimeout indicates the flight controller did not answer within
	// its deadline. The loop treats this as a vehicle failure.
	ErrLinkTimeout = errors.New("dynamo: flight controller link timed out")

	// ErrContextCanceled indicates the flight loop was interrupted.
	ErrContextCanceled = errors.New("dynamo: flight loop canceled by context")
)

// TickError wraps an error with flight-loop context.
type TickError struct {
	Tick    int
	Time    float64
	Wrapped error
}

func (e *TickError) Error() string {
	return fmt.Sprintf("tick %d (t=%.4f): %v", e.Tick, e.Time, e.Wrapped)
}

func (e *TickError) Unwrap() error {
	return e.Wrapped
}
