package engine

import (
	"errors"
	"fmt"
)

// FaultError reports a broken engine invariant during Advance: RNG
// exhaustion, out-of-bounds state, stepping a finished episode. Fatal to
// the episode; the caller must reset, retrying never makes sense.
// The environment still releases the render lease on Close after a fault.
type FaultError struct {
	Tick   int
	Reason string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("engine fault at tick %d: %s", e.Tick, e.Reason)
}

func faultf(tick int, format string, args ...any) error {
	return &FaultError{Tick: tick, Reason: fmt.Sprintf(format, args...)}
}

// IsFault reports whether err (or anything it wraps) is an engine fault.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
