package station

import (
	"errors"
	"fmt"

	"github.com/w1xm/lisat_interface/link"
)

var (
	ErrNoDevice     = errors.New("no device selected")
	ErrNoCandidates = errors.New("no serial ports found")
	ErrNoResponse   = errors.New("no port responded")
	ErrNotConnected = errors.New("not connected")
	ErrBusy         = errors.New("request queue is full")
)

// ValidationError reports angle input that is not an integer.
type ValidationError struct {
	Input string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid angle %q: %v", e.Input, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// cause strips the link error wrapper so messages name only the transport fault.
func cause(err error) error {
	var oe *link.OpenError
	if errors.As(err, &oe) {
		return oe.Err
	}
	var we *link.WriteError
	if errors.As(err, &we) {
		return we.Err
	}
	return err
}
