package link

import (
	"errors"
	"fmt"
)

var (
	ErrClosed       = errors.New("link is closed")
	ErrWriteTimeout = errors.New("write timed out")
)

// OpenError reports a device that could not be opened (absent, busy, permission).
type OpenError struct {
	Device string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("opening %q: %v", e.Device, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// WriteError reports a failed or timed out write. The link should be treated as lost.
type WriteError struct {
	Device string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %q: %v", e.Device, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsOpenError reports whether err contains an *OpenError.
func IsOpenError(err error) bool {
	var oe *OpenError
	return errors.As(err, &oe)
}

// IsWriteError reports whether err contains a *WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}
