package api

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyRunning = errors.New("pairing server already running")
	ErrNotRunning     = errors.New("pairing server not running")
	// ErrBind matches every *BindError via errors.Is.
	ErrBind = errors.New("pairing server bind failed")
)

// BindError reports a listener that could not be opened, typically because
// the port is taken or privileged. The session stays stopped.
type BindError struct {
	Addr string
	Port uint16
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() []error {
	return []error{ErrBind, e.Err}
}
