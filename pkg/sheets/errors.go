package sheets

import (
	"errors"
	"fmt"
)

// ErrAuth indicates that credentials could not be loaded or were rejected.
var ErrAuth = errors.New("authorization failed")

// ErrNotFound indicates a missing spreadsheet or worksheet.
var ErrNotFound = errors.New("not found")

// ErrTransport indicates a failed read or write against the backend.
var ErrTransport = errors.New("transport failure")

// Error describes a failed provider operation.
type Error struct {
	Op     string // "open", "extent", "write", "append", "clear"
	Target string
	Kind   error // one of ErrAuth, ErrNotFound, ErrTransport
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Target, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Target, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, target string, kind, err error) *Error {
	return &Error{Op: op, Target: target, Kind: kind, Err: err}
}
