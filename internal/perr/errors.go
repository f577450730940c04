// Package perr defines the error taxonomy shared by every packingsolver
// package: instance construction, solution mutation, and the branching
// schemes return a *perr.Error so callers can switch on Code instead of
// parsing messages. The CLI passes these through and reports some flag
// errors (unrecognized --objective or --direction) as plain errors.
package perr

import "fmt"

// Code identifies the category of a packingsolver error.
type Code string

const (
	// InvalidInput marks malformed CSV/XLSX input, a missing required
	// column, or an identifier out of range.
	InvalidInput Code = "INVALID_INPUT"
	// ConstraintViolation marks an InstanceBuilder rejection: a
	// non-positive length, a negative cost, copies_min greater than
	// copies, and similar invariant violations from spec §4.1.
	ConstraintViolation Code = "CONSTRAINT_VIOLATION"
	// IllegalState marks a Solution mutation that cannot be satisfied
	// given its current contents, e.g. adding an item to a bin index
	// that does not exist, or using a rotation the item type forbids.
	IllegalState Code = "ILLEGAL_STATE"
	// ObjectiveUnsupported marks a branching scheme asked to evaluate an
	// objective it has no rule for.
	ObjectiveUnsupported Code = "OBJECTIVE_UNSUPPORTED"
	// Cancelled marks a run stopped by the timer or SIGINT. It is not a
	// failure: the driver still returns the pool's current best.
	Cancelled Code = "CANCELLED"
	// IO marks a file open/read/write failure.
	IO Code = "IO"
)

// Error is the concrete error type returned throughout packingsolver.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause so errors.Is/errors.As work.
func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error that wraps an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err is a *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	for err != nil {
		if pe, ok := err.(*Error); ok {
			e = pe
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Code == code
}
