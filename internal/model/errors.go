package model

import (
	"errors"
	"fmt"
)

var (
	ErrMissing         = errors.New("required variable missing")
	ErrUnknownVariable = errors.New("unknown variable")
	ErrOutOfDomain     = errors.New("state outside domain")
	ErrEmptyDomain     = errors.New("variable has an empty domain")
	ErrDuplicate       = errors.New("variable given more than once")
)

// DomainError reports evidence that violates the schema.
// Reason is one of the sentinel errors above and is exposed through Unwrap.
type DomainError struct {
	Variable Variable
	State    State
	Reason   error
}

func (e *DomainError) Error() string {
	switch {
	case errors.Is(e.Reason, ErrOutOfDomain):
		return fmt.Sprintf("domain error: %s=%q: %v", e.Variable, e.State, e.Reason)
	case e.Variable == "":
		return fmt.Sprintf("domain error: %v", e.Reason)
	default:
		return fmt.Sprintf("domain error: %s: %v", e.Variable, e.Reason)
	}
}

func (e *DomainError) Unwrap() error { return e.Reason }
