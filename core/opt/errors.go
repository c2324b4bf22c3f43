package opt

import (
	"errors"
	"fmt"
)

var (
	// ErrNoValue is returned when a concrete value is requested from an
	// expression that contains a variable without value.
	ErrNoValue = errors.New("opt: no value")
	// ErrNotInSolution indicates that a solution has no entry for a variable.
	ErrNotInSolution = errors.New("opt: variable not in solution")
)

// ConstraintError reports an object that cannot be used as a constraint.
type ConstraintError struct {
	Item   any
	Reason string
}

func (e *ConstraintError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("opt: %v is not a valid constraint", e.Item)
	}
	return fmt.Sprintf("opt: %v: %s", e.Item, e.Reason)
}

// Status is the outcome reported by a solver backend.
type Status int

const (
	StatusUnknown Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusUnsupported
	StatusNumerical
	StatusCanceled
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusUnsupported:
		return "unsupported"
	case StatusNumerical:
		return "numerical"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// SolverError is returned by solver backends when no optimal solution was found.
type SolverError struct {
	Status Status
	Msg    string
	Err    error
}

func (e *SolverError) Error() string {
	msg := "solver failed with status " + e.Status.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SolverError) Unwrap() error { return e.Err }

// IsStatus reports whether err is a SolverError with the given status.
func IsStatus(err error, status Status) bool {
	var se *SolverError
	return errors.As(err, &se) && se.Status == status
}
