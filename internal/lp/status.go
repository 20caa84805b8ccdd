package lp

import (
	"context"
	"errors"
	"time"
)

// Status is the solver termination label reported to callers.
type Status string

const (
	StatusOptimal    Status = "Optimal"
	StatusNotSolved  Status = "Not Solved"
	StatusInfeasible Status = "Infeasible"
	StatusUnbounded  Status = "Unbounded"
	StatusUndefined  Status = "Undefined"
)

var (
	ErrInfeasible = errors.New("lp: problem is infeasible")
	ErrUnbounded  = errors.New("lp: problem is unbounded")
	ErrTimeLimit  = errors.New("lp: time limit reached")
	ErrNumerical  = errors.New("lp: numerical failure")
)

// StatusOf maps a Solve error to its status label.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOptimal
	case errors.Is(err, ErrInfeasible):
		return StatusInfeasible
	case errors.Is(err, ErrUnbounded):
		return StatusUnbounded
	case errors.Is(err, ErrTimeLimit), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return StatusNotSolved
	}
	return StatusUndefined
}

// Solution is the outcome of Solve. Values is indexed by Var.ID and is nil
// unless Status is StatusOptimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Blocks    int
	Elapsed   time.Duration
}

// Value returns the solved value of v, or 0 when no value is available.
func (s *Solution) Value(v Var) float64 {
	if s == nil || v.id < 0 || v.id >= len(s.Values) {
		return 0
	}
	return s.Values[v.id]
}
