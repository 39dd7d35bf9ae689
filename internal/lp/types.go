// Package lp keeps a named linear program, compresses it into sparse column
// form and hands it to a pluggable Backend. Results are reported in the
// caller's objective sense regardless of which backend produced them.
package lp

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Infinity is the sentinel used for the open side of one-sided rows.
	// Any bound at or beyond it is treated as unbounded.
	Infinity = 1e7

	// EqualityEpsilon is the half-width of the band used for equality rows.
	EqualityEpsilon = 1e-7
)

var (
	ErrInfeasible        = errors.New("lp: problem is infeasible")
	ErrUnbounded         = errors.New("lp: problem is unbounded")
	ErrNotSolved         = errors.New("lp: problem has not been solved")
	ErrTimeout           = errors.New("lp: solve timed out")
	ErrIterationLimit    = errors.New("lp: iteration limit reached")
	ErrUnknownConstraint = errors.New("lp: unknown constraint")
	ErrUnknownVariable   = errors.New("lp: unknown variable")
	ErrDuplicateName     = errors.New("lp: duplicate name")
	ErrUnknownBackend    = errors.New("lp: unknown backend")
)

// Sense is the objective direction.
type Sense int

const (
	Maximize Sense = iota
	Minimize
)

// sign is the multiplier turning the objective into a minimization.
func (s Sense) sign() float64 {
	if s == Maximize {
		return -1
	}
	return 1
}

func (s Sense) String() string {
	if s == Maximize {
		return "max"
	}
	return "min"
}

// ParseSense accepts "max"/"maximize" and "min"/"minimize".
func ParseSense(value string) (Sense, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "max", "maximize":
		return Maximize, nil
	case "min", "minimize":
		return Minimize, nil
	default:
		return 0, fmt.Errorf("lp: unknown objective sense %q", value)
	}
}

// ConstraintSense is the relation between a row activity and its right-hand side.
type ConstraintSense byte

const (
	Equal        ConstraintSense = 'E'
	GreaterEqual ConstraintSense = 'G'
	LessEqual    ConstraintSense = 'L'
)

func (s ConstraintSense) String() string {
	return string(s)
}

func (s ConstraintSense) valid() bool {
	return s == Equal || s == GreaterEqual || s == LessEqual
}

// interval encodes the row as lower <= activity <= upper.
func (s ConstraintSense) interval(rhs float64) (lower, upper float64) {
	switch s {
	case Equal:
		return rhs - EqualityEpsilon, rhs + EqualityEpsilon
	case GreaterEqual:
		return rhs, Infinity
	default:
		return -Infinity, rhs
	}
}

// Status is the outcome of a solve.
type Status int

const (
	StatusUnsolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "unsolved"
	}
}

// Pair assigns a value to a named row or column.
type Pair struct {
	Name  string
	Value float64
}

// Triplet assigns a matrix coefficient.
type Triplet struct {
	Constraint string
	Variable   string
	Value      float64
}
