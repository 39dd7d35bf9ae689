package lp

import (
	"fmt"
	"math"
)

// Solution is a decoded solve result in the caller's objective sense.
//
// Duals[i] is the rate of change of Objective per unit increase of the
// right-hand side of row i. ReducedCosts[j] is the objective coefficient of
// column j minus the dual-weighted column of A. Both conventions hold for
// every backend.
type Solution struct {
	Status    Status
	Objective float64

	VariableNames   []string
	ConstraintNames []string

	Values       []float64
	ReducedCosts []float64
	Activity     []float64
	RHS          []float64
	Duals        []float64
	Slacks       []float64

	varIndex map[string]int
	rowIndex map[string]int
}

// Optimal reports whether the solve produced an optimal point.
func (s *Solution) Optimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// Value returns the primal value of a variable.
func (s *Solution) Value(name string) (float64, error) {
	j, ok := s.varIndex[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	if !s.Optimal() {
		return 0, ErrNotSolved
	}
	return s.Values[j], nil
}

// ReducedCost returns the reduced cost of a variable.
func (s *Solution) ReducedCost(name string) (float64, error) {
	j, ok := s.varIndex[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	if !s.Optimal() {
		return 0, ErrNotSolved
	}
	return s.ReducedCosts[j], nil
}

// ActivityLevels returns the activity of the named rows.
func (s *Solution) ActivityLevels(names ...string) ([]float64, error) {
	if !s.Optimal() {
		return nil, ErrNotSolved
	}
	out := make([]float64, len(names))
	for k, name := range names {
		i, ok := s.rowIndex[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownConstraint, name)
		}
		out[k] = s.Activity[i]
	}
	return out, nil
}

// Dual returns the dual value of a row.
func (s *Solution) Dual(name string) (float64, error) {
	i, ok := s.rowIndex[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownConstraint, name)
	}
	if !s.Optimal() {
		return 0, ErrNotSolved
	}
	return s.Duals[i], nil
}

func (o *Optimizer) decode(sp *SparseProblem, raw *RawSolution) *Solution {
	sol := &Solution{
		Status:          raw.Status,
		VariableNames:   o.VariableNames(),
		ConstraintNames: o.ConstraintNames(),
		varIndex:        o.varIndex,
		rowIndex:        o.rowIndex,
	}
	sol.RHS, _ = o.ConstraintRHS()
	if raw.Status != StatusOptimal {
		sol.Objective = math.NaN()
		return sol
	}

	sign := o.sense.sign()
	x := raw.ColValue
	sol.Values = append([]float64(nil), x...)

	internal := 0.0
	for j, c := range sp.ColCost {
		internal += c * x[j]
	}
	sol.Objective = sign*internal + o.offset

	sol.Activity = sp.Activity(x)

	y := make([]float64, sp.NumRows)
	if raw.RowDual != nil {
		copy(y, raw.RowDual)
	}
	rc := sp.ReducedCosts(y)
	sol.Duals = make([]float64, sp.NumRows)
	for i := range y {
		sol.Duals[i] = sign * y[i]
	}
	sol.ReducedCosts = make([]float64, sp.NumCols)
	for j := range rc {
		sol.ReducedCosts[j] = sign * rc[j]
	}

	sol.Slacks = make([]float64, sp.NumRows)
	for i, r := range o.rows {
		sol.Slacks[i] = math.Abs(r.rhs - sol.Activity[i])
	}
	return sol
}
