package lp

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	golp "gonum.org/v1/gonum/optimize/convex/lp"
)

const (
	simplexTol = 1e-10
	dualGapTol = 1e-6
)

// SimplexBackend runs gonum's dense simplex on the standard form. Row duals
// come from solving the dual program
//
//	maximize b . y  subject to  A^T y <= c
//
// with the same routine, since the primal solve does not expose its basis.
type SimplexBackend struct {
	tol float64
}

// NewSimplexBackend returns a gonum-backed solver.
func NewSimplexBackend() *SimplexBackend {
	return &SimplexBackend{tol: simplexTol}
}

// Name implements Backend.
func (b *SimplexBackend) Name() string {
	return BackendSimplex
}

// Solve implements Backend.
func (b *SimplexBackend) Solve(ctx context.Context, sp *SparseProblem) (*RawSolution, error) {
	sf := toStandardForm(sp)
	if sf.status != StatusOptimal {
		return &RawSolution{Status: sf.status}, nil
	}
	m, n := sf.dims()
	if m == 0 {
		return sf.trivial(), nil
	}
	if m > n {
		return nil, fmt.Errorf("lp: simplex backend: %d rows exceed %d columns", m, n)
	}

	primalObj, x, err := golp.Simplex(sf.c, sf.a, sf.b, b.tol, nil)
	switch {
	case errors.Is(err, golp.ErrInfeasible):
		return &RawSolution{Status: StatusInfeasible}, nil
	case errors.Is(err, golp.ErrUnbounded):
		return &RawSolution{Status: StatusUnbounded}, nil
	case err != nil:
		return nil, fmt.Errorf("lp: simplex backend primal: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	y, dualObj, err := b.duals(sf)
	if err != nil {
		return nil, err
	}
	if !nearlyEqual(primalObj, dualObj, dualGapTol) {
		return nil, fmt.Errorf("lp: simplex backend duality gap: primal %g, dual %g", primalObj, dualObj)
	}
	return sf.restore(x, y), nil
}

func (b *SimplexBackend) duals(sf *standardForm) ([]float64, float64, error) {
	m, _ := sf.dims()
	negB := make([]float64, m)
	for i, v := range sf.b {
		negB[i] = -v
	}
	g := mat.DenseCopyOf(sf.a.T())
	cNew, aNew, bNew := golp.Convert(negB, g, sf.c, nil, nil)

	obj, z, err := golp.Simplex(cNew, aNew, bNew, b.tol, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("lp: simplex backend dual: %w", err)
	}
	// Convert orders the variables as [y+, y-, slack]
	y := make([]float64, m)
	for i := range y {
		y[i] = z[i] - z[m+i]
	}
	return y, -obj, nil
}
