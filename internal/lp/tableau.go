package lp

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	pivotTol      = 1e-9
	optimalityTol = 1e-9
	phaseOneTol   = 1e-8
)

// TableauBackend is a dense two-phase simplex over the full tableau using
// Bland's rule. It reads row duals straight from the final basis inverse.
type TableauBackend struct {
	maxIterations int
}

// NewTableauBackend returns the in-house dense solver.
func NewTableauBackend() *TableauBackend {
	return &TableauBackend{}
}

// Name implements Backend.
func (b *TableauBackend) Name() string {
	return BackendTableau
}

type tableau struct {
	t     *mat.Dense
	m, n  int // rows, structural columns; artificials are n..n+m-1
	basis []int
	flip  []bool
}

func (tb *tableau) rhs() int {
	return tb.n + tb.m
}

func (tb *tableau) pivot(r, e int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[e], pr)
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[e]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[e] = 0
		}
	}
	tb.basis[r] = e
}

func (tb *tableau) isBasic(j int) bool {
	for _, v := range tb.basis {
		if v == j {
			return true
		}
	}
	return false
}

// iterate runs simplex pivots minimizing cost over columns [0, limit).
func (tb *tableau) iterate(ctx context.Context, cost []float64, limit, maxIter int) error {
	rhs := tb.rhs()
	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}

		entering := -1
		for j := 0; j < limit; j++ {
			if tb.isBasic(j) {
				continue
			}
			r := cost[j]
			for i := 0; i < tb.m; i++ {
				r -= cost[tb.basis[i]] * tb.t.At(i, j)
			}
			if r < -optimalityTol {
				entering = j
				break
			}
		}
		if entering < 0 {
			return nil
		}

		leaving := -1
		best := math.Inf(1)
		for i := 0; i < tb.m; i++ {
			a := tb.t.At(i, entering)
			if a <= pivotTol {
				continue
			}
			ratio := tb.t.At(i, rhs) / a
			if ratio < best-1e-12 || (math.Abs(ratio-best) <= 1e-12 && tb.basis[i] < tb.basis[leaving]) {
				best = ratio
				leaving = i
			}
		}
		if leaving < 0 {
			return ErrUnbounded
		}
		tb.pivot(leaving, entering)
	}
	return ErrIterationLimit
}

// Solve implements Backend.
func (b *TableauBackend) Solve(ctx context.Context, sp *SparseProblem) (*RawSolution, error) {
	sf := toStandardForm(sp)
	if sf.status != StatusOptimal {
		return &RawSolution{Status: sf.status}, nil
	}
	m, n := sf.dims()
	if m == 0 {
		return sf.trivial(), nil
	}

	tb := &tableau{t: mat.NewDense(m, n+m+1, nil), m: m, n: n, basis: make([]int, m), flip: make([]bool, m)}
	rhs := tb.rhs()
	for i := 0; i < m; i++ {
		s := 1.0
		if sf.b[i] < 0 {
			s = -1
			tb.flip[i] = true
		}
		row := tb.t.RawRowView(i)
		for j := 0; j < n; j++ {
			row[j] = s * sf.a.At(i, j)
		}
		row[n+i] = 1
		row[rhs] = s * sf.b[i]
		tb.basis[i] = n + i
	}

	maxIter := b.maxIterations
	if maxIter <= 0 {
		maxIter = 50 * (m + n)
	}

	// phase I: minimize the sum of artificials
	phaseOne := make([]float64, n+m)
	for k := n; k < n+m; k++ {
		phaseOne[k] = 1
	}
	if err := tb.iterate(ctx, phaseOne, n+m, maxIter); err != nil {
		if err == ErrUnbounded {
			return nil, fmt.Errorf("lp: tableau backend phase I unbounded")
		}
		return nil, err
	}
	infeasibility := 0.0
	for i, k := range tb.basis {
		if k >= n {
			infeasibility += tb.t.At(i, rhs)
		}
	}
	if infeasibility > phaseOneTol*math.Max(1, floats.Norm(sf.b, math.Inf(1))) {
		return &RawSolution{Status: StatusInfeasible}, nil
	}

	// drive zero-valued artificials out of the basis; rows where that is
	// impossible are redundant and keep their artificial at zero
	for i := 0; i < m; i++ {
		if tb.basis[i] < n {
			continue
		}
		for j := 0; j < n; j++ {
			if !tb.isBasic(j) && math.Abs(tb.t.At(i, j)) > pivotTol {
				tb.pivot(i, j)
				break
			}
		}
	}

	// phase II over structural columns only
	phaseTwo := make([]float64, n+m)
	copy(phaseTwo, sf.c)
	if err := tb.iterate(ctx, phaseTwo, n, maxIter); err != nil {
		if err == ErrUnbounded {
			return &RawSolution{Status: StatusUnbounded}, nil
		}
		return nil, err
	}

	x := make([]float64, n)
	for i, k := range tb.basis {
		if k < n {
			x[k] = math.Max(tb.t.At(i, rhs), 0)
		}
	}
	y := make([]float64, m)
	for k := 0; k < m; k++ {
		for i, basic := range tb.basis {
			y[k] += phaseTwo[basic] * tb.t.At(i, n+k)
		}
		if tb.flip[k] {
			y[k] = -y[k]
		}
	}
	return sf.restore(x, y), nil
}
