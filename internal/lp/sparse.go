package lp

import "math"

// SparseProblem is the minimize-only, compressed-sparse-column form handed
// to a Backend:
//
//	minimize   ColCost . x
//	subject to RowLower <= A x <= RowUpper
//	           ColLower <= x <= ColUpper
//
// Column j of A occupies Value[ColStart[j]:ColStart[j+1]] with row indexes
// in RowIndex at the same positions.
type SparseProblem struct {
	NumCols int
	NumRows int

	ColCost  []float64
	ColLower []float64
	ColUpper []float64
	RowLower []float64
	RowUpper []float64

	ColStart []int
	RowIndex []int
	Value    []float64
}

// Compress builds the sparse form of the current problem. Costs are
// multiplied by the sense sign so that the backend always minimizes.
func (o *Optimizer) Compress() *SparseProblem {
	n, m := len(o.vars), len(o.rows)
	sign := o.sense.sign()
	sp := &SparseProblem{
		NumCols:  n,
		NumRows:  m,
		ColCost:  make([]float64, n),
		ColLower: make([]float64, n),
		ColUpper: make([]float64, n),
		RowLower: make([]float64, m),
		RowUpper: make([]float64, m),
		ColStart: make([]int, n+1),
	}
	for j, v := range o.vars {
		sp.ColCost[j] = sign * v.obj
		sp.ColLower[j] = v.lower
		sp.ColUpper[j] = v.upper
	}
	for i, r := range o.rows {
		sp.RowLower[i], sp.RowUpper[i] = r.sense.interval(r.rhs)
	}
	for j := 0; j < n; j++ {
		sp.ColStart[j] = len(sp.Value)
		for i, r := range o.rows {
			if a, ok := r.coefs[j]; ok && a != 0 {
				sp.RowIndex = append(sp.RowIndex, i)
				sp.Value = append(sp.Value, a)
			}
		}
	}
	sp.ColStart[n] = len(sp.Value)
	return sp
}

// Activity returns A x.
func (sp *SparseProblem) Activity(x []float64) []float64 {
	act := make([]float64, sp.NumRows)
	for j := 0; j < sp.NumCols; j++ {
		for k := sp.ColStart[j]; k < sp.ColStart[j+1]; k++ {
			act[sp.RowIndex[k]] += sp.Value[k] * x[j]
		}
	}
	return act
}

// ReducedCosts returns ColCost - A^T y.
func (sp *SparseProblem) ReducedCosts(y []float64) []float64 {
	rc := make([]float64, sp.NumCols)
	for j := 0; j < sp.NumCols; j++ {
		rc[j] = sp.ColCost[j]
		for k := sp.ColStart[j]; k < sp.ColStart[j+1]; k++ {
			rc[j] -= sp.Value[k] * y[sp.RowIndex[k]]
		}
	}
	return rc
}

// dense expands A into row-major form.
func (sp *SparseProblem) dense() [][]float64 {
	rows := make([][]float64, sp.NumRows)
	for i := range rows {
		rows[i] = make([]float64, sp.NumCols)
	}
	for j := 0; j < sp.NumCols; j++ {
		for k := sp.ColStart[j]; k < sp.ColStart[j+1]; k++ {
			rows[sp.RowIndex[k]][j] = sp.Value[k]
		}
	}
	return rows
}

func isPosInf(v float64) bool {
	return math.IsInf(v, 1) || v >= Infinity
}

func isNegInf(v float64) bool {
	return math.IsInf(v, -1) || v <= -Infinity
}
