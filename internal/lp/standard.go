package lp

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// feasibilityTol bounds the violation accepted for rows with no coefficients.
const feasibilityTol = 1e-9

// column maps an original column onto standard-form columns:
// x = shift + x[pos] - x[neg], with pos or neg set to -1 when absent.
type column struct {
	pos, neg int
	shift    float64
}

// standardForm is
//
//	minimize c . x  subject to  A x = b,  x >= 0
//
// derived from a SparseProblem by shifting finite lower bounds to zero,
// splitting free columns, and adding slack columns and bound rows.
type standardForm struct {
	a *mat.Dense
	b []float64
	c []float64

	cols []column
	// rows[i] is the standard-form row carrying original row i, or -1 when
	// the row was dropped because it has no coefficients.
	rows []int

	status Status
}

func (sf *standardForm) dims() (m, n int) {
	if sf.a == nil {
		return 0, len(sf.c)
	}
	return sf.a.Dims()
}

// restore maps standard-form primal and dual vectors back to the sparse problem.
func (sf *standardForm) restore(x, y []float64) *RawSolution {
	raw := &RawSolution{Status: StatusOptimal, ColValue: make([]float64, len(sf.cols)), RowDual: make([]float64, len(sf.rows))}
	for j, col := range sf.cols {
		v := col.shift
		if col.pos >= 0 {
			v += x[col.pos]
		}
		if col.neg >= 0 {
			v -= x[col.neg]
		}
		raw.ColValue[j] = v
	}
	for i, r := range sf.rows {
		if r >= 0 && y != nil {
			raw.RowDual[i] = y[r]
		}
	}
	return raw
}

type rowBuilder struct {
	coefs [][]float64
	rhs   []float64
}

func (rb *rowBuilder) add(coefs map[int]float64, rhs float64) int {
	row := make([]float64, 0)
	for j, v := range coefs {
		for len(row) <= j {
			row = append(row, 0)
		}
		row[j] = v
	}
	rb.coefs = append(rb.coefs, row)
	rb.rhs = append(rb.rhs, rhs)
	return len(rb.rhs) - 1
}

// toStandardForm converts sp. A problem whose infeasibility or
// unboundedness is evident from structure alone comes back with status set
// and no matrix.
func toStandardForm(sp *SparseProblem) *standardForm {
	sf := &standardForm{cols: make([]column, sp.NumCols), rows: make([]int, sp.NumRows)}

	for j := 0; j < sp.NumCols; j++ {
		lo, hi := sp.ColLower[j], sp.ColUpper[j]
		if !isNegInf(lo) && !isPosInf(hi) && lo > hi {
			sf.status = StatusInfeasible
			return sf
		}
	}

	dense := sp.dense()
	nnz := make([]int, sp.NumCols)
	for j := 0; j < sp.NumCols; j++ {
		for k := sp.ColStart[j]; k < sp.ColStart[j+1]; k++ {
			if sp.Value[k] != 0 {
				nnz[j]++
			}
		}
	}

	// columns
	n := 0
	var c []float64
	var rb rowBuilder
	for j := 0; j < sp.NumCols; j++ {
		lo, hi, cost := sp.ColLower[j], sp.ColUpper[j], sp.ColCost[j]
		loInf, hiInf := isNegInf(lo), isPosInf(hi)
		col := column{pos: -1, neg: -1}
		if !loInf {
			col.shift = lo
		}

		if nnz[j] == 0 {
			// the column only interacts with its own bounds
			switch {
			case cost > 0 && loInf, cost < 0 && hiInf:
				sf.status = StatusUnbounded
				return sf
			case cost > 0:
				col.shift = lo
			case cost < 0:
				col.shift = hi
			case !loInf:
				col.shift = lo
			case !hiInf:
				col.shift = hi
			default:
				col.shift = 0
			}
			sf.cols[j] = col
			continue
		}

		col.pos = n
		c = append(c, cost)
		n++
		if loInf {
			col.neg = n
			c = append(c, -cost)
			n++
		}
		sf.cols[j] = col

		if !hiInf {
			bound := map[int]float64{col.pos: 1}
			if col.neg >= 0 {
				bound[col.neg] = -1
			}
			slack := n
			c = append(c, 0)
			n++
			bound[slack] = 1
			rb.add(bound, hi-col.shift)
		}
	}

	// rows
	for i := 0; i < sp.NumRows; i++ {
		lo, hi := sp.RowLower[i], sp.RowUpper[i]
		loInf, hiInf := isNegInf(lo), isPosInf(hi)

		coefs := make(map[int]float64)
		shift := 0.0
		for j, a := range dense[i] {
			if a == 0 {
				continue
			}
			col := sf.cols[j]
			shift += a * col.shift
			if col.pos >= 0 {
				coefs[col.pos] += a
			}
			if col.neg >= 0 {
				coefs[col.neg] -= a
			}
		}
		if !loInf {
			lo -= shift
		}
		if !hiInf {
			hi -= shift
		}

		if len(coefs) == 0 {
			if (!loInf && lo > feasibilityTol) || (!hiInf && hi < -feasibilityTol) {
				sf.status = StatusInfeasible
				return sf
			}
			sf.rows[i] = -1
			continue
		}

		switch {
		case loInf && hiInf:
			sf.rows[i] = -1
		case !loInf && !hiInf && hi-lo <= 4*EqualityEpsilon:
			sf.rows[i] = rb.add(coefs, (lo+hi)/2)
		case !loInf && hiInf:
			coefs[n] = -1
			c = append(c, 0)
			n++
			sf.rows[i] = rb.add(coefs, lo)
		case loInf && !hiInf:
			coefs[n] = 1
			c = append(c, 0)
			n++
			sf.rows[i] = rb.add(coefs, hi)
		default:
			if lo > hi {
				sf.status = StatusInfeasible
				return sf
			}
			surplus := n
			coefs[surplus] = -1
			c = append(c, 0)
			n++
			sf.rows[i] = rb.add(coefs, lo)
			rangeSlack := n
			c = append(c, 0)
			n++
			rb.add(map[int]float64{surplus: 1, rangeSlack: 1}, hi-lo)
		}
	}

	sf.c = c
	m := len(rb.rhs)
	sf.b = rb.rhs
	if m > 0 && n > 0 {
		sf.a = mat.NewDense(m, n, nil)
		for i, row := range rb.coefs {
			for j, v := range row {
				if v != 0 {
					sf.a.Set(i, j, v)
				}
			}
		}
	}
	sf.status = StatusOptimal
	return sf
}

// trivial solves a standard form with no rows: every column sits at zero
// unless its cost is negative.
func (sf *standardForm) trivial() *RawSolution {
	_, n := sf.dims()
	for j := 0; j < n; j++ {
		if sf.c[j] < 0 {
			return &RawSolution{Status: StatusUnbounded}
		}
	}
	return sf.restore(make([]float64, n), nil)
}

func nearlyEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
