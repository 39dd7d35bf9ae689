// Package mathutil provides common mathematical utility functions.
package mathutil

import "math"

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// Linspace returns n evenly spaced samples over the closed interval [start, stop].
// n <= 0 yields an empty slice and n == 1 yields only start.
func Linspace(start, stop float64, n int) []float64 {
	if n <= 0 {
		return []float64{}
	}
	if n == 1 {
		return []float64{start}
	}
	step := (stop - start) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}

// ScanPoints is the number of samples used when scanning [lb, ub] from one
// edge with step tol, rounded to the nearest integer. A non-empty interval
// always yields at least one sample.
func ScanPoints(lb, ub, tol float64) int {
	if tol <= 0 || ub < lb {
		return 0
	}
	return max(1, int((ub-lb)/tol+0.5))
}

// GridPoints is the number of samples covering [lb, ub] with step at most tol.
// A collapsed interval lb == ub is its single point.
func GridPoints(lb, ub, tol float64) int {
	if tol <= 0 || ub < lb {
		return 0
	}
	return max(1, int(math.Ceil((ub-lb)/tol)))
}

// Reverse returns a reversed copy of values.
func Reverse(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[len(values)-1-i] = v
	}
	return out
}
