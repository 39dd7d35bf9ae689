package lp

import (
	"context"
	"fmt"
	"strings"
)

// RawSolution is a backend result for the minimize-only SparseProblem.
// RowDual[i] is the derivative of the minimized objective with respect to
// the active bound of row i.
type RawSolution struct {
	Status   Status
	ColValue []float64
	RowDual  []float64
}

// Backend solves a SparseProblem.
type Backend interface {
	Name() string
	Solve(ctx context.Context, sp *SparseProblem) (*RawSolution, error)
}

// Backend names accepted by NewBackend.
const (
	BackendSimplex = "simplex"
	BackendTableau = "tableau"
)

// NewBackend resolves a backend by name.
func NewBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendSimplex, "gonum":
		return NewSimplexBackend(), nil
	case BackendTableau, "dense":
		return NewTableauBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}
