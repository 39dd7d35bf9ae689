package lp

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/iwvelando/diet-optimizer/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var approx = cmpopts.EquateApprox(0, 1e-7)

func backends() []Backend {
	return []Backend{NewSimplexBackend(), NewTableauBackend()}
}

// maximize 3x + 2y
// s.t. x + y <= 4, x + 3y <= 7, 0 <= x <= 3, y >= 0
// optimum x=3, y=1, objective 11; duals (2, 0); reduced costs (1, 0)
func knownProblem(t *testing.T, backend Backend) *Optimizer {
	t.Helper()
	o, err := New(zap.NewNop(), backend)
	require.NoError(t, err)
	o.SetSense(Maximize)
	require.NoError(t, o.AddVariables([]string{"x", "y"}, []float64{3, 2}, []float64{0, 0}, []float64{3, math.Inf(1)}))
	require.NoError(t, o.AddConstraint("c1", []string{"x", "y"}, []float64{1, 1}, LessEqual, 4))
	require.NoError(t, o.AddConstraint("c2", []string{"x", "y"}, []float64{1, 3}, LessEqual, 7))
	return o
}

func TestKnownProblemDualConvention(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.Name(), func(t *testing.T) {
			o := knownProblem(t, backend)
			sol, err := o.Solve(context.Background())
			require.NoError(t, err)
			require.Equal(t, StatusOptimal, sol.Status)
			require.InDelta(t, 11, sol.Objective, 1e-7)

			if diff := cmp.Diff([]float64{3, 1}, sol.Values, approx); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]float64{2, 0}, sol.Duals, approx); diff != "" {
				t.Errorf("duals mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]float64{1, 0}, sol.ReducedCosts, approx); diff != "" {
				t.Errorf("reduced costs mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]float64{4, 6}, sol.Activity, approx); diff != "" {
				t.Errorf("activity mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]float64{0, 1}, sol.Slacks, approx); diff != "" {
				t.Errorf("slacks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMinimizeSenseAndOffset(t *testing.T) {
	// minimize x + 2y s.t. x + y >= 2, x - y == 0 ; optimum x=y=1, objective 3 (+10 offset)
	// dual of the cover row is 1.5, of the balance row -0.5
	for _, backend := range backends() {
		t.Run(backend.Name(), func(t *testing.T) {
			o, err := New(nil, backend)
			require.NoError(t, err)
			o.SetSense(Minimize)
			require.NoError(t, o.AddVariables([]string{"x", "y"}, []float64{1, 2}, nil, nil))
			require.NoError(t, o.AddConstraint("cover", []string{"x", "y"}, []float64{1, 1}, GreaterEqual, 2))
			require.NoError(t, o.AddConstraint("balance", []string{"x", "y"}, []float64{1, -1}, Equal, 0))
			o.SetObjectiveOffset(10)

			sol, err := o.Solve(context.Background())
			require.NoError(t, err)
			require.True(t, sol.Optimal())
			require.InDelta(t, 13, sol.Objective, 1e-6)
			if diff := cmp.Diff([]float64{1, 1}, sol.Values, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
				t.Errorf("values mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]float64{1.5, -0.5}, sol.Duals, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
				t.Errorf("duals mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNegativeRHSAndShiftedBounds(t *testing.T) {
	// maximize -x s.t. -x <= -2 (x >= 2), 1 <= x <= 5 ; optimum x=2
	for _, backend := range backends() {
		t.Run(backend.Name(), func(t *testing.T) {
			o, err := New(nil, backend)
			require.NoError(t, err)
			require.NoError(t, o.AddVariables([]string{"x"}, []float64{-1}, []float64{1}, []float64{5}))
			require.NoError(t, o.AddConstraint("floor", []string{"x"}, []float64{-1}, LessEqual, -2))
			sol, err := o.Solve(context.Background())
			require.NoError(t, err)
			require.True(t, sol.Optimal())
			v, err := sol.Value("x")
			require.NoError(t, err)
			require.InDelta(t, 2, v, 1e-7)
			d, err := sol.Dual("floor")
			require.NoError(t, err)
			// relaxing -x <= -2 to -x <= -1 lets x drop to 1 and gains 1
			require.InDelta(t, 1, d, 1e-7)
		})
	}
}

func TestInfeasibleAndUnbounded(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.Name(), func(t *testing.T) {
			o, err := New(nil, backend)
			require.NoError(t, err)
			require.NoError(t, o.AddVariables([]string{"x"}, []float64{1}, []float64{0}, []float64{1}))
			require.NoError(t, o.AddConstraint("high", []string{"x"}, []float64{1}, GreaterEqual, 2))
			sol, err := o.Solve(context.Background())
			require.NoError(t, err)
			require.Equal(t, StatusInfeasible, sol.Status)
			require.False(t, sol.Optimal())
			_, err = sol.Value("x")
			require.ErrorIs(t, err, ErrNotSolved)

			u, err := New(nil, backend)
			require.NoError(t, err)
			require.NoError(t, u.AddVariables([]string{"x", "y"}, []float64{1, 1}, nil, nil))
			require.NoError(t, u.AddConstraint("diff", []string{"x", "y"}, []float64{1, -1}, LessEqual, 1))
			sol, err = u.Solve(context.Background())
			require.NoError(t, err)
			require.Equal(t, StatusUnbounded, sol.Status)
		})
	}
}

func TestUpdateRHSAndObjective(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend.Name(), func(t *testing.T) {
			o := knownProblem(t, backend)
			_, err := o.Solve(context.Background())
			require.NoError(t, err)

			require.NoError(t, o.SetConstraintRHS(Pair{"c1", 3}))
			require.Nil(t, o.Solution())
			require.NoError(t, o.SetObjectiveFunction(Pair{"x", 1}))
			sol, err := o.Solve(context.Background())
			require.NoError(t, err)
			// maximize x + 2y with x + y <= 3, x + 3y <= 7 -> vertex (1, 2), objective 5
			require.InDelta(t, 5, sol.Objective, 1e-7)

			rhs, err := o.ConstraintRHS("c1", "c2")
			require.NoError(t, err)
			require.Equal(t, []float64{3, 7}, rhs)
		})
	}
}

func TestSetConstraintCoefficients(t *testing.T) {
	o := knownProblem(t, NewTableauBackend())
	require.NoError(t, o.SetConstraintCoefficients(Triplet{"c2", "y", 1}))
	sol, err := o.Solve(context.Background())
	require.NoError(t, err)
	// c2 becomes x + y <= 7, non-binding; c1 still caps x + y at 4
	require.InDelta(t, 11, sol.Objective, 1e-7)

	require.ErrorIs(t, o.SetConstraintCoefficients(Triplet{"missing", "y", 1}), ErrUnknownConstraint)
	require.ErrorIs(t, o.SetConstraintCoefficients(Triplet{"c2", "z", 1}), ErrUnknownVariable)
}

func TestBookkeeping(t *testing.T) {
	o := knownProblem(t, NewSimplexBackend())
	require.Equal(t, []string{"x", "y"}, o.VariableNames())
	require.Equal(t, []string{"c1", "c2"}, o.ConstraintNames())
	require.ErrorIs(t, o.AddVariables([]string{"x"}, nil, nil, nil), ErrDuplicateName)
	require.ErrorIs(t, o.AddConstraint("c1", nil, nil, LessEqual, 0), ErrDuplicateName)
	require.ErrorIs(t, o.AddConstraint("c3", []string{"z"}, []float64{1}, LessEqual, 0), ErrUnknownVariable)
	require.Error(t, o.AddConstraint("c4", []string{"x"}, []float64{1}, ConstraintSense('X'), 0))
	require.ErrorIs(t, o.SetConstraintRHS(Pair{"nope", 1}), ErrUnknownConstraint)
	_, err := o.ConstraintRHS("nope")
	require.ErrorIs(t, err, ErrUnknownConstraint)
}

func TestReset(t *testing.T) {
	o := knownProblem(t, NewTableauBackend())
	o.SetObjectiveOffset(2)
	o.Reset()
	require.Empty(t, o.VariableNames())
	require.Empty(t, o.ConstraintNames())
	require.Zero(t, o.ObjectiveOffset())
	require.NoError(t, o.AddVariables([]string{"x"}, nil, nil, nil))
}

func TestCompress(t *testing.T) {
	o := knownProblem(t, NewSimplexBackend())
	require.NoError(t, o.AddConstraint("eq", []string{"y"}, []float64{2}, Equal, 1))
	sp := o.Compress()

	require.Equal(t, []int{0, 2, 5}, sp.ColStart)
	require.Equal(t, []int{0, 1, 0, 1, 2}, sp.RowIndex)
	require.Equal(t, []float64{1, 1, 1, 3, 2}, sp.Value)
	require.Equal(t, []float64{-3, -2}, sp.ColCost)
	require.Equal(t, -Infinity, sp.RowLower[0])
	require.Equal(t, 4.0, sp.RowUpper[0])
	require.InDelta(t, 1-EqualityEpsilon, sp.RowLower[2], 1e-15)
	require.InDelta(t, 1+EqualityEpsilon, sp.RowUpper[2], 1e-15)
}

func TestEmptyProblem(t *testing.T) {
	o, err := New(nil, NewTableauBackend())
	require.NoError(t, err)
	_, err = o.Solve(context.Background())
	require.Error(t, err)

	_, err = New(nil, nil)
	require.Error(t, err)
}

type blockingBackend struct {
	release chan struct{}
}

func (b *blockingBackend) Name() string { return "blocking" }

func (b *blockingBackend) Solve(ctx context.Context, sp *SparseProblem) (*RawSolution, error) {
	<-b.release
	return &RawSolution{Status: StatusInfeasible}, nil
}

func TestSolveTimeout(t *testing.T) {
	backend := &blockingBackend{release: make(chan struct{})}
	defer close(backend.release)

	recorder := metrics.New()
	o, err := New(nil, backend, WithTimeout(10*time.Millisecond), WithRecorder(recorder))
	require.NoError(t, err)
	require.NoError(t, o.AddVariables([]string{"x"}, nil, nil, nil))

	_, err = o.Solve(context.Background())
	require.True(t, errors.Is(err, ErrTimeout), "expected timeout, got %v", err)

	count, err := testutil.GatherAndCount(recorder.Registry(), "diet_lp_solves_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend("")
	require.NoError(t, err)
	require.Equal(t, BackendSimplex, b.Name())

	b, err = NewBackend("Tableau")
	require.NoError(t, err)
	require.Equal(t, BackendTableau, b.Name())

	_, err = NewBackend("cplex")
	require.ErrorIs(t, err, ErrUnknownBackend)
}

func TestParseSense(t *testing.T) {
	s, err := ParseSense("MAX")
	require.NoError(t, err)
	require.Equal(t, Maximize, s)
	s, err = ParseSense("minimize")
	require.NoError(t, err)
	require.Equal(t, Minimize, s)
	_, err = ParseSense("sideways")
	require.Error(t, err)
}

// fixedBackend returns a preset primal point regardless of the problem.
type fixedBackend struct {
	x []float64
}

func (b fixedBackend) Name() string { return "fixed" }

func (b fixedBackend) Solve(context.Context, *SparseProblem) (*RawSolution, error) {
	return &RawSolution{Status: StatusOptimal, ColValue: b.x, RowDual: []float64{0, 0, 0}}, nil
}

func TestSlacksAreMagnitudes(t *testing.T) {
	// the point overshoots the equality row by 5e-8
	o, err := New(zap.NewNop(), fixedBackend{x: []float64{0.60000005, 0.4}})
	require.NoError(t, err)
	require.NoError(t, o.AddVariables([]string{"x", "y"}, []float64{1, 1}, []float64{0, 0}, []float64{1, 1}))
	require.NoError(t, o.AddConstraint("sum", []string{"x", "y"}, []float64{1, 1}, Equal, 1))
	require.NoError(t, o.AddConstraint("floor", []string{"x"}, []float64{1}, GreaterEqual, 0.5))
	require.NoError(t, o.AddConstraint("cap", []string{"y"}, []float64{1}, LessEqual, 0.7))

	sol, err := o.Solve(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{5e-8, 0.10000005, 0.3}, sol.Slacks, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("slacks mismatch (-want +got):\n%s", diff)
	}
	for i, v := range sol.Slacks {
		require.GreaterOrEqual(t, v, 0.0, sol.ConstraintNames[i])
	}
}
