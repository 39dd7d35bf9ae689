package lp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/iwvelando/diet-optimizer/internal/metrics"
	"go.uber.org/zap"
)

type variable struct {
	name  string
	obj   float64
	lower float64
	upper float64
}

type constraint struct {
	name  string
	sense ConstraintSense
	rhs   float64
	coefs map[int]float64
}

// Optimizer is a named, insertion-ordered linear program bound to a backend.
// It is not safe for concurrent use.
type Optimizer struct {
	logger   *zap.Logger
	backend  Backend
	recorder *metrics.Recorder
	timeout  time.Duration

	sense  Sense
	offset float64

	vars     []variable
	varIndex map[string]int
	rows     []constraint
	rowIndex map[string]int

	solution *Solution
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithTimeout bounds every Solve call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Optimizer) { o.timeout = d }
}

// WithRecorder reports solve counts and latency.
func WithRecorder(r *metrics.Recorder) Option {
	return func(o *Optimizer) { o.recorder = r }
}

// New constructs an empty maximization problem solved by backend.
func New(logger *zap.Logger, backend Backend, opts ...Option) (*Optimizer, error) {
	if backend == nil {
		return nil, fmt.Errorf("lp: backend cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Optimizer{
		logger:   logger,
		backend:  backend,
		sense:    Maximize,
		varIndex: make(map[string]int),
		rowIndex: make(map[string]int),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Reset drops every variable, constraint and the objective offset.
func (o *Optimizer) Reset() {
	o.vars = nil
	o.rows = nil
	o.varIndex = make(map[string]int)
	o.rowIndex = make(map[string]int)
	o.offset = 0
	o.solution = nil
}

// Backend returns the backend name.
func (o *Optimizer) Backend() string {
	return o.backend.Name()
}

// SetSense sets the objective direction.
func (o *Optimizer) SetSense(s Sense) {
	o.sense = s
	o.solution = nil
}

// Sense returns the objective direction.
func (o *Optimizer) Sense() Sense {
	return o.sense
}

// AddVariables appends columns. Nil obj, lower or upper default to 0, 0 and +Inf.
func (o *Optimizer) AddVariables(names []string, obj, lower, upper []float64) error {
	n := len(names)
	if (obj != nil && len(obj) != n) || (lower != nil && len(lower) != n) || (upper != nil && len(upper) != n) {
		return fmt.Errorf("lp: AddVariables length mismatch for %d names", n)
	}
	seen := make(map[string]struct{}, n)
	for i, name := range names {
		if _, ok := o.varIndex[name]; ok {
			return fmt.Errorf("%w: variable %q", ErrDuplicateName, name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: variable %q", ErrDuplicateName, name)
		}
		seen[name] = struct{}{}
		lb, ub := 0.0, math.Inf(1)
		if lower != nil {
			lb = lower[i]
		}
		if upper != nil {
			ub = upper[i]
		}
		if lb > ub {
			return fmt.Errorf("lp: variable %q has lower bound %g above upper bound %g", name, lb, ub)
		}
	}
	for i, name := range names {
		v := variable{name: name, upper: math.Inf(1)}
		if obj != nil {
			v.obj = obj[i]
		}
		if lower != nil {
			v.lower = lower[i]
		}
		if upper != nil {
			v.upper = upper[i]
		}
		o.varIndex[name] = len(o.vars)
		o.vars = append(o.vars, v)
	}
	o.solution = nil
	return nil
}

// AddConstraint appends a row sum(coefs[k] * vars[k]) sense rhs.
func (o *Optimizer) AddConstraint(name string, vars []string, coefs []float64, sense ConstraintSense, rhs float64) error {
	if _, ok := o.rowIndex[name]; ok {
		return fmt.Errorf("%w: constraint %q", ErrDuplicateName, name)
	}
	if len(vars) != len(coefs) {
		return fmt.Errorf("lp: constraint %q has %d variables and %d coefficients", name, len(vars), len(coefs))
	}
	if !sense.valid() {
		return fmt.Errorf("lp: constraint %q has invalid sense %q", name, sense)
	}
	row := constraint{name: name, sense: sense, rhs: rhs, coefs: make(map[int]float64, len(vars))}
	for k, v := range vars {
		j, ok := o.varIndex[v]
		if !ok {
			return fmt.Errorf("%w: %q in constraint %q", ErrUnknownVariable, v, name)
		}
		row.coefs[j] += coefs[k]
	}
	o.rowIndex[name] = len(o.rows)
	o.rows = append(o.rows, row)
	o.solution = nil
	return nil
}

// SetConstraintRHS replaces right-hand sides by name.
func (o *Optimizer) SetConstraintRHS(pairs ...Pair) error {
	for _, p := range pairs {
		i, ok := o.rowIndex[p.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownConstraint, p.Name)
		}
		o.rows[i].rhs = p.Value
	}
	o.solution = nil
	return nil
}

// SetConstraintSense changes the relation of a row.
func (o *Optimizer) SetConstraintSense(name string, sense ConstraintSense) error {
	i, ok := o.rowIndex[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownConstraint, name)
	}
	if !sense.valid() {
		return fmt.Errorf("lp: constraint %q has invalid sense %q", name, sense)
	}
	o.rows[i].sense = sense
	o.solution = nil
	return nil
}

// SetConstraintCoefficients replaces individual matrix entries.
func (o *Optimizer) SetConstraintCoefficients(triplets ...Triplet) error {
	for _, t := range triplets {
		i, ok := o.rowIndex[t.Constraint]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownConstraint, t.Constraint)
		}
		j, ok := o.varIndex[t.Variable]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownVariable, t.Variable)
		}
		if t.Value == 0 {
			delete(o.rows[i].coefs, j)
			continue
		}
		o.rows[i].coefs[j] = t.Value
	}
	o.solution = nil
	return nil
}

// SetObjectiveFunction replaces objective coefficients by variable name.
func (o *Optimizer) SetObjectiveFunction(pairs ...Pair) error {
	for _, p := range pairs {
		j, ok := o.varIndex[p.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownVariable, p.Name)
		}
		o.vars[j].obj = p.Value
	}
	o.solution = nil
	return nil
}

// SetVariableBounds replaces the bounds of a column.
func (o *Optimizer) SetVariableBounds(name string, lower, upper float64) error {
	j, ok := o.varIndex[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownVariable, name)
	}
	if lower > upper {
		return fmt.Errorf("lp: variable %q has lower bound %g above upper bound %g", name, lower, upper)
	}
	o.vars[j].lower, o.vars[j].upper = lower, upper
	o.solution = nil
	return nil
}

// SetObjectiveOffset sets the constant added to the objective value.
func (o *Optimizer) SetObjectiveOffset(v float64) {
	o.offset = v
	o.solution = nil
}

// ObjectiveOffset returns the constant added to the objective value.
func (o *Optimizer) ObjectiveOffset() float64 {
	return o.offset
}

// VariableNames returns column names in insertion order.
func (o *Optimizer) VariableNames() []string {
	names := make([]string, len(o.vars))
	for j, v := range o.vars {
		names[j] = v.name
	}
	return names
}

// ConstraintNames returns row names in insertion order.
func (o *Optimizer) ConstraintNames() []string {
	names := make([]string, len(o.rows))
	for i, r := range o.rows {
		names[i] = r.name
	}
	return names
}

// ConstraintRHS returns the right-hand sides of the named rows, or of all
// rows when no names are given.
func (o *Optimizer) ConstraintRHS(names ...string) ([]float64, error) {
	if len(names) == 0 {
		out := make([]float64, len(o.rows))
		for i, r := range o.rows {
			out[i] = r.rhs
		}
		return out, nil
	}
	out := make([]float64, len(names))
	for k, name := range names {
		i, ok := o.rowIndex[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownConstraint, name)
		}
		out[k] = o.rows[i].rhs
	}
	return out, nil
}

// Solution returns the result of the last Solve, or nil if the problem has
// changed since.
func (o *Optimizer) Solution() *Solution {
	return o.solution
}

// Solve compresses the problem and runs the backend. Infeasible and
// unbounded problems are reported through Solution.Status with a nil error;
// errors are reserved for malformed problems, backend failures and timeouts.
func (o *Optimizer) Solve(ctx context.Context) (*Solution, error) {
	if len(o.vars) == 0 {
		return nil, fmt.Errorf("lp: problem has no variables")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	sp := o.Compress()
	start := time.Now()
	raw, err := solveWithContext(ctx, o.backend, sp)
	elapsed := time.Since(start)

	status := "error"
	if err == nil {
		status = raw.Status.String()
	} else if errors.Is(err, ErrTimeout) {
		status = "timeout"
	}
	o.recorder.ObserveSolve(o.backend.Name(), status, elapsed)

	if err != nil {
		o.logger.Warn("lp solve failed",
			zap.String("op", "lp.Solve"),
			zap.String("backend", o.backend.Name()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, err
	}

	sol := o.decode(sp, raw)
	o.solution = sol
	o.logger.Debug("lp solved",
		zap.String("op", "lp.Solve"),
		zap.String("backend", o.backend.Name()),
		zap.String("status", sol.Status.String()),
		zap.Float64("objective", sol.Objective),
		zap.Duration("elapsed", elapsed),
	)
	return sol, nil
}

func solveWithContext(ctx context.Context, backend Backend, sp *SparseProblem) (*RawSolution, error) {
	if ctx.Done() == nil {
		return backend.Solve(ctx, sp)
	}
	type result struct {
		raw *RawSolution
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := backend.Solve(ctx, sp)
		done <- result{raw, err}
	}()
	select {
	case r := <-done:
		return r.raw, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}
