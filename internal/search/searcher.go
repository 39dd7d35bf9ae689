// Package search drives a diet model across the CNEm axis: it narrows the
// feasible bracket, then either scans it exhaustively or runs a
// golden-section maximization of the trial objective.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/iwvelando/diet-optimizer/pkg/constants"
	"github.com/iwvelando/diet-optimizer/pkg/mathutil"
	"github.com/iwvelando/diet-optimizer/pkg/optimization"
)

var (
	// ErrSearchExhausted is returned when no CNEm in the bracket produced a feasible trial.
	ErrSearchExhausted = errors.New("no feasible trial in search interval")

	// ErrNotReady is returned when a search is started while another is running.
	ErrNotReady = errors.New("searcher is busy")

	// ErrInvalidInterval is returned for an empty interval or a non-positive tolerance.
	ErrInvalidInterval = errors.New("invalid search interval")

	// ErrUnsupported is returned when the evaluator lacks a capability the operation needs.
	ErrUnsupported = errors.New("operation not supported by evaluator")
)

var (
	invphi  = (math.Sqrt(5) - 1) / 2
	invphi2 = (3 - math.Sqrt(5)) / 2
)

// Evaluator runs one trial at a CNEm value. Exactly one of the results is non-nil.
type Evaluator interface {
	Run(ctx context.Context, trialID int, cnem float64) (*optimization.Trial, *optimization.Infeasible)
	SetPrefix(prefix string)
}

// BatchEvaluator can switch to a period of a batch time series.
type BatchEvaluator interface {
	Evaluator
	SetBatchPeriod(period int) error
}

// PricedEvaluator exposes feed costs for price discovery.
type PricedEvaluator interface {
	Evaluator
	FeedCost(id string) (float64, error)
	SetFeedCost(id string, cost float64) error
}

// Status is the searcher lifecycle state.
type Status int

const (
	StatusEmpty Status = iota
	StatusReady
	StatusSolved
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "EMPTY"
	case StatusReady:
		return "READY"
	case StatusSolved:
		return "SOLVED"
	case StatusError:
		return "ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Algorithm selects the search strategy.
type Algorithm int

const (
	GoldenSection Algorithm = iota
	BruteForce
)

func (a Algorithm) String() string {
	switch a {
	case GoldenSection:
		return "GSS"
	case BruteForce:
		return "BF"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm accepts the short and long algorithm names case-insensitively.
func ParseAlgorithm(value string) (Algorithm, error) {
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(value)) {
	case "", "gss", "golden", "goldensection", "goldensectionsearch":
		return GoldenSection, nil
	case "bf", "brute", "bruteforce", "bruteforcesearch":
		return BruteForce, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", value)
	}
}

// Bounds is a feasible CNEm bracket.
type Bounds struct {
	Lower float64
	Upper float64
}

// Searcher runs searches over one Evaluator. It is not safe for concurrent use.
type Searcher struct {
	logger *zap.Logger
	model  Evaluator

	status     Status
	prefix     string
	trials     []optimization.Trial
	infeasible []optimization.Infeasible

	busy atomic.Bool
}

// New returns a READY searcher and sets the evaluator's trial prefix.
func New(logger *zap.Logger, model Evaluator, prefix string) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	model.SetPrefix(prefix)
	return &Searcher{
		logger: logger,
		model:  model,
		status: StatusReady,
		prefix: prefix,
	}
}

// Status returns the current status.
func (s *Searcher) Status() Status { return s.status }

// Prefix returns the current trial identifier prefix.
func (s *Searcher) Prefix() string { return s.prefix }

// Infeasible returns the diagnostic records collected since the last clear.
func (s *Searcher) Infeasible() []optimization.Infeasible {
	return append([]optimization.Infeasible(nil), s.infeasible...)
}

// Clear drops collected trials and returns the searcher to READY. Every
// clear extends the identifier prefix so later trials stay distinguishable.
func (s *Searcher) Clear() {
	s.trials = nil
	s.infeasible = nil
	s.status = StatusReady
	s.prefix = constants.ClearedPrefix + s.prefix
	s.model.SetPrefix(s.prefix)
}

// Results returns the status and either every feasible trial or, when best
// is set, a single-element slice holding the maximum objective trial. The
// slice is nil unless the status is SOLVED.
func (s *Searcher) Results(best bool) (Status, []optimization.Trial) {
	if s.status != StatusSolved || len(s.trials) == 0 {
		return s.status, nil
	}
	if best {
		return s.status, []optimization.Trial{*optimization.Best(s.trials)}
	}
	return s.status, append([]optimization.Trial(nil), s.trials...)
}

func (s *Searcher) acquire() error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrNotReady
	}
	return nil
}

func (s *Searcher) release() { s.busy.Store(false) }

func (s *Searcher) begin() {
	if s.status != StatusReady {
		s.Clear()
	}
}

func (s *Searcher) finish() error {
	if len(s.trials) == 0 {
		s.status = StatusError
		return ErrSearchExhausted
	}
	s.status = StatusSolved
	return nil
}

func checkInterval(lb, ub, tol float64) error {
	if math.IsNaN(lb) || math.IsNaN(ub) || ub < lb || !(tol > 0) {
		return fmt.Errorf("%w: [%g, %g] tol %g", ErrInvalidInterval, lb, ub, tol)
	}
	return nil
}

func (s *Searcher) evaluate(ctx context.Context, id int, cnem float64) *optimization.Trial {
	trial, infeasible := s.model.Run(ctx, id, cnem)
	if trial != nil {
		return trial
	}
	if infeasible != nil {
		s.infeasible = append(s.infeasible, *infeasible)
	}
	return nil
}

// RefineBounds scans [lb, ub] in steps of about tol from each end and
// returns the first feasible CNEm found in each direction. A nil Bounds
// means no grid point is feasible. Trials run here are not collected.
func (s *Searcher) RefineBounds(ctx context.Context, lb, ub, tol float64) (*Bounds, error) {
	if err := checkInterval(lb, ub, tol); err != nil {
		return nil, err
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	space := mathutil.Linspace(lb, ub, mathutil.ScanPoints(lb, ub, tol))
	lower, err := s.firstFeasible(ctx, space)
	if err != nil || lower == nil {
		return nil, err
	}
	upper, err := s.firstFeasible(ctx, mathutil.Reverse(space))
	if err != nil || upper == nil {
		return nil, err
	}

	s.logger.Debug("bounds refined",
		zap.String("op", "search.RefineBounds"),
		zap.Float64("lb", lb),
		zap.Float64("ub", ub),
		zap.Float64("lower", *lower),
		zap.Float64("upper", *upper),
	)
	return &Bounds{Lower: *lower, Upper: *upper}, nil
}

func (s *Searcher) firstFeasible(ctx context.Context, space []float64) (*float64, error) {
	for i, cnem := range space {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trial, _ := s.model.Run(ctx, i, cnem)
		if trial != nil {
			v := trial.CNEm
			return &v, nil
		}
	}
	return nil, nil
}

// BruteForce evaluates every point of an evenly spaced grid over [lb, ub]
// with about one point per tol and keeps every feasible trial.
func (s *Searcher) BruteForce(ctx context.Context, lb, ub, tol float64) error {
	if err := checkInterval(lb, ub, tol); err != nil {
		return err
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.begin()

	space := mathutil.Linspace(lb, ub, mathutil.GridPoints(lb, ub, tol))
	for i, cnem := range space {
		if err := ctx.Err(); err != nil {
			s.status = StatusError
			return err
		}
		if trial := s.evaluate(ctx, i, cnem); trial != nil {
			s.trials = append(s.trials, *trial)
		}
	}

	s.logger.Debug("brute force finished",
		zap.String("op", "search.BruteForce"),
		zap.Int("points", len(space)),
		zap.Int("feasible", len(s.trials)),
	)
	return s.finish()
}

// bracket is the golden-section state: a < c < d < b with the objective
// already known at c and d.
type bracket struct {
	a, b   float64
	c, d   float64
	fc, fd float64
}

func (br bracket) width() float64 { return br.b - br.a }

// shrink keeps the sub-interval holding the larger interior value. It
// returns true when the new interior point at c must be evaluated, false
// when the new point is d.
func (br *bracket) shrink() bool {
	h := br.width() * invphi
	if br.fc > br.fd {
		br.b = br.d
		br.d, br.fd = br.c, br.fc
		br.c = br.a + invphi2*h
		return true
	}
	br.a = br.c
	br.c, br.fc = br.d, br.fd
	br.d = br.a + invphi*h
	return false
}

// GoldenSection maximizes the trial objective over [lb, ub] assuming it is
// unimodal there. Infeasible points count as -Inf. Each step reuses one
// interior value and issues a single new trial. When no trial is feasible
// by the time the bracket is narrower than tol, one last trial is run at
// the left edge.
func (s *Searcher) GoldenSection(ctx context.Context, lb, ub, tol float64) error {
	if err := checkInterval(lb, ub, tol); err != nil {
		return err
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()
	s.begin()

	id := 0
	value := func(cnem float64) float64 {
		trial := s.evaluate(ctx, id, cnem)
		id++
		if trial == nil {
			return math.Inf(-1)
		}
		s.trials = append(s.trials, *trial)
		return trial.Objective
	}

	br := bracket{a: lb, b: ub}
	if br.width() > tol {
		h := br.width()
		br.c = br.a + invphi2*h
		br.d = br.a + invphi*h
		br.fc = value(br.c)
		br.fd = value(br.d)

		for br.b-br.a > tol {
			if err := ctx.Err(); err != nil {
				s.status = StatusError
				return err
			}
			if br.width()*invphi <= tol {
				// the next bracket is final; keep the larger side without a new trial
				if br.fc > br.fd {
					br.b = br.d
				} else {
					br.a = br.c
				}
				break
			}
			if br.shrink() {
				br.fc = value(br.c)
			} else {
				br.fd = value(br.d)
			}
		}
	}

	if len(s.trials) == 0 {
		value(br.a)
	}

	s.logger.Debug("golden section finished",
		zap.String("op", "search.GoldenSection"),
		zap.Float64("a", br.a),
		zap.Float64("b", br.b),
		zap.Int("evaluations", id),
		zap.Int("feasible", len(s.trials)),
	)
	return s.finish()
}

// RunScenario dispatches one search and returns the final status.
func (s *Searcher) RunScenario(ctx context.Context, alg Algorithm, lb, ub, tol float64) (Status, error) {
	var err error
	switch alg {
	case GoldenSection:
		err = s.GoldenSection(ctx, lb, ub, tol)
	case BruteForce:
		err = s.BruteForce(ctx, lb, ub, tol)
	default:
		return s.status, fmt.Errorf("unsupported algorithm %s", alg)
	}
	return s.status, err
}

// SetBatchParams switches the evaluator to a batch period.
func (s *Searcher) SetBatchParams(period int) error {
	be, ok := s.model.(BatchEvaluator)
	if !ok {
		return fmt.Errorf("%w: batch periods", ErrUnsupported)
	}
	return be.SetBatchPeriod(period)
}

// RunBatch searches every period in [initial, final] and keeps the best
// trial of each. Periods without a feasible trial are logged and skipped.
// The collected best trials become the searcher's results.
func (s *Searcher) RunBatch(ctx context.Context, alg Algorithm, lb, ub, tol float64, initial, final int) (Status, error) {
	if final < initial {
		return s.status, fmt.Errorf("%w: periods [%d, %d]", ErrInvalidInterval, initial, final)
	}

	var best []optimization.Trial
	var infeasible []optimization.Infeasible
	for period := initial; period <= final; period++ {
		if err := s.SetBatchParams(period); err != nil {
			return s.status, err
		}
		_, err := s.RunScenario(ctx, alg, lb, ub, tol)
		infeasible = append(infeasible, s.infeasible...)
		if errors.Is(err, ErrSearchExhausted) {
			s.logger.Warn("batch period has no feasible trial",
				zap.String("op", "search.RunBatch"),
				zap.Int("period", period),
			)
			continue
		}
		if err != nil {
			return s.status, err
		}
		_, trials := s.Results(true)
		best = append(best, trials...)
	}

	s.trials = best
	s.infeasible = infeasible
	return s.status, s.finish()
}

// ReducedCostBisection bisects the cost of ingredient within [tolCost, initialGuess]
// at a fixed CNEm to find the highest price at which it stays in the diet.
// The search stops when the ingredient is out of the diet with a reduced
// cost within tolCost of zero, or when the cost bracket is narrower than
// tolCost. Narrowing only counts as converged once the ingredient has been
// seen both in and out of the diet; an ingredient that never changes side
// within the bracket is reported with Converged false. The original cost is
// restored before returning.
func (s *Searcher) ReducedCostBisection(ctx context.Context, cnem float64, ingredient string, tolCost, initialGuess float64) (*optimization.BreakEven, error) {
	pe, ok := s.model.(PricedEvaluator)
	if !ok {
		return nil, fmt.Errorf("%w: feed costs", ErrUnsupported)
	}
	if !(tolCost > 0) || initialGuess < tolCost {
		return nil, fmt.Errorf("%w: cost bracket [%g, %g]", ErrInvalidInterval, tolCost, initialGuess)
	}
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	original, err := pe.FeedCost(ingredient)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := pe.SetFeedCost(ingredient, original); err != nil {
			s.logger.Error("failed to restore feed cost", zap.String("ingredient", ingredient), zap.Error(err))
		}
	}()

	const maxIterations = 200
	const included = 1e-9

	result := &optimization.BreakEven{Ingredient: ingredient, CNEm: cnem}
	lo, hi := tolCost, initialGuess
	var sawIn, sawOut bool
	for result.Iterations < maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mid := (lo + hi) / 2
		if err := pe.SetFeedCost(ingredient, mid); err != nil {
			return nil, err
		}
		trial, _ := pe.Run(ctx, result.Iterations, cnem)
		result.Iterations++
		if trial == nil {
			return nil, fmt.Errorf("%w: cnem %g at cost %g", ErrSearchExhausted, cnem, mid)
		}

		x := trial.Diet[ingredient]
		rc := trial.ReducedCosts[ingredient]
		if x <= included && math.Abs(rc) <= tolCost {
			result.Price = mid
			result.Converged = true
			break
		}
		if x > included {
			lo = mid
			sawIn = true
		} else {
			hi = mid
			sawOut = true
		}
		if hi-lo <= tolCost {
			result.Price = lo
			result.Converged = sawIn && sawOut
			break
		}
	}
	if !result.Converged {
		result.Price = lo
	}

	s.logger.Debug("break-even price located",
		zap.String("op", "search.ReducedCostBisection"),
		zap.String("ingredient", ingredient),
		zap.Float64("price", result.Price),
		zap.Int("iterations", result.Iterations),
		zap.Bool("converged", result.Converged),
	)
	return result, nil
}
