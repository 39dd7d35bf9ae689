// Package scenario runs every active scenario of a configuration through the
// diet model and search engine and collects the results.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iwvelando/diet-optimizer/internal/config"
	"github.com/iwvelando/diet-optimizer/internal/diet"
	"github.com/iwvelando/diet-optimizer/internal/lp"
	"github.com/iwvelando/diet-optimizer/internal/metrics"
	"github.com/iwvelando/diet-optimizer/internal/search"
	"github.com/iwvelando/diet-optimizer/pkg/optimization"
)

// Driver owns a validated configuration and runs its active scenarios.
type Driver struct {
	logger   *zap.Logger
	conf     *config.Configuration
	recorder *metrics.Recorder
}

// Option configures a Driver.
type Option func(*Driver)

// WithRecorder instruments every LP, model and scenario built by the driver.
func WithRecorder(r *metrics.Recorder) Option {
	return func(d *Driver) { d.recorder = r }
}

// Result holds the outcome of every active scenario in configuration order.
type Result struct {
	Scenarios []optimization.ScenarioResult
	Summaries []optimization.Summary
	Duration  time.Duration
}

// ByID indexes the scenario results by scenario id.
func (r Result) ByID() map[string]optimization.ScenarioResult {
	out := make(map[string]optimization.ScenarioResult, len(r.Scenarios))
	for _, s := range r.Scenarios {
		out[s.ID] = s
	}
	return out
}

// NewDriver constructs a Driver for the provided configuration. The
// configuration is expected to be normalized.
func NewDriver(logger *zap.Logger, conf *config.Configuration, opts ...Option) (*Driver, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{logger: logger, conf: conf}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Run validates the shared configuration and evaluates every active
// scenario. A scenario that fails validation or has no feasible CNEm is
// reported in its result and does not stop the others. Scenarios run on up
// to solver.workers goroutines, each with its own model and LP.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	if err := d.conf.ValidateCommon(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	start := time.Now()
	active := d.conf.ActiveScenarios()
	results := make([]optimization.ScenarioResult, len(active))

	workers := d.conf.Solver.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, s := range active {
		i, s := i, s
		g.Go(func() error {
			results[i] = d.runScenario(gctx, s)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &Result{Scenarios: results, Duration: time.Since(start)}
	for _, r := range results {
		out.Summaries = append(out.Summaries, optimization.Summarize(r))
		d.recorder.ObserveScenario(r.Status)
	}

	d.logger.Info("scenarios complete",
		zap.String("op", "scenario.Run"),
		zap.Int("scenarios", len(results)),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}

func (d *Driver) runScenario(ctx context.Context, s config.Scenario) optimization.ScenarioResult {
	logger := d.logger.With(zap.String("scenario", s.ID))
	result := optimization.ScenarioResult{
		ID:         s.ID,
		Identifier: s.Identifier,
		Algorithm:  s.Algorithm,
		Objective:  s.Objective,
		LowerBound: s.LowerBound,
		UpperBound: s.UpperBound,
	}
	fail := func(status string, err error) optimization.ScenarioResult {
		result.Status = status
		result.Error = err.Error()
		if status == optimization.StatusSkipped {
			logger.Warn("scenario skipped", zap.String("op", "scenario.runScenario"), zap.Error(err))
		} else {
			logger.Error("scenario failed", zap.String("op", "scenario.runScenario"), zap.Error(err))
		}
		return result
	}

	searcher, batch, err := d.prepare(logger, s)
	if err != nil {
		return fail(optimization.StatusError, err)
	}

	bounds, err := d.refine(ctx, searcher, batch, s)
	if err != nil {
		return fail(optimization.StatusError, err)
	}
	if bounds == nil {
		return fail(optimization.StatusSkipped,
			fmt.Errorf("no feasible CNEm in [%g, %g]", s.LowerBound, s.UpperBound))
	}
	result.LowerBound, result.UpperBound = bounds.Lower, bounds.Upper

	alg, err := s.SearchAlgorithm()
	if err != nil {
		return fail(optimization.StatusError, err)
	}
	if batch != nil {
		_, err = searcher.RunBatch(ctx, alg, bounds.Lower, bounds.Upper, s.Tolerance, batch.InitialPeriod, batch.FinalPeriod)
	} else {
		_, err = searcher.RunScenario(ctx, alg, bounds.Lower, bounds.Upper, s.Tolerance)
	}
	result.Infeasible = searcher.Infeasible()
	if err != nil {
		return fail(optimization.StatusError, err)
	}

	_, result.Trials = searcher.Results(false)
	result.Status = optimization.StatusSolved

	if s.SpecialIngredient != "" {
		be, err := d.breakEven(ctx, searcher, result.Best(), s)
		if err != nil {
			logger.Warn("break-even price search failed",
				zap.String("op", "scenario.runScenario"),
				zap.String("ingredient", s.SpecialIngredient),
				zap.Error(err),
			)
			result.Error = fmt.Sprintf("break-even %s: %v", s.SpecialIngredient, err)
		} else if !be.Converged {
			result.Error = fmt.Sprintf("break-even %s: no price in [%g, %g] moves it across the diet boundary",
				s.SpecialIngredient, s.SpecialCostTol, s.SpecialCostGuess)
		}
		result.BreakEven = be
	}

	logger.Info("scenario solved",
		zap.String("op", "scenario.runScenario"),
		zap.Int("trials", len(result.Trials)),
		zap.Int("infeasible", len(result.Infeasible)),
	)
	return result
}

// prepare builds the LP, diet model and searcher of one scenario.
func (d *Driver) prepare(logger *zap.Logger, s config.Scenario) (*search.Searcher, *diet.Batch, error) {
	if err := d.conf.ValidateScenario(s); err != nil {
		return nil, nil, err
	}
	sc, err := d.conf.DietScenario(s)
	if err != nil {
		return nil, nil, err
	}
	feeds, err := d.conf.Feeds(s)
	if err != nil {
		return nil, nil, err
	}
	batch, err := d.conf.DietBatch(s)
	if err != nil {
		return nil, nil, err
	}

	backend, err := lp.NewBackend(d.conf.Solver.Backend)
	if err != nil {
		return nil, nil, err
	}
	opt, err := lp.New(logger, backend, lp.WithTimeout(d.conf.Solver.Timeout), lp.WithRecorder(d.recorder))
	if err != nil {
		return nil, nil, err
	}

	opts := []diet.Option{diet.WithRecorder(d.recorder)}
	if batch != nil {
		opts = append(opts, diet.WithBatch(batch))
	}
	model, err := diet.NewModel(logger, opt, sc, feeds, opts...)
	if err != nil {
		return nil, nil, err
	}
	return search.New(logger, model, s.ID+"_"), batch, nil
}

// refine narrows the configured interval to its feasible part. For a batch
// the result spans every period that has any feasible point.
func (d *Driver) refine(ctx context.Context, searcher *search.Searcher, batch *diet.Batch, s config.Scenario) (*search.Bounds, error) {
	if batch == nil {
		return searcher.RefineBounds(ctx, s.LowerBound, s.UpperBound, s.Tolerance)
	}

	var union *search.Bounds
	for period := batch.InitialPeriod; period <= batch.FinalPeriod; period++ {
		if err := searcher.SetBatchParams(period); err != nil {
			return nil, err
		}
		b, err := searcher.RefineBounds(ctx, s.LowerBound, s.UpperBound, s.Tolerance)
		if err != nil {
			return nil, err
		}
		if b == nil {
			continue
		}
		if union == nil {
			union = b
			continue
		}
		union.Lower = min(union.Lower, b.Lower)
		union.Upper = max(union.Upper, b.Upper)
	}
	return union, nil
}

// breakEven runs price discovery for the special ingredient at the best
// trial, under that trial's batch period when there is one.
func (d *Driver) breakEven(ctx context.Context, searcher *search.Searcher, best *optimization.Trial, s config.Scenario) (*optimization.BreakEven, error) {
	if best == nil {
		return nil, errors.New("no trial to price against")
	}
	if best.Period != nil {
		if err := searcher.SetBatchParams(*best.Period); err != nil {
			return nil, err
		}
	}
	return searcher.ReducedCostBisection(ctx, best.CNEm, s.SpecialIngredient, s.SpecialCostTol, s.SpecialCostGuess)
}
