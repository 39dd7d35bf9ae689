// Package diet formulates the least-cost or maximum-profit ration for one
// scenario as a linear program over ingredient inclusion fractions.
//
// A Model builds its LP on the first trial and afterwards only refreshes the
// right-hand sides, the objective vector and the variable bounds. Trials must
// therefore be requested sequentially on a single goroutine.
package diet

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/iwvelando/diet-optimizer/internal/lp"
	"github.com/iwvelando/diet-optimizer/internal/metrics"
	"github.com/iwvelando/diet-optimizer/internal/nrc"
	"github.com/iwvelando/diet-optimizer/pkg/constants"
	"github.com/iwvelando/diet-optimizer/pkg/optimization"
)

var (
	// ErrNoGrowthEnergy is reported when intake at the trial CNEm does not
	// cover maintenance, so no net energy is left for gain.
	ErrNoGrowthEnergy = errors.New("intake does not cover maintenance energy")

	// ErrNoGain is reported by per-gain objectives when shrunk weight gain is not positive.
	ErrNoGain = errors.New("shrunk weight gain is not positive")

	// ErrNoBatch is returned by SetBatchPeriod when the model has no batch attached.
	ErrNoBatch = errors.New("no batch attached to model")

	// ErrUnknownFeed is returned when a feed id is not part of the model.
	ErrUnknownFeed = errors.New("unknown feed")
)

// Option configures a Model.
type Option func(*Model)

// WithRecorder counts trials on r.
func WithRecorder(r *metrics.Recorder) Option {
	return func(m *Model) { m.recorder = r }
}

// WithBatch attaches a batch time series. Overrides apply only after SetBatchPeriod.
func WithBatch(b *Batch) Option {
	return func(m *Model) { m.batch = b }
}

// Model is the LP formulation of one scenario.
type Model struct {
	logger   *zap.Logger
	lp       *lp.Optimizer
	recorder *metrics.Recorder

	scenario Scenario
	base     []Feed
	feeds    []Feed
	mp       []float64
	names    []string
	index    map[string]int

	price       float64
	batch       *Batch
	period      *int
	boundsDirty bool

	state  State
	prefix string
	params nrc.Parameters
}

// NewModel validates the scenario and feeds and returns an unbuilt model
// that owns opt. Animal parameters that are invalid for every CNEm surface
// here as *nrc.DomainError or nrc.ErrGrowthTarget.
func NewModel(logger *zap.Logger, opt *lp.Optimizer, sc Scenario, feeds []Feed, opts ...Option) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opt == nil {
		return nil, errors.New("nil optimizer")
	}
	if len(feeds) == 0 {
		return nil, fmt.Errorf("scenario %s has no feeds", sc.ID)
	}
	if err := sc.Animal.CheckGrowthTarget(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", sc.ID, err)
	}
	if _, err := nrc.MaintenanceProtein(sc.Animal.SBW); err != nil {
		return nil, err
	}
	a := sc.Animal
	if _, err := nrc.MaintenanceEnergy(a.SBW, a.BCS, a.BE, a.L, a.Sex, a.A2); err != nil {
		return nil, err
	}
	if _, err := nrc.PeNDFRequirement(a.PH); err != nil {
		return nil, err
	}

	m := &Model{
		logger:   logger,
		lp:       opt,
		scenario: sc,
		base:     append([]Feed(nil), feeds...),
		feeds:    append([]Feed(nil), feeds...),
		mp:       make([]float64, len(feeds)),
		names:    make([]string, len(feeds)),
		index:    make(map[string]int, len(feeds)),
		price:    sc.SellingPrice,
	}
	for i, f := range feeds {
		if f.ID == "" {
			return nil, fmt.Errorf("feed %d has no id", i)
		}
		if _, dup := m.index[f.ID]; dup {
			return nil, fmt.Errorf("duplicate feed %q", f.ID)
		}
		if f.DM <= 0 {
			return nil, fmt.Errorf("feed %q: dry matter must be positive, got %g", f.ID, f.DM)
		}
		if f.Min > f.Max {
			return nil, fmt.Errorf("feed %q: min %g exceeds max %g", f.ID, f.Min, f.Max)
		}
		mp, err := nrc.MetabolizableProtein(f.DM, f.TDN, f.CP, f.RUP, f.Forage, f.Fat)
		if err != nil {
			return nil, fmt.Errorf("feed %q: %w", f.ID, err)
		}
		m.mp[i] = mp
		m.names[i] = f.ID
		m.index[f.ID] = i
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// State returns the LP lifecycle state.
func (m *Model) State() State { return m.state }

// Scenario returns the scenario the model was built for.
func (m *Model) Scenario() Scenario { return m.scenario }

// Batch returns the attached batch, or nil.
func (m *Model) Batch() *Batch { return m.batch }

// Feeds returns the feeds with the active batch period applied.
func (m *Model) Feeds() []Feed { return append([]Feed(nil), m.feeds...) }

// SetPrefix sets the prefix prepended to trial identifiers.
func (m *Model) SetPrefix(prefix string) { m.prefix = prefix }

// Prefix returns the current trial identifier prefix.
func (m *Model) Prefix() string { return m.prefix }

// Clear drops the LP. The next Run rebuilds it from scratch.
func (m *Model) Clear() {
	m.lp.Reset()
	m.state = Unbuilt
	m.boundsDirty = false
}

// SetBatchPeriod applies the batch overrides for period to the base feeds
// and selling price.
func (m *Model) SetBatchPeriod(period int) error {
	if m.batch == nil {
		return ErrNoBatch
	}
	if period < m.batch.InitialPeriod || period > m.batch.FinalPeriod {
		return fmt.Errorf("period %d outside batch %s range [%d, %d]",
			period, m.batch.ID, m.batch.InitialPeriod, m.batch.FinalPeriod)
	}
	idx := period - m.batch.InitialPeriod

	m.feeds = append(m.feeds[:0], m.base...)
	for i := range m.feeds {
		series, ok := m.batch.Feeds[m.feeds[i].ID]
		if !ok {
			continue
		}
		if v, ok := seriesValue(series.Cost, idx); ok {
			m.feeds[i].Cost = v
		}
		if v, ok := seriesValue(series.Min, idx); ok {
			m.feeds[i].Min = v
		}
		if v, ok := seriesValue(series.Max, idx); ok {
			m.feeds[i].Max = v
		}
	}
	m.price = m.scenario.SellingPrice
	if v, ok := seriesValue(m.batch.SellingPrice, idx); ok {
		m.price = v
	}

	p := period
	m.period = &p
	m.boundsDirty = true
	m.logger.Debug("batch period applied",
		zap.String("op", "diet.SetBatchPeriod"),
		zap.String("scenario", m.scenario.ID),
		zap.String("batch", m.batch.ID),
		zap.Int("period", period),
	)
	return nil
}

// SetFeedCost overrides the cost of one feed for subsequent trials.
func (m *Model) SetFeedCost(id string, cost float64) error {
	i, ok := m.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFeed, id)
	}
	m.feeds[i].Cost = cost
	return nil
}

// FeedCost returns the current cost of one feed.
func (m *Model) FeedCost(id string) (float64, error) {
	i, ok := m.index[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownFeed, id)
	}
	return m.feeds[i].Cost, nil
}

func (m *Model) problemID(trialID int) string {
	return m.prefix + strconv.Itoa(trialID)
}

// Run evaluates one trial CNEm. Exactly one of the returned values is
// non-nil: the trial on an optimal solve, otherwise a diagnostic record.
// Errors and panics raised while computing requirements, updating or
// solving the LP are logged and reported as infeasible.
func (m *Model) Run(ctx context.Context, trialID int, cnem float64) (trial *optimization.Trial, infeasible *optimization.Infeasible) {
	id := m.problemID(trialID)
	logger := m.logger.With(
		zap.String("op", "diet.Run"),
		zap.String("scenario", m.scenario.ID),
		zap.String("trial", id),
		zap.Float64("cnem", cnem),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("trial aborted", zap.Any("panic", r))
			trial = nil
			infeasible = m.diagnostic(id, cnem, fmt.Sprintf("panic: %v", r))
			m.recorder.ObserveTrial(false)
		}
	}()

	trial, err := m.run(ctx, id, cnem)
	if err != nil {
		logger.Warn("trial infeasible",
			zap.Error(err),
			zap.Float64("dmi", m.params.DMI),
			zap.Float64("nem", m.params.NEm),
			zap.Float64("mpm", m.params.MPm),
		)
		m.recorder.ObserveTrial(false)
		return nil, m.diagnostic(id, cnem, err.Error())
	}
	logger.Debug("trial solved",
		zap.Float64("objective", trial.Objective),
		zap.Float64("swg", trial.SWG),
	)
	m.recorder.ObserveTrial(true)
	return trial, nil
}

func (m *Model) run(ctx context.Context, id string, cnem float64) (*optimization.Trial, error) {
	p, err := nrc.Compute(cnem, m.scenario.Animal)
	m.params = p
	if err != nil {
		return nil, err
	}
	if !p.Feasible {
		return nil, ErrNoGrowthEnergy
	}
	if m.scenario.Objective.PerGain() && p.SWG <= 0 {
		return nil, ErrNoGain
	}

	coefs, offset, err := m.objective(p)
	if err != nil {
		return nil, err
	}

	if m.state == Unbuilt {
		if err := m.build(p, coefs, offset); err != nil {
			m.Clear()
			return nil, fmt.Errorf("build: %w", err)
		}
	} else if err := m.update(p, coefs, offset); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	sol, err := m.lp.Solve(ctx)
	if err != nil {
		return nil, err
	}
	switch sol.Status {
	case lp.StatusOptimal:
	case lp.StatusUnbounded:
		return nil, lp.ErrUnbounded
	default:
		return nil, lp.ErrInfeasible
	}
	return m.decode(id, p, sol), nil
}

// objective returns the per-ingredient coefficients and the constant term.
// Costs are as-fed, so each is scaled by DMI/DM to a daily expenditure.
func (m *Model) objective(p nrc.Parameters) ([]float64, float64, error) {
	coefs := make([]float64, len(m.feeds))
	for i, f := range m.feeds {
		coefs[i] = -f.Cost * p.DMI / f.DM
	}

	switch m.scenario.Objective {
	case MaxProfit:
		return coefs, m.price * p.SWG, nil
	case MinCost:
		return coefs, 0, nil
	case MaxProfitSWG:
		for i := range coefs {
			coefs[i] /= p.SWG
		}
		return coefs, m.price, nil
	case MinCostSWG:
		for i := range coefs {
			coefs[i] /= p.SWG
		}
		return coefs, 0, nil
	default:
		return nil, 0, fmt.Errorf("unsupported objective %s", m.scenario.Objective)
	}
}

func proteinRequirement(p nrc.Parameters) float64 {
	return (p.MPm + constants.ProteinGainFactor*p.SWG - constants.ProteinEnergyFactor*p.NEg) *
		constants.GramsToKilograms / p.DMI
}

func (m *Model) rhs(p nrc.Parameters) []lp.Pair {
	return []lp.Pair{
		{Name: constants.ConstraintEnergyLower, Value: p.CNEm * constants.EnergyBandLower},
		{Name: constants.ConstraintEnergyUpper, Value: p.CNEm * constants.EnergyBandUpper},
		{Name: constants.ConstraintProtein, Value: proteinRequirement(p)},
		{Name: constants.ConstraintRDP, Value: constants.RDPFactor * p.CNEm},
		{Name: constants.ConstraintPeNDF, Value: p.PeNDF},
	}
}

func (m *Model) build(p nrc.Parameters, coefs []float64, offset float64) error {
	m.lp.Reset()
	m.lp.SetSense(lp.Maximize)

	n := len(m.feeds)
	lower := make([]float64, n)
	upper := make([]float64, n)
	nema := make([]float64, n)
	ones := make([]float64, n)
	rdp := make([]float64, n)
	fat := make([]float64, n)
	pendf := make([]float64, n)
	for i, f := range m.feeds {
		lower[i] = f.Min
		upper[i] = f.Max
		nema[i] = f.NEma
		ones[i] = 1
		rdp[i] = (1 - f.RUP) * f.CP
		fat[i] = f.Fat
		pendf[i] = f.NDF * f.PeF
	}
	if err := m.lp.AddVariables(m.names, coefs, lower, upper); err != nil {
		return err
	}

	rows := []struct {
		name  string
		coefs []float64
		sense lp.ConstraintSense
		rhs   float64
	}{
		{constants.ConstraintEnergyLower, nema, lp.GreaterEqual, p.CNEm * constants.EnergyBandLower},
		{constants.ConstraintEnergyUpper, nema, lp.LessEqual, p.CNEm * constants.EnergyBandUpper},
		{constants.ConstraintConvexity, ones, lp.Equal, 1},
		{constants.ConstraintProtein, m.mp, lp.GreaterEqual, proteinRequirement(p)},
		{constants.ConstraintRDP, rdp, lp.GreaterEqual, constants.RDPFactor * p.CNEm},
		{constants.ConstraintFat, fat, lp.LessEqual, constants.FatCeiling},
		{constants.ConstraintPeNDF, pendf, lp.GreaterEqual, p.PeNDF},
	}
	for _, r := range rows {
		if err := m.lp.AddConstraint(r.name, m.names, r.coefs, r.sense, r.rhs); err != nil {
			return err
		}
	}
	m.lp.SetObjectiveOffset(offset)

	m.state = Built
	m.boundsDirty = false
	m.logger.Debug("lp built",
		zap.String("op", "diet.build"),
		zap.String("scenario", m.scenario.ID),
		zap.Int("variables", n),
		zap.Int("constraints", len(rows)),
	)
	return nil
}

func (m *Model) update(p nrc.Parameters, coefs []float64, offset float64) error {
	if err := m.lp.SetConstraintRHS(m.rhs(p)...); err != nil {
		return err
	}
	pairs := make([]lp.Pair, len(coefs))
	for i, c := range coefs {
		pairs[i] = lp.Pair{Name: m.names[i], Value: c}
	}
	if err := m.lp.SetObjectiveFunction(pairs...); err != nil {
		return err
	}
	m.lp.SetObjectiveOffset(offset)

	if m.boundsDirty {
		for _, f := range m.feeds {
			if err := m.lp.SetVariableBounds(f.ID, f.Min, f.Max); err != nil {
				return err
			}
		}
		m.boundsDirty = false
	}
	return nil
}

func (m *Model) decode(id string, p nrc.Parameters, sol *lp.Solution) *optimization.Trial {
	t := &optimization.Trial{
		ProblemID:    id,
		CNEm:         p.CNEm,
		MPm:          p.MPm * constants.GramsToKilograms,
		DMI:          p.DMI,
		NEm:          p.NEm,
		NEg:          p.NEg,
		SWG:          p.SWG,
		PeNDF:        p.PeNDF,
		Objective:    sol.Objective,
		Revenue:      m.price * p.SWG,
		Diet:         make(map[string]float64, len(m.feeds)),
		ReducedCosts: make(map[string]float64, len(m.feeds)),
		Constraints:  make([]optimization.ConstraintResult, len(sol.ConstraintNames)),
	}
	if m.period != nil {
		period := *m.period
		t.Period = &period
	}
	for i, f := range m.feeds {
		x := sol.Values[i]
		t.Diet[f.ID] = x
		t.ReducedCosts[f.ID] = sol.ReducedCosts[i]
		t.Cost += x * f.Cost * p.DMI / f.DM
		t.CNEg += x * f.NEga
	}
	for i, name := range sol.ConstraintNames {
		t.Constraints[i] = optimization.ConstraintResult{
			Name:     name,
			Activity: sol.Activity[i],
			RHS:      sol.RHS[i],
			Dual:     sol.Duals[i],
			Slack:    sol.Slacks[i],
		}
	}
	return t
}

func (m *Model) diagnostic(id string, cnem float64, reason string) *optimization.Infeasible {
	return &optimization.Infeasible{
		ProblemID: id,
		CNEm:      cnem,
		MPm:       m.params.MPm * constants.GramsToKilograms,
		DMI:       m.params.DMI,
		NEm:       m.params.NEm,
		PeNDF:     m.params.PeNDF,
		Reason:    reason,
	}
}
