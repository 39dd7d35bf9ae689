package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iwvelando/diet-optimizer/internal/diet"
	"github.com/iwvelando/diet-optimizer/internal/lp"
	"github.com/iwvelando/diet-optimizer/internal/nrc"
	"github.com/iwvelando/diet-optimizer/internal/search"
	"github.com/iwvelando/diet-optimizer/pkg/configprocessor"
	"github.com/iwvelando/diet-optimizer/pkg/constants"
	"github.com/iwvelando/diet-optimizer/pkg/validation"
)

// ConfigurationError reports an invalid or inconsistent configuration value.
// Scenario is empty for errors outside any scenario.
type ConfigurationError struct {
	Scenario string
	Field    string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Scenario != "" {
		msg = "scenario " + e.Scenario + ": " + msg
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func structErrors(scenario string, s interface{}) []error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []error{&ConfigurationError{Scenario: scenario, Reason: err.Error(), Err: err}}
	}
	out := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		reason := "failed " + fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		out = append(out, &ConfigurationError{Scenario: scenario, Field: fe.Namespace(), Reason: reason, Err: err})
	}
	return out
}

// Normalize fills defaults and canonicalizes names in place. Unknown names
// are left untouched for Validate to report.
func (c *Configuration) Normalize() {
	if c.Output.Format == "" {
		c.Output.Format = constants.OutputFormatPretty
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Solver.Backend == "" {
		c.Solver.Backend = constants.DefaultBackend
	}
	c.Solver.Backend = strings.ToLower(strings.TrimSpace(c.Solver.Backend))
	if c.Solver.Workers <= 0 {
		c.Solver.Workers = constants.DefaultWorkers
	}
	for i := range c.Scenarios {
		c.Scenarios[i].Normalize()
	}
}

// Normalize fills the scenario defaults and canonicalizes its names.
func (s *Scenario) Normalize() {
	if s.LowerBound == 0 {
		s.LowerBound = constants.DefaultLowerBound
	}
	if s.UpperBound == 0 {
		s.UpperBound = constants.DefaultUpperBound
	}
	if s.Tolerance == 0 {
		s.Tolerance = constants.DefaultTolerance
	}
	if s.SpecialIngredient != "" {
		if s.SpecialCostTol == 0 {
			s.SpecialCostTol = constants.DefaultSpecialCostTolerance
		}
		if s.SpecialCostGuess == 0 {
			s.SpecialCostGuess = constants.DefaultSpecialCostGuess
		}
	}
	if eq, err := nrc.ParseDMIEquation(s.DMIEquation); err == nil {
		s.DMIEquation = eq.String()
	}
	if obj, err := diet.ParseObjective(s.Objective); err == nil {
		s.Objective = obj.String()
	}
	if alg, err := search.ParseAlgorithm(s.Algorithm); err == nil {
		s.Algorithm = alg.String()
	}
}

// Validate checks the whole configuration, including every scenario, and
// joins all problems into one error.
func (c *Configuration) Validate() error {
	errs := c.validateCommon()
	for i := range c.Scenarios {
		if err := c.ValidateScenario(c.Scenarios[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ValidateCommon checks everything outside the scenario list. A failure here
// prevents any scenario from running.
func (c *Configuration) ValidateCommon() error {
	return errors.Join(c.validateCommon()...)
}

func (c *Configuration) validateCommon() []error {
	errs := structErrors("", c)

	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		errs = append(errs, &ConfigurationError{Field: "output.format", Reason: err.Error(), Err: err})
	}
	if _, err := lp.NewBackend(c.Solver.Backend); err != nil {
		errs = append(errs, &ConfigurationError{Field: "solver.backend", Reason: err.Error(), Err: err})
	}

	seen := make(map[string]bool)
	for _, ing := range c.Ingredients {
		if seen[ing.ID] {
			errs = append(errs, &ConfigurationError{Field: "ingredients", Reason: fmt.Sprintf("duplicate ingredient %q", ing.ID)})
		}
		seen[ing.ID] = true
	}
	for _, fs := range c.FeedScenarios {
		ids := make(map[string]bool)
		for _, f := range fs.Feeds {
			if !seen[f.ID] {
				errs = append(errs, &ConfigurationError{Field: "feedScenarios." + fs.Name,
					Reason: fmt.Sprintf("unknown ingredient %q", f.ID)})
			}
			if ids[f.ID] {
				errs = append(errs, &ConfigurationError{Field: "feedScenarios." + fs.Name,
					Reason: fmt.Sprintf("duplicate feed %q", f.ID)})
			}
			ids[f.ID] = true
			if f.Max != nil && f.Min > *f.Max {
				errs = append(errs, &ConfigurationError{Field: "feedScenarios." + fs.Name,
					Reason: fmt.Sprintf("feed %q min %g exceeds max %g", f.ID, f.Min, *f.Max)})
			}
		}
	}
	for _, b := range c.Batches {
		for _, bf := range b.Feeds {
			fs, ok := c.FeedScenario(bf.FeedScenario)
			if !ok {
				errs = append(errs, &ConfigurationError{Field: "batches." + b.ID,
					Reason: fmt.Sprintf("unknown feed scenario %q", bf.FeedScenario)})
				continue
			}
			if !hasFeed(fs, bf.ID) {
				errs = append(errs, &ConfigurationError{Field: "batches." + b.ID,
					Reason: fmt.Sprintf("feed %q is not part of feed scenario %q", bf.ID, bf.FeedScenario)})
			}
		}
	}
	return errs
}

func hasFeed(fs FeedScenario, id string) bool {
	for _, f := range fs.Feeds {
		if f.ID == id {
			return true
		}
	}
	return false
}

// ValidateScenario checks one scenario against the rest of the
// configuration. All errors are *ConfigurationError values joined together.
func (c *Configuration) ValidateScenario(s Scenario) error {
	name := s.ID
	errs := structErrors(name, s)
	fail := func(field, reason string, err error) {
		errs = append(errs, &ConfigurationError{Scenario: name, Field: field, Reason: reason, Err: err})
	}

	hasWeight := s.TargetWeight > 0 && !math.IsInf(s.TargetWeight, 0)
	hasDays := s.FeedingDays > 0 && !math.IsInf(s.FeedingDays, 0)
	switch {
	case hasWeight && hasDays:
		fail("targetWeight", "targetWeight and feedingDays are mutually exclusive", nrc.ErrGrowthTarget)
	case !hasWeight && !hasDays:
		fail("targetWeight", "one of targetWeight or feedingDays is required", nrc.ErrGrowthTarget)
	}

	if _, err := nrc.ParseDMIEquation(s.DMIEquation); err != nil {
		fail("dmiEquation", err.Error(), err)
	}
	if _, err := diet.ParseObjective(s.Objective); err != nil {
		fail("objective", err.Error(), err)
	}
	if _, err := search.ParseAlgorithm(s.Algorithm); err != nil {
		fail("algorithm", err.Error(), err)
	}
	if s.UpperBound < s.LowerBound {
		fail("ub", fmt.Sprintf("upper bound %g is below lower bound %g", s.UpperBound, s.LowerBound), nil)
	}
	if s.Tolerance <= 0 {
		fail("tol", "tolerance must be positive", nil)
	}

	fs, ok := c.FeedScenario(s.FeedScenario)
	if !ok {
		fail("feedScenario", fmt.Sprintf("unknown feed scenario %q", s.FeedScenario), nil)
	} else if s.SpecialIngredient != "" && !hasFeed(fs, s.SpecialIngredient) {
		fail("specialIngredient", fmt.Sprintf("%q is not part of feed scenario %q", s.SpecialIngredient, s.FeedScenario), nil)
	}
	if s.Batch != "" {
		if _, ok := c.Batch(s.Batch); !ok {
			fail("batch", fmt.Sprintf("unknown batch %q", s.Batch), nil)
		}
	}
	if s.SpecialIngredient != "" && s.SpecialCostGuess < s.SpecialCostTol {
		fail("specialCostGuess", "initial cost guess must not be below the cost tolerance", nil)
	}

	return errors.Join(errs...)
}

// ValidateConfiguration returns non-fatal warnings about the configuration.
func (c *Configuration) ValidateConfiguration() []string {
	var feedScenarios []configprocessor.FeedScenarioInfo
	for _, fs := range c.FeedScenarios {
		info := configprocessor.FeedScenarioInfo{Name: fs.Name}
		for _, f := range fs.Feeds {
			max := 1.0
			if f.Max != nil {
				max = *f.Max
			}
			info.Feeds = append(info.Feeds, configprocessor.FeedInfo{ID: f.ID, Min: f.Min, Max: max})
		}
		feedScenarios = append(feedScenarios, info)
	}

	var scenarios []configprocessor.ScenarioInfo
	for _, s := range c.Scenarios {
		scenarios = append(scenarios, configprocessor.ScenarioInfo{
			Name:         s.Name(),
			Active:       s.Active,
			FeedScenario: s.FeedScenario,
			LowerBound:   s.LowerBound,
			UpperBound:   s.UpperBound,
			Tolerance:    s.Tolerance,
		})
	}

	processor := configprocessor.NewProcessor()
	return processor.ValidateConfiguration(feedScenarios, scenarios)
}
