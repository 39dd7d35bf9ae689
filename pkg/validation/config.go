// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"math"
)

// maxGridPoints is the grid size above which a search is flagged as slow.
const maxGridPoints = 10000

// ValidateFeedBounds checks that the inclusion bounds of a feed scenario
// leave room for a ration whose fractions sum to one.
func ValidateFeedBounds(feedScenario string, feeds []FeedConfig) []string {
	var warnings []string
	var minSum, maxSum float64
	for _, f := range feeds {
		minSum += f.Min
		maxSum += f.Max
	}
	if minSum > 1 {
		warnings = append(warnings, fmt.Sprintf("Feed scenario '%s' minimum inclusions sum to %.3f > 1 - no ration can satisfy them",
			feedScenario, minSum))
	}
	if maxSum < 1 {
		warnings = append(warnings, fmt.Sprintf("Feed scenario '%s' maximum inclusions sum to %.3f < 1 - no ration can satisfy them",
			feedScenario, maxSum))
	}
	return warnings
}

// ValidateSearchGrid flags search intervals that are degenerate or would
// need an unusually large number of trials.
func ValidateSearchGrid(scenario string, lb, ub, tol float64) []string {
	var warnings []string
	if tol <= 0 || ub < lb {
		return warnings
	}
	if tol >= ub-lb {
		warnings = append(warnings, fmt.Sprintf("Scenario '%s' tolerance %g is not smaller than the interval [%g, %g] - a single trial will run",
			scenario, tol, lb, ub))
	}
	if points := math.Ceil((ub - lb) / tol); points > maxGridPoints {
		warnings = append(warnings, fmt.Sprintf("Scenario '%s' search grid has %.0f points - brute force will be slow",
			scenario, points))
	}
	return warnings
}

// ConfigValidator collects the parts of a configuration that warnings are derived from.
type ConfigValidator struct {
	FeedScenarios []FeedScenarioConfig
	Scenarios     []ScenarioConfig
}

type FeedScenarioConfig struct {
	Name  string
	Feeds []FeedConfig
}

type FeedConfig struct {
	ID  string
	Min float64
	Max float64
}

type ScenarioConfig struct {
	Name         string
	Active       bool
	FeedScenario string
	LowerBound   float64
	UpperBound   float64
	Tolerance    float64
}

// ValidateAll validates the entire configuration and returns warnings
func (cv *ConfigValidator) ValidateAll() []string {
	var warnings []string

	used := make(map[string]bool)
	active := 0
	for _, scenario := range cv.Scenarios {
		if !scenario.Active {
			continue
		}
		active++
		used[scenario.FeedScenario] = true
		warnings = append(warnings, ValidateSearchGrid(scenario.Name, scenario.LowerBound, scenario.UpperBound, scenario.Tolerance)...)
	}
	if active == 0 {
		warnings = append(warnings, "No active scenarios - nothing will be optimized")
	}

	for _, fs := range cv.FeedScenarios {
		if !used[fs.Name] {
			if active > 0 {
				warnings = append(warnings, fmt.Sprintf("Feed scenario '%s' is not used by any active scenario", fs.Name))
			}
			continue
		}
		warnings = append(warnings, ValidateFeedBounds(fs.Name, fs.Feeds)...)
	}

	return warnings
}
