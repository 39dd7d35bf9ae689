// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/diet-optimizer/pkg/optimization"
)

// FindScenario finds a scenario result by id or identifier.
// Returns a pointer into results if found, nil otherwise.
func FindScenario(results []optimization.ScenarioResult, name string) *optimization.ScenarioResult {
	for i := range results {
		if results[i].ID == name || (results[i].Identifier != "" && results[i].Identifier == name) {
			return &results[i]
		}
	}
	return nil
}

// DietShare returns the inclusion of ingredient in the best trial of r, or
// -1 when r has no feasible trial.
func DietShare(r *optimization.ScenarioResult, ingredient string) float64 {
	if r == nil {
		return -1
	}
	best := r.Best()
	if best == nil {
		return -1
	}
	return best.Diet[ingredient]
}
