package optimization

import "github.com/iwvelando/diet-optimizer/pkg/format"

// Status names the final state of a scenario search.
const (
	StatusSolved  = "SOLVED"
	StatusError   = "ERROR"
	StatusSkipped = "SKIPPED"
)

// BreakEven is the outcome of reduced-cost price discovery for one ingredient.
type BreakEven struct {
	Ingredient string  `json:"ingredient"`
	CNEm       float64 `json:"cnem"`
	Price      float64 `json:"price"`
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
}

// ScenarioResult holds every trial recorded for one scenario.
type ScenarioResult struct {
	ID         string       `json:"id"`
	Identifier string       `json:"identifier"`
	Algorithm  string       `json:"algorithm"`
	Objective  string       `json:"objective"`
	Status     string       `json:"status"`
	LowerBound float64      `json:"lowerBound"`
	UpperBound float64      `json:"upperBound"`
	Trials     []Trial      `json:"trials"`
	Infeasible []Infeasible `json:"infeasible,omitempty"`
	BreakEven  *BreakEven   `json:"breakEven,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// Best returns the best trial of the scenario, or nil.
func (r ScenarioResult) Best() *Trial {
	return Best(r.Trials)
}

// Summary condenses a scenario result into a single row.
type Summary struct {
	Scenario       string   `json:"scenario"`
	Identifier     string   `json:"identifier"`
	Status         string   `json:"status"`
	CNEm           float64  `json:"cnem"`
	Objective      float64  `json:"objective"`
	Cost           float64  `json:"cost"`
	SWG            float64  `json:"swg"`
	DMI            float64  `json:"dmi"`
	Evaluations    int      `json:"evaluations"`
	Notes          []string `json:"notes,omitempty"`
	CostDisplay    string   `json:"costDisplay,omitempty"`
	ObjectiveLabel string   `json:"objectiveLabel,omitempty"`
}

// Summarize builds the summary row of a scenario result.
func Summarize(r ScenarioResult) Summary {
	s := Summary{
		Scenario:       r.ID,
		Identifier:     r.Identifier,
		Status:         r.Status,
		Evaluations:    len(r.Trials) + len(r.Infeasible),
		ObjectiveLabel: r.Objective,
	}
	if r.Error != "" {
		s.Notes = append(s.Notes, r.Error)
	}
	if best := r.Best(); best != nil {
		s.CNEm = best.CNEm
		s.Objective = best.Objective
		s.Cost = best.Cost
		s.SWG = best.SWG
		s.DMI = best.DMI
		s.CostDisplay = format.Currency(best.Cost)
	}
	return s
}
