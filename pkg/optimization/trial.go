// Package optimization provides shared data structures for optimization results.
package optimization

import "sort"

// ConstraintResult is the state of one diet constraint at the optimum.
type ConstraintResult struct {
	Name     string  `json:"name"`
	Activity float64 `json:"activity"`
	RHS      float64 `json:"rhs"`
	Dual     float64 `json:"dual"`
	Slack    float64 `json:"slack"`
}

// Trial is the outcome of one feasible diet model evaluation.
type Trial struct {
	ProblemID string `json:"problemId"`
	Period    *int   `json:"period,omitempty"`

	CNEm  float64 `json:"cnem"`
	MPm   float64 `json:"mpm"` // kg/day
	DMI   float64 `json:"dmi"`
	NEm   float64 `json:"nem"`
	NEg   float64 `json:"neg"`
	SWG   float64 `json:"swg"`
	PeNDF float64 `json:"pendf"`
	CNEg  float64 `json:"cneg"` // NEga of the mix

	Objective float64 `json:"objective"`
	Cost      float64 `json:"cost"`
	Revenue   float64 `json:"revenue"`

	Diet         map[string]float64 `json:"diet"`
	ReducedCosts map[string]float64 `json:"reducedCosts"`
	Constraints  []ConstraintResult `json:"constraints"`
}

// Record flattens the trial into the stable key set consumed by the CSV
// writer: physiological parameters, one entry per decision variable, and
// the per-constraint activity, rhs, dual and slack.
func (t Trial) Record() map[string]float64 {
	rec := map[string]float64{
		"CNEm":     t.CNEm,
		"MPm":      t.MPm,
		"DMI":      t.DMI,
		"NEm":      t.NEm,
		"NEg":      t.NEg,
		"SWG":      t.SWG,
		"peNDF":    t.PeNDF,
		"CNEg":     t.CNEg,
		"obj_func": t.Objective,
		"obj_cost": t.Cost,
		"obj_rev":  t.Revenue,
	}
	for name, v := range t.Diet {
		rec[name] = v
	}
	for name, v := range t.ReducedCosts {
		rec[name+"_red_cost"] = v
	}
	for _, c := range t.Constraints {
		rec[c.Name+"_act"] = c.Activity
		rec[c.Name+"_rhs"] = c.RHS
		rec[c.Name+"_dual"] = c.Dual
		rec[c.Name+"_slack"] = c.Slack
	}
	return rec
}

// Infeasible is the diagnostic record of a trial with no solution.
type Infeasible struct {
	ProblemID string  `json:"problemId"`
	CNEm      float64 `json:"cnem"`
	MPm       float64 `json:"mpm"`
	DMI       float64 `json:"dmi"`
	NEm       float64 `json:"nem"`
	PeNDF     float64 `json:"pendf"`
	Reason    string  `json:"reason"`
}

// Record flattens the diagnostic record.
func (i Infeasible) Record() map[string]float64 {
	return map[string]float64{
		"CNEm":  i.CNEm,
		"MPm":   i.MPm,
		"DMI":   i.DMI,
		"NEm":   i.NEm,
		"peNDF": i.PeNDF,
	}
}

// Best returns the trial with the highest objective, or nil.
func Best(trials []Trial) *Trial {
	var best *Trial
	for i := range trials {
		if best == nil || trials[i].Objective > best.Objective {
			best = &trials[i]
		}
	}
	return best
}

// SortedKeys returns the union of record keys across trials in lexical order.
func SortedKeys(records []map[string]float64) []string {
	seen := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
