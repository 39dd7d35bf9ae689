// Package output provides utilities for formatting and displaying optimization results.
package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/iwvelando/diet-optimizer/pkg/format"
	"github.com/iwvelando/diet-optimizer/pkg/optimization"
)

// PrettyFormat writes a human-readable rather than machine-readable report.
func PrettyFormat(w io.Writer, results []optimization.ScenarioResult, bestOnly bool) {
	p := message.NewPrinter(language.English)
	for i, result := range results {
		_, _ = p.Fprintf(w, "--- Results for scenario %s ---\n", scenarioName(result))
		_, _ = p.Fprintf(w, "Status: %s | Algorithm: %s | Objective: %s | CNEm range: [%.4f, %.4f]\n",
			result.Status, result.Algorithm, result.Objective, result.LowerBound, result.UpperBound)
		if result.Error != "" {
			_, _ = p.Fprintf(w, "Note: %s\n", result.Error)
		}

		best := result.Best()
		trials := result.Trials
		if bestOnly && best != nil {
			trials = []optimization.Trial{*best}
		}
		if len(trials) > 0 {
			_, _ = p.Fprintf(w, "Trial      | CNEm   | DMI    | SWG    | Cost      | Objective\n")
			_, _ = p.Fprintf(w, "_____      | ____   | ___    | ___    | ____      | _________\n")
			for _, t := range trials {
				_, _ = p.Fprintf(w, "%-10s | %.4f | %.3f | %.3f | %9s | %.4f\n",
					t.ProblemID, t.CNEm, t.DMI, t.SWG, format.Currency(t.Cost), t.Objective)
			}
		}

		if best != nil {
			_, _ = p.Fprintf(w, "Best diet at CNEm %.4f:\n", best.CNEm)
			for _, id := range sortedDietKeys(best.Diet) {
				if best.Diet[id] <= 0 {
					continue
				}
				_, _ = p.Fprintf(w, "  %-12s %s\n", id, format.Fraction(best.Diet[id]))
			}
		}
		if be := result.BreakEven; be != nil {
			_, _ = p.Fprintf(w, "Break-even price for %s: %s/kg (%d iterations)\n",
				be.Ingredient, format.Currency(be.Price), be.Iterations)
		}
		if i < len(results)-1 {
			_, _ = fmt.Fprintln(w)
		}
	}
}

// CsvFormat writes one row per trial in comma-separated value format.
func CsvFormat(w io.Writer, results []optimization.ScenarioResult, bestOnly bool) error {
	_, err := io.WriteString(w, CsvString(results, bestOnly))
	return err
}

// CsvString renders the trials of every scenario as CSV. The leading columns
// identify the row; the rest are the union of trial record keys in sorted
// order so that the layout is stable across runs.
func CsvString(results []optimization.ScenarioResult, bestOnly bool) string {
	type row struct {
		scenario, id, status string
		record               map[string]float64
	}

	var rows []row
	for _, result := range results {
		trials := result.Trials
		if bestOnly {
			trials = nil
			if best := result.Best(); best != nil {
				trials = []optimization.Trial{*best}
			}
		}
		for _, t := range trials {
			rows = append(rows, row{result.ID, t.ProblemID, "OPTIMAL", t.Record()})
		}
		if bestOnly {
			continue
		}
		for _, inf := range result.Infeasible {
			rows = append(rows, row{result.ID, inf.ProblemID, "INFEASIBLE", inf.Record()})
		}
	}

	records := make([]map[string]float64, len(rows))
	for i, r := range rows {
		records[i] = r.record
	}
	keys := optimization.SortedKeys(records)

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	header := append([]string{"scenario", "problem_id", "status"}, keys...)
	_ = cw.Write(header)
	for _, r := range rows {
		line := make([]string, 0, len(header))
		line = append(line, r.scenario, r.id, r.status)
		for _, k := range keys {
			v, ok := r.record[k]
			if !ok {
				line = append(line, "")
				continue
			}
			line = append(line, strconv.FormatFloat(v, 'g', -1, 64))
		}
		_ = cw.Write(line)
	}
	cw.Flush()
	return buf.String()
}

// JSONFormat writes results and summaries as an indented JSON document.
func JSONFormat(w io.Writer, results []optimization.ScenarioResult, summaries []optimization.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Results   []optimization.ScenarioResult `json:"results"`
		Summaries []optimization.Summary        `json:"summaries"`
	}{results, summaries})
}

func scenarioName(r optimization.ScenarioResult) string {
	if r.Identifier != "" && r.Identifier != r.ID {
		return fmt.Sprintf("%s (%s)", r.ID, r.Identifier)
	}
	return r.ID
}

func sortedDietKeys(diet map[string]float64) []string {
	keys := make([]string, 0, len(diet))
	for k := range diet {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
