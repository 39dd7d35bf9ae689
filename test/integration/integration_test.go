package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/iwvelando/diet-optimizer/internal/config"
	"github.com/iwvelando/diet-optimizer/internal/scenario"
	"github.com/iwvelando/diet-optimizer/pkg/optimization"
	"github.com/iwvelando/diet-optimizer/pkg/output"
	"github.com/iwvelando/diet-optimizer/pkg/testutil"
)

func loadAndRun(t *testing.T, path string, mutate func(*config.Configuration)) *scenario.Result {
	t.Helper()

	conf, err := config.LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	conf.Normalize()
	if mutate != nil {
		mutate(conf)
	}
	if err := conf.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	d, err := scenario.NewDriver(zap.NewNop(), conf)
	if err != nil {
		t.Fatalf("NewDriver() error = %v", err)
	}
	result, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return result
}

// TestMainIntegrationBaseline runs the example configuration end to end the
// way the run command does.
func TestMainIntegrationBaseline(t *testing.T) {
	result := loadAndRun(t, "../test_config.yaml", nil)

	if len(result.Scenarios) != 2 {
		t.Fatalf("Expected 2 active scenarios, got %d", len(result.Scenarios))
	}

	expected := []string{"steers", "steers winter"}
	for i, name := range expected {
		if result.Scenarios[i].Identifier != name {
			t.Errorf("Expected scenario %s at %d, got %s", name, i, result.Scenarios[i].Identifier)
		}
		if result.Scenarios[i].Status != optimization.StatusSolved {
			t.Errorf("Scenario %s: status %s (%s)", name, result.Scenarios[i].Status, result.Scenarios[i].Error)
		}
	}

	steers := testutil.FindScenario(result.Scenarios, "steers")
	if steers == nil {
		t.Fatal("scenario steers not found")
	}
	if math.Abs(steers.LowerBound-1.1013698630136988) > 1e-9 || math.Abs(steers.UpperBound-1.5936073059360734) > 1e-9 {
		t.Errorf("refined bounds = [%v, %v]", steers.LowerBound, steers.UpperBound)
	}
	best := steers.Best()
	if best == nil {
		t.Fatal("steers has no best trial")
	}
	if steers.UpperBound-best.CNEm > 0.01 {
		t.Errorf("best CNEm %.4f is not near the upper bound %.4f", best.CNEm, steers.UpperBound)
	}
	sum := 0.0
	for _, x := range best.Diet {
		sum += x
	}
	if math.Abs(sum-1) > 1e-7 {
		t.Errorf("diet shares sum to %v", sum)
	}

	winter := testutil.FindScenario(result.Scenarios, "2")
	if winter == nil {
		t.Fatal("scenario 2 not found")
	}
	if len(winter.Trials) != 2 {
		t.Fatalf("Expected one trial per period, got %d", len(winter.Trials))
	}
	last := winter.Trials[1]
	if last.Period == nil || *last.Period != 2 {
		t.Fatalf("second trial period = %v", last.Period)
	}
	if last.Diet["hay"] < 0.9-1e-9 {
		t.Errorf("period 2 hay share %.4f is below its 0.9 floor", last.Diet["hay"])
	}
}

// TestCappedScenario activates the break-even scenario and checks that the
// feed scenario overrides reach the LP.
func TestCappedScenario(t *testing.T) {
	result := loadAndRun(t, "../test_config.yaml", func(c *config.Configuration) {
		for i := range c.Scenarios {
			c.Scenarios[i].Active = c.Scenarios[i].ID == "3"
		}
	})

	capped := testutil.FindScenario(result.Scenarios, "capped break-even")
	if capped == nil {
		t.Fatal("scenario 3 not found")
	}
	if capped.Status != optimization.StatusSolved {
		t.Fatalf("status %s (%s)", capped.Status, capped.Error)
	}
	if share := testutil.DietShare(capped, "corn"); share > 0.8+1e-9 {
		t.Errorf("corn share %.4f exceeds its 0.8 cap", share)
	}
	if share := testutil.DietShare(capped, "hay"); share < 0.2-1e-9 {
		t.Errorf("hay share %.4f is below its 0.2 floor", share)
	}
}

// TestCsvFormat checks the CSV layout produced from a real run.
func TestCsvFormat(t *testing.T) {
	result := loadAndRun(t, "../test_config.yaml", nil)

	var buf bytes.Buffer
	if err := output.CsvFormat(&buf, result.Scenarios, true); err != nil {
		t.Fatalf("CsvFormat() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	// header plus the best trial of each scenario
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d:\n%s", len(lines), buf.String())
	}
	header := strings.Split(lines[0], ",")
	if header[0] != "scenario" || header[1] != "problem_id" || header[2] != "status" {
		t.Errorf("unexpected leading columns %v", header[:3])
	}
	for _, col := range []string{"CNEm", "corn", "hay", "obj_func", "hay_red_cost"} {
		found := false
		for _, h := range header {
			if h == col {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("column %s missing from header", col)
		}
	}
	for _, line := range lines[1:] {
		fields := strings.Split(line, ",")
		if len(fields) != len(header) {
			t.Errorf("row has %d fields, header has %d", len(fields), len(header))
		}
		if fields[2] != "OPTIMAL" {
			t.Errorf("best row status %s", fields[2])
		}
	}
}

// TestPrettyOutputFormat checks the human-readable report from a real run.
func TestPrettyOutputFormat(t *testing.T) {
	result := loadAndRun(t, "../test_config.yaml", nil)

	var buf bytes.Buffer
	output.PrettyFormat(&buf, result.Scenarios, false)
	out := buf.String()

	for _, want := range []string{
		"--- Results for scenario 1 (steers) ---",
		"--- Results for scenario 2 (steers winter) ---",
		"Status: SOLVED",
		"Best diet at CNEm",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

// TestJSONOutputFormat decodes the JSON document back into results.
func TestJSONOutputFormat(t *testing.T) {
	result := loadAndRun(t, "../test_config.yaml", nil)

	var buf bytes.Buffer
	if err := output.JSONFormat(&buf, result.Scenarios, result.Summaries); err != nil {
		t.Fatalf("JSONFormat() error = %v", err)
	}
	var doc struct {
		Results   []optimization.ScenarioResult `json:"results"`
		Summaries []optimization.Summary        `json:"summaries"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(doc.Results) != 2 || len(doc.Summaries) != 2 {
		t.Fatalf("got %d results and %d summaries", len(doc.Results), len(doc.Summaries))
	}
	if doc.Summaries[0].CNEm != result.Summaries[0].CNEm {
		t.Errorf("summary CNEm %v != %v", doc.Summaries[0].CNEm, result.Summaries[0].CNEm)
	}
}

// TestDataConsistency verifies that repeated runs produce identical output.
func TestDataConsistency(t *testing.T) {
	first := output.CsvString(loadAndRun(t, "../test_config.yaml", nil).Scenarios, false)
	for i := 0; i < 3; i++ {
		again := output.CsvString(loadAndRun(t, "../test_config.yaml", nil).Scenarios, false)
		if again != first {
			t.Fatalf("run %d differs from the first run", i+2)
		}
	}
}

// TestConfigurationVariations runs the example under different solver
// settings, which must not change the optimum.
func TestConfigurationVariations(t *testing.T) {
	baseline := loadAndRun(t, "../test_config.yaml", nil).Summaries

	tests := []struct {
		name   string
		mutate func(*config.Configuration)
	}{
		{"Single worker", func(c *config.Configuration) { c.Solver.Workers = 1 }},
		{"Many workers", func(c *config.Configuration) { c.Solver.Workers = 8 }},
		{"No solver timeout", func(c *config.Configuration) { c.Solver.Timeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := loadAndRun(t, "../test_config.yaml", tt.mutate).Summaries
			if len(got) != len(baseline) {
				t.Fatalf("got %d summaries, want %d", len(got), len(baseline))
			}
			for i := range got {
				if math.Abs(got[i].Objective-baseline[i].Objective) > 1e-9 {
					t.Errorf("scenario %s objective %v, want %v", got[i].Scenario, got[i].Objective, baseline[i].Objective)
				}
			}
		})
	}
}

// TestExampleConfiguration keeps the shipped example runnable.
func TestExampleConfiguration(t *testing.T) {
	result := loadAndRun(t, "../../config.yaml.example", nil)
	for _, r := range result.Scenarios {
		if r.Status != optimization.StatusSolved {
			t.Errorf("scenario %s: status %s (%s)", r.ID, r.Status, r.Error)
		}
	}
}
