package testutil

import (
	"testing"

	"github.com/iwvelando/diet-optimizer/pkg/optimization"
)

func sampleResults() []optimization.ScenarioResult {
	return []optimization.ScenarioResult{
		{
			ID:         "1",
			Identifier: "steers",
			Status:     optimization.StatusSolved,
			Trials: []optimization.Trial{
				{ProblemID: "1_0", CNEm: 1.2, Objective: 10, Diet: map[string]float64{"corn": 0.4, "hay": 0.6}},
				{ProblemID: "1_1", CNEm: 1.5, Objective: 12, Diet: map[string]float64{"corn": 0.8, "hay": 0.2}},
			},
		},
		{
			ID:     "2",
			Status: optimization.StatusSkipped,
		},
		{
			ID:         "3",
			Identifier: "heifers (winter)",
			Status:     optimization.StatusSolved,
			Trials: []optimization.Trial{
				{ProblemID: "3_0", CNEm: 1.3, Objective: 3, Diet: map[string]float64{"hay": 1}},
			},
		},
	}
}

func TestFindScenario(t *testing.T) {
	results := sampleResults()

	tests := []struct {
		name       string
		searchName string
		expectID   string
	}{
		{"Find by id", "2", "2"},
		{"Find by identifier", "steers", "1"},
		{"Identifier with special characters", "heifers (winter)", "3"},
		{"Not found", "cows", ""},
		{"Empty name does not match blank identifier", "", ""},
		{"Case sensitive", "STEERS", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindScenario(results, tt.searchName)
			if tt.expectID == "" {
				if got != nil {
					t.Errorf("FindScenario(%q) = %q, want nil", tt.searchName, got.ID)
				}
				return
			}
			if got == nil {
				t.Fatalf("FindScenario(%q) = nil, want %q", tt.searchName, tt.expectID)
			}
			if got.ID != tt.expectID {
				t.Errorf("FindScenario(%q) = %q, want %q", tt.searchName, got.ID, tt.expectID)
			}
		})
	}
}

func TestFindScenarioEmptyResults(t *testing.T) {
	if got := FindScenario([]optimization.ScenarioResult{}, "1"); got != nil {
		t.Errorf("expected nil for empty results, got %v", got)
	}
	if got := FindScenario(nil, "1"); got != nil {
		t.Errorf("expected nil for nil results, got %v", got)
	}
}

func TestFindScenarioReturnsPointer(t *testing.T) {
	results := sampleResults()

	got := FindScenario(results, "2")
	if got == nil {
		t.Fatal("expected scenario 2")
	}
	got.Status = optimization.StatusError

	if results[1].Status != optimization.StatusError {
		t.Errorf("modification through pointer not visible, status = %s", results[1].Status)
	}
}

func TestDietShare(t *testing.T) {
	results := sampleResults()

	tests := []struct {
		name       string
		scenario   *optimization.ScenarioResult
		ingredient string
		want       float64
	}{
		{"Best trial is used", FindScenario(results, "1"), "corn", 0.8},
		{"Ingredient absent from diet", FindScenario(results, "3"), "corn", 0},
		{"No trials", FindScenario(results, "2"), "corn", -1},
		{"Nil scenario", nil, "corn", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DietShare(tt.scenario, tt.ingredient); got != tt.want {
				t.Errorf("DietShare() = %v, want %v", got, tt.want)
			}
		})
	}
}
