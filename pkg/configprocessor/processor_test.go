package configprocessor

import (
	"testing"
)

func TestNewProcessor(t *testing.T) {
	processor := NewProcessor()
	if processor == nil {
		t.Error("NewProcessor() returned nil")
	}
}

func TestProcessor_ValidateConfiguration(t *testing.T) {
	processor := NewProcessor()

	base := FeedScenarioInfo{
		Name: "base",
		Feeds: []FeedInfo{
			{ID: "corn", Min: 0, Max: 1},
			{ID: "hay", Min: 0.2, Max: 1},
		},
	}

	tests := []struct {
		name             string
		feedScenarios    []FeedScenarioInfo
		scenarios        []ScenarioInfo
		expectedWarnings int
	}{
		{
			name:          "Valid configuration",
			feedScenarios: []FeedScenarioInfo{base},
			scenarios: []ScenarioInfo{
				{Name: "Steers", Active: true, FeedScenario: "base", LowerBound: 0.8, UpperBound: 3, Tolerance: 0.01},
			},
			expectedWarnings: 0,
		},
		{
			name: "Configuration with warnings",
			feedScenarios: []FeedScenarioInfo{
				base,
				{Name: "capped", Feeds: []FeedInfo{{ID: "corn", Max: 0.3}, {ID: "hay", Max: 0.3}}},
			},
			scenarios: []ScenarioInfo{
				{Name: "Steers", Active: true, FeedScenario: "capped", LowerBound: 1.0, UpperBound: 1.05, Tolerance: 0.1},
			},
			// capped maximums, tolerance wider than the interval, base unused
			expectedWarnings: 3,
		},
		{
			name:          "Nothing active",
			feedScenarios: []FeedScenarioInfo{base},
			scenarios: []ScenarioInfo{
				{Name: "Steers", FeedScenario: "base", LowerBound: 0.8, UpperBound: 3, Tolerance: 0.01},
			},
			expectedWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := processor.ValidateConfiguration(tt.feedScenarios, tt.scenarios)

			if len(warnings) != tt.expectedWarnings {
				t.Errorf("ValidateConfiguration() returned %d warnings, expected %d", len(warnings), tt.expectedWarnings)
				for i, warning := range warnings {
					t.Logf("Warning %d: %s", i+1, warning)
				}
			}
		})
	}
}

func TestProcessor_ValidateConfigurationNilWhenClean(t *testing.T) {
	warnings := NewProcessor().ValidateConfiguration(
		[]FeedScenarioInfo{{Name: "base", Feeds: []FeedInfo{{ID: "corn", Max: 1}}}},
		[]ScenarioInfo{{Name: "s", Active: true, FeedScenario: "base", LowerBound: 1, UpperBound: 2, Tolerance: 0.01}},
	)
	if warnings != nil {
		t.Errorf("expected nil warnings, got %v", warnings)
	}
}
