// Package configprocessor provides shared configuration processing utilities.
package configprocessor

import "github.com/iwvelando/diet-optimizer/pkg/validation"

// FeedInfo represents one feed of a feed scenario
type FeedInfo struct {
	ID  string
	Min float64
	Max float64
}

// FeedScenarioInfo represents feed scenario configuration information
type FeedScenarioInfo struct {
	Name  string
	Feeds []FeedInfo
}

// ScenarioInfo represents scenario configuration information
type ScenarioInfo struct {
	Name         string
	Active       bool
	FeedScenario string
	LowerBound   float64
	UpperBound   float64
	Tolerance    float64
}

// Processor handles configuration processing and validation
type Processor struct{}

// NewProcessor creates a new configuration processor
func NewProcessor() *Processor {
	return &Processor{}
}

// ValidateConfiguration validates the configuration and returns warnings
func (p *Processor) ValidateConfiguration(feedScenarios []FeedScenarioInfo, scenarios []ScenarioInfo) []string {
	cv := validation.ConfigValidator{}
	for _, fs := range feedScenarios {
		vfs := validation.FeedScenarioConfig{Name: fs.Name}
		for _, f := range fs.Feeds {
			vfs.Feeds = append(vfs.Feeds, validation.FeedConfig{ID: f.ID, Min: f.Min, Max: f.Max})
		}
		cv.FeedScenarios = append(cv.FeedScenarios, vfs)
	}
	for _, s := range scenarios {
		cv.Scenarios = append(cv.Scenarios, validation.ScenarioConfig{
			Name:         s.Name,
			Active:       s.Active,
			FeedScenario: s.FeedScenario,
			LowerBound:   s.LowerBound,
			UpperBound:   s.UpperBound,
			Tolerance:    s.Tolerance,
		})
	}

	warnings := cv.ValidateAll()
	if len(warnings) == 0 {
		return nil
	}
	return warnings
}
