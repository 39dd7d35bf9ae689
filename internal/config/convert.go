package config

import (
	"fmt"

	"github.com/iwvelando/diet-optimizer/internal/diet"
	"github.com/iwvelando/diet-optimizer/internal/nrc"
	"github.com/iwvelando/diet-optimizer/internal/search"
)

// Feeds resolves the scenario's feed scenario against the ingredient library.
// A missing max means the feed may make up the whole ration.
func (c *Configuration) Feeds(s Scenario) ([]diet.Feed, error) {
	fs, ok := c.FeedScenario(s.FeedScenario)
	if !ok {
		return nil, &ConfigurationError{Scenario: s.ID, Field: "feedScenario",
			Reason: fmt.Sprintf("unknown feed scenario %q", s.FeedScenario)}
	}

	feeds := make([]diet.Feed, 0, len(fs.Feeds))
	for _, entry := range fs.Feeds {
		ing, ok := c.Ingredient(entry.ID)
		if !ok {
			return nil, &ConfigurationError{Scenario: s.ID, Field: "feedScenarios." + fs.Name,
				Reason: fmt.Sprintf("unknown ingredient %q", entry.ID)}
		}
		feed := diet.Feed{
			Ingredient: diet.Ingredient{
				ID:     ing.ID,
				Name:   ing.Name,
				DM:     ing.DM,
				CP:     ing.CP,
				RUP:    ing.RUP,
				TDN:    ing.TDN,
				Fat:    ing.Fat,
				NDF:    ing.NDF,
				PeF:    ing.PeF,
				NEma:   ing.NEma,
				NEga:   ing.NEga,
				Forage: ing.Forage,
			},
			Min:  entry.Min,
			Max:  1,
			Cost: ing.Cost,
		}
		if entry.Max != nil {
			feed.Max = *entry.Max
		}
		if entry.Cost != nil {
			feed.Cost = *entry.Cost
		}
		feeds = append(feeds, feed)
	}
	return feeds, nil
}

// DietScenario converts the animal and economic parameters of s.
func (c *Configuration) DietScenario(s Scenario) (diet.Scenario, error) {
	eq, err := nrc.ParseDMIEquation(s.DMIEquation)
	if err != nil {
		return diet.Scenario{}, &ConfigurationError{Scenario: s.ID, Field: "dmiEquation", Reason: err.Error(), Err: err}
	}
	obj, err := diet.ParseObjective(s.Objective)
	if err != nil {
		return diet.Scenario{}, &ConfigurationError{Scenario: s.ID, Field: "objective", Reason: err.Error(), Err: err}
	}
	return diet.Scenario{
		ID:         s.ID,
		Identifier: s.Identifier,
		Animal: nrc.Animal{
			SBW:          s.SBW,
			BCS:          s.BCS,
			BE:           s.BE,
			L:            s.L,
			Sex:          s.Sex,
			A2:           s.A2,
			PH:           s.PH,
			TargetWeight: s.TargetWeight,
			FeedingDays:  s.FeedingDays,
			DMI:          eq,
		},
		SellingPrice: s.SellingPrice,
		Objective:    obj,
	}, nil
}

// DietBatch returns the overrides of the scenario's batch restricted to its
// feed scenario, or nil when the scenario is not batched.
func (c *Configuration) DietBatch(s Scenario) (*diet.Batch, error) {
	if s.Batch == "" {
		return nil, nil
	}
	b, ok := c.Batch(s.Batch)
	if !ok {
		return nil, &ConfigurationError{Scenario: s.ID, Field: "batch", Reason: fmt.Sprintf("unknown batch %q", s.Batch)}
	}

	out := &diet.Batch{
		ID:            b.ID,
		InitialPeriod: b.InitialPeriod,
		FinalPeriod:   b.FinalPeriod,
		Feeds:         make(map[string]diet.FeedSeries),
		SellingPrice:  b.Parameters.SellingPrice,
	}
	for _, bf := range b.Feeds {
		if bf.FeedScenario != s.FeedScenario {
			continue
		}
		out.Feeds[bf.ID] = diet.FeedSeries{Cost: bf.Cost, Min: bf.Min, Max: bf.Max}
	}
	return out, nil
}

// SearchAlgorithm parses the scenario's algorithm name.
func (s Scenario) SearchAlgorithm() (search.Algorithm, error) {
	alg, err := search.ParseAlgorithm(s.Algorithm)
	if err != nil {
		return 0, &ConfigurationError{Scenario: s.ID, Field: "algorithm", Reason: err.Error(), Err: err}
	}
	return alg, nil
}
