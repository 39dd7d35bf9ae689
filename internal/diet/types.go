package diet

import (
	"fmt"
	"strings"

	"github.com/iwvelando/diet-optimizer/internal/nrc"
)

// Objective selects how each ingredient is valued in the LP objective.
type Objective int

const (
	MaxProfit Objective = iota
	MinCost
	MaxProfitSWG
	MinCostSWG
)

func (o Objective) String() string {
	switch o {
	case MaxProfit:
		return "MaxProfit"
	case MinCost:
		return "MinCost"
	case MaxProfitSWG:
		return "MaxProfitSWG"
	case MinCostSWG:
		return "MinCostSWG"
	default:
		return fmt.Sprintf("Objective(%d)", int(o))
	}
}

// PerGain reports whether the objective is expressed per unit of shrunk weight gain.
func (o Objective) PerGain() bool {
	return o == MaxProfitSWG || o == MinCostSWG
}

// ParseObjective accepts the canonical names case-insensitively.
func ParseObjective(value string) (Objective, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "maxprofit":
		return MaxProfit, nil
	case "mincost":
		return MinCost, nil
	case "maxprofitswg":
		return MaxProfitSWG, nil
	case "mincostswg":
		return MinCostSWG, nil
	default:
		return 0, fmt.Errorf("unknown objective %q", value)
	}
}

// Ingredient is one row of the nutrient library. Fractions are on a dry
// matter basis; NEma and NEga are Mcal/kg.
type Ingredient struct {
	ID     string
	Name   string
	DM     float64
	CP     float64
	RUP    float64
	TDN    float64
	Fat    float64
	NDF    float64
	PeF    float64
	NEma   float64
	NEga   float64
	Forage bool
}

// Feed is an ingredient available to a scenario with its inclusion bounds
// and as-fed cost per kg.
type Feed struct {
	Ingredient
	Min  float64
	Max  float64
	Cost float64
}

// FeedSeries holds per-period overrides for one feed. A nil or short slice
// leaves the base value in place for that period.
type FeedSeries struct {
	Cost []float64
	Min  []float64
	Max  []float64
}

// Batch is a time series of feed and price overrides indexed by period.
type Batch struct {
	ID            string
	InitialPeriod int
	FinalPeriod   int
	Feeds         map[string]FeedSeries
	SellingPrice  []float64
}

// Periods returns the number of periods in the inclusive range.
func (b *Batch) Periods() int {
	if b == nil || b.FinalPeriod < b.InitialPeriod {
		return 0
	}
	return b.FinalPeriod - b.InitialPeriod + 1
}

func seriesValue(series []float64, idx int) (float64, bool) {
	if idx < 0 || idx >= len(series) {
		return 0, false
	}
	return series[idx], true
}

// Scenario carries the animal and economic parameters of one run.
type Scenario struct {
	ID           string
	Identifier   string
	Animal       nrc.Animal
	SellingPrice float64
	Objective    Objective
}

// State is the lifecycle state of a Model's LP.
type State int

const (
	Unbuilt State = iota
	Built
)

func (s State) String() string {
	if s == Built {
		return "BUILT"
	}
	return "UNBUILT"
}
