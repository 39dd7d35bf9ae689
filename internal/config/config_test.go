package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iwvelando/diet-optimizer/internal/diet"
	"github.com/iwvelando/diet-optimizer/internal/nrc"
	"github.com/iwvelando/diet-optimizer/internal/search"
	"github.com/iwvelando/diet-optimizer/pkg/constants"
)

const testConfigPath = "../../test/test_config.yaml"

func loadTestConfig(t *testing.T) *Configuration {
	t.Helper()
	conf, err := LoadConfiguration(testConfigPath)
	require.NoError(t, err)
	conf.Normalize()
	return conf
}

func TestLoadConfiguration(t *testing.T) {
	tests := []struct {
		name       string
		configPath string
		wantError  bool
	}{
		{
			name:       "Non-existent config file",
			configPath: "nonexistent.yaml",
			wantError:  true,
		},
		{
			name:       "Test configuration",
			configPath: testConfigPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfiguration(tt.configPath)
			if tt.wantError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, config)
		})
	}
}

func TestLoadConfigurationStructure(t *testing.T) {
	conf := loadTestConfig(t)

	require.Equal(t, "warn", conf.Logging.Level)
	require.Equal(t, 5*time.Second, conf.Solver.Timeout)
	require.Equal(t, 2, conf.Solver.Workers)
	require.Len(t, conf.Ingredients, 2)

	hay, ok := conf.Ingredient("hay")
	require.True(t, ok)
	require.True(t, hay.Forage)
	require.Equal(t, 0.65, hay.NDF)

	require.Len(t, conf.Scenarios, 3)
	require.Equal(t, "steers", conf.Scenarios[0].Name())
	require.Equal(t, 1.1, conf.Scenarios[1].LowerBound)
	require.Equal(t, 1.6, conf.Scenarios[1].UpperBound)

	active := conf.ActiveScenarios()
	require.Len(t, active, 2)
	require.Equal(t, "1", active[0].ID)

	b, ok := conf.Batch("winter")
	require.True(t, ok)
	require.Equal(t, 2, b.FinalPeriod)
	require.Len(t, b.Feeds, 1)
	require.Equal(t, []float64{0, 0.9}, b.Feeds[0].Min)
	require.Equal(t, []float64{5, 5.5}, b.Parameters.SellingPrice)

	require.NoError(t, conf.Validate())
}

func TestLoadConfigurationFromReader(t *testing.T) {
	yaml := `
ingredients:
  - {id: corn, dm: 0.88, cp: 0.4, rup: 0.35, tdn: 0.85, ndf: 0.12, pef: 0.4, nema: 1.9, nega: 1.3, cost: 0.15}
feedScenarios:
  - name: base
    feeds:
      - id: corn
scenarios:
  - {id: a, active: true, feedScenario: base, sbw: 300, ph: 6.5, feedingDays: 100}
`
	conf, err := LoadConfigurationFromReader(strings.NewReader(yaml))
	require.NoError(t, err)
	conf.Normalize()

	require.Equal(t, constants.OutputFormatPretty, conf.Output.Format)
	require.Equal(t, constants.DefaultBackend, conf.Solver.Backend)
	require.Equal(t, constants.DefaultWorkers, conf.Solver.Workers)

	s := conf.Scenarios[0]
	require.Equal(t, constants.DefaultLowerBound, s.LowerBound)
	require.Equal(t, constants.DefaultUpperBound, s.UpperBound)
	require.Equal(t, constants.DefaultTolerance, s.Tolerance)
	require.Equal(t, "NRC2016", s.DMIEquation)
	require.Equal(t, "MaxProfit", s.Objective)
	require.Equal(t, "GSS", s.Algorithm)
	require.NoError(t, conf.Validate())

	_, err = LoadConfigurationFromReader(strings.NewReader("scenarios: [unterminated"))
	require.Error(t, err)
}

func TestNormalizeCanonicalizesNames(t *testing.T) {
	s := Scenario{DMIEquation: "1996", Objective: "mincostswg", Algorithm: "brute-force", SpecialIngredient: "corn"}
	s.Normalize()
	require.Equal(t, "NRC1996", s.DMIEquation)
	require.Equal(t, "MinCostSWG", s.Objective)
	require.Equal(t, "BF", s.Algorithm)
	require.Equal(t, constants.DefaultSpecialCostTolerance, s.SpecialCostTol)
	require.Equal(t, constants.DefaultSpecialCostGuess, s.SpecialCostGuess)

	unknown := Scenario{Algorithm: "newton"}
	unknown.Normalize()
	require.Equal(t, "newton", unknown.Algorithm)
}

func TestValidateScenario(t *testing.T) {
	conf := loadTestConfig(t)
	valid := conf.Scenarios[0]

	tests := []struct {
		name   string
		mutate func(s *Scenario)
		field  string
		target error
	}{
		{"Both growth targets", func(s *Scenario) { s.TargetWeight = 450 }, "targetWeight", nrc.ErrGrowthTarget},
		{"Neither growth target", func(s *Scenario) { s.FeedingDays = 0 }, "targetWeight", nrc.ErrGrowthTarget},
		{"Unknown algorithm", func(s *Scenario) { s.Algorithm = "newton" }, "algorithm", nil},
		{"Unknown objective", func(s *Scenario) { s.Objective = "maxfun" }, "objective", nil},
		{"Unknown DMI equation", func(s *Scenario) { s.DMIEquation = "NRC1984" }, "dmiEquation", nil},
		{"Inverted bounds", func(s *Scenario) { s.LowerBound, s.UpperBound = 2, 1 }, "ub", nil},
		{"Zero tolerance", func(s *Scenario) { s.Tolerance = 0 }, "tol", nil},
		{"Unknown feed scenario", func(s *Scenario) { s.FeedScenario = "pasture" }, "feedScenario", nil},
		{"Unknown batch", func(s *Scenario) { s.Batch = "summer" }, "batch", nil},
		{"Special ingredient outside feeds", func(s *Scenario) {
			s.SpecialIngredient = "barley"
			s.SpecialCostTol, s.SpecialCostGuess = 0.001, 1
		}, "specialIngredient", nil},
		{"Guess below tolerance", func(s *Scenario) {
			s.SpecialIngredient = "corn"
			s.SpecialCostTol, s.SpecialCostGuess = 0.1, 0.01
		}, "specialCostGuess", nil},
	}

	require.NoError(t, conf.ValidateScenario(valid))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := conf.ValidateScenario(s)
			require.Error(t, err)

			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr))
			require.Equal(t, "1", cerr.Scenario)
			require.Equal(t, tt.field, cerr.Field)
			if tt.target != nil {
				require.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestValidateCommon(t *testing.T) {
	conf := loadTestConfig(t)
	require.NoError(t, conf.ValidateCommon())

	max := 0.1
	conf.FeedScenarios[0].Feeds = append(conf.FeedScenarios[0].Feeds,
		FeedEntry{ID: "barley"},
		FeedEntry{ID: "corn", Min: 0.5, Max: &max},
	)
	conf.Output.Format = "xml"
	conf.Solver.Backend = "highs"

	err := conf.ValidateCommon()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{"output.format", "solver.backend", `unknown ingredient "barley"`, `duplicate feed "corn"`, "min 0.5 exceeds max 0.1"} {
		require.Contains(t, msg, want)
	}
}

func TestValidateStructTags(t *testing.T) {
	conf := loadTestConfig(t)
	conf.Ingredients[0].DM = 0
	conf.Batches[0].FinalPeriod = 0

	err := conf.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "dm: failed gt=0")
	require.Contains(t, err.Error(), "finalPeriod: failed gtefield=InitialPeriod")
}

func TestValidateConfigurationWarnings(t *testing.T) {
	conf := loadTestConfig(t)
	warnings := conf.ValidateConfiguration()
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0], "'capped' is not used")
}

func TestFeeds(t *testing.T) {
	conf := loadTestConfig(t)

	feeds, err := conf.Feeds(conf.Scenarios[2])
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	require.Equal(t, "corn", feeds[0].ID)
	require.Equal(t, 0.8, feeds[0].Max)
	require.Equal(t, 0.12, feeds[0].Cost)
	require.Equal(t, 0.88, feeds[0].DM)
	require.Equal(t, 0.2, feeds[1].Min)
	require.Equal(t, 1.0, feeds[1].Max)
	require.Equal(t, 0.05, feeds[1].Cost)
	require.True(t, feeds[1].Forage)

	s := conf.Scenarios[0]
	s.FeedScenario = "pasture"
	_, err = conf.Feeds(s)
	var cerr *ConfigurationError
	require.ErrorAs(t, err, &cerr)
}

func TestDietScenario(t *testing.T) {
	conf := loadTestConfig(t)

	sc, err := conf.DietScenario(conf.Scenarios[2])
	require.NoError(t, err)
	require.Equal(t, diet.MinCost, sc.Objective)
	require.Equal(t, nrc.NRC2016, sc.Animal.DMI)
	require.Equal(t, 450.0, sc.Animal.TargetWeight)
	require.Zero(t, sc.Animal.FeedingDays)
	require.NoError(t, sc.Animal.CheckGrowthTarget())

	alg, err := conf.Scenarios[1].SearchAlgorithm()
	require.NoError(t, err)
	require.Equal(t, search.BruteForce, alg)

	bad := conf.Scenarios[0]
	bad.Objective = "maxfun"
	_, err = conf.DietScenario(bad)
	require.Error(t, err)
}

func TestDietBatch(t *testing.T) {
	conf := loadTestConfig(t)

	b, err := conf.DietBatch(conf.Scenarios[0])
	require.NoError(t, err)
	require.Nil(t, b)

	b, err = conf.DietBatch(conf.Scenarios[1])
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, 2, b.Periods())
	require.Equal(t, []float64{0, 0.9}, b.Feeds["hay"].Min)
	require.Equal(t, []float64{5, 5.5}, b.SellingPrice)

	// overrides of other feed scenarios are dropped
	capped := conf.Scenarios[1]
	capped.FeedScenario = "capped"
	b, err = conf.DietBatch(capped)
	require.NoError(t, err)
	require.Empty(t, b.Feeds)
}

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Scenario: "s1", Field: "tol", Reason: "tolerance must be positive"}
	require.Equal(t, "scenario s1: tol: tolerance must be positive", err.Error())

	wrapped := &ConfigurationError{Reason: "x", Err: nrc.ErrGrowthTarget}
	require.ErrorIs(t, wrapped, nrc.ErrGrowthTarget)
}
