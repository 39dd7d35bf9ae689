// Package config defines the data structures related to configuration and
// includes functions for loading, normalizing and validating it.
package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/iwvelando/diet-optimizer/pkg/constants"
)

// Configuration holds all configuration for diet-optimizer.
type Configuration struct {
	Logging       LoggingConfig  `yaml:"logging,omitempty"`
	Output        OutputConfig   `yaml:"output,omitempty"`
	Solver        SolverConfig   `yaml:"solver,omitempty"`
	Ingredients   []Ingredient   `yaml:"ingredients" validate:"required,min=1,dive"`
	FeedScenarios []FeedScenario `yaml:"feedScenarios" validate:"required,min=1,dive"`
	Batches       []Batch        `yaml:"batches,omitempty" validate:"dive"`
	Scenarios     []Scenario     `yaml:"scenarios" validate:"required,min=1"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
	MaxSize    int    `yaml:"maxSize,omitempty"`    // MB before the file is rotated
	MaxBackups int    `yaml:"maxBackups,omitempty"`
	MaxAge     int    `yaml:"maxAge,omitempty"` // days
	Compress   bool   `yaml:"compress,omitempty"`
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format   string `yaml:"format,omitempty"` // pretty, csv, json
	BestOnly bool   `yaml:"bestOnly,omitempty"`
}

// SolverConfig selects the LP backend and how scenarios are scheduled.
type SolverConfig struct {
	Backend string        `yaml:"backend,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty" validate:"gte=0"`
	Workers int           `yaml:"workers,omitempty" validate:"gte=0"`
}

// Ingredient is one entry of the nutrient library. Nutrients are fractions
// of dry matter; NEma and NEga are Mcal/kg.
type Ingredient struct {
	ID     string  `yaml:"id" validate:"required"`
	Name   string  `yaml:"name,omitempty"`
	DM     float64 `yaml:"dm" validate:"gt=0"`
	CP     float64 `yaml:"cp" validate:"gte=0"`
	RUP    float64 `yaml:"rup" validate:"gte=0,lte=1"`
	TDN    float64 `yaml:"tdn" validate:"gte=0"`
	Fat    float64 `yaml:"fat" validate:"gte=0"`
	NDF    float64 `yaml:"ndf" validate:"gte=0"`
	PeF    float64 `yaml:"pef" validate:"gte=0"`
	NEma   float64 `yaml:"nema" validate:"gte=0"`
	NEga   float64 `yaml:"nega" validate:"gte=0"`
	Forage bool    `yaml:"forage,omitempty"`
	Cost   float64 `yaml:"cost" validate:"gte=0"`
}

// FeedScenario is a named set of available feeds.
type FeedScenario struct {
	Name  string      `yaml:"name" validate:"required"`
	Feeds []FeedEntry `yaml:"feeds" validate:"required,min=1,dive"`
}

// FeedEntry makes one library ingredient available with inclusion bounds.
// Cost overrides the library cost when set.
type FeedEntry struct {
	ID   string   `yaml:"id" validate:"required"`
	Min  float64  `yaml:"min,omitempty" validate:"gte=0,lte=1"`
	Max  *float64 `yaml:"max,omitempty" validate:"omitempty,gte=0,lte=1"`
	Cost *float64 `yaml:"cost,omitempty" validate:"omitempty,gte=0"`
}

// Batch is a time series of per-period overrides.
type Batch struct {
	ID            string          `yaml:"id" validate:"required"`
	InitialPeriod int             `yaml:"initialPeriod" validate:"gte=0"`
	FinalPeriod   int             `yaml:"finalPeriod" validate:"gtefield=InitialPeriod"`
	Feeds         []BatchFeed     `yaml:"feeds,omitempty" validate:"dive"`
	Parameters    BatchParameters `yaml:"parameters,omitempty"`
}

// BatchFeed overrides one feed of one feed scenario. Element i applies to
// period InitialPeriod+i.
type BatchFeed struct {
	FeedScenario string    `yaml:"feedScenario" validate:"required"`
	ID           string    `yaml:"id" validate:"required"`
	Cost         []float64 `yaml:"cost,omitempty" validate:"dive,gte=0"`
	Min          []float64 `yaml:"min,omitempty" validate:"dive,gte=0,lte=1"`
	Max          []float64 `yaml:"max,omitempty" validate:"dive,gte=0,lte=1"`
}

// BatchParameters overrides scenario parameters per period.
type BatchParameters struct {
	SellingPrice []float64 `yaml:"sellingPrice,omitempty" validate:"dive,gte=0"`
}

// Scenario holds the animal, economic and search parameters of one run.
// Exactly one of TargetWeight and FeedingDays must be positive.
type Scenario struct {
	ID           string  `yaml:"id" validate:"required"`
	Identifier   string  `yaml:"identifier,omitempty"`
	Active       bool    `yaml:"active"`
	FeedScenario string  `yaml:"feedScenario" validate:"required"`
	Batch        string  `yaml:"batch,omitempty"`
	Breed        string  `yaml:"breed,omitempty"`
	SBW          float64 `yaml:"sbw" validate:"gt=0"`
	BCS          float64 `yaml:"bcs" validate:"gte=0"`
	BE           float64 `yaml:"be" validate:"gte=0"`
	L            float64 `yaml:"l" validate:"gte=0"`
	Sex          float64 `yaml:"sex" validate:"gte=0"`
	A2           float64 `yaml:"a2" validate:"gte=0"`
	PH           float64 `yaml:"ph" validate:"gt=0"`
	SellingPrice float64 `yaml:"sellingPrice" validate:"gte=0"`
	TargetWeight float64 `yaml:"targetWeight,omitempty" validate:"gte=0"`
	FeedingDays  float64 `yaml:"feedingDays,omitempty" validate:"gte=0"`

	DMIEquation string  `yaml:"dmiEquation,omitempty"`
	Objective   string  `yaml:"objective,omitempty"`
	Algorithm   string  `yaml:"algorithm,omitempty"`
	LowerBound  float64 `yaml:"lb,omitempty" mapstructure:"lb" validate:"gte=0"`
	UpperBound  float64 `yaml:"ub,omitempty" mapstructure:"ub" validate:"gte=0"`
	Tolerance   float64 `yaml:"tol,omitempty" mapstructure:"tol" validate:"gte=0"`

	SpecialIngredient string  `yaml:"specialIngredient,omitempty"`
	SpecialCostTol    float64 `yaml:"specialCostTol,omitempty" validate:"gte=0"`
	SpecialCostGuess  float64 `yaml:"specialCostGuess,omitempty" validate:"gte=0"`
}

// Name returns the identifier when present, otherwise the scenario id.
func (s Scenario) Name() string {
	if s.Identifier != "" {
		return s.Identifier
	}
	return s.ID
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigType("yml")
	return v
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}
	return decode(v)
}

// LoadConfigurationFromReader loads a YAML configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	v := newViper()
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config, %s", err)
	}
	return decode(v)
}

// Ingredient returns the library entry with the given id.
func (c *Configuration) Ingredient(id string) (Ingredient, bool) {
	for _, ing := range c.Ingredients {
		if ing.ID == id {
			return ing, true
		}
	}
	return Ingredient{}, false
}

// FeedScenario returns the feed scenario with the given name.
func (c *Configuration) FeedScenario(name string) (FeedScenario, bool) {
	for _, fs := range c.FeedScenarios {
		if fs.Name == name {
			return fs, true
		}
	}
	return FeedScenario{}, false
}

// Batch returns the batch with the given id.
func (c *Configuration) Batch(id string) (Batch, bool) {
	for _, b := range c.Batches {
		if b.ID == id {
			return b, true
		}
	}
	return Batch{}, false
}

// ActiveScenarios returns the scenarios flagged active, in file order.
func (c *Configuration) ActiveScenarios() []Scenario {
	var active []Scenario
	for _, s := range c.Scenarios {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}
