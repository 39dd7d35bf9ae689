// Package constants provides shared constants for the diet-optimizer application.
package constants

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"

	// OutputFormatJSON is the JSON output format
	OutputFormatJSON = "json"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "DIET"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for YAML configs (256 KB)
	DefaultMaxUploadSizeBytes int64 = 256 * 1024
)

// Search defaults
const (
	// DefaultLowerBound is the default lower bound of the CNEm search interval (Mcal/kg)
	DefaultLowerBound = 0.8

	// DefaultUpperBound is the default upper bound of the CNEm search interval (Mcal/kg)
	DefaultUpperBound = 3.0

	// DefaultTolerance is the default CNEm grid step and golden-section bracket width
	DefaultTolerance = 0.01

	// DefaultWorkers runs scenarios sequentially
	DefaultWorkers = 1

	// DefaultBackend is the LP backend used when none is configured
	DefaultBackend = "simplex"

	// DefaultSpecialCostTolerance is the break-even price bisection tolerance
	DefaultSpecialCostTolerance = 0.001

	// DefaultSpecialCostGuess is the upper end of the break-even price bracket
	DefaultSpecialCostGuess = 1.0
)

// Diet constraint names. The result keys derive from these.
const (
	ConstraintEnergyLower = "CNEm GE"
	ConstraintEnergyUpper = "CNEm LE"
	ConstraintConvexity   = "SUM 1"
	ConstraintProtein     = "MPm"
	ConstraintRDP         = "RDP"
	ConstraintFat         = "Fat"
	ConstraintPeNDF       = "peNDF"
)

// Diet model coefficients
const (
	// EnergyBandLower and EnergyBandUpper bracket the diet energy around the trial CNEm
	EnergyBandLower = 0.999
	EnergyBandUpper = 1.001

	// RDPFactor scales CNEm into the rumen-degradable protein floor
	RDPFactor = 0.125

	// FatCeiling is the maximum dietary fat fraction
	FatCeiling = 0.06

	// ProteinGainFactor and ProteinEnergyFactor enter the metabolizable protein requirement for growth
	ProteinGainFactor   = 268.0
	ProteinEnergyFactor = 29.4

	// GramsToKilograms converts g/day requirements to kg/day
	GramsToKilograms = 0.001
)

// Result identifiers
const (
	// ClearedPrefix is prepended to problem identifiers each time a searcher is force-cleared
	ClearedPrefix = "cl_"
)
