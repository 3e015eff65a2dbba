// Package constants provides shared constants for the rocket-calculator application.
package constants

// Default rocket inputs, used when neither the config file nor the user
// supplies a value.
const (
	// DefaultPayloadMass in kg
	DefaultPayloadMass = 1.0

	// DefaultSpecificImpulse in seconds
	DefaultSpecificImpulse = 350.0

	// DefaultLaunchLatitude in degrees
	DefaultLaunchLatitude = 45.0

	// DefaultOrbitAltitude in meters (200 km)
	DefaultOrbitAltitude = 200000.0

	// DefaultStructuralFraction of the total initial mass (10%)
	DefaultStructuralFraction = 0.10

	// DefaultDeltaVBudget in m/s
	DefaultDeltaVBudget = 9500.0
)

// Delta-v budget window accepted by the calculator.
const (
	// MinDeltaVBudget is the smallest accepted delta-v budget in m/s
	MinDeltaVBudget = 9300.0

	// MaxDeltaVBudget is the largest accepted delta-v budget in m/s
	MaxDeltaVBudget = 10000.0

	// MetersPerKilometer converts the km/s prompt value to m/s
	MetersPerKilometer = 1000.0
)

// Latitude bounds in degrees.
const (
	MinLatitude = -90.0
	MaxLatitude = 90.0
)

// KarmanLine is the conventional edge of space in meters
const KarmanLine = 100000.0

// Realistic structural fraction range, reported as a note with every result.
const (
	TypicalMinStructuralFraction = 0.05
	TypicalMaxStructuralFraction = 0.20
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable report format
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

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "ROCKET"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum request body size (64 KB)
	DefaultMaxBodySizeBytes int64 = 64 * 1024

	// DefaultRateLimit is the number of requests allowed per client per window
	DefaultRateLimit = 60

	// DefaultRateWindow is the refill window for the rate limiter
	DefaultRateWindow = "1m"

	// DefaultCacheTTL is how long calculation results stay cached
	DefaultCacheTTL = "10m"
)

// Validation constants
const (
	// MassTolerance is the relative tolerance for the mass decomposition invariant
	MassTolerance = 1e-6
)
