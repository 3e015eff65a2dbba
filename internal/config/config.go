// Package config defines the data structures related to configuration and
// includes functions for loading, overriding and watching it.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/iwvelando/rocket-calculator/internal/sizing"
	"github.com/iwvelando/rocket-calculator/pkg/constants"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Configuration holds all configuration for rocket-calculator.
type Configuration struct {
	Inputs  sizing.RocketInputs `yaml:"inputs"`
	Logging LoggingConfig       `yaml:"logging,omitempty"`
	Output  OutputConfig        `yaml:"output,omitempty"`
	Server  ServerConfig        `yaml:"server,omitempty"`
	Cache   CacheConfig         `yaml:"cache,omitempty"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv, json
}

// ServerConfig holds the HTTP API options.
type ServerConfig struct {
	Address     string        `yaml:"address,omitempty"`
	MaxBodySize string        `yaml:"maxBodySize,omitempty"` // e.g. 64K, 1M
	RateLimit   int           `yaml:"rateLimit,omitempty"`   // requests per client per window
	RateWindow  time.Duration `yaml:"rateWindow,omitempty"`
}

// CacheConfig holds the result cache options. An empty RedisAddress selects
// the in-memory cache.
type CacheConfig struct {
	RedisAddress  string        `yaml:"redisAddress,omitempty"`
	RedisPassword string        `yaml:"redisPassword,omitempty"`
	RedisDB       int           `yaml:"redisDB,omitempty"`
	TTL           time.Duration `yaml:"ttl,omitempty"`
}

// flagKeys maps command line flag names to configuration keys.
var flagKeys = map[string]string{
	"payload":             "inputs.payloadMass",
	"specific-impulse":    "inputs.specificImpulse",
	"latitude":            "inputs.launchLatitude",
	"altitude":            "inputs.orbitAltitude",
	"structural-fraction": "inputs.structuralFraction",
	"delta-v":             "inputs.deltaVBudget",
	"output-format":       "output.format",
	"log-level":           "logging.level",
	"address":             "server.address",
	"redis-address":       "cache.redisAddress",
}

// Loader reads the configuration from a YAML file, ROCKET_ prefixed
// environment variables and bound command line flags, in increasing order of
// precedence.
type Loader struct {
	v      *viper.Viper
	loaded bool
}

// NewLoader returns a Loader with all defaults registered.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigType("yml")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("inputs.payloadMass", constants.DefaultPayloadMass)
	v.SetDefault("inputs.specificImpulse", constants.DefaultSpecificImpulse)
	v.SetDefault("inputs.launchLatitude", constants.DefaultLaunchLatitude)
	v.SetDefault("inputs.orbitAltitude", constants.DefaultOrbitAltitude)
	v.SetDefault("inputs.structuralFraction", constants.DefaultStructuralFraction)
	v.SetDefault("inputs.deltaVBudget", constants.DefaultDeltaVBudget)
	v.SetDefault("logging.level", "")
	v.SetDefault("logging.format", "")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", "")
	v.SetDefault("server.address", constants.DefaultServerAddress)
	v.SetDefault("server.maxBodySize", fmt.Sprintf("%d", constants.DefaultMaxBodySizeBytes))
	v.SetDefault("server.rateLimit", constants.DefaultRateLimit)
	v.SetDefault("server.rateWindow", constants.DefaultRateWindow)
	v.SetDefault("cache.redisAddress", "")
	v.SetDefault("cache.redisPassword", "")
	v.SetDefault("cache.redisDB", 0)
	v.SetDefault("cache.ttl", constants.DefaultCacheTTL)

	return &Loader{v: v}
}

// BindFlags binds every known flag present in the set to its configuration
// key. Flags only override the file when they were set explicitly.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := l.v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the YAML configuration at configPath. When optional is true a
// missing file is not an error and only defaults, environment and flags
// apply.
func (l *Loader) Load(configPath string, optional bool) (*Configuration, error) {
	if configPath != "" {
		l.v.SetConfigFile(configPath)
		if err := l.v.ReadInConfig(); err != nil {
			if !optional || !isNotExist(err) {
				return nil, fmt.Errorf("error reading config file, %s", err)
			}
		} else {
			l.loaded = true
		}
	}
	return l.decode()
}

// Loaded reports whether Load read a configuration file.
func (l *Loader) Loaded() bool {
	return l.loaded
}

// LoadReader reads a YAML configuration document from r.
func (l *Loader) LoadReader(r io.Reader) (*Configuration, error) {
	if err := l.v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return l.decode()
}

// Watch reloads the configuration file whenever it changes and hands the
// result to onChange. Reload failures are logged and the previous
// configuration stays in effect.
func (l *Loader) Watch(logger *zap.Logger, onChange func(*Configuration)) {
	if logger == nil {
		logger = zap.NewNop()
	}

	l.v.OnConfigChange(func(event fsnotify.Event) {
		conf, err := l.decode()
		if err != nil {
			logger.Error("failed to reload configuration",
				zap.String("op", "config.Watch"),
				zap.String("file", event.Name),
				zap.Error(err),
			)
			return
		}
		logger.Info("configuration reloaded",
			zap.String("op", "config.Watch"),
			zap.String("file", event.Name),
			zap.String("event", event.Op.String()),
		)
		onChange(conf)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Configuration, error) {
	var configuration Configuration
	if err := l.v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there. The file must exist.
func LoadConfiguration(configPath string) (*Configuration, error) {
	return NewLoader().Load(configPath, false)
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	return NewLoader().LoadReader(r)
}

// Default returns the configuration made of defaults and environment
// overrides only.
func Default() *Configuration {
	conf, err := NewLoader().Load("", true)
	if err != nil {
		// Defaults always decode; only a malformed environment override can fail.
		return &Configuration{Inputs: DefaultInputs()}
	}
	return conf
}

// DefaultInputs returns the built-in default rocket inputs.
func DefaultInputs() sizing.RocketInputs {
	return sizing.RocketInputs{
		PayloadMass:        constants.DefaultPayloadMass,
		SpecificImpulse:    constants.DefaultSpecificImpulse,
		LaunchLatitude:     constants.DefaultLaunchLatitude,
		OrbitAltitude:      constants.DefaultOrbitAltitude,
		StructuralFraction: constants.DefaultStructuralFraction,
		DeltaVBudget:       constants.DefaultDeltaVBudget,
	}
}

// MarshalYAML renders durations as strings so the output can be loaded back.
func (c Configuration) MarshalYAML() (interface{}, error) {
	return map[string]interface{}{
		"inputs":  c.Inputs,
		"logging": c.Logging,
		"output":  c.Output,
		"server": map[string]interface{}{
			"address":     c.Server.Address,
			"maxBodySize": c.Server.MaxBodySize,
			"rateLimit":   c.Server.RateLimit,
			"rateWindow":  c.Server.RateWindow.String(),
		},
		"cache": map[string]interface{}{
			"redisAddress": c.Cache.RedisAddress,
			"redisDB":      c.Cache.RedisDB,
			"ttl":          c.Cache.TTL.String(),
		},
	}, nil
}

// WriteExample writes the configuration as a YAML document.
func (c Configuration) WriteExample(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	return encoder.Close()
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound)
}
