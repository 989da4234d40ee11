// Package config provides configuration loading and access for the habitat.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Map variants.
const (
	VariantWorld = "world" // horizontal wrap, bounce at the poles
	VariantFire  = "fire"  // clamped edges with spreading fire
)

// Mobility models.
const (
	MobilityNormal = "normal"
	MobilityAgeing = "ageing" // old animals skip moves with probability min(age, 80)%
)

// Config holds all habitat configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world" json:"world"`
	Plants    PlantsConfig    `yaml:"plants" json:"plants"`
	Animals   AnimalsConfig   `yaml:"animals" json:"animals"`
	Breeding  BreedingConfig  `yaml:"breeding" json:"breeding"`
	Mutation  MutationConfig  `yaml:"mutation" json:"mutation"`
	Fire      FireConfig      `yaml:"fire" json:"fire"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-" json:"-"`
}

// WorldConfig holds grid dimensions and the boundary variant.
type WorldConfig struct {
	Variant string `yaml:"variant" json:"variant"`
	Width   int    `yaml:"width" json:"width"`
	Height  int    `yaml:"height" json:"height"`
	Seed    int64  `yaml:"seed" json:"seed"` // 0 = time-based
}

// PlantsConfig holds resource parameters.
type PlantsConfig struct {
	Start  int `yaml:"start" json:"start"`   // plants placed at construction
	Grow   int `yaml:"grow" json:"grow"`     // plants added per step
	Energy int `yaml:"energy" json:"energy"` // energy gained from eating one plant
}

// AnimalsConfig holds founder population parameters.
type AnimalsConfig struct {
	Start        int    `yaml:"start" json:"start"`
	Energy       int    `yaml:"energy" json:"energy"`
	GenomeLength int    `yaml:"genome_length" json:"genome_length"`
	Mobility     string `yaml:"mobility" json:"mobility"`
}

// BreedingConfig holds reproduction parameters.
type BreedingConfig struct {
	MinEnergy int `yaml:"min_energy" json:"min_energy"` // both parents need at least this much
	Cost      int `yaml:"cost" json:"cost"`             // paid by each parent; the child starts with twice this
}

// MutationConfig bounds the number of mutated genes per child: [Min, Max).
type MutationConfig struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// FireConfig holds hazard parameters for the fire variant.
type FireConfig struct {
	Interval int `yaml:"interval" json:"interval"` // steps between random ignitions
	Duration int `yaml:"duration" json:"duration"` // propagation passes a tile burns
}

// TelemetryConfig holds statistics output parameters.
type TelemetryConfig struct {
	LogEvery int  `yaml:"log_every" json:"log_every"` // steps between slog stats lines (0 = off)
	Window   int  `yaml:"window" json:"window"`       // steps per aggregated window
	Compress bool `yaml:"compress" json:"compress"`   // zstd-compress stats.csv
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Fire      bool // World.Variant == VariantFire
	Ageing    bool // Animals.Mobility == MobilityAgeing
	Area      int  // Width * Height
	EquatorLo int  // first equator row
	EquatorHi int  // one past the last equator row
}

// Default returns the embedded defaults. Panics if they are malformed.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ComputeDerived()

	return cfg, nil
}

// Clone returns a copy of the configuration. Config holds no reference types.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// ComputeDerived calculates values derived from loaded config.
// Call it again after changing fields programmatically.
func (c *Config) ComputeDerived() {
	c.Derived.Fire = c.World.Variant == VariantFire
	c.Derived.Ageing = c.Animals.Mobility == MobilityAgeing
	c.Derived.Area = c.World.Width * c.World.Height

	c.Derived.EquatorLo, c.Derived.EquatorHi = EquatorBand(c.World.Height)
}

// EquatorBand returns the rows [lo, hi) of the equator: the middle 20% of a
// grid of the given height, at least one row.
func EquatorBand(height int) (lo, hi int) {
	band := max((height+2)/5, 1)
	lo = (height - band) / 2
	return lo, lo + band
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
