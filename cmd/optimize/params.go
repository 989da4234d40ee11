package main

import (
	"math"

	"github.com/pthm-cable/darwin/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters. All of
// them are integers in the config; the optimizer works on the continuous
// relaxation and values are rounded when applied.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Resources
			{Name: "plant_grow", Path: "plants.grow", Min: 1, Max: 60, Default: 12},
			{Name: "plant_energy", Path: "plants.energy", Min: 1, Max: 30, Default: 8},
			// Founders
			{Name: "start_energy", Path: "animals.energy", Min: 5, Max: 100, Default: 30},
			// Breeding
			{Name: "breed_min_energy", Path: "breeding.min_energy", Min: 2, Max: 60, Default: 20},
			{Name: "breed_cost", Path: "breeding.cost", Min: 1, Max: 30, Default: 10},
			// Mutation (min locked at 0)
			{Name: "mutation_max", Path: "mutation.max", Min: 1, Max: 8, Default: 3},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	round := func(i int) int { return int(math.Round(clamped[i])) }

	// Order must match Specs order
	cfg.Plants.Grow = round(0)
	cfg.Plants.Energy = round(1)
	cfg.Animals.Energy = round(2)
	cfg.Breeding.MinEnergy = round(3)
	cfg.Breeding.Cost = round(4)
	cfg.Mutation.Min = 0
	cfg.Mutation.Max = round(5)

	cfg.ComputeDerived()
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		float64(cfg.Plants.Grow),
		float64(cfg.Plants.Energy),
		float64(cfg.Animals.Energy),
		float64(cfg.Breeding.MinEnergy),
		float64(cfg.Breeding.Cost),
		float64(cfg.Mutation.Max),
	}
}
