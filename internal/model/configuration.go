package model

import (
	"fmt"
	"math"
)

// Configuration is a candidate plant: unit counts per asset type.
// Exhaustive search only produces integral counts; differential evolution works on
// continuous counts and rounds before reporting.
type Configuration struct {
	Solar   float64 `json:"solar" yaml:"solar"`
	Wind    float64 `json:"wind" yaml:"wind"`
	Storage float64 `json:"storage" yaml:"storage"`
}

// Dims is the number of asset types in a Configuration.
const Dims = 3

// Vector returns the counts in canonical order (solar, wind, storage).
func (c Configuration) Vector() []float64 {
	return []float64{c.Solar, c.Wind, c.Storage}
}

// ConfigurationFromVector is the inverse of Vector.
func ConfigurationFromVector(v []float64) Configuration {
	return Configuration{Solar: v[0], Wind: v[1], Storage: v[2]}
}

// Validate rejects negative or non-finite counts.
func (c Configuration) Validate() error {
	for i, v := range c.Vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s count is not finite", ErrInvalidConfiguration, AssetNames[i])
		}
		if v < 0 {
			return fmt.Errorf("%w: %s count must be >= 0, got %v", ErrInvalidConfiguration, AssetNames[i], v)
		}
	}
	return nil
}

// Rounded returns the configuration with every count rounded to the nearest unit.
func (c Configuration) Rounded() Configuration {
	return Configuration{Solar: math.Round(c.Solar), Wind: math.Round(c.Wind), Storage: math.Round(c.Storage)}
}

func (c Configuration) String() string {
	return fmt.Sprintf("solar=%g wind=%g storage=%g", c.Solar, c.Wind, c.Storage)
}

// AssetNames lists asset types in canonical order.
var AssetNames = [Dims]string{"solar", "wind", "storage"}

// AssetCost holds the per-unit economics of one asset type.
// Units: currency per unit (capital, replacement), currency per unit per year (O&M).
type AssetCost struct {
	CapitalCost     float64 `json:"capital_cost" yaml:"capital_cost"`
	ReplacementCost float64 `json:"replacement_cost" yaml:"replacement_cost"`
	OMCost          float64 `json:"om_cost" yaml:"om_cost"`
	LifetimeYears   int     `json:"lifetime_years" yaml:"lifetime_years"`
}

func (c AssetCost) Validate(name string) error {
	if c.CapitalCost < 0 || c.ReplacementCost < 0 || c.OMCost < 0 {
		return fmt.Errorf("%w: %s costs must be >= 0", ErrInvalidSpec, name)
	}
	if c.LifetimeYears <= 0 {
		return fmt.Errorf("%w: %s lifetime_years must be > 0", ErrInvalidSpec, name)
	}
	return nil
}

// PlantCosts bundles per-unit costs for each asset type.
type PlantCosts struct {
	Solar   AssetCost
	Wind    AssetCost
	Storage AssetCost
}

func (p PlantCosts) byIndex() [Dims]AssetCost {
	return [Dims]AssetCost{p.Solar, p.Wind, p.Storage}
}

// PlantSpecs is the full set of asset specifications for one run.
type PlantSpecs struct {
	Solar   SolarSpec
	Wind    WindSpec
	Storage StorageSpec
}

// Costs extracts the economics of each asset type.
func (p PlantSpecs) Costs() PlantCosts {
	return PlantCosts{Solar: p.Solar.Cost, Wind: p.Wind.Cost, Storage: p.Storage.Cost}
}

func (p PlantSpecs) Validate() error {
	if err := p.Solar.Validate(); err != nil {
		return err
	}
	if err := p.Wind.Validate(); err != nil {
		return err
	}
	return p.Storage.Validate()
}
