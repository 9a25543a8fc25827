package search

import (
	"fmt"
	"math"

	"hpp-sizer/internal/model"
)

// Space is a configuration search space.
type Space interface {
	Validate() error
	// Bounds returns the per-asset minimum and maximum unit counts.
	Bounds() (lower, upper model.Configuration)
}

// GridSpace is a discrete space: the Cartesian product of per-asset unit counts.
type GridSpace struct {
	Solar   []float64 `json:"solar" yaml:"solar"`
	Wind    []float64 `json:"wind" yaml:"wind"`
	Storage []float64 `json:"storage" yaml:"storage"`
}

// Linspace returns n evenly spaced values over [lo, hi], like the usual
// 0..100 step 10 sizing grid.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

func (g GridSpace) axes() [model.Dims][]float64 {
	return [model.Dims][]float64{g.Solar, g.Wind, g.Storage}
}

// Size is the number of grid points.
func (g GridSpace) Size() int {
	n := 1
	for _, a := range g.axes() {
		n *= len(a)
	}
	return n
}

// Validate requires every axis to be non-empty and hold non-negative integers.
func (g GridSpace) Validate() error {
	for i, axis := range g.axes() {
		if len(axis) == 0 {
			return fmt.Errorf("%w: %s grid is empty", model.ErrInvalidConfiguration, model.AssetNames[i])
		}
		for _, v := range axis {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v != math.Trunc(v) {
				return fmt.Errorf("%w: %s grid value %v is not a non-negative integer", model.ErrInvalidConfiguration, model.AssetNames[i], v)
			}
		}
	}
	return nil
}

func (g GridSpace) Bounds() (lower, upper model.Configuration) {
	var lo, hi [model.Dims]float64
	for i, axis := range g.axes() {
		lo[i], hi[i] = math.Inf(1), math.Inf(-1)
		for _, v := range axis {
			lo[i] = math.Min(lo[i], v)
			hi[i] = math.Max(hi[i], v)
		}
	}
	return model.ConfigurationFromVector(lo[:]), model.ConfigurationFromVector(hi[:])
}

// BoundedSpace is a continuous box of unit counts.
type BoundedSpace struct {
	Lower model.Configuration `json:"lower" yaml:"lower"`
	Upper model.Configuration `json:"upper" yaml:"upper"`
}

func (b BoundedSpace) Validate() error {
	if err := b.Lower.Validate(); err != nil {
		return err
	}
	if err := b.Upper.Validate(); err != nil {
		return err
	}
	lo, hi := b.Lower.Vector(), b.Upper.Vector()
	for i := range lo {
		if lo[i] > hi[i] {
			return fmt.Errorf("%w: %s lower bound %v exceeds upper bound %v", model.ErrInvalidConfiguration, model.AssetNames[i], lo[i], hi[i])
		}
		if math.Ceil(lo[i]) > math.Floor(hi[i]) {
			return fmt.Errorf("%w: %s bounds [%v, %v] contain no whole unit count", model.ErrInvalidConfiguration, model.AssetNames[i], lo[i], hi[i])
		}
	}
	return nil
}

func (b BoundedSpace) Bounds() (lower, upper model.Configuration) { return b.Lower, b.Upper }

// IntegerGrid expands a bounded space into the grid of every integer count
// inside the bounds.
func (b BoundedSpace) IntegerGrid() GridSpace {
	lo, hi := b.Lower.Vector(), b.Upper.Vector()
	var axes [model.Dims][]float64
	for i := range lo {
		for v := math.Ceil(lo[i]); v <= hi[i]; v++ {
			axes[i] = append(axes[i], v)
		}
	}
	return GridSpace{Solar: axes[0], Wind: axes[1], Storage: axes[2]}
}
