package model

import (
	"fmt"
	"math"
	"sort"
)

// Standard atmosphere constants for the altitude air-density correction.
const (
	stdTempK    = 288.16
	gasConstant = 287.0
	lapseRate   = 0.0065 // K/m
	gravityMS2  = 9.81
)

// CurvePoint is one point of a manufacturer power curve.
type CurvePoint struct {
	SpeedMS float64 `json:"wind_speed" yaml:"wind_speed"`
	PowerKW float64 `json:"power" yaml:"power"`
}

// WindSpec defines a wind turbine type and how it is mounted.
// Heights and roughness are in meters. CutOutSpeedMS defaults to the last power
// curve point when zero.
type WindSpec struct {
	PowerCurve        []CurvePoint
	HubHeightM        float64
	AnemometerHeightM float64
	RoughnessM        float64
	AltitudeM         float64
	CutOutSpeedMS     float64

	Cost AssetCost
}

func (s WindSpec) Validate() error {
	if len(s.PowerCurve) < 2 {
		return fmt.Errorf("%w: wind power curve needs at least 2 points", ErrInvalidSpec)
	}
	for i, p := range s.PowerCurve {
		if p.SpeedMS < 0 || p.PowerKW < 0 || math.IsNaN(p.SpeedMS) || math.IsNaN(p.PowerKW) {
			return fmt.Errorf("%w: wind power curve point %d must be non-negative", ErrInvalidSpec, i)
		}
	}
	if s.RoughnessM <= 0 {
		return fmt.Errorf("%w: wind surface roughness must be > 0", ErrInvalidSpec)
	}
	if s.HubHeightM <= s.RoughnessM || s.AnemometerHeightM <= s.RoughnessM {
		return fmt.Errorf("%w: wind hub and anemometer heights must exceed surface roughness", ErrInvalidSpec)
	}
	if s.AltitudeM < 0 || s.AltitudeM*lapseRate >= stdTempK {
		return fmt.Errorf("%w: wind altitude out of range", ErrInvalidSpec)
	}
	if s.CutOutSpeedMS < 0 {
		return fmt.Errorf("%w: wind cut-out speed must be >= 0", ErrInvalidSpec)
	}
	return s.Cost.Validate("wind")
}

// SimulateWind returns the power output (kW) of count turbines for every
// timestep of the anemometer wind speed series.
func SimulateWind(spec WindSpec, windSpeed TimeSeries, count float64) (TimeSeries, error) {
	if err := windSpeed.Validate("wind speed"); err != nil {
		return TimeSeries{}, err
	}
	if err := (Configuration{Wind: count}).Validate(); err != nil {
		return TimeSeries{}, err
	}
	if err := spec.Validate(); err != nil {
		return TimeSeries{}, err
	}

	out := windSpeed.Zeros()
	if count == 0 {
		return out, nil
	}
	curve := spec.sortedCurve()
	cutOut := spec.CutOutSpeedMS
	if cutOut == 0 {
		cutOut = curve[len(curve)-1].SpeedMS
	}
	shear := spec.hubSpeedRatio()
	density := airDensityRatio(spec.AltitudeM)

	for i, u := range windSpeed.Values {
		hub := math.Max(0, u) * shear
		if hub > cutOut {
			continue
		}
		p := interpolateCurve(curve, hub) * density * count
		out.Values[i] = math.Max(0, p)
	}
	return out, nil
}

// hubSpeedRatio is the logarithmic wind-shear ratio between hub and anemometer height.
func (s WindSpec) hubSpeedRatio() float64 {
	return math.Log(s.HubHeightM/s.RoughnessM) / math.Log(s.AnemometerHeightM/s.RoughnessM)
}

func (s WindSpec) sortedCurve() []CurvePoint {
	curve := make([]CurvePoint, len(s.PowerCurve))
	copy(curve, s.PowerCurve)
	sort.SliceStable(curve, func(i, j int) bool { return curve[i].SpeedMS < curve[j].SpeedMS })
	return curve
}

// interpolateCurve linearly interpolates a sorted power curve.
// Below the first point output is zero; above the last point it holds the last value.
func interpolateCurve(curve []CurvePoint, speed float64) float64 {
	if speed < curve[0].SpeedMS {
		return 0
	}
	last := curve[len(curve)-1]
	if speed >= last.SpeedMS {
		return last.PowerKW
	}
	j := sort.Search(len(curve), func(k int) bool { return curve[k].SpeedMS > speed })
	lo, hi := curve[j-1], curve[j]
	if hi.SpeedMS == lo.SpeedMS {
		return hi.PowerKW
	}
	frac := (speed - lo.SpeedMS) / (hi.SpeedMS - lo.SpeedMS)
	return lo.PowerKW + frac*(hi.PowerKW-lo.PowerKW)
}

// airDensityRatio is the ratio of air density at altitude to standard sea-level density.
func airDensityRatio(altitudeM float64) float64 {
	base := 1 - (lapseRate*altitudeM)/stdTempK
	return math.Pow(base, gravityMS2/(gasConstant*lapseRate)) * (stdTempK / (stdTempK - lapseRate*altitudeM))
}
