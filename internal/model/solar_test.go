package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSolarSpec() SolarSpec {
	return SolarSpec{
		Latitude:         51.5,
		Longitude:        -0.16,
		ModuleCapacityKW: 1,
		DeratingFactor:   0.8,
		Albedo:           0.2,
		Cost:             AssetCost{CapitalCost: 2500, ReplacementCost: 2500, OMCost: 10, LifetimeYears: 20},
	}
}

func TestSolarTime(t *testing.T) {
	cases := []struct {
		day      int
		civil    float64
		timeZone float64
		long     float64
		want     float64
	}{
		{102, 14.75, 0, -0.16192, 14.72},
		{88, 22.13, 8, 114.058172, 21.64},
		{34, 10.5, -5, -89.393153, 9.32},
	}
	for _, c := range cases {
		s := SolarSpec{Longitude: c.long, TimeZone: c.timeZone}
		assert.InDelta(t, c.want, s.solarTime(c.day, c.civil), 0.05, "day %d", c.day)
	}
}

func TestSolarDeclination(t *testing.T) {
	maxDay, minDay := 0, 0
	maxDec, minDec := -90.0, 90.0
	for n := 1; n <= 365; n++ {
		d := solarDeclination(n)
		require.LessOrEqual(t, d, 23.45)
		require.GreaterOrEqual(t, d, -23.45)
		if d > maxDec {
			maxDec, maxDay = d, n
		}
		if d < minDec {
			minDec, minDay = d, n
		}
	}
	assert.True(t, maxDay >= 152 && maxDay <= 181, "max declination on day %d", maxDay)
	assert.True(t, minDay >= 335 || minDay <= 31, "min declination on day %d", minDay)
}

func TestDiffuseFractionBranches(t *testing.T) {
	assert.InDelta(t, 1, diffuseFraction(0), 1e-12)
	assert.InDelta(t, 0.165, diffuseFraction(0.95), 1e-12)
	// Erbs branches meet at the breakpoints.
	assert.InDelta(t, diffuseFraction(0.2199999), diffuseFraction(0.2200001), 0.01)
	assert.InDelta(t, diffuseFraction(0.7999999), diffuseFraction(0.8000001), 0.01)
}

func TestSimulateSolarHorizontalArray(t *testing.T) {
	spec := testSolarSpec()
	start := time.Date(2021, 3, 20, 11, 0, 0, 0, time.UTC)
	irr := NewTimeSeries(start, []float64{0.5, 1.5, 0})

	// A flat array sees exactly the global horizontal irradiance.
	out, err := SimulateSolar(spec, SolarResource{Irradiance: irr}, 4)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1.6, 4, 0}, out.Values, 1e-9)
}

func TestSimulateSolarTiltedStaysWithinCapacity(t *testing.T) {
	spec := testSolarSpec()
	spec.Slope = 35
	values := make([]float64, 24*7)
	for i := range values {
		h := i % 24
		if h >= 6 && h <= 18 {
			values[i] = 0.9
		}
	}
	irr := NewTimeSeries(time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), values)

	out, err := SimulateSolar(spec, SolarResource{Irradiance: irr}, 10)
	require.NoError(t, err)
	for i, p := range out.Values {
		require.GreaterOrEqual(t, p, 0.0, "step %d", i)
		require.LessOrEqual(t, p, 10.0, "step %d", i)
		if values[i] == 0 {
			require.Zero(t, p, "step %d", i)
		}
	}
	assert.Greater(t, out.Values[12], 0.0)
}

func TestSimulateSolarTemperatureDerating(t *testing.T) {
	spec := testSolarSpec()
	spec.TempCoefficient = -0.005
	assert.InDelta(t, 0.865, spec.temperatureFactor(25, 0.8), 1e-9)

	start := time.Date(2021, 3, 20, 11, 0, 0, 0, time.UTC)
	res := SolarResource{
		Irradiance:  NewTimeSeries(start, []float64{0.8}),
		Temperature: NewTimeSeries(start, []float64{25}),
	}
	out, err := SimulateSolar(spec, res, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.8*0.8*0.865, out.Values[0], 1e-9)
}

func TestSimulateSolarRejectsMisalignedTemperature(t *testing.T) {
	start := time.Date(2021, 3, 20, 0, 0, 0, 0, time.UTC)
	res := SolarResource{
		Irradiance:  NewTimeSeries(start, []float64{0.1, 0.2}),
		Temperature: NewTimeSeries(start, []float64{10}),
	}
	_, err := SimulateSolar(testSolarSpec(), res, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
