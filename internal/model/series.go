package model

import (
	"fmt"
	"math"
	"time"
)

// TimeSeries is a fixed-step sequence of samples.
//
// Units depend on the series: irradiance in kW/m^2, wind speed in m/s,
// temperature in degC, load and power in kW.
// Start is the civil (local) timestamp of the first sample; the solar model
// derives day-of-year and clock time from it.
type TimeSeries struct {
	Start     time.Time `json:"start"`
	StepHours float64   `json:"step_hours"`
	Values    []float64 `json:"values"`
}

// NewTimeSeries builds an hourly series starting at start.
func NewTimeSeries(start time.Time, values []float64) TimeSeries {
	return TimeSeries{Start: start, StepHours: 1, Values: values}
}

func (s TimeSeries) Len() int { return len(s.Values) }

func (s TimeSeries) Step() time.Duration {
	return time.Duration(s.StepHours * float64(time.Hour))
}

// TimeAt returns the timestamp of sample i.
func (s TimeSeries) TimeAt(i int) time.Time {
	return s.Start.Add(time.Duration(float64(i) * s.StepHours * float64(time.Hour)))
}

// Validate checks that the series is non-empty, has a positive step and holds
// only finite values.
func (s TimeSeries) Validate(name string) error {
	if len(s.Values) == 0 {
		return fmt.Errorf("%w: %s series is empty", ErrInvalidInput, name)
	}
	if s.StepHours <= 0 || math.IsNaN(s.StepHours) || math.IsInf(s.StepHours, 0) {
		return fmt.Errorf("%w: %s series step must be > 0 hours, got %v", ErrInvalidInput, name, s.StepHours)
	}
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s series has non-finite value at index %d", ErrInvalidInput, name, i)
		}
	}
	return nil
}

// Scaled returns a copy of s with every value multiplied by k.
func (s TimeSeries) Scaled(k float64) TimeSeries {
	out := TimeSeries{Start: s.Start, StepHours: s.StepHours, Values: make([]float64, len(s.Values))}
	for i, v := range s.Values {
		out.Values[i] = v * k
	}
	return out
}

// Zeros returns an all-zero series aligned with s.
func (s TimeSeries) Zeros() TimeSeries {
	return TimeSeries{Start: s.Start, StepHours: s.StepHours, Values: make([]float64, len(s.Values))}
}

// CheckAligned verifies that every series shares the reference's length, start and step.
// Series with a nil Values slice are treated as absent and skipped.
func CheckAligned(ref TimeSeries, refName string, others map[string]TimeSeries) error {
	if err := ref.Validate(refName); err != nil {
		return err
	}
	for name, s := range others {
		if s.Values == nil {
			continue
		}
		if err := s.Validate(name); err != nil {
			return err
		}
		if len(s.Values) != len(ref.Values) {
			return fmt.Errorf("%w: %s has %d samples, %s has %d", ErrInvalidInput, name, len(s.Values), refName, len(ref.Values))
		}
		if s.StepHours != ref.StepHours {
			return fmt.Errorf("%w: %s step %vh does not match %s step %vh", ErrInvalidInput, name, s.StepHours, refName, ref.StepHours)
		}
		if !s.Start.Equal(ref.Start) {
			return fmt.Errorf("%w: %s starts at %s, %s starts at %s", ErrInvalidInput, name, s.Start.Format(time.RFC3339), refName, ref.Start.Format(time.RFC3339))
		}
	}
	return nil
}
