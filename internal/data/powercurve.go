package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"hpp-sizer/internal/model"
)

// ReadPowerCurveCSV reads a turbine power curve with "wind speed" (m/s) and
// "power" (kW) columns.
func ReadPowerCurveCSV(r io.Reader) ([]model.CurvePoint, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read power curve header: %v", model.ErrInvalidSpec, err)
	}
	speedIdx, powerIdx := -1, -1
	for i, h := range header {
		switch normalize(h) {
		case ColumnWindSpeed:
			speedIdx = i
		case "power":
			powerIdx = i
		}
	}
	if speedIdx < 0 || powerIdx < 0 {
		return nil, fmt.Errorf("%w: power curve needs %q and %q columns", model.ErrInvalidSpec, ColumnWindSpeed, "power")
	}

	var curve []model.CurvePoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: power curve line %d: %v", model.ErrInvalidSpec, line, err)
		}
		speed, err := strconv.ParseFloat(strings.TrimSpace(rec[speedIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: power curve line %d: bad wind speed %q", model.ErrInvalidSpec, line, rec[speedIdx])
		}
		power, err := strconv.ParseFloat(strings.TrimSpace(rec[powerIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: power curve line %d: bad power %q", model.ErrInvalidSpec, line, rec[powerIdx])
		}
		curve = append(curve, model.CurvePoint{SpeedMS: speed, PowerKW: power})
	}
	if len(curve) < 2 {
		return nil, fmt.Errorf("%w: power curve needs at least 2 points", model.ErrInvalidSpec)
	}
	return curve, nil
}

// LoadPowerCurveFile reads a power curve CSV, optionally compressed.
func LoadPowerCurveFile(path string) ([]model.CurvePoint, error) {
	r, _, err := openMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	curve, err := ReadPowerCurveCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return curve, nil
}
