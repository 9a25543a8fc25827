package data

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"hpp-sizer/internal/model"
)

// DateTimeLayout is the day-first timestamp used by the resource exports.
const DateTimeLayout = "02/01/2006 15:04"

// Default value columns of the resource and load files.
const (
	ColumnLoad        = "load"
	ColumnIrradiance  = "irradiance"
	ColumnTemperature = "temperature"
	ColumnWindSpeed   = "wind speed"
	columnDateTime    = "datetime"
)

var timeLayouts = []string{DateTimeLayout, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04"}

// ReadSeriesCSV reads a "datetime" column and the named value column into a
// TimeSeries. Column names are matched case-insensitively. Timestamps are
// civil time; rows must be evenly spaced.
func ReadSeriesCSV(r io.Reader, column string) (model.TimeSeries, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return model.TimeSeries{}, fmt.Errorf("%w: read header: %v", model.ErrInvalidInput, err)
	}
	timeIdx, valueIdx := -1, -1
	for i, h := range header {
		switch normalize(h) {
		case columnDateTime:
			timeIdx = i
		case normalize(column):
			valueIdx = i
		}
	}
	if timeIdx < 0 {
		return model.TimeSeries{}, fmt.Errorf("%w: missing %q column", model.ErrInvalidInput, columnDateTime)
	}
	if valueIdx < 0 {
		return model.TimeSeries{}, fmt.Errorf("%w: missing %q column", model.ErrInvalidInput, column)
	}

	var (
		times  []time.Time
		values []float64
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return model.TimeSeries{}, fmt.Errorf("%w: line %d: %v", model.ErrInvalidInput, line, err)
		}
		ts, err := parseTime(rec[timeIdx])
		if err != nil {
			return model.TimeSeries{}, fmt.Errorf("%w: line %d: %v", model.ErrInvalidInput, line, err)
		}
		raw := strings.TrimSpace(rec[valueIdx])
		if raw == "" {
			return model.TimeSeries{}, fmt.Errorf("%w: line %d: missing %s value", model.ErrInvalidInput, line, column)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.TimeSeries{}, fmt.Errorf("%w: line %d: %s value %q is not numeric", model.ErrInvalidInput, line, column, raw)
		}
		times = append(times, ts)
		values = append(values, v)
	}
	return buildSeries(times, values, column)
}

func buildSeries(times []time.Time, values []float64, name string) (model.TimeSeries, error) {
	if len(values) == 0 {
		return model.TimeSeries{}, fmt.Errorf("%w: %s has no rows", model.ErrInvalidInput, name)
	}
	step := time.Hour
	if len(times) > 1 {
		step = times[1].Sub(times[0])
	}
	if step <= 0 {
		return model.TimeSeries{}, fmt.Errorf("%w: %s timestamps are not increasing", model.ErrInvalidInput, name)
	}
	for i := 2; i < len(times); i++ {
		if d := times[i].Sub(times[i-1]); d != step {
			return model.TimeSeries{}, fmt.Errorf("%w: %s step changes from %s to %s at row %d", model.ErrInvalidInput, name, step, d, i+1)
		}
	}
	s := model.TimeSeries{Start: times[0], StepHours: step.Hours(), Values: values}
	return s, s.Validate(name)
}

// ReadSeriesJSON decodes a series in its JSON form
// ({"start": ..., "step_hours": ..., "values": [...]}).
func ReadSeriesJSON(r io.Reader, name string) (model.TimeSeries, error) {
	var s model.TimeSeries
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return model.TimeSeries{}, fmt.Errorf("%w: decode %s: %v", model.ErrInvalidInput, name, err)
	}
	if s.StepHours == 0 {
		s.StepHours = 1
	}
	return s, s.Validate(name)
}

// LoadSeriesFile reads a CSV or JSON series, transparently decompressing
// .gz and .zst files.
func LoadSeriesFile(path, column string) (model.TimeSeries, error) {
	r, inner, err := openMaybeCompressed(path)
	if err != nil {
		return model.TimeSeries{}, err
	}
	defer r.Close()

	var s model.TimeSeries
	if strings.EqualFold(filepath.Ext(inner), ".json") {
		s, err = ReadSeriesJSON(r, column)
	} else {
		s, err = ReadSeriesCSV(r, column)
	}
	if err != nil {
		return model.TimeSeries{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// openMaybeCompressed opens path and wraps it in a decompressor chosen by
// extension. It returns the file name without the compression suffix.
func openMaybeCompressed(path string) (io.ReadCloser, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	ext := strings.ToLower(filepath.Ext(path))
	inner := strings.TrimSuffix(path, filepath.Ext(path))
	switch ext {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, inner, nil
	case ".zst":
		zr, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
		if err != nil {
			f.Close()
			return nil, "", fmt.Errorf("%s: %w", path, err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zstdCloser{zr}, f}}, inner, nil
	default:
		return f, path, nil
	}
}

type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

type zstdCloser struct{ d *zstd.Decoder }

func (z zstdCloser) Close() error {
	z.d.Close()
	return nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
