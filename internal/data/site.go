package data

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"hpp-sizer/internal/model"
)

// FileRef names a series file and the value column to read from it.
// An empty Column means the default column for that series.
type FileRef struct {
	Path   string `json:"path" yaml:"path"`
	Column string `json:"column,omitempty" yaml:"column,omitempty"`
}

// SiteFiles locates the resource and load data of one site.
// Temperature is optional.
type SiteFiles struct {
	Load        FileRef `json:"load" yaml:"load"`
	Irradiance  FileRef `json:"irradiance" yaml:"irradiance"`
	Temperature FileRef `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	WindSpeed   FileRef `json:"wind_speed" yaml:"wind_speed"`
}

// Resolve makes relative paths relative to dir.
func (f SiteFiles) Resolve(dir string) SiteFiles {
	abs := func(r FileRef) FileRef {
		if r.Path != "" && !filepath.IsAbs(r.Path) {
			r.Path = filepath.Join(dir, r.Path)
		}
		return r
	}
	return SiteFiles{
		Load:        abs(f.Load),
		Irradiance:  abs(f.Irradiance),
		Temperature: abs(f.Temperature),
		WindSpeed:   abs(f.WindSpeed),
	}
}

// Site is the aligned environmental and load data of one location.
type Site struct {
	Load        model.TimeSeries
	Irradiance  model.TimeSeries
	Temperature model.TimeSeries
	WindSpeed   model.TimeSeries
}

// LoadSite reads all site files concurrently and checks that they align.
func LoadSite(ctx context.Context, files SiteFiles) (*Site, error) {
	if files.Load.Path == "" || files.Irradiance.Path == "" || files.WindSpeed.Path == "" {
		return nil, fmt.Errorf("%w: load, irradiance and wind speed files are required", model.ErrInvalidInput)
	}

	var site Site
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	load := func(ref FileRef, column string, dst *model.TimeSeries) {
		if ref.Path == "" {
			return
		}
		if ref.Column != "" {
			column = ref.Column
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := LoadSeriesFile(ref.Path, column)
			if err != nil {
				return err
			}
			*dst = s
			return nil
		})
	}
	load(files.Load, ColumnLoad, &site.Load)
	load(files.Irradiance, ColumnIrradiance, &site.Irradiance)
	load(files.Temperature, ColumnTemperature, &site.Temperature)
	load(files.WindSpeed, ColumnWindSpeed, &site.WindSpeed)
	if err := g.Wait(); err != nil {
		return nil, err
	}

	err := model.CheckAligned(site.Load, "load", map[string]model.TimeSeries{
		"irradiance":  site.Irradiance,
		"temperature": site.Temperature,
		"wind speed":  site.WindSpeed,
	})
	if err != nil {
		return nil, err
	}
	return &site, nil
}
