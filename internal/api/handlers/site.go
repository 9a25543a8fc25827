package handlers

import (
	"context"
	"fmt"
	"log"

	"hpp-sizer/internal/api/models"
	"hpp-sizer/internal/data"
	"hpp-sizer/internal/model"
)

// SiteResolver turns a request's site source into aligned site data.
// Catalog and Cache may be nil.
type SiteResolver struct {
	Catalog         *data.Catalog
	Cache           *data.SiteCache
	MaxSeriesLength int
}

func (r *SiteResolver) Resolve(ctx context.Context, src models.SiteSource) (*data.Site, error) {
	var (
		site *data.Site
		err  error
	)
	switch {
	case src.DatasetID != "" && src.Series != nil, src.DatasetID == "" && src.Series == nil:
		return nil, errSiteSource
	case src.DatasetID != "":
		site, err = r.fromCatalog(ctx, src.DatasetID)
	default:
		site, err = inlineSite(*src.Series)
	}
	if err != nil {
		return nil, err
	}
	if r.MaxSeriesLength > 0 && site.Load.Len() > r.MaxSeriesLength {
		return nil, fmt.Errorf("%w: series has %d samples, limit is %d", errLimitExceeded, site.Load.Len(), r.MaxSeriesLength)
	}
	return site, nil
}

func (r *SiteResolver) fromCatalog(ctx context.Context, id string) (*data.Site, error) {
	if r.Catalog == nil {
		return nil, fmt.Errorf("%w: no catalog configured", errDatasetNotFound)
	}
	ds, ok := r.Catalog.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", errDatasetNotFound, id)
	}

	key := data.CacheKey(ds.Files)
	if site, ok := r.Cache.Get(key); ok {
		log.Printf("SiteResolver: cache hit for dataset %s", id)
		return site, nil
	}
	site, err := data.LoadSite(ctx, ds.Files)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}
	r.Cache.Set(key, site)
	log.Printf("SiteResolver: loaded dataset %s (%d samples)", id, site.Load.Len())
	return site, nil
}

func inlineSite(p models.SeriesPayload) (*data.Site, error) {
	site := &data.Site{
		Load:       withDefaultStep(p.Load),
		Irradiance: withDefaultStep(p.Irradiance),
		WindSpeed:  withDefaultStep(p.WindSpeed),
	}
	if p.Temperature != nil {
		site.Temperature = withDefaultStep(*p.Temperature)
	}
	err := model.CheckAligned(site.Load, "load", map[string]model.TimeSeries{
		"irradiance":  site.Irradiance,
		"temperature": site.Temperature,
		"wind speed":  site.WindSpeed,
	})
	if err != nil {
		return nil, err
	}
	return site, nil
}

// withDefaultStep treats an omitted step as hourly.
func withDefaultStep(s model.TimeSeries) model.TimeSeries {
	if s.StepHours == 0 {
		s.StepHours = 1
	}
	return s
}
