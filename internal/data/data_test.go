package data

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpp-sizer/internal/model"
)

const irradianceCSV = `datetime,Irradiance,wind speed
01/06/2021 00:00,0,5.5
01/06/2021 01:00,0,6
01/06/2021 02:00,0.12,7.25
`

func TestReadSeriesCSVDayFirst(t *testing.T) {
	s, err := ReadSeriesCSV(strings.NewReader(irradianceCSV), ColumnIrradiance)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), s.Start)
	assert.Equal(t, 1.0, s.StepHours)
	assert.Equal(t, []float64{0, 0, 0.12}, s.Values)

	wind, err := ReadSeriesCSV(strings.NewReader(irradianceCSV), ColumnWindSpeed)
	require.NoError(t, err)
	assert.Equal(t, []float64{5.5, 6, 7.25}, wind.Values)
}

func TestReadSeriesCSVRFC3339HalfHourly(t *testing.T) {
	in := "datetime,load\n2021-01-01T00:00:00Z,10\n2021-01-01T00:30:00Z,12\n"
	s, err := ReadSeriesCSV(strings.NewReader(in), ColumnLoad)
	require.NoError(t, err)
	assert.Equal(t, 0.5, s.StepHours)
}

func TestReadSeriesCSVErrors(t *testing.T) {
	cases := map[string]string{
		"missing column":   "datetime,other\n01/06/2021 00:00,1\n",
		"missing value":    "datetime,load\n01/06/2021 00:00,\n",
		"non numeric":      "datetime,load\n01/06/2021 00:00,abc\n",
		"bad timestamp":    "datetime,load\nyesterday,1\n",
		"uneven step":      "datetime,load\n01/06/2021 00:00,1\n01/06/2021 01:00,1\n01/06/2021 03:00,1\n",
		"no rows":          "datetime,load\n",
		"decreasing times": "datetime,load\n01/06/2021 01:00,1\n01/06/2021 00:00,1\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadSeriesCSV(strings.NewReader(in), ColumnLoad)
			assert.ErrorIs(t, err, model.ErrInvalidInput)
		})
	}
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func writeZstd(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw, err := zstd.NewWriter(f)
	require.NoError(t, err)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestLoadSeriesFileFormats(t *testing.T) {
	dir := t.TempDir()

	gz := filepath.Join(dir, "irradiance.csv.gz")
	writeGzip(t, gz, irradianceCSV)
	s, err := LoadSeriesFile(gz, ColumnIrradiance)
	require.NoError(t, err)
	assert.Len(t, s.Values, 3)

	zst := filepath.Join(dir, "irradiance.csv.zst")
	writeZstd(t, zst, irradianceCSV)
	s, err = LoadSeriesFile(zst, ColumnWindSpeed)
	require.NoError(t, err)
	assert.Equal(t, 7.25, s.Values[2])

	js := filepath.Join(dir, "load.json")
	require.NoError(t, os.WriteFile(js, []byte(`{"start":"2021-06-01T00:00:00Z","step_hours":1,"values":[1,2,3]}`), 0644))
	s, err = LoadSeriesFile(js, ColumnLoad)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, s.Values)

	_, err = LoadSeriesFile(filepath.Join(dir, "missing.csv"), ColumnLoad)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadPowerCurveCSV(t *testing.T) {
	curve, err := ReadPowerCurveCSV(strings.NewReader("Wind Speed,Power\n3,0\n12,2000\n25,2000\n"))
	require.NoError(t, err)
	assert.Equal(t, []model.CurvePoint{{SpeedMS: 3, PowerKW: 0}, {SpeedMS: 12, PowerKW: 2000}, {SpeedMS: 25, PowerKW: 2000}}, curve)

	_, err = ReadPowerCurveCSV(strings.NewReader("speed,power\n3,0\n"))
	assert.ErrorIs(t, err, model.ErrInvalidSpec)

	_, err = ReadPowerCurveCSV(strings.NewReader("wind speed,power\n3,0\n"))
	assert.ErrorIs(t, err, model.ErrInvalidSpec)
}

func writeSite(t *testing.T, dir string, loadRows int) SiteFiles {
	t.Helper()
	var load strings.Builder
	load.WriteString("datetime,load\n")
	for i := 0; i < loadRows; i++ {
		load.WriteString("01/06/2021 0" + string(rune('0'+i)) + ":00,20\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "load.csv"), []byte(load.String()), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resource.csv"), []byte(irradianceCSV), 0644))
	return SiteFiles{
		Load:       FileRef{Path: "load.csv"},
		Irradiance: FileRef{Path: "resource.csv"},
		WindSpeed:  FileRef{Path: "resource.csv"},
	}.Resolve(dir)
}

func TestLoadSite(t *testing.T) {
	dir := t.TempDir()
	files := writeSite(t, dir, 3)

	site, err := LoadSite(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, []float64{20, 20, 20}, site.Load.Values)
	assert.Equal(t, []float64{5.5, 6, 7.25}, site.WindSpeed.Values)
	assert.Nil(t, site.Temperature.Values)
}

func TestLoadSiteRejectsMisalignedFiles(t *testing.T) {
	dir := t.TempDir()
	files := writeSite(t, dir, 2)

	_, err := LoadSite(context.Background(), files)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = LoadSite(context.Background(), SiteFiles{Load: files.Load})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestCatalogRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	c := &Catalog{
		UpdatedAt: "2021-06-01T00:00:00Z",
		Datasets: []Dataset{
			{ID: "wick", Name: "Wick", Files: SiteFiles{Load: FileRef{Path: "wick/load.csv"}}},
			{ID: "abbey", Name: "Abbey Road", Files: SiteFiles{Load: FileRef{Path: "/srv/abbey/load.csv"}}},
		},
	}
	require.NoError(t, SaveCatalog(c, path))

	loaded, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Len(t, loaded.Datasets, 2)
	assert.Equal(t, "abbey", loaded.Datasets[0].ID)

	d, ok := loaded.Find("wick")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "wick/load.csv"), d.Files.Load.Path)

	d, ok = loaded.Find("abbey")
	require.True(t, ok)
	assert.Equal(t, "/srv/abbey/load.csv", d.Files.Load.Path)

	_, ok = loaded.Find("nope")
	assert.False(t, ok)
}

func TestSiteCache(t *testing.T) {
	var disabled *SiteCache
	disabled.Set("k", &Site{})
	_, ok := disabled.Get("k")
	assert.False(t, ok)
	assert.Nil(t, NewSiteCache(0))

	now := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSiteCache(time.Minute)
	c.now = func() time.Time { return now }

	site := &Site{Load: model.NewTimeSeries(now, []float64{1})}
	key := CacheKey(SiteFiles{Load: FileRef{Path: "a.csv"}})
	assert.NotEqual(t, key, CacheKey(SiteFiles{Load: FileRef{Path: "a.csv", Column: "demand"}}))

	c.Set(key, site)
	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Same(t, site, got)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(key)
	assert.False(t, ok)

	c.Set("other", site)
	assert.Equal(t, 1, c.Len())
	c.Clear()
	assert.Zero(t, c.Len())
}
