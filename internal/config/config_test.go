package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpp-sizer/internal/model"
	"hpp-sizer/internal/search"
)

const runYAML = `
name: test site
data:
  load: {path: data/load.csv}
  irradiance: {path: data/resource.csv.gz}
  wind_speed: {path: data/resource.csv.gz}
solar:
  latitude: 51.5
  longitude: -0.16
  slope: 30
  module_capacity_kw: 1
  cost: {capital_cost: 2500, om_cost: 10, lifetime_years: 20}
wind:
  power_curve_file: curves/turbine.csv
  hub_height_m: 80
  anemometer_height_m: 10
  roughness_m: 0.03
  cost: {capital_cost: 18000, om_cost: 180, lifetime_years: 20}
storage_file: storage/cell.yaml
storage:
  round_trip_efficiency: 0.85
economics:
  nominal_discount_rate: 0.08
  inflation_rate: 0.02
  discount_factor_decimals: 3
search_space:
  grid:
    solar: [0, 10, 20]
strategy:
  name: differential_evolution
  params:
    seed: 7
    max_iterations: 50
    crossover: 0.9
`

const storageYAML = `
storage:
  name: li-ion cell
  energy_capacity_kwh: 13.5
  max_charge_c_rate: 0.5
  max_discharge_c_rate: 0.5
  round_trip_efficiency: 0.9
  cost: {capital_cost: 550, replacement_cost: 500, om_cost: 10, lifetime_years: 15}
`

func writeRun(t *testing.T, run string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "curves"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "storage"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "curves", "turbine.csv"), []byte("wind speed,power\n3,0\n12,2000\n25,2000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "storage", "cell.yaml"), []byte(storageYAML), 0o644))
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(run), 0o644))
	return path
}

func TestLoadMergesIncludesAndDefaults(t *testing.T) {
	path := writeRun(t, runYAML)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "data/load.csv"), cfg.Data.Load.Path)
	assert.Equal(t, 0.01, cfg.MaxShortageValue())

	want := model.PlantSpecs{
		Solar: model.SolarSpec{
			Latitude:         51.5,
			Longitude:        -0.16,
			Slope:            30,
			ModuleCapacityKW: 1,
			DeratingFactor:   0.8,
			Albedo:           0.2,
			Cost:             model.AssetCost{CapitalCost: 2500, ReplacementCost: 2500, OMCost: 10, LifetimeYears: 20},
		},
		Wind: model.WindSpec{
			PowerCurve:        []model.CurvePoint{{SpeedMS: 3, PowerKW: 0}, {SpeedMS: 12, PowerKW: 2000}, {SpeedMS: 25, PowerKW: 2000}},
			HubHeightM:        80,
			AnemometerHeightM: 10,
			RoughnessM:        0.03,
			Cost:              model.AssetCost{CapitalCost: 18000, ReplacementCost: 18000, OMCost: 180, LifetimeYears: 20},
		},
		Storage: model.StorageSpec{
			EnergyCapacityKWh:   13.5,
			MaxChargeCRate:      0.5,
			MaxDischargeCRate:   0.5,
			RoundTripEfficiency: 0.85,
			InitialSOC:          0.5,
			Cost:                model.AssetCost{CapitalCost: 550, ReplacementCost: 500, OMCost: 10, LifetimeYears: 15},
		},
	}
	if diff := cmp.Diff(want, cfg.PlantSpecs()); diff != "" {
		t.Errorf("PlantSpecs() mismatch (-want +got):\n%s", diff)
	}

	econ := cfg.EconomicParams()
	assert.Equal(t, 25, econ.ProjectLifetimeYears)
	assert.Equal(t, int32(3), econ.DiscountFactorDecimals)
}

func TestSearchSpaceAndStrategy(t *testing.T) {
	cfg, err := Load(writeRun(t, runYAML))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 10, 20}, cfg.Space.Grid.Solar)
	assert.Len(t, cfg.Space.Grid.Wind, 11)
	assert.Equal(t, 100.0, cfg.Space.Grid.Wind[10])

	space, ok := cfg.SearchSpace().(search.BoundedSpace)
	require.True(t, ok)
	assert.Equal(t, model.Configuration{Solar: 20, Wind: 100, Storage: 100}, space.Upper)

	strat, err := cfg.BuildStrategy(nil)
	require.NoError(t, err)
	de, ok := strat.(*search.DifferentialEvolution)
	require.True(t, ok)
	assert.Equal(t, uint64(7), de.Seed)
	assert.Equal(t, 50, de.MaxIterations)
	assert.Equal(t, 0.9, de.Crossover)
	assert.Equal(t, 15, de.PopSize)

	for _, seed := range []any{-1, 1.5, 1e300} {
		cfg.Strategy.Params["seed"] = seed
		_, err = cfg.BuildStrategy(nil)
		assert.ErrorIs(t, err, model.ErrInvalidConfiguration, "seed %v", seed)
	}
	cfg.Strategy.Params["seed"] = 7
	cfg.Strategy.Params["pop_size"] = 2.5
	_, err = cfg.BuildStrategy(nil)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)

	cfg.Strategy = StrategyConfig{Name: "exhaustive", Params: map[string]any{"keep_feasible": true}}
	strat, err = cfg.BuildStrategy(nil)
	require.NoError(t, err)
	ex, ok := strat.(*search.ExhaustiveSearch)
	require.True(t, ok)
	assert.True(t, ex.KeepFeasible)
	assert.IsType(t, search.GridSpace{}, cfg.SearchSpace())
}

func TestValidateRejectsInvalidConfigs(t *testing.T) {
	path := writeRun(t, runYAML)
	cases := map[string]func(c *Config){
		"bad strategy":       func(c *Config) { c.Strategy.Name = "simulated_annealing" },
		"bad efficiency":     func(c *Config) { c.Storage.RoundTripEfficiency = 1.5 },
		"negative grid":      func(c *Config) { c.Space.Grid.Wind = []float64{-1} },
		"fractional grid":    func(c *Config) { c.Space.Grid.Storage = []float64{0.5} },
		"shortage above one": func(c *Config) { v := 2.0; c.MaxShortage = &v },
		"no power curve":     func(c *Config) { c.Wind.PowerCurve = nil },
		"missing lifetime":   func(c *Config) { c.Solar.Cost.LifetimeYears = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadUnchecked(path)
			require.NoError(t, err)
			cfg.ApplyDefaults()
			cfg.Strategy.Name = "exhaustive"
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsNegativeRate(t *testing.T) {
	run := runYAML + "\npenalty_base: 1e12\n"
	cfg, err := LoadUnchecked(writeRun(t, run))
	require.NoError(t, err)
	cfg.ApplyDefaults()
	cfg.Economics = EconomicsConfig{DiscountRate: -1, ProjectLifetimeYears: 10}

	err = cfg.Validate()
	assert.ErrorIs(t, err, model.ErrInvalidEconomicParameter)
	assert.Equal(t, 1e12, cfg.PenaltyBase)
}

func TestMergeStorage(t *testing.T) {
	soc := 0.2
	base := StorageConfig{Name: "a", EnergyCapacityKWh: 10, RoundTripEfficiency: 0.9}
	out := MergeStorage(base, StorageConfig{EnergyCapacityKWh: 20, InitialSOC: &soc})
	assert.Equal(t, "a", out.Name)
	assert.Equal(t, 20.0, out.EnergyCapacityKWh)
	assert.Equal(t, 0.9, out.RoundTripEfficiency)
	require.NotNil(t, out.InitialSOC)
	assert.Equal(t, 0.2, *out.InitialSOC)
}

func TestLoadServerConfig(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ENV", "production")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("MAX_GRID_POINTS", "5000")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 5000, cfg.MaxGridPoints)
	assert.Equal(t, 1000, cfg.MaxDEIterations)
	assert.Equal(t, 50, cfg.MaxDEPopSize)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	t.Setenv("API_ENV", "staging")
	_, err = LoadServerConfig()
	assert.Error(t, err)
}
