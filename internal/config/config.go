package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"hpp-sizer/internal/data"
	"hpp-sizer/internal/model"
	"hpp-sizer/internal/objective"
	"hpp-sizer/internal/search"
)

// Defaults applied by Load to omitted fields.
const (
	DefaultProjectLifetimeYears = 25
	DefaultMaxShortage          = 0.01
	DefaultInitialSOC           = 0.5
	DefaultDeratingFactor       = 0.8
	DefaultAlbedo               = 0.2
	DefaultGridMax              = 100
	DefaultGridPoints           = 11
)

// Config is a run configuration: YAML on disk, JSON in API requests.
type Config struct {
	Name string         `json:"name" yaml:"name"`
	Data data.SiteFiles `json:"data" yaml:"data"`

	Solar SolarConfig `json:"solar" yaml:"solar"`
	Wind  WindConfig  `json:"wind" yaml:"wind"`

	// Optional: load storage parameters from a separate YAML (e.g. examples/storage/*.yaml).
	// Fields set in Storage override the file.
	StorageFile string        `json:"storage_file" yaml:"storage_file"`
	Storage     StorageConfig `json:"storage" yaml:"storage"`

	Economics EconomicsConfig `json:"economics" yaml:"economics"`

	MaxShortage *float64 `json:"max_shortage" yaml:"max_shortage" validate:"omitempty,gte=0,lte=1"`
	PenaltyBase float64  `json:"penalty_base" yaml:"penalty_base" validate:"gte=0"`

	Space    SpaceConfig    `json:"search_space" yaml:"search_space"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
}

type CostConfig struct {
	CapitalCost float64 `json:"capital_cost" yaml:"capital_cost" validate:"gte=0"`
	// ReplacementCost defaults to CapitalCost when omitted.
	ReplacementCost *float64 `json:"replacement_cost" yaml:"replacement_cost" validate:"omitempty,gte=0"`
	OMCost          float64  `json:"om_cost" yaml:"om_cost" validate:"gte=0"`
	LifetimeYears   int      `json:"lifetime_years" yaml:"lifetime_years" validate:"required,gt=0"`
}

type SolarConfig struct {
	Latitude         float64    `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude        float64    `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
	TimeZone         float64    `json:"time_zone" yaml:"time_zone" validate:"gte=-12,lte=14"`
	Slope            float64    `json:"slope" yaml:"slope" validate:"gte=0,lte=90"`
	Azimuth          float64    `json:"azimuth" yaml:"azimuth" validate:"gte=-180,lte=180"`
	ModuleCapacityKW float64    `json:"module_capacity_kw" yaml:"module_capacity_kw" validate:"required,gt=0"`
	DeratingFactor   float64    `json:"derating_factor" yaml:"derating_factor" validate:"gte=0,lte=1"`
	Albedo           *float64   `json:"albedo" yaml:"albedo" validate:"omitempty,gte=0,lte=1"`
	TempCoefficient  float64    `json:"temp_coefficient" yaml:"temp_coefficient"`
	NOCT             float64    `json:"noct" yaml:"noct"`
	STCTemperature   float64    `json:"stc_temperature" yaml:"stc_temperature"`
	Cost             CostConfig `json:"cost" yaml:"cost"`
}

type WindConfig struct {
	// PowerCurveFile is a CSV with "wind speed" and "power" columns; it is
	// used when PowerCurve is empty.
	PowerCurveFile    string             `json:"power_curve_file" yaml:"power_curve_file"`
	PowerCurve        []model.CurvePoint `json:"power_curve" yaml:"power_curve"`
	HubHeightM        float64            `json:"hub_height_m" yaml:"hub_height_m" validate:"required,gt=0"`
	AnemometerHeightM float64            `json:"anemometer_height_m" yaml:"anemometer_height_m" validate:"required,gt=0"`
	RoughnessM        float64            `json:"roughness_m" yaml:"roughness_m" validate:"required,gt=0"`
	AltitudeM         float64            `json:"altitude_m" yaml:"altitude_m" validate:"gte=0"`
	CutOutSpeedMS     float64            `json:"cut_out_speed_ms" yaml:"cut_out_speed_ms" validate:"gte=0"`
	Cost              CostConfig         `json:"cost" yaml:"cost"`
}

type StorageConfig struct {
	Name                string     `json:"name" yaml:"name"`
	EnergyCapacityKWh   float64    `json:"energy_capacity_kwh" yaml:"energy_capacity_kwh" validate:"required,gt=0"`
	MaxChargeCRate      float64    `json:"max_charge_c_rate" yaml:"max_charge_c_rate" validate:"required,gt=0"`
	MaxDischargeCRate   float64    `json:"max_discharge_c_rate" yaml:"max_discharge_c_rate" validate:"required,gt=0"`
	RoundTripEfficiency float64    `json:"round_trip_efficiency" yaml:"round_trip_efficiency" validate:"required,gt=0,lte=1"`
	MinSOC              float64    `json:"min_soc" yaml:"min_soc" validate:"gte=0,lt=1"`
	InitialSOC          *float64   `json:"initial_soc" yaml:"initial_soc" validate:"omitempty,gte=0,lte=1"`
	Cost                CostConfig `json:"cost" yaml:"cost"`
}

type EconomicsConfig struct {
	ProjectLifetimeYears   int     `json:"project_lifetime_years" yaml:"project_lifetime_years" validate:"gte=0"`
	DiscountRate           float64 `json:"discount_rate" yaml:"discount_rate"`
	NominalDiscountRate    float64 `json:"nominal_discount_rate" yaml:"nominal_discount_rate"`
	InflationRate          float64 `json:"inflation_rate" yaml:"inflation_rate"`
	DiscountFactorDecimals int32   `json:"discount_factor_decimals" yaml:"discount_factor_decimals" validate:"gte=0"`
}

// SpaceConfig describes the configuration space. Grid axes feed exhaustive
// search, bounds feed differential evolution; each falls back to the other.
type SpaceConfig struct {
	Grid   search.GridSpace     `json:"grid" yaml:"grid"`
	Bounds *search.BoundedSpace `json:"bounds" yaml:"bounds"`
}

type StrategyConfig struct {
	Name   string         `json:"name" yaml:"name" validate:"required,oneof=exhaustive differential_evolution"`
	Params map[string]any `json:"params" yaml:"params"`
}

func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked loads and merges config, but does not validate it.
// Useful for debugging/printing partial configs.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	dir := filepath.Dir(path)
	c.Data = c.Data.Resolve(dir)

	// If storage_file is set, load it and merge in any explicit overrides from c.Storage.
	if c.StorageFile != "" {
		loaded, err := LoadStorageFile(includePath(dir, c.StorageFile))
		if err != nil {
			return nil, err
		}
		c.Storage = MergeStorage(loaded, c.Storage)
	}
	if len(c.Wind.PowerCurve) == 0 && c.Wind.PowerCurveFile != "" {
		curve, err := data.LoadPowerCurveFile(includePath(dir, c.Wind.PowerCurveFile))
		if err != nil {
			return nil, err
		}
		c.Wind.PowerCurve = curve
	}
	return &c, nil
}

// includePath prefers interpreting relative paths as relative to the config
// file directory, but falls back to the provided path (relative to cwd) if
// that doesn't exist.
func includePath(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	cand := filepath.Join(dir, p)
	if _, err := os.Stat(cand); err == nil {
		return cand
	}
	return p
}

// ApplyDefaults fills omitted optional fields.
func (c *Config) ApplyDefaults() {
	if c.MaxShortage == nil {
		v := DefaultMaxShortage
		c.MaxShortage = &v
	}
	if c.Storage.InitialSOC == nil {
		v := DefaultInitialSOC
		c.Storage.InitialSOC = &v
	}
	if c.Solar.DeratingFactor == 0 {
		c.Solar.DeratingFactor = DefaultDeratingFactor
	}
	if c.Solar.Albedo == nil {
		v := DefaultAlbedo
		c.Solar.Albedo = &v
	}
	if c.Economics.ProjectLifetimeYears == 0 {
		c.Economics.ProjectLifetimeYears = DefaultProjectLifetimeYears
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = "exhaustive"
	}

	g := &c.Space.Grid
	for _, axis := range []*[]float64{&g.Solar, &g.Wind, &g.Storage} {
		if len(*axis) == 0 {
			*axis = search.Linspace(0, DefaultGridMax, DefaultGridPoints)
		}
	}
	if c.Space.Bounds == nil {
		lower, upper := g.Bounds()
		c.Space.Bounds = &search.BoundedSpace{Lower: lower, Upper: upper}
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if len(c.Wind.PowerCurve) == 0 {
		return fmt.Errorf("config invalid: %w: wind.power_curve or wind.power_curve_file is required", model.ErrInvalidSpec)
	}
	// Validate asset and economic parameters by constructing the model objects.
	if err := c.PlantSpecs().Validate(); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if _, err := model.NewFinancialModel(c.EconomicParams()); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	if err := c.SearchSpace().Validate(); err != nil {
		return fmt.Errorf("config invalid: search_space: %w", err)
	}
	return nil
}

func (c CostConfig) ToModel() model.AssetCost {
	rep := c.CapitalCost
	if c.ReplacementCost != nil {
		rep = *c.ReplacementCost
	}
	return model.AssetCost{
		CapitalCost:     c.CapitalCost,
		ReplacementCost: rep,
		OMCost:          c.OMCost,
		LifetimeYears:   c.LifetimeYears,
	}
}

func (s SolarConfig) ToModel() model.SolarSpec {
	albedo := DefaultAlbedo
	if s.Albedo != nil {
		albedo = *s.Albedo
	}
	return model.SolarSpec{
		Latitude:         s.Latitude,
		Longitude:        s.Longitude,
		TimeZone:         s.TimeZone,
		Slope:            s.Slope,
		Azimuth:          s.Azimuth,
		ModuleCapacityKW: s.ModuleCapacityKW,
		DeratingFactor:   s.DeratingFactor,
		Albedo:           albedo,
		TempCoefficient:  s.TempCoefficient,
		NOCT:             s.NOCT,
		STCTemperature:   s.STCTemperature,
		Cost:             s.Cost.ToModel(),
	}
}

func (w WindConfig) ToModel() model.WindSpec {
	return model.WindSpec{
		PowerCurve:        w.PowerCurve,
		HubHeightM:        w.HubHeightM,
		AnemometerHeightM: w.AnemometerHeightM,
		RoughnessM:        w.RoughnessM,
		AltitudeM:         w.AltitudeM,
		CutOutSpeedMS:     w.CutOutSpeedMS,
		Cost:              w.Cost.ToModel(),
	}
}

func (s StorageConfig) ToModel() model.StorageSpec {
	initial := DefaultInitialSOC
	if s.InitialSOC != nil {
		initial = *s.InitialSOC
	}
	return model.StorageSpec{
		EnergyCapacityKWh:   s.EnergyCapacityKWh,
		MaxChargeCRate:      s.MaxChargeCRate,
		MaxDischargeCRate:   s.MaxDischargeCRate,
		RoundTripEfficiency: s.RoundTripEfficiency,
		MinSOC:              s.MinSOC,
		InitialSOC:          initial,
		Cost:                s.Cost.ToModel(),
	}
}

func (c *Config) PlantSpecs() model.PlantSpecs {
	return model.PlantSpecs{
		Solar:   c.Solar.ToModel(),
		Wind:    c.Wind.ToModel(),
		Storage: c.Storage.ToModel(),
	}
}

func (c *Config) EconomicParams() model.EconomicParams {
	e := c.Economics
	return model.EconomicParams{
		ProjectLifetimeYears:   e.ProjectLifetimeYears,
		DiscountRate:           e.DiscountRate,
		NominalDiscountRate:    e.NominalDiscountRate,
		InflationRate:          e.InflationRate,
		DiscountFactorDecimals: e.DiscountFactorDecimals,
	}
}

func (c *Config) MaxShortageValue() float64 {
	if c.MaxShortage == nil {
		return DefaultMaxShortage
	}
	return *c.MaxShortage
}

// SearchSpace returns the space matching the configured strategy.
func (c *Config) SearchSpace() search.Space {
	if c.Strategy.Name == "differential_evolution" && c.Space.Bounds != nil {
		return *c.Space.Bounds
	}
	return c.Space.Grid
}

// Problem assembles the objective problem from loaded site data.
func (c *Config) Problem(site *data.Site) objective.Problem {
	return objective.Problem{
		Load:        site.Load,
		Irradiance:  site.Irradiance,
		Temperature: site.Temperature,
		WindSpeed:   site.WindSpeed,
		Specs:       c.PlantSpecs(),
		Economics:   c.EconomicParams(),
		MaxShortage: c.MaxShortageValue(),
	}
}

// ObjectiveOptions returns the objective options implied by the config.
func (c *Config) ObjectiveOptions(logger *slog.Logger) []objective.Option {
	lower, upper := c.SearchSpace().Bounds()
	opts := []objective.Option{objective.WithLogger(logger), objective.WithSearchBounds(lower, upper)}
	if c.PenaltyBase > 0 {
		opts = append(opts, objective.WithPenaltyBase(c.PenaltyBase))
	}
	return opts
}

// BuildStrategy constructs the configured search strategy. Strategy params
// override the strategy defaults.
func (c *Config) BuildStrategy(logger *slog.Logger) (search.Strategy, error) {
	p := c.Strategy.Params
	switch c.Strategy.Name {
	case "exhaustive", "":
		return &search.ExhaustiveSearch{
			KeepFeasible:  mustBool(p, "keep_feasible", false),
			MaxPoints:     int(mustNum(p, "max_points", 0)),
			ProgressEvery: int(mustNum(p, "progress_every", 1000)),
			Logger:        logger,
		}, nil
	case "differential_evolution":
		seed, err := wholeNum(p, "seed", 0)
		if err != nil {
			return nil, err
		}
		de := search.NewDifferentialEvolution(uint64(seed))
		pop, err := wholeNum(p, "pop_size", float64(de.PopSize))
		if err != nil {
			return nil, err
		}
		iterations, err := wholeNum(p, "max_iterations", float64(de.MaxIterations))
		if err != nil {
			return nil, err
		}
		de.PopSize = int(pop)
		de.MaxIterations = int(iterations)
		de.MutationMin = mustNum(p, "mutation_min", de.MutationMin)
		de.MutationMax = mustNum(p, "mutation_max", de.MutationMax)
		de.Crossover = mustNum(p, "crossover", de.Crossover)
		de.Tol = mustNum(p, "tol", de.Tol)
		de.Atol = mustNum(p, "atol", de.Atol)
		de.Logger = logger
		return de, nil
	default:
		return nil, fmt.Errorf("unsupported strategy: %q", c.Strategy.Name)
	}
}

type storageFileWrapper struct {
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// LoadStorageFile reads a storage preset file with a top-level "storage" key.
func LoadStorageFile(path string) (StorageConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StorageConfig{}, err
	}
	var w storageFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return StorageConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return w.Storage, nil
}

// MergeStorage overlays non-zero fields from override onto base.
// This is used when loading a storage file and then applying overrides from the run config.
func MergeStorage(base, override StorageConfig) StorageConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.EnergyCapacityKWh != 0 {
		out.EnergyCapacityKWh = override.EnergyCapacityKWh
	}
	if override.MaxChargeCRate != 0 {
		out.MaxChargeCRate = override.MaxChargeCRate
	}
	if override.MaxDischargeCRate != 0 {
		out.MaxDischargeCRate = override.MaxDischargeCRate
	}
	if override.RoundTripEfficiency != 0 {
		out.RoundTripEfficiency = override.RoundTripEfficiency
	}
	if override.MinSOC != 0 {
		out.MinSOC = override.MinSOC
	}
	if override.InitialSOC != nil {
		out.InitialSOC = override.InitialSOC
	}
	if override.Cost != (CostConfig{}) {
		out.Cost = override.Cost
	}
	return out
}

func mustNum(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok && v != nil {
		switch x := v.(type) {
		case float64:
			return x
		case int:
			return float64(x)
		}
	}
	return def
}

// wholeNum reads a param that must be a non-negative integer.
func wholeNum(m map[string]any, key string, def float64) (float64, error) {
	v := mustNum(m, key, def)
	if math.IsNaN(v) || v < 0 || v != math.Trunc(v) || v >= math.Exp2(63) {
		return 0, fmt.Errorf("%w: strategy param %s must be a non-negative integer, got %v", model.ErrInvalidConfiguration, key, v)
	}
	return v, nil
}

func mustBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key]; ok && v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}
