// Package objective turns a plant configuration into a single score: its Net
// Present Cost when it meets the reliability target, a large penalty otherwise.
package objective

import (
	"fmt"
	"log/slog"
	"math"

	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
)

// DefaultPenaltyBase is the score floor of an infeasible configuration. New
// raises it when WithSearchBounds shows a feasible NPC could reach it.
const DefaultPenaltyBase = 1e15

// Problem is everything an evaluation needs besides the configuration itself.
// Temperature is optional; leave its Values nil to skip the PV temperature model.
type Problem struct {
	Load        model.TimeSeries
	Irradiance  model.TimeSeries
	Temperature model.TimeSeries
	WindSpeed   model.TimeSeries

	Specs     model.PlantSpecs
	Economics model.EconomicParams

	// MaxShortage is the largest tolerated unmet-load fraction, in [0, 1].
	MaxShortage float64
}

// Evaluation is the full record of one scored configuration.
type Evaluation struct {
	Config   model.Configuration `json:"config"`
	Dispatch *dispatch.Result    `json:"dispatch"`
	NPC      model.NPCResult     `json:"npc"`
	Feasible bool                `json:"feasible"`
	Score    float64             `json:"score"`
}

type Option func(*Function)

// WithPenaltyBase overrides DefaultPenaltyBase. It must exceed any NPC the
// problem can produce; New rejects it otherwise when search bounds are known.
func WithPenaltyBase(base float64) Option {
	return func(f *Function) {
		f.penaltyBase = base
		f.penaltyFixed = true
	}
}

// WithSearchBounds declares the box every scored configuration lies in, so
// New can check that the penalty base exceeds the largest attainable NPC.
func WithSearchBounds(lower, upper model.Configuration) Option {
	return func(f *Function) { f.bounds = &[2]model.Configuration{lower, upper} }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Function) { f.logger = l }
}

// Function is the objective of one sizing problem. It only holds read-only
// data after New and is safe for concurrent use.
type Function struct {
	specs       model.PlantSpecs
	load        model.TimeSeries
	maxShortage float64
	finance     *model.FinancialModel
	penaltyBase float64
	logger      *slog.Logger

	penaltyFixed bool
	bounds       *[2]model.Configuration

	// Generation is linear in unit count, so one unit is simulated once.
	solarUnit model.TimeSeries
	windUnit  model.TimeSeries

	scoring *dispatch.Engine
	tracing *dispatch.Engine
}

// New validates the problem once and precomputes per-unit generation so that
// scoring never fails on bad inputs mid-search.
func New(p Problem, opts ...Option) (*Function, error) {
	f := &Function{
		specs:       p.Specs,
		load:        p.Load,
		maxShortage: p.MaxShortage,
		penaltyBase: DefaultPenaltyBase,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if math.IsNaN(f.penaltyBase) || math.IsInf(f.penaltyBase, 0) || f.penaltyBase <= 0 {
		return nil, fmt.Errorf("%w: penalty base must be a positive finite number", model.ErrInvalidConfiguration)
	}
	if math.IsNaN(p.MaxShortage) || p.MaxShortage < 0 || p.MaxShortage > 1 {
		return nil, fmt.Errorf("%w: max shortage must be in [0, 1], got %v", model.ErrInvalidConfiguration, p.MaxShortage)
	}

	err := model.CheckAligned(p.Load, "load", map[string]model.TimeSeries{
		"irradiance":  p.Irradiance,
		"temperature": p.Temperature,
		"wind speed":  p.WindSpeed,
	})
	if err != nil {
		return nil, err
	}
	if p.Irradiance.Values == nil || p.WindSpeed.Values == nil {
		return nil, fmt.Errorf("%w: irradiance and wind speed series are required", model.ErrInvalidInput)
	}
	for i, v := range p.Load.Values {
		if v < 0 {
			return nil, fmt.Errorf("%w: load is negative at index %d", model.ErrInvalidInput, i)
		}
	}
	if err := p.Specs.Validate(); err != nil {
		return nil, err
	}
	if f.finance, err = model.NewFinancialModel(p.Economics); err != nil {
		return nil, err
	}

	if f.bounds != nil {
		if err := f.raisePenaltyAbove(f.bounds[0], f.bounds[1]); err != nil {
			return nil, err
		}
	}

	f.solarUnit, err = model.SimulateSolar(p.Specs.Solar, model.SolarResource{Irradiance: p.Irradiance, Temperature: p.Temperature}, 1)
	if err != nil {
		return nil, fmt.Errorf("simulate solar: %w", err)
	}
	f.windUnit, err = model.SimulateWind(p.Specs.Wind, p.WindSpeed, 1)
	if err != nil {
		return nil, fmt.Errorf("simulate wind: %w", err)
	}

	f.scoring = &dispatch.Engine{MaxShortage: p.MaxShortage, SkipLedger: true}
	f.tracing = dispatch.New(p.MaxShortage)

	f.logger.Debug("objective ready",
		"steps", p.Load.Len(),
		"step_hours", p.Load.StepHours,
		"max_shortage", p.MaxShortage,
		"real_discount_rate", p.Economics.RealDiscountRate(),
		"penalty_base", f.penaltyBase,
	)
	return f, nil
}

// Score returns the NPC of a feasible configuration and
// PenaltyBase*(1+shortage) otherwise. Invalid configurations get the worst
// penalty; Score never panics and never returns NaN or +Inf.
func (f *Function) Score(cfg model.Configuration) float64 {
	worst := f.penalty(1)
	if cfg.Validate() != nil {
		return worst
	}
	res, err := f.dispatch(f.scoring, cfg)
	if err != nil {
		f.logger.Debug("dispatch failed", "config", cfg.String(), "error", err)
		return worst
	}
	if !res.Feasible {
		return f.penalty(res.ShortageFraction)
	}
	npc, err := f.finance.ComputeNPC(cfg, f.specs.Costs())
	if err != nil || math.IsNaN(npc.NPC) || math.IsInf(npc.NPC, 0) {
		return worst
	}
	if npc.NPC >= f.penaltyBase {
		f.logger.Warn("feasible NPC reaches the penalty base", "config", cfg.String(), "npc", npc.NPC, "penalty_base", f.penaltyBase)
	}
	return npc.NPC
}

// Evaluate scores cfg and returns the full record, including the dispatch trace.
func (f *Function) Evaluate(cfg model.Configuration) (Evaluation, error) {
	if err := cfg.Validate(); err != nil {
		return Evaluation{}, err
	}
	res, err := f.dispatch(f.tracing, cfg)
	if err != nil {
		return Evaluation{}, err
	}
	npc, err := f.finance.ComputeNPC(cfg, f.specs.Costs())
	if err != nil {
		return Evaluation{}, err
	}

	if res.Feasible && npc.NPC >= f.penaltyBase {
		return Evaluation{}, fmt.Errorf("%w: NPC %v of %s is not below penalty base %v", model.ErrInvalidConfiguration, npc.NPC, cfg, f.penaltyBase)
	}

	ev := Evaluation{Config: cfg, Dispatch: res, NPC: npc, Feasible: res.Feasible}
	if res.Feasible {
		ev.Score = npc.NPC
	} else {
		ev.Score = f.penalty(res.ShortageFraction)
	}
	return ev, nil
}

// Feasible reports whether a score returned by Score belongs to a feasible
// configuration.
func (f *Function) Feasible(score float64) bool { return score < f.penaltyBase }

func (f *Function) PenaltyBase() float64 { return f.penaltyBase }

func (f *Function) MaxShortage() float64 { return f.maxShortage }

// Finance exposes the financial model built from the problem's economics.
func (f *Function) Finance() *model.FinancialModel { return f.finance }

// Generation returns the plant-level solar and wind output of cfg.
func (f *Function) Generation(cfg model.Configuration) (solar, wind model.TimeSeries) {
	return f.solarUnit.Scaled(cfg.Solar), f.windUnit.Scaled(cfg.Wind)
}

func (f *Function) dispatch(e *dispatch.Engine, cfg model.Configuration) (*dispatch.Result, error) {
	solar, wind := f.Generation(cfg)
	return e.Evaluate(cfg, f.load, solar, wind, f.specs.Storage)
}

func (f *Function) penalty(shortage float64) float64 {
	return f.penaltyBase * (1 + shortage)
}

// MaxNPC returns the largest NPC of any configuration inside the bounds. NPC
// is linear in each unit count, so it is reached at a corner of the box.
func (f *Function) MaxNPC(lower, upper model.Configuration) (float64, error) {
	unit, err := f.finance.ComputeNPC(model.Configuration{Solar: 1, Wind: 1, Storage: 1}, f.specs.Costs())
	if err != nil {
		return 0, err
	}
	lo, hi := lower.Vector(), upper.Vector()
	total := 0.0
	for i, a := range unit.Assets {
		if math.IsNaN(lo[i]) || math.IsNaN(hi[i]) || math.IsInf(lo[i], 0) || math.IsInf(hi[i], 0) {
			return 0, fmt.Errorf("%w: %s bounds must be finite", model.ErrInvalidConfiguration, model.AssetNames[i])
		}
		total += math.Max(a.Total*lo[i], a.Total*hi[i])
	}
	return total, nil
}

// raisePenaltyAbove makes the penalty base exceed every NPC in the bounds.
// A default base is lifted to the next power of ten; an explicit one is an error.
func (f *Function) raisePenaltyAbove(lower, upper model.Configuration) error {
	ceiling, err := f.MaxNPC(lower, upper)
	if err != nil {
		return err
	}
	if ceiling < f.penaltyBase {
		return nil
	}
	if f.penaltyFixed {
		return fmt.Errorf("%w: penalty base %v does not exceed the largest attainable NPC %v", model.ErrInvalidConfiguration, f.penaltyBase, ceiling)
	}
	f.penaltyBase = math.Pow(10, math.Floor(math.Log10(ceiling))+1)
	return nil
}
