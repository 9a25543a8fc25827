package dispatch

import (
	"fmt"
	"math"

	"hpp-sizer/internal/model"
)

// Engine runs the per-step energy balance of a plant and decides feasibility.
// It holds no state between evaluations.
type Engine struct {
	// MaxShortage is the largest unmet-load fraction still considered feasible.
	MaxShortage float64
	// SkipLedger disables the per-step trace; totals are still computed.
	SkipLedger bool
}

func New(maxShortage float64) *Engine { return &Engine{MaxShortage: maxShortage} }

// Evaluate dispatches the plant described by cfg against load.
//
// solar and wind are the plant-level generation series (kW), already scaled by
// their unit counts; cfg.Storage sizes the storage bank. Each step the surplus
// charges storage and the rest is curtailed, while a deficit discharges
// storage and the rest is unmet. Storage starts at its initial SoC every call.
func (e *Engine) Evaluate(cfg model.Configuration, load, solar, wind model.TimeSeries, storage model.StorageSpec) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := model.CheckAligned(load, "load", map[string]model.TimeSeries{"solar": solar, "wind": wind}); err != nil {
		return nil, err
	}
	if solar.Values == nil || wind.Values == nil {
		return nil, fmt.Errorf("%w: solar and wind output series are required", model.ErrInvalidInput)
	}
	for i, v := range load.Values {
		if v < 0 {
			return nil, fmt.Errorf("%w: load is negative at index %d", model.ErrInvalidInput, i)
		}
	}
	if math.IsNaN(e.MaxShortage) || e.MaxShortage < 0 || e.MaxShortage > 1 {
		return nil, fmt.Errorf("%w: max shortage must be in [0, 1], got %v", model.ErrInvalidConfiguration, e.MaxShortage)
	}

	bank := model.StorageBank{Spec: storage, Count: cfg.Storage}
	dt := load.StepHours
	soc := bank.InitialEnergyKWh()

	res := &Result{
		Config:        cfg,
		CapacityKWh:   bank.CapacityKWh(),
		InitialSOCKWh: soc,
	}
	if !e.SkipLedger {
		res.Ledger = make([]LedgerRow, 0, load.Len())
	}

	for idx, l := range load.Values {
		net := solar.Values[idx] + wind.Values[idx] - l
		tr := bank.Transfer(soc, -net, dt)

		curtailed, unmet := 0.0, 0.0
		if net >= 0 {
			curtailed = math.Max(0, net*dt-tr.EnergyInKWh)
		} else {
			unmet = math.Max(0, -net*dt-tr.EnergyOutKWh)
		}

		res.TotalLoadKWh += l * dt
		res.UnmetKWh += unmet
		res.CurtailedKWh += curtailed
		res.ChargedKWh += tr.EnergyInKWh
		res.DischargedKWh += tr.EnergyOutKWh

		if !e.SkipLedger {
			res.Ledger = append(res.Ledger, LedgerRow{
				Index: idx,
				Time:  load.TimeAt(idx),

				LoadKW:  l,
				SolarKW: solar.Values[idx],
				WindKW:  wind.Values[idx],
				NetKW:   net,

				Action: model.ClassifyStep(tr, curtailed, unmet),

				RequestedStorageKW: tr.RequestedKW,
				StoragePowerKW:     tr.PowerKW,

				CurtailedKWh: curtailed,
				UnmetKWh:     unmet,

				SOCStartKWh: tr.SOCStartKWh,
				SOCEndKWh:   tr.SOCEndKWh,
			})
		}
		soc = tr.SOCEndKWh
	}

	res.FinalSOCKWh = soc
	res.ServedKWh = math.Max(0, res.TotalLoadKWh-res.UnmetKWh)
	if res.TotalLoadKWh > 0 {
		res.ShortageFraction = math.Min(1, res.UnmetKWh/res.TotalLoadKWh)
	}
	res.ServedFraction = 1 - res.ShortageFraction
	res.Feasible = res.ShortageFraction <= e.MaxShortage
	return res, nil
}
