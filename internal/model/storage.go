package model

import (
	"fmt"
	"math"
)

// StorageSpec defines the physical parameters of one storage unit.
// Units:
// - EnergyCapacityKWh: kWh per unit
// - MaxChargeCRate / MaxDischargeCRate: 1/h (power limit = C-rate * capacity)
// - RoundTripEfficiency: 0..1, split evenly between the charge and discharge legs
// - MinSOC / InitialSOC: fraction 0..1 of capacity
type StorageSpec struct {
	EnergyCapacityKWh   float64
	MaxChargeCRate      float64
	MaxDischargeCRate   float64
	RoundTripEfficiency float64
	MinSOC              float64
	InitialSOC          float64

	Cost AssetCost
}

func (s StorageSpec) Validate() error {
	if s.EnergyCapacityKWh <= 0 {
		return fmt.Errorf("%w: storage energy capacity must be > 0", ErrInvalidSpec)
	}
	if s.MaxChargeCRate <= 0 || s.MaxDischargeCRate <= 0 {
		return fmt.Errorf("%w: storage C-rates must be > 0", ErrInvalidSpec)
	}
	if s.RoundTripEfficiency <= 0 || s.RoundTripEfficiency > 1 {
		return fmt.Errorf("%w: storage round-trip efficiency must be in (0, 1]", ErrInvalidSpec)
	}
	if s.MinSOC < 0 || s.MinSOC >= 1 {
		return fmt.Errorf("%w: storage min SOC must be in [0, 1)", ErrInvalidSpec)
	}
	if s.InitialSOC < 0 || s.InitialSOC > 1 {
		return fmt.Errorf("%w: storage initial SOC must be in [0, 1]", ErrInvalidSpec)
	}
	return s.Cost.Validate("storage")
}

// LegEfficiency is the one-way (charge or discharge) efficiency.
func (s StorageSpec) LegEfficiency() float64 {
	return math.Sqrt(s.RoundTripEfficiency)
}

// StorageBank is Count identical storage units operated as one.
type StorageBank struct {
	Spec  StorageSpec
	Count float64
}

func (b StorageBank) CapacityKWh() float64 {
	return b.Count * b.Spec.EnergyCapacityKWh
}

// InitialEnergyKWh is the stored energy at the start of every evaluation.
func (b StorageBank) InitialEnergyKWh() float64 {
	return clamp(b.Spec.InitialSOC*b.CapacityKWh(), 0, b.CapacityKWh())
}

func (b StorageBank) maxChargePowerKW() float64 {
	return b.Spec.MaxChargeCRate * b.CapacityKWh()
}

func (b StorageBank) maxDischargePowerKW() float64 {
	return b.Spec.MaxDischargeCRate * b.CapacityKWh()
}

// Transfer is the outcome of one storage interval.
// Convention: positive PowerKW = discharge to the bus, negative = charge from the bus.
type Transfer struct {
	RequestedKW  float64
	PowerKW      float64
	EnergyInKWh  float64 // bus-side energy absorbed while charging
	EnergyOutKWh float64 // bus-side energy delivered while discharging
	SOCStartKWh  float64
	SOCEndKWh    float64
}

// Transfer applies a requested power flow for one interval, enforcing:
// - C-rate power limits
// - SOC bounds (by clipping the requested power)
// - one-way efficiency on each leg
//
// The bank itself is not mutated; the caller threads SOC between intervals.
func (b StorageBank) Transfer(socKWh, requestedKW, durationHours float64) Transfer {
	capacity := b.CapacityKWh()
	socKWh = clamp(socKWh, 0, capacity)
	res := Transfer{
		RequestedKW: requestedKW,
		SOCStartKWh: socKWh,
		SOCEndKWh:   socKWh,
	}
	if capacity <= 0 || durationHours <= 0 || requestedKW == 0 {
		return res
	}
	eta := b.Spec.LegEfficiency()

	if requestedKW < 0 {
		reqInKWh := -requestedKW * durationHours
		maxIn := b.maxChargeEnergyKWh(socKWh, durationHours)
		if reqInKWh > maxIn {
			reqInKWh = maxIn
		}
		res.EnergyInKWh = reqInKWh
		res.PowerKW = -reqInKWh / durationHours
		res.SOCEndKWh = clamp(socKWh+reqInKWh*eta, 0, capacity)
		return res
	}

	reqOutKWh := requestedKW * durationHours
	maxOut := b.maxDischargeEnergyKWh(socKWh, durationHours)
	if reqOutKWh > maxOut {
		reqOutKWh = maxOut
	}
	res.EnergyOutKWh = reqOutKWh
	res.PowerKW = reqOutKWh / durationHours
	res.SOCEndKWh = clamp(socKWh-reqOutKWh/eta, 0, capacity)
	return res
}

func (b StorageBank) maxChargeEnergyKWh(socKWh, durationHours float64) float64 {
	// Max additional stored energy before hitting full capacity.
	storable := b.CapacityKWh() - socKWh
	if storable <= 0 {
		return 0
	}
	// Bus energy required = stored / eff.
	limitBySOC := storable / b.Spec.LegEfficiency()
	limitByPower := b.maxChargePowerKW() * durationHours
	return math.Max(0, math.Min(limitBySOC, limitByPower))
}

func (b StorageBank) maxDischargeEnergyKWh(socKWh, durationHours float64) float64 {
	// Max withdrawable stored energy before hitting MinSOC.
	withdrawable := socKWh - b.Spec.MinSOC*b.CapacityKWh()
	if withdrawable <= 0 {
		return 0
	}
	// Bus energy delivered = withdrawn * eff.
	limitBySOC := withdrawable * b.Spec.LegEfficiency()
	limitByPower := b.maxDischargePowerKW() * durationHours
	return math.Max(0, math.Min(limitBySOC, limitByPower))
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
