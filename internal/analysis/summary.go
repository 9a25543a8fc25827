package analysis

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"hpp-sizer/internal/dispatch"
)

// DispatchSummary condenses a dispatch trace into the figures a sizing report
// needs. Energies are kWh over the simulated horizon; SOC figures are
// fractions of storage capacity (0 when there is no storage).
type DispatchSummary struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Steps int       `json:"steps"`

	LoadKWh      float64 `json:"load_kwh"`
	SolarKWh     float64 `json:"solar_kwh"`
	WindKWh      float64 `json:"wind_kwh"`
	ServedKWh    float64 `json:"served_kwh"`
	UnmetKWh     float64 `json:"unmet_kwh"`
	CurtailedKWh float64 `json:"curtailed_kwh"`

	ShortageFraction    float64 `json:"shortage_fraction"`
	CurtailmentFraction float64 `json:"curtailment_fraction"`
	SolarShare          float64 `json:"solar_share"`

	// ShortageSteps counts steps with unmet load; LongestShortage is the
	// longest run of consecutive such steps.
	ShortageSteps   int `json:"shortage_steps"`
	LongestShortage int `json:"longest_shortage"`

	MinSOC  float64 `json:"min_soc"`
	MaxSOC  float64 `json:"max_soc"`
	MeanSOC float64 `json:"mean_soc"`
	P05SOC  float64 `json:"p05_soc"`
	P95SOC  float64 `json:"p95_soc"`

	// EquivalentCycles is discharged energy over storage capacity.
	EquivalentCycles float64 `json:"equivalent_cycles"`
}

// Summarize computes a DispatchSummary from a result that carries its ledger.
func Summarize(res *dispatch.Result) DispatchSummary {
	s := DispatchSummary{}
	if res == nil || len(res.Ledger) == 0 {
		return s
	}
	rows := res.Ledger
	s.Steps = len(rows)
	s.Start = rows[0].Time
	s.End = rows[len(rows)-1].Time
	dt := 1.0
	if len(rows) > 1 {
		dt = rows[1].Time.Sub(rows[0].Time).Hours()
	}

	solar := make([]float64, len(rows))
	wind := make([]float64, len(rows))
	soc := make([]float64, 0, len(rows))
	run := 0
	for i, r := range rows {
		solar[i] = r.SolarKW * dt
		wind[i] = r.WindKW * dt
		if res.CapacityKWh > 0 {
			soc = append(soc, r.SOCEndKWh/res.CapacityKWh)
		}
		if r.UnmetKWh > 0 {
			s.ShortageSteps++
			run++
			s.LongestShortage = max(s.LongestShortage, run)
		} else {
			run = 0
		}
	}

	s.LoadKWh = res.TotalLoadKWh
	s.ServedKWh = res.ServedKWh
	s.UnmetKWh = res.UnmetKWh
	s.CurtailedKWh = res.CurtailedKWh
	s.ShortageFraction = res.ShortageFraction
	s.SolarKWh = floats.Sum(solar)
	s.WindKWh = floats.Sum(wind)
	if gen := s.SolarKWh + s.WindKWh; gen > 0 {
		s.CurtailmentFraction = s.CurtailedKWh / gen
		s.SolarShare = s.SolarKWh / gen
	}

	if len(soc) > 0 {
		s.MeanSOC = stat.Mean(soc, nil)
		sort.Float64s(soc)
		s.MinSOC = soc[0]
		s.MaxSOC = soc[len(soc)-1]
		s.P05SOC = percentileSorted(soc, 0.05)
		s.P95SOC = percentileSorted(soc, 0.95)
		s.EquivalentCycles = res.DischargedKWh / res.CapacityKWh
	}
	return s
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// CapitalRecoveryFactor converts a present value into equal annual payments
// over years at the given rate.
func CapitalRecoveryFactor(rate float64, years int) float64 {
	if years <= 0 {
		return 0
	}
	if rate == 0 {
		return 1 / float64(years)
	}
	g := math.Pow(1+rate, float64(years))
	return rate * g / (g - 1)
}

// LevelizedCost returns the cost per kWh served: the NPC annualized with the
// capital recovery factor, over the served energy scaled to a full year.
// It returns 0 when nothing was served.
func LevelizedCost(npc, rate float64, years int, servedKWh, horizonHours float64) float64 {
	if servedKWh <= 0 || horizonHours <= 0 {
		return 0
	}
	annualServed := servedKWh * 8760 / horizonHours
	return npc * CapitalRecoveryFactor(rate, years) / annualServed
}
