package model

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
)

// EconomicParams are the project-level assumptions of one search run.
//
// When NominalDiscountRate or InflationRate is set, the real discount rate is
// derived as (nominal - inflation) / (1 + inflation) and DiscountRate is ignored.
// DiscountFactorDecimals > 0 rounds every discount factor to that many decimal
// places (HOMER-style tables use 3); 0 keeps full precision.
type EconomicParams struct {
	ProjectLifetimeYears   int     `json:"project_lifetime_years" yaml:"project_lifetime_years"`
	DiscountRate           float64 `json:"discount_rate" yaml:"discount_rate"`
	NominalDiscountRate    float64 `json:"nominal_discount_rate" yaml:"nominal_discount_rate"`
	InflationRate          float64 `json:"inflation_rate" yaml:"inflation_rate"`
	DiscountFactorDecimals int32   `json:"discount_factor_decimals" yaml:"discount_factor_decimals"`
}

// RealDiscountRate returns the rate applied when discounting cash flows.
func (p EconomicParams) RealDiscountRate() float64 {
	if p.NominalDiscountRate != 0 || p.InflationRate != 0 {
		return (p.NominalDiscountRate - p.InflationRate) / (1 + p.InflationRate)
	}
	return p.DiscountRate
}

// FinancialModel converts unit counts into a discounted Net Present Cost.
// It is immutable after construction and safe to share between evaluations.
type FinancialModel struct {
	params  EconomicParams
	rate    float64
	factors []float64 // discount factor per project year, index 0..lifetime
}

// NewFinancialModel validates the economic assumptions up front so that no
// discounting error can surface mid-search.
func NewFinancialModel(params EconomicParams) (*FinancialModel, error) {
	if params.ProjectLifetimeYears <= 0 {
		return nil, fmt.Errorf("%w: project lifetime must be > 0 years", ErrInvalidEconomicParameter)
	}
	for name, v := range map[string]float64{
		"discount_rate":         params.DiscountRate,
		"nominal_discount_rate": params.NominalDiscountRate,
		"inflation_rate":        params.InflationRate,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidEconomicParameter, name)
		}
	}
	if params.InflationRate <= -1 {
		return nil, fmt.Errorf("%w: inflation rate must be > -1", ErrInvalidEconomicParameter)
	}
	rate := params.RealDiscountRate()
	if rate <= -1 {
		return nil, fmt.Errorf("%w: discount rate must be > -1, got %v", ErrInvalidEconomicParameter, rate)
	}
	if params.DiscountFactorDecimals < 0 {
		return nil, fmt.Errorf("%w: discount factor decimals must be >= 0", ErrInvalidEconomicParameter)
	}

	m := &FinancialModel{params: params, rate: rate}
	m.factors = make([]float64, params.ProjectLifetimeYears+1)
	for y := range m.factors {
		m.factors[y] = m.discountFactor(y)
	}
	return m, nil
}

func (m *FinancialModel) Params() EconomicParams { return m.params }

// DiscountFactor returns the present-value factor for a cash flow in the given year.
func (m *FinancialModel) DiscountFactor(year int) float64 {
	if year >= 0 && year < len(m.factors) {
		return m.factors[year]
	}
	return m.discountFactor(year)
}

func (m *FinancialModel) discountFactor(year int) float64 {
	f := 1 / math.Pow(1+m.rate, float64(year))
	if m.params.DiscountFactorDecimals > 0 {
		f = decimal.NewFromFloat(f).Round(m.params.DiscountFactorDecimals).InexactFloat64()
	}
	return f
}

// AssetNPC is the discounted cost breakdown of one asset type.
// Salvage is a credit and is subtracted in Total.
type AssetNPC struct {
	Asset       string  `json:"asset"`
	Count       float64 `json:"count"`
	Capital     float64 `json:"capital"`
	Replacement float64 `json:"replacement"`
	OM          float64 `json:"om"`
	Salvage     float64 `json:"salvage"`
	Total       float64 `json:"total"`
}

// YearCashFlow is one row of the discounted cash-flow table (whole plant).
type YearCashFlow struct {
	Year           int     `json:"year"`
	DiscountFactor float64 `json:"discount_factor"`
	Capital        float64 `json:"capital"`
	Replacement    float64 `json:"replacement"`
	OM             float64 `json:"om"`
	Salvage        float64 `json:"salvage"`
	Total          float64 `json:"total"`
}

// NPCResult is the discounted lifecycle cost of one configuration.
type NPCResult struct {
	NPC       float64        `json:"npc"`
	Assets    []AssetNPC     `json:"assets"`
	CashFlows []YearCashFlow `json:"cash_flows"`
}

// ComputeNPC returns the Net Present Cost of cfg:
// capital at year 0, O&M every project year, replacements whenever a component
// reaches its lifetime before the project ends, and a salvage credit for the
// remaining life of components still installed at the end.
func (m *FinancialModel) ComputeNPC(cfg Configuration, costs PlantCosts) (NPCResult, error) {
	if err := cfg.Validate(); err != nil {
		return NPCResult{}, err
	}
	byIndex := costs.byIndex()
	for i, c := range byIndex {
		if err := c.Validate(AssetNames[i]); err != nil {
			return NPCResult{}, err
		}
	}

	n := m.params.ProjectLifetimeYears
	flows := make([]YearCashFlow, n+1)
	for y := range flows {
		flows[y] = YearCashFlow{Year: y, DiscountFactor: m.factors[y]}
	}

	counts := cfg.Vector()
	res := NPCResult{Assets: make([]AssetNPC, 0, Dims), CashFlows: flows}
	for i, c := range byIndex {
		a := m.assetCashFlows(AssetNames[i], counts[i], c, flows)
		res.Assets = append(res.Assets, a)
	}

	totals := make([]float64, len(res.Assets))
	for i, a := range res.Assets {
		totals[i] = a.Total
	}
	res.NPC = floats.Sum(totals)
	for y := range flows {
		f := &flows[y]
		f.Total = f.Capital + f.Replacement + f.OM - f.Salvage
	}
	return res, nil
}

// assetCashFlows accumulates one asset's discounted cash flows into the plant
// table and returns its breakdown. Unlike HOMER's salvage formula, a component
// whose life ends exactly at the project end is credited no salvage.
func (m *FinancialModel) assetCashFlows(name string, count float64, c AssetCost, flows []YearCashFlow) AssetNPC {
	n := m.params.ProjectLifetimeYears
	a := AssetNPC{Asset: name, Count: count}
	if count == 0 {
		return a
	}

	a.Capital = count * c.CapitalCost
	flows[0].Capital += a.Capital

	age := 0
	for y := 1; y <= n; y++ {
		df := m.factors[y]
		age++

		om := count * c.OMCost * df
		a.OM += om
		flows[y].OM += om

		if age == c.LifetimeYears && y < n {
			rep := count * c.ReplacementCost * df
			a.Replacement += rep
			flows[y].Replacement += rep
			age = 0
		}
	}

	remaining := c.LifetimeYears - age
	if remaining > 0 {
		salvage := count * c.ReplacementCost * float64(remaining) / float64(c.LifetimeYears) * m.factors[n]
		a.Salvage = salvage
		flows[n].Salvage += salvage
	}

	a.Total = a.Capital + a.Replacement + a.OM - a.Salvage
	return a
}
