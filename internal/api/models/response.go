package models

import (
	"hpp-sizer/internal/analysis"
	"hpp-sizer/internal/config"
	"hpp-sizer/internal/data"
	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
)

// EvaluateResponse represents the response from scoring one configuration
type EvaluateResponse struct {
	Configuration model.Configuration      `json:"configuration"`
	Feasible      bool                     `json:"feasible"`
	Score         float64                  `json:"score"`
	NPC           float64                  `json:"npc"`
	Assets        []model.AssetNPC         `json:"assets"`
	Summary       analysis.DispatchSummary `json:"summary"`
	Dispatch      *dispatch.Result         `json:"dispatch"`
}

// OptimizeResponse represents the response from a sizing search
type OptimizeResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"` // "feasible" or "infeasible"
	Strategy string `json:"strategy"`

	Best       model.Configuration  `json:"best"`
	Score      float64              `json:"score"`
	NPC        float64              `json:"npc"`
	Assets     []model.AssetNPC     `json:"assets"`
	LCOE       float64              `json:"lcoe"` // per kWh served
	Continuous *model.Configuration `json:"continuous,omitempty"`

	Evaluations int   `json:"evaluations"`
	Iterations  int   `json:"iterations,omitempty"`
	Converged   bool  `json:"converged"`
	ElapsedMS   int64 `json:"elapsed_ms"`

	Summary    analysis.DispatchSummary `json:"summary"`
	Dispatch   *dispatch.Result         `json:"dispatch"`
	TopDesigns []analysis.RankedDesign  `json:"top_designs,omitempty"`
}

// NPCResponse represents the lifecycle cost of one configuration
type NPCResponse struct {
	Configuration model.Configuration  `json:"configuration"`
	NPC           float64              `json:"npc"`
	Assets        []model.AssetNPC     `json:"assets"`
	CashFlows     []model.YearCashFlow `json:"cash_flows,omitempty"`
}

// StrategyInfo represents information about a search strategy
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // "float", "int", "bool"
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// DatasetInfo represents a dataset from the server catalog
type DatasetInfo struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	TimeZone       float64 `json:"time_zone"`
	HasTemperature bool    `json:"has_temperature"`
}

// NewDatasetInfo hides server-side file paths.
func NewDatasetInfo(d data.Dataset) DatasetInfo {
	return DatasetInfo{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		Latitude:       d.Latitude,
		Longitude:      d.Longitude,
		TimeZone:       d.TimeZone,
		HasTemperature: d.Files.Temperature.Path != "",
	}
}

// StorageInfo represents a storage preset
type StorageInfo struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	Specs StorageSpecs `json:"specs"`
}

// StorageSpecs contains the headline figures of a storage unit
type StorageSpecs struct {
	EnergyCapacityKWh   float64 `json:"energy_capacity_kwh"`
	MaxChargeCRate      float64 `json:"max_charge_c_rate"`
	MaxDischargeCRate   float64 `json:"max_discharge_c_rate"`
	RoundTripEfficiency float64 `json:"round_trip_efficiency"`
	CapitalCost         float64 `json:"capital_cost"`
}

func NewStorageInfo(id string, sc config.StorageConfig) StorageInfo {
	name := sc.Name
	if name == "" {
		name = id
	}
	return StorageInfo{
		ID:   id,
		Name: name,
		Specs: StorageSpecs{
			EnergyCapacityKWh:   sc.EnergyCapacityKWh,
			MaxChargeCRate:      sc.MaxChargeCRate,
			MaxDischargeCRate:   sc.MaxDischargeCRate,
			RoundTripEfficiency: sc.RoundTripEfficiency,
			CapitalCost:         sc.Cost.CapitalCost,
		},
	}
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
