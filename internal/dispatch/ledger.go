package dispatch

import (
	"time"

	"hpp-sizer/internal/model"
)

// LedgerRow is one row of per-step output: the dispatch trace.
// Power columns are average kW over the step; energy columns are kWh.
type LedgerRow struct {
	Index int       `json:"index"`
	Time  time.Time `json:"time"`

	LoadKW  float64 `json:"load_kw"`
	SolarKW float64 `json:"solar_kw"`
	WindKW  float64 `json:"wind_kw"`
	NetKW   float64 `json:"net_kw"`

	Action model.Action `json:"action"`

	RequestedStorageKW float64 `json:"requested_storage_kw"`
	StoragePowerKW     float64 `json:"storage_power_kw"`

	CurtailedKWh float64 `json:"curtailed_kwh"`
	UnmetKWh     float64 `json:"unmet_kwh"`

	SOCStartKWh float64 `json:"soc_start_kwh"`
	SOCEndKWh   float64 `json:"soc_end_kwh"`
}

// Result summarizes one configuration's dispatch over the horizon.
type Result struct {
	Config model.Configuration `json:"config"`

	TotalLoadKWh  float64 `json:"total_load_kwh"`
	ServedKWh     float64 `json:"served_kwh"`
	UnmetKWh      float64 `json:"unmet_kwh"`
	CurtailedKWh  float64 `json:"curtailed_kwh"`
	ChargedKWh    float64 `json:"charged_kwh"`
	DischargedKWh float64 `json:"discharged_kwh"`

	// ShortageFraction is unmet load over total load, 0 when there is no load.
	ShortageFraction float64 `json:"shortage_fraction"`
	ServedFraction   float64 `json:"served_fraction"`
	Feasible         bool    `json:"feasible"`

	CapacityKWh   float64 `json:"capacity_kwh"`
	InitialSOCKWh float64 `json:"initial_soc_kwh"`
	FinalSOCKWh   float64 `json:"final_soc_kwh"`

	// Ledger is nil when the engine runs with SkipLedger.
	Ledger []LedgerRow `json:"ledger,omitempty"`
}
