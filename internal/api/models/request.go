package models

import (
	"hpp-sizer/internal/config"
	"hpp-sizer/internal/model"
)

// SiteSource selects the site data of a request: either a server-side
// dataset from the catalog or inline series.
type SiteSource struct {
	DatasetID string         `json:"dataset_id,omitempty"`
	Series    *SeriesPayload `json:"series,omitempty"`
}

// SeriesPayload carries aligned site series inline. Temperature is optional.
type SeriesPayload struct {
	Load        model.TimeSeries  `json:"load" binding:"required"`
	Irradiance  model.TimeSeries  `json:"irradiance" binding:"required"`
	Temperature *model.TimeSeries `json:"temperature,omitempty"`
	WindSpeed   model.TimeSeries  `json:"wind_speed" binding:"required"`
}

// EvaluateRequest represents the request body for scoring one configuration
type EvaluateRequest struct {
	Site          SiteSource          `json:"site" binding:"required"`
	Config        config.Config       `json:"config" binding:"required"`
	Configuration model.Configuration `json:"configuration"`
	Options       RunOptions          `json:"options,omitempty"`
}

// OptimizeRequest represents the request body for a sizing search
type OptimizeRequest struct {
	Site    SiteSource    `json:"site" binding:"required"`
	Config  config.Config `json:"config" binding:"required"`
	Options RunOptions    `json:"options,omitempty"`
}

// NPCRequest prices one configuration without dispatching it
type NPCRequest struct {
	Config           config.Config       `json:"config" binding:"required"`
	Configuration    model.Configuration `json:"configuration"`
	IncludeCashFlows bool                `json:"include_cash_flows,omitempty"`
}

// RunOptions contains optional run parameters
type RunOptions struct {
	IncludeLedger bool `json:"include_ledger,omitempty"` // default: false
	TopDesigns    int  `json:"top_designs,omitempty"`    // exhaustive only; 0 = none
}
