package handlers

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"

	"hpp-sizer/internal/analysis"
	"hpp-sizer/internal/api/models"
	"hpp-sizer/internal/config"
	"hpp-sizer/internal/data"
	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
	"hpp-sizer/internal/objective"
	"hpp-sizer/internal/search"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Limits bound the work a single request may trigger.
type Limits struct {
	MaxGridPoints   int
	MaxDEIterations int
	MaxDEPopSize    int
}

// SizingHandler serves evaluation, optimization and pricing requests
type SizingHandler struct {
	sites   *SiteResolver
	storage *StorageHandler
	limits  Limits
	logger  *slog.Logger
}

// NewSizingHandler creates a new sizing handler. A nil storage handler
// disables storage presets.
func NewSizingHandler(sites *SiteResolver, storage *StorageHandler, limits Limits, logger *slog.Logger) *SizingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SizingHandler{sites: sites, storage: storage, limits: limits, logger: logger}
}

// Evaluate handles POST /api/v1/evaluate
func (h *SizingHandler) Evaluate(c *gin.Context) {
	var req models.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	cfg := &req.Config
	if err := h.prepareConfig(cfg); err != nil {
		writeError(c, err)
		return
	}
	obj, site, err := h.objective(c, cfg, req.Site)
	if err != nil {
		writeError(c, err)
		return
	}

	ev, err := obj.Evaluate(req.Configuration)
	if err != nil {
		writeError(c, err)
		return
	}
	log.Printf("SizingHandler: evaluated %s over %d steps (feasible=%v)", ev.Config, site.Load.Len(), ev.Feasible)

	c.JSON(http.StatusOK, models.EvaluateResponse{
		Configuration: ev.Config,
		Feasible:      ev.Feasible,
		Score:         ev.Score,
		NPC:           ev.NPC.NPC,
		Assets:        ev.NPC.Assets,
		Summary:       analysis.Summarize(ev.Dispatch),
		Dispatch:      trimLedger(ev.Dispatch, req.Options.IncludeLedger),
	})
}

// Optimize handles POST /api/v1/optimize
func (h *SizingHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	cfg := &req.Config
	if err := h.prepareConfig(cfg); err != nil {
		writeError(c, err)
		return
	}
	strategy, err := h.strategy(cfg, req.Options.TopDesigns)
	if err != nil {
		writeError(c, err)
		return
	}
	obj, site, err := h.objective(c, cfg, req.Site)
	if err != nil {
		writeError(c, err)
		return
	}

	id := uuid.NewString()
	log.Printf("SizingHandler: optimize %s started (strategy=%s, steps=%d)", id, strategy.Name(), site.Load.Len())
	res, err := strategy.Optimize(cfg.SearchSpace(), obj)
	if err != nil {
		writeError(c, err)
		return
	}
	log.Printf("SizingHandler: optimize %s finished: best %s after %d evaluations in %s", id, res.Best, res.Evaluations, res.Elapsed)

	status := "infeasible"
	if res.Feasible {
		status = "feasible"
	}
	econ := cfg.EconomicParams()
	horizon := float64(site.Load.Len()) * site.Load.StepHours
	resp := models.OptimizeResponse{
		ID:          id,
		Status:      status,
		Strategy:    res.Strategy,
		Best:        res.Best,
		Score:       res.Score,
		NPC:         res.NPC.NPC,
		Assets:      res.NPC.Assets,
		LCOE:        analysis.LevelizedCost(res.NPC.NPC, econ.RealDiscountRate(), econ.ProjectLifetimeYears, res.Dispatch.ServedKWh, horizon),
		Continuous:  res.Continuous,
		Evaluations: res.Evaluations,
		Iterations:  res.Iterations,
		Converged:   res.Converged,
		ElapsedMS:   res.Elapsed.Milliseconds(),
		Summary:     analysis.Summarize(res.Dispatch),
		Dispatch:    trimLedger(res.Dispatch, req.Options.IncludeLedger),
	}
	if req.Options.TopDesigns > 0 {
		resp.TopDesigns = analysis.RankFeasible(res.FeasiblePoints, req.Options.TopDesigns)
	}
	c.JSON(http.StatusOK, resp)
}

// NPC handles POST /api/v1/npc
func (h *SizingHandler) NPC(c *gin.Context) {
	var req models.NPCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	cfg := &req.Config
	if err := h.prepareConfig(cfg); err != nil {
		writeError(c, err)
		return
	}
	fm, err := model.NewFinancialModel(cfg.EconomicParams())
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := fm.ComputeNPC(req.Configuration, cfg.PlantSpecs().Costs())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := models.NPCResponse{
		Configuration: req.Configuration,
		NPC:           res.NPC,
		Assets:        res.Assets,
	}
	if req.IncludeCashFlows {
		resp.CashFlows = res.CashFlows
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SizingHandler) objective(c *gin.Context, cfg *config.Config, src models.SiteSource) (*objective.Function, *data.Site, error) {
	site, err := h.sites.Resolve(c.Request.Context(), src)
	if err != nil {
		return nil, nil, err
	}
	obj, err := objective.New(cfg.Problem(site), cfg.ObjectiveOptions(h.logger)...)
	if err != nil {
		return nil, nil, err
	}
	return obj, site, nil
}

// strategy builds the configured search strategy and enforces the server limits.
func (h *SizingHandler) strategy(cfg *config.Config, topDesigns int) (search.Strategy, error) {
	s, err := cfg.BuildStrategy(h.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errStrategy, err)
	}
	switch st := s.(type) {
	case *search.ExhaustiveSearch:
		size := cfg.Space.Grid.Size()
		if h.limits.MaxGridPoints > 0 && size > h.limits.MaxGridPoints {
			return nil, fmt.Errorf("%w: grid has %d points, limit is %d", errLimitExceeded, size, h.limits.MaxGridPoints)
		}
		if topDesigns > 0 {
			st.KeepFeasible = true
		}
	case *search.DifferentialEvolution:
		if h.limits.MaxDEIterations > 0 && st.MaxIterations > h.limits.MaxDEIterations {
			return nil, fmt.Errorf("%w: max_iterations %d, limit is %d", errLimitExceeded, st.MaxIterations, h.limits.MaxDEIterations)
		}
		if h.limits.MaxDEPopSize > 0 && st.PopSize > h.limits.MaxDEPopSize {
			return nil, fmt.Errorf("%w: pop_size %d, limit is %d", errLimitExceeded, st.PopSize, h.limits.MaxDEPopSize)
		}
	}
	return s, nil
}

// prepareConfig applies defaults and validates a request config. Over the
// API storage_file names a storage preset; other file includes are ignored.
func (h *SizingHandler) prepareConfig(cfg *config.Config) error {
	cfg.Data = data.SiteFiles{}
	cfg.Wind.PowerCurveFile = ""
	if cfg.StorageFile != "" {
		if h.storage == nil {
			return fmt.Errorf("%w: presets are disabled", errStoragePreset)
		}
		preset, err := h.storage.Preset(cfg.StorageFile)
		if err != nil {
			return err
		}
		cfg.Storage = config.MergeStorage(preset, cfg.Storage)
		cfg.StorageFile = ""
	}
	cfg.ApplyDefaults()
	return cfg.Validate()
}

// trimLedger drops the per-step trace unless it was requested.
func trimLedger(res *dispatch.Result, include bool) *dispatch.Result {
	if res == nil || include {
		return res
	}
	out := *res
	out.Ledger = nil
	return &out
}
