package handlers

import (
	"log"
	"net/http"

	"hpp-sizer/internal/api/models"
	"hpp-sizer/internal/search"

	"github.com/gin-gonic/gin"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct{}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	log.Printf("StrategyHandler: ListStrategies called")
	de := search.NewDifferentialEvolution(0)
	strategies := []models.StrategyInfo{
		{
			Name:        "exhaustive",
			Description: "Scores every point of the search_space grid and returns the cheapest feasible plant.",
			Parameters: []models.ParameterInfo{
				{
					Name:        "keep_feasible",
					Type:        "bool",
					Description: "Record every feasible grid point (required for top_designs)",
					Default:     false,
				},
				{
					Name:        "max_points",
					Type:        "int",
					Description: "Refuse grids larger than this (0 = no limit beyond the server's)",
					Default:     0,
				},
				{
					Name:        "progress_every",
					Type:        "int",
					Description: "Log progress every N evaluated points",
					Default:     1000,
				},
			},
		},
		{
			Name:        "differential_evolution",
			Description: "Seeded differential evolution (best1bin) over continuous unit counts, rounded to the best feasible integer plant.",
			Parameters: []models.ParameterInfo{
				{Name: "seed", Type: "int", Description: "Random seed; equal seeds give equal results", Default: 0},
				{Name: "pop_size", Type: "int", Description: "Population multiplier (population = pop_size * 3)", Default: de.PopSize},
				{Name: "mutation_min", Type: "float", Description: "Lower bound of the dithered mutation factor", Default: de.MutationMin},
				{Name: "mutation_max", Type: "float", Description: "Upper bound of the dithered mutation factor", Default: de.MutationMax},
				{Name: "crossover", Type: "float", Description: "Binomial crossover probability", Default: de.Crossover},
				{Name: "max_iterations", Type: "int", Description: "Generation limit", Default: de.MaxIterations},
				{Name: "tol", Type: "float", Description: "Relative convergence tolerance on population scores", Default: de.Tol},
				{Name: "atol", Type: "float", Description: "Absolute convergence tolerance on population scores", Default: de.Atol},
			},
		},
	}

	log.Printf("StrategyHandler: Returning %d strategies", len(strategies))
	c.JSON(http.StatusOK, gin.H{"strategies": strategies})
}
