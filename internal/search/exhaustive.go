package search

import (
	"fmt"
	"log/slog"
	"time"

	"hpp-sizer/internal/model"
)

// ExhaustiveSearch scores every grid point, solar outermost and storage
// innermost. Ties keep the first point encountered.
type ExhaustiveSearch struct {
	// KeepFeasible records every feasible point in Result.FeasiblePoints.
	KeepFeasible bool
	// MaxPoints rejects grids larger than this; 0 means no limit.
	MaxPoints int
	// ProgressEvery logs progress after that many evaluations; 0 disables it.
	ProgressEvery int

	Logger *slog.Logger
}

func (s *ExhaustiveSearch) Name() string { return "exhaustive" }

func (s *ExhaustiveSearch) Optimize(space Space, obj Objective) (*Result, error) {
	if space == nil || obj == nil {
		return nil, fmt.Errorf("%w: space and objective are required", model.ErrInvalidConfiguration)
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}
	grid, err := asGrid(space)
	if err != nil {
		return nil, err
	}
	if s.MaxPoints > 0 && grid.Size() > s.MaxPoints {
		return nil, fmt.Errorf("%w: grid has %d points, limit is %d", model.ErrInvalidConfiguration, grid.Size(), s.MaxPoints)
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	started := time.Now()
	total := grid.Size()
	var (
		best      model.Configuration
		bestScore float64
		feasible  []Candidate
	)
	evals := 0
	for _, solar := range grid.Solar {
		for _, wind := range grid.Wind {
			for _, storage := range grid.Storage {
				cfg := model.Configuration{Solar: solar, Wind: wind, Storage: storage}
				score := obj.Score(cfg)
				evals++

				if evals == 1 || score < bestScore {
					best, bestScore = cfg, score
				}
				if s.KeepFeasible && obj.Feasible(score) {
					feasible = append(feasible, Candidate{Config: cfg, Score: score})
				}
				if s.ProgressEvery > 0 && evals%s.ProgressEvery == 0 {
					logger.Debug("exhaustive search progress",
						"evaluated", evals,
						"total", total,
						"best", best.String(),
						"best_score", bestScore,
					)
				}
			}
		}
	}

	res, err := finish(s.Name(), obj, best, evals, started)
	if err != nil {
		return nil, fmt.Errorf("re-evaluate best configuration: %w", err)
	}
	res.Converged = true
	res.FeasiblePoints = feasible
	logger.Info("exhaustive search finished",
		"evaluations", res.Evaluations,
		"best", best.String(),
		"feasible", res.Feasible,
		"score", res.Score,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

func asGrid(space Space) (GridSpace, error) {
	switch sp := space.(type) {
	case GridSpace:
		return sp, nil
	case *GridSpace:
		return *sp, nil
	case BoundedSpace:
		g := sp.IntegerGrid()
		return g, g.Validate()
	case *BoundedSpace:
		g := sp.IntegerGrid()
		return g, g.Validate()
	default:
		return GridSpace{}, fmt.Errorf("%w: unsupported search space %T", model.ErrInvalidConfiguration, space)
	}
}
