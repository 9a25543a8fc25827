// Package search finds the unit counts that minimize an objective over a
// configuration space.
package search

import (
	"time"

	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
	"hpp-sizer/internal/objective"
)

// Objective is what a strategy needs from the scoring function.
type Objective interface {
	Score(cfg model.Configuration) float64
	Evaluate(cfg model.Configuration) (objective.Evaluation, error)
	// Feasible reports whether a score came from a feasible configuration.
	Feasible(score float64) bool
}

type Strategy interface {
	Name() string
	Optimize(space Space, obj Objective) (*Result, error)
}

// Candidate is one scored configuration.
type Candidate struct {
	Config model.Configuration `json:"config"`
	Score  float64             `json:"score"`
}

// Result is the outcome of one search run. Dispatch and NPC always come from a
// full re-evaluation of Best.
type Result struct {
	Strategy string              `json:"strategy"`
	Best     model.Configuration `json:"best"`
	Score    float64             `json:"score"`
	Feasible bool                `json:"feasible"`

	Dispatch *dispatch.Result `json:"dispatch"`
	NPC      model.NPCResult  `json:"npc"`

	Evaluations int           `json:"evaluations"`
	Iterations  int           `json:"iterations,omitempty"`
	Converged   bool          `json:"converged"`
	Elapsed     time.Duration `json:"elapsed"`

	// Continuous is the unrounded optimum found by differential evolution.
	Continuous *model.Configuration `json:"continuous,omitempty"`
	// FeasiblePoints lists every feasible grid point when requested.
	FeasiblePoints []Candidate `json:"feasible_points,omitempty"`
}

// finish re-evaluates best with the full trace and fills the common fields.
func finish(name string, obj Objective, best model.Configuration, evaluations int, started time.Time) (*Result, error) {
	ev, err := obj.Evaluate(best)
	if err != nil {
		return nil, err
	}
	return &Result{
		Strategy:    name,
		Best:        best,
		Score:       ev.Score,
		Feasible:    ev.Feasible,
		Dispatch:    ev.Dispatch,
		NPC:         ev.NPC,
		Evaluations: evaluations + 1,
		Elapsed:     time.Since(started),
	}, nil
}
