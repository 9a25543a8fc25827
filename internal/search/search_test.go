package search

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
	"hpp-sizer/internal/objective"
)

const stubPenalty = 1e12

// stubObjective scores configurations with a closed-form function.
type stubObjective struct {
	score func(model.Configuration) float64
	calls int
}

func (s *stubObjective) Score(cfg model.Configuration) float64 {
	s.calls++
	if cfg.Validate() != nil {
		return 2 * stubPenalty
	}
	return s.score(cfg)
}

func (s *stubObjective) Evaluate(cfg model.Configuration) (objective.Evaluation, error) {
	if err := cfg.Validate(); err != nil {
		return objective.Evaluation{}, err
	}
	score := s.score(cfg)
	return objective.Evaluation{
		Config:   cfg,
		Score:    score,
		Feasible: s.Feasible(score),
		Dispatch: &dispatch.Result{Config: cfg},
	}, nil
}

func (s *stubObjective) Feasible(score float64) bool { return score < stubPenalty }

// bowl has its unique minimum at solar=3, wind=7, storage=2.
func bowl(c model.Configuration) float64 {
	return 100 + (c.Solar-3)*(c.Solar-3) + (c.Wind-7)*(c.Wind-7) + (c.Storage-2)*(c.Storage-2)
}

func realProblem(t *testing.T) *objective.Function {
	t.Helper()
	start := time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC)
	n := 72
	load, irr, wind := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		h := float64(i % 24)
		load[i] = 15 + 10*math.Sin(math.Pi*h/24)
		if h >= 6 && h <= 18 {
			irr[i] = 0.9 * math.Sin(math.Pi*(h-6)/12)
		}
		wind[i] = 4 + 8*math.Abs(math.Sin(float64(i)/7))
	}
	f, err := objective.New(objective.Problem{
		Load:       model.NewTimeSeries(start, load),
		Irradiance: model.NewTimeSeries(start, irr),
		WindSpeed:  model.NewTimeSeries(start, wind),
		Specs: model.PlantSpecs{
			Solar: model.SolarSpec{
				ModuleCapacityKW: 5,
				DeratingFactor:   0.8,
				Albedo:           0.2,
				Cost:             model.AssetCost{CapitalCost: 2500, ReplacementCost: 2500, OMCost: 10, LifetimeYears: 20},
			},
			Wind: model.WindSpec{
				PowerCurve:        []model.CurvePoint{{SpeedMS: 3, PowerKW: 0}, {SpeedMS: 12, PowerKW: 10}, {SpeedMS: 25, PowerKW: 10}},
				HubHeightM:        10,
				AnemometerHeightM: 10,
				RoughnessM:        0.01,
				Cost:              model.AssetCost{CapitalCost: 18000, ReplacementCost: 18000, OMCost: 180, LifetimeYears: 20},
			},
			Storage: model.StorageSpec{
				EnergyCapacityKWh:   10,
				MaxChargeCRate:      0.5,
				MaxDischargeCRate:   0.5,
				RoundTripEfficiency: 0.9,
				InitialSOC:          0.5,
				Cost:                model.AssetCost{CapitalCost: 550, ReplacementCost: 550, OMCost: 10, LifetimeYears: 15},
			},
		},
		Economics:   model.EconomicParams{ProjectLifetimeYears: 25, NominalDiscountRate: 0.08, InflationRate: 0.02},
		MaxShortage: 0.05,
	})
	require.NoError(t, err)
	return f
}

func TestExhaustiveSinglePoint(t *testing.T) {
	obj := &stubObjective{score: bowl}
	s := &ExhaustiveSearch{}

	res, err := s.Optimize(GridSpace{Solar: []float64{4}, Wind: []float64{1}, Storage: []float64{9}}, obj)
	require.NoError(t, err)
	assert.Equal(t, model.Configuration{Solar: 4, Wind: 1, Storage: 9}, res.Best)
	assert.Equal(t, 2, res.Evaluations)
	assert.Equal(t, "exhaustive", res.Strategy)
	assert.Equal(t, bowl(res.Best), res.Score)
}

func TestExhaustiveFindsMinimumAndKeepsFirstTie(t *testing.T) {
	flat := &stubObjective{score: func(model.Configuration) float64 { return 5 }}
	grid := GridSpace{Solar: []float64{0, 1}, Wind: []float64{2, 3}, Storage: []float64{4, 5}}

	res, err := (&ExhaustiveSearch{}).Optimize(grid, flat)
	require.NoError(t, err)
	assert.Equal(t, model.Configuration{Solar: 0, Wind: 2, Storage: 4}, res.Best)

	res, err = (&ExhaustiveSearch{}).Optimize(GridSpace{
		Solar:   Linspace(0, 10, 11),
		Wind:    Linspace(0, 10, 11),
		Storage: Linspace(0, 10, 11),
	}, &stubObjective{score: bowl})
	require.NoError(t, err)
	assert.Equal(t, model.Configuration{Solar: 3, Wind: 7, Storage: 2}, res.Best)
	assert.Equal(t, 11*11*11+1, res.Evaluations)
}

func TestExhaustiveKeepFeasible(t *testing.T) {
	obj := &stubObjective{score: func(c model.Configuration) float64 {
		if c.Wind+c.Solar < 3 {
			return stubPenalty
		}
		return bowl(c)
	}}
	grid := GridSpace{Solar: []float64{0, 1, 2}, Wind: []float64{0, 1, 2}, Storage: []float64{0}}

	res, err := (&ExhaustiveSearch{KeepFeasible: true}).Optimize(grid, obj)
	require.NoError(t, err)
	assert.Len(t, res.FeasiblePoints, 3)
	for _, c := range res.FeasiblePoints {
		assert.GreaterOrEqual(t, c.Config.Solar+c.Config.Wind, 3.0)
	}
}

func TestExhaustiveRejectsBadGrids(t *testing.T) {
	obj := &stubObjective{score: bowl}
	s := &ExhaustiveSearch{}

	_, err := s.Optimize(GridSpace{Solar: []float64{1}, Wind: nil, Storage: []float64{1}}, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)

	_, err = s.Optimize(GridSpace{Solar: []float64{-1}, Wind: []float64{1}, Storage: []float64{1}}, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)

	_, err = s.Optimize(GridSpace{Solar: []float64{1.5}, Wind: []float64{1}, Storage: []float64{1}}, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)

	limited := &ExhaustiveSearch{MaxPoints: 10}
	_, err = limited.Optimize(GridSpace{Solar: Linspace(0, 10, 11), Wind: []float64{1}, Storage: []float64{1}}, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
	assert.Zero(t, obj.calls)
}

func TestExhaustiveOverBoundedSpace(t *testing.T) {
	space := BoundedSpace{Upper: model.Configuration{Solar: 4, Wind: 8, Storage: 3}}
	res, err := (&ExhaustiveSearch{}).Optimize(space, &stubObjective{score: bowl})
	require.NoError(t, err)
	assert.Equal(t, model.Configuration{Solar: 3, Wind: 7, Storage: 2}, res.Best)
	assert.Equal(t, 5*9*4+1, res.Evaluations)
}

func TestDifferentialEvolutionMatchesGridOptimum(t *testing.T) {
	space := BoundedSpace{Upper: model.Configuration{Solar: 10, Wind: 10, Storage: 10}}

	grid, err := (&ExhaustiveSearch{}).Optimize(space, &stubObjective{score: bowl})
	require.NoError(t, err)

	de := NewDifferentialEvolution(42)
	de.Tol = 1e-6
	res, err := de.Optimize(space, &stubObjective{score: bowl})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.LessOrEqual(t, res.Score, grid.Score)
	assert.Equal(t, grid.Best, res.Best)
	require.NotNil(t, res.Continuous)
	assert.InDelta(t, 3, res.Continuous.Solar, 0.5)
	assert.Equal(t, res.Best, res.Best.Rounded())
}

func TestDifferentialEvolutionDeterministicForSeed(t *testing.T) {
	space := BoundedSpace{Upper: model.Configuration{Solar: 20, Wind: 20, Storage: 20}}

	a, err := NewDifferentialEvolution(7).Optimize(space, &stubObjective{score: bowl})
	require.NoError(t, err)
	b, err := NewDifferentialEvolution(7).Optimize(space, &stubObjective{score: bowl})
	require.NoError(t, err)

	assert.Equal(t, *a.Continuous, *b.Continuous)
	assert.Equal(t, a.Evaluations, b.Evaluations)
	assert.Equal(t, a.Iterations, b.Iterations)
}

func TestDifferentialEvolutionHoldsCollapsedBounds(t *testing.T) {
	space := BoundedSpace{
		Lower: model.Configuration{Wind: 5},
		Upper: model.Configuration{Solar: 10, Wind: 5, Storage: 10},
	}
	obj := &stubObjective{score: func(c model.Configuration) float64 {
		if c.Wind != 5 {
			return 2 * stubPenalty
		}
		return bowl(c)
	}}

	res, err := NewDifferentialEvolution(1).Optimize(space, obj)
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Best.Wind)
	assert.Equal(t, 5.0, res.Continuous.Wind)
	assert.True(t, res.Feasible)
}

func TestDifferentialEvolutionRejectsBadParams(t *testing.T) {
	space := BoundedSpace{Upper: model.Configuration{Solar: 1, Wind: 1, Storage: 1}}
	obj := &stubObjective{score: bowl}

	_, err := (&DifferentialEvolution{Crossover: 1.5}).Optimize(space, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)

	_, err = NewDifferentialEvolution(0).Optimize(BoundedSpace{Lower: model.Configuration{Solar: 3}, Upper: model.Configuration{Solar: 1}}, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)

	_, err = NewDifferentialEvolution(0).Optimize(BoundedSpace{Lower: model.Configuration{Wind: -1}}, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
}

func TestDifferentialEvolutionFractionalBoundsReportWholeUnits(t *testing.T) {
	// Only solar=2 is feasible, so the ceiling fallback runs into the 2.5 bound.
	obj := &stubObjective{score: func(c model.Configuration) float64 {
		if c.Solar < 1.5 {
			return stubPenalty * (2 - c.Solar)
		}
		return 100 + c.Solar
	}}
	space := BoundedSpace{
		Lower: model.Configuration{Solar: 0.5, Wind: 0.2},
		Upper: model.Configuration{Solar: 2.5, Wind: 1.7, Storage: 0.9},
	}

	res, err := NewDifferentialEvolution(5).Optimize(space, obj)
	require.NoError(t, err)
	assert.Equal(t, res.Best, res.Best.Rounded())
	assert.GreaterOrEqual(t, res.Best.Solar, 1.0)
	assert.LessOrEqual(t, res.Best.Solar, 2.0)
	assert.Equal(t, 1.0, res.Best.Wind)
	assert.Zero(t, res.Best.Storage)

	cfg := roundWithin(model.Configuration{Solar: 2.4}, space.Lower, space.Upper, math.Ceil)
	assert.Equal(t, model.Configuration{Solar: 2, Wind: 1}, cfg)
}

func TestBoundedSpaceWithoutWholeUnitsIsRejected(t *testing.T) {
	space := BoundedSpace{
		Lower: model.Configuration{Solar: 0.5},
		Upper: model.Configuration{Solar: 0.7, Wind: 3, Storage: 3},
	}
	assert.ErrorIs(t, space.Validate(), model.ErrInvalidConfiguration)

	obj := &stubObjective{score: bowl}
	_, err := NewDifferentialEvolution(0).Optimize(space, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
	_, err = (&ExhaustiveSearch{}).Optimize(space, obj)
	assert.ErrorIs(t, err, model.ErrInvalidConfiguration)
	assert.Zero(t, obj.calls)
}

func TestRoundFeasibleFallsBackToCeiling(t *testing.T) {
	// Feasible only with at least 2.4 storage units.
	obj := &stubObjective{score: func(c model.Configuration) float64 {
		if c.Storage < 2.4 {
			return stubPenalty * (1 + (2.4-c.Storage)/2.4)
		}
		return 100 + c.Storage
	}}
	upper := model.Configuration{Solar: 10, Wind: 10, Storage: 10}

	cfg, evals := roundFeasible(obj, model.Configuration{Solar: 1.2, Storage: 2.4}, model.Configuration{}, upper)
	assert.Equal(t, model.Configuration{Solar: 2, Storage: 3}, cfg)
	assert.Equal(t, 2, evals)

	cfg, evals = roundFeasible(obj, model.Configuration{Storage: 2.6}, model.Configuration{}, upper)
	assert.Equal(t, model.Configuration{Storage: 3}, cfg)
	assert.Equal(t, 1, evals)

	// The ceiling is clamped to the bounds.
	cfg, _ = roundFeasible(obj, model.Configuration{Storage: 2.2}, model.Configuration{}, model.Configuration{Storage: 2})
	assert.Equal(t, model.Configuration{Storage: 2}, cfg)
}

func TestPickTwoAndLatinHypercube(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		skip := i % 5
		a, b := pickTwo(rng, 5, skip)
		require.NotEqual(t, a, b)
		require.NotEqual(t, a, skip)
		require.NotEqual(t, b, skip)
		require.True(t, a >= 0 && a < 5 && b >= 0 && b < 5)
	}

	pop := latinHypercube(rng, 10, 3)
	for j := 0; j < 3; j++ {
		seen := make(map[int]bool)
		for _, p := range pop {
			require.True(t, p[j] >= 0 && p[j] < 1)
			seen[int(p[j]*10)] = true
		}
		assert.Len(t, seen, 10)
	}
}

func TestSearchStrategiesOnPlant(t *testing.T) {
	obj := realProblem(t)
	space := BoundedSpace{Upper: model.Configuration{Solar: 6, Wind: 6, Storage: 6}}

	grid, err := (&ExhaustiveSearch{KeepFeasible: true}).Optimize(space, obj)
	require.NoError(t, err)
	require.True(t, grid.Feasible)
	require.NotEmpty(t, grid.FeasiblePoints)
	for _, c := range grid.FeasiblePoints {
		assert.GreaterOrEqual(t, c.Score, grid.Score)
	}
	require.NotNil(t, grid.Dispatch)
	assert.Len(t, grid.Dispatch.Ledger, 72)

	de := NewDifferentialEvolution(3)
	de.MaxIterations = 200
	res, err := de.Optimize(space, obj)
	require.NoError(t, err)

	// Reported feasibility comes from re-evaluating the rounded point.
	ev, err := obj.Evaluate(res.Best)
	require.NoError(t, err)
	assert.Equal(t, ev.Feasible, res.Feasible)
	assert.Equal(t, ev.Score, res.Score)
	assert.Equal(t, res.Best, res.Best.Rounded())
	// The grid covers every integer point of the box.
	assert.GreaterOrEqual(t, res.Score, grid.Score)
}
