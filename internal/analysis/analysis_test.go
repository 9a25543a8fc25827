package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
	"hpp-sizer/internal/search"
)

func TestSummarize(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	load := model.NewTimeSeries(start, []float64{10, 10, 10, 10, 10})
	solar := model.NewTimeSeries(start, []float64{30, 0, 0, 0, 0})
	wind := model.NewTimeSeries(start, []float64{0, 5, 0, 0, 20})
	spec := model.StorageSpec{
		EnergyCapacityKWh:   10,
		MaxChargeCRate:      1,
		MaxDischargeCRate:   1,
		RoundTripEfficiency: 1,
		InitialSOC:          0,
		Cost:                model.AssetCost{LifetimeYears: 10},
	}

	res, err := dispatch.New(0.5).Evaluate(model.Configuration{Solar: 1, Wind: 1, Storage: 1}, load, solar, wind, spec)
	require.NoError(t, err)
	s := Summarize(res)

	assert.Equal(t, 5, s.Steps)
	assert.Equal(t, start.Add(4*time.Hour), s.End)
	assert.InDelta(t, 30, s.SolarKWh, 1e-9)
	assert.InDelta(t, 25, s.WindKWh, 1e-9)
	// Step 0 charges 10 and curtails 10; steps 1-2 drain storage, leaving
	// 5 unmet at step 2 and 10 at step 3.
	assert.InDelta(t, 10, s.CurtailedKWh, 1e-9)
	assert.InDelta(t, 15, s.UnmetKWh, 1e-9)
	assert.InDelta(t, 0.3, s.ShortageFraction, 1e-9)
	assert.Equal(t, 2, s.ShortageSteps)
	assert.Equal(t, 2, s.LongestShortage)
	assert.InDelta(t, 1, s.MaxSOC, 1e-9)
	assert.InDelta(t, 0, s.MinSOC, 1e-9)
	assert.InDelta(t, 1.0, s.EquivalentCycles, 1e-9)
	assert.InDelta(t, 30.0/55, s.SolarShare, 1e-9)
}

func TestSummarizeWithoutLedger(t *testing.T) {
	assert.Equal(t, DispatchSummary{}, Summarize(nil))
	assert.Equal(t, DispatchSummary{}, Summarize(&dispatch.Result{}))
}

func TestPercentileSorted(t *testing.T) {
	vals := []float64{0, 1, 2, 3, 4}
	assert.Equal(t, 0.0, percentileSorted(vals, 0))
	assert.Equal(t, 4.0, percentileSorted(vals, 1))
	assert.InDelta(t, 2, percentileSorted(vals, 0.5), 1e-12)
	assert.InDelta(t, 0.2, percentileSorted(vals, 0.05), 1e-12)
}

func TestLevelizedCost(t *testing.T) {
	assert.InDelta(t, 0.1, CapitalRecoveryFactor(0, 10), 1e-12)
	assert.InDelta(t, 0.1295, CapitalRecoveryFactor(0.05, 10), 1e-4)

	// One week of data served 1000 kWh; annualized to 52.14 weeks.
	lcoe := LevelizedCost(10000, 0, 10, 1000, 168)
	assert.InDelta(t, 1000/(1000*8760/168.0), lcoe, 1e-12)
	assert.Zero(t, LevelizedCost(10000, 0.05, 10, 0, 168))
}

func TestRankFeasible(t *testing.T) {
	points := []search.Candidate{
		{Config: model.Configuration{Solar: 1}, Score: 300},
		{Config: model.Configuration{Solar: 2}, Score: 100},
		{Config: model.Configuration{Solar: 3}, Score: 200},
		{Config: model.Configuration{Solar: 4}, Score: 100},
	}

	ranked := RankFeasible(points, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 2.0, ranked[0].Config.Solar)
	assert.Equal(t, 4.0, ranked[1].Config.Solar)
	assert.Equal(t, 3.0, ranked[2].Config.Solar)
	assert.Equal(t, 100.0, ranked[2].AboveBest)
	assert.Equal(t, 300.0, points[0].Score)

	assert.Len(t, RankFeasible(points, 0), 4)
	assert.Empty(t, RankFeasible(nil, 5))
}
