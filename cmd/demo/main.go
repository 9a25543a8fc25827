package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"hpp-sizer/internal/analysis"
	"hpp-sizer/internal/config"
	"hpp-sizer/internal/data"
	"hpp-sizer/internal/dispatch"
	"hpp-sizer/internal/model"
	"hpp-sizer/internal/objective"
	"hpp-sizer/internal/search"
)

// Demo:
// - Build a synthetic week of load, irradiance and wind (or load real site data via --config)
// - Size a plant with exhaustive search and with differential evolution
// - Print the first dispatch steps of the winning plant
func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (optional)")
	days := flag.Int("days", 7, "Days of synthetic data")
	n := flag.Int("n", 12, "Number of dispatch steps to print")
	seed := flag.Uint64("seed", 1, "Differential evolution seed")
	outCSV := flag.String("out", "", "Optional path to write ledger CSV (e.g. results/dispatch.csv)")
	flag.Parse()

	problem := syntheticProblem(*days)
	space := search.GridSpace{
		Solar:   search.Linspace(0, 60, 13),
		Wind:    search.Linspace(0, 8, 9),
		Storage: search.Linspace(0, 20, 11),
	}
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			panic(err)
		}
		site, err := data.LoadSite(context.Background(), cfg.Data)
		if err != nil {
			panic(err)
		}
		problem = cfg.Problem(site)
		space = cfg.Space.Grid
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	obj, err := objective.New(problem, objective.WithLogger(logger))
	if err != nil {
		panic(err)
	}

	fmt.Printf("Loaded %d steps of %.2fh from %s\n", problem.Load.Len(), problem.Load.StepHours, problem.Load.Start.Format(time.RFC3339))
	fmt.Printf("Grid has %d points, max shortage %.3f\n\n", space.Size(), problem.MaxShortage)

	exhaustive := &search.ExhaustiveSearch{Logger: logger}
	grid, err := exhaustive.Optimize(space, obj)
	if err != nil {
		panic(err)
	}
	report(grid)

	lower, upper := space.Bounds()
	de := search.NewDifferentialEvolution(*seed)
	de.Logger = logger
	evo, err := de.Optimize(search.BoundedSpace{Lower: lower, Upper: upper}, obj)
	if err != nil {
		panic(err)
	}
	report(evo)

	best := grid
	if evo.Score < grid.Score {
		best = evo
	}
	fmt.Printf("\nFirst steps of %s:\n", best.Best)
	for i := 0; i < min(*n, len(best.Dispatch.Ledger)); i++ {
		r := best.Dispatch.Ledger[i]
		fmt.Printf(
			"%s load=%6.2f  solar=%6.2f  wind=%6.2f  action=%-11s  p=%7.2f  soc=%6.2f->%6.2f  unmet=%5.2f  curt=%5.2f\n",
			r.Time.Format("2006-01-02 15:04"),
			r.LoadKW,
			r.SolarKW,
			r.WindKW,
			string(r.Action),
			r.StoragePowerKW,
			r.SOCStartKWh,
			r.SOCEndKWh,
			r.UnmetKWh,
			r.CurtailedKWh,
		)
	}

	if *outCSV != "" {
		if err := dispatch.WriteLedgerCSV(*outCSV, best.Dispatch.Ledger); err != nil {
			panic(err)
		}
		fmt.Printf("\nWrote CSV: %s\n", *outCSV)
	}

	s := analysis.Summarize(best.Dispatch)
	fmt.Printf("\nDone. NPC=$%.2f  Shortage=%.4f  Curtailment=%.4f  Cycles=%.1f\n", best.NPC.NPC, s.ShortageFraction, s.CurtailmentFraction, s.EquivalentCycles)
}

func report(res *search.Result) {
	fmt.Printf("%-24s best=%-30s feasible=%-5v NPC=$%12.2f evals=%d elapsed=%s\n",
		res.Strategy, res.Best, res.Feasible, res.NPC.NPC, res.Evaluations, res.Elapsed.Round(time.Millisecond))
}

// syntheticProblem builds an hourly site in late spring at 52N with an
// evening-peaking load, a clear-sky-ish irradiance day and gusty wind.
func syntheticProblem(days int) objective.Problem {
	start := time.Date(2021, 5, 1, 0, 0, 0, 0, time.UTC)
	steps := days * 24
	load, irr, temp, wind := make([]float64, steps), make([]float64, steps), make([]float64, steps), make([]float64, steps)
	for i := 0; i < steps; i++ {
		h := float64(i % 24)
		load[i] = 12 + 6*math.Exp(-math.Pow(h-19, 2)/8) + 3*math.Exp(-math.Pow(h-8, 2)/4)
		if h >= 5 && h <= 20 {
			irr[i] = 0.85 * math.Sin(math.Pi*(h-5)/15) * (0.7 + 0.3*math.Cos(float64(i)/17))
		}
		temp[i] = 12 + 6*math.Sin(math.Pi*(h-9)/12)
		wind[i] = 6 + 4*math.Sin(float64(i)/11) + 2*math.Cos(float64(i)/3)
	}

	return objective.Problem{
		Load:        model.NewTimeSeries(start, load),
		Irradiance:  model.NewTimeSeries(start, irr),
		Temperature: model.NewTimeSeries(start, temp),
		WindSpeed:   model.NewTimeSeries(start, wind),
		Specs: model.PlantSpecs{
			Solar: model.SolarSpec{
				Latitude:         52,
				Longitude:        0,
				Slope:            35,
				ModuleCapacityKW: 1,
				DeratingFactor:   0.8,
				Albedo:           0.2,
				TempCoefficient:  -0.004,
				Cost:             model.AssetCost{CapitalCost: 1200, ReplacementCost: 1000, OMCost: 15, LifetimeYears: 25},
			},
			Wind: model.WindSpec{
				PowerCurve: []model.CurvePoint{
					{SpeedMS: 3, PowerKW: 0}, {SpeedMS: 6, PowerKW: 2}, {SpeedMS: 9, PowerKW: 6},
					{SpeedMS: 12, PowerKW: 10}, {SpeedMS: 25, PowerKW: 10},
				},
				HubHeightM:        24,
				AnemometerHeightM: 10,
				RoughnessM:        0.03,
				Cost:              model.AssetCost{CapitalCost: 30000, ReplacementCost: 25000, OMCost: 600, LifetimeYears: 20},
			},
			Storage: model.StorageSpec{
				EnergyCapacityKWh:   13.5,
				MaxChargeCRate:      0.5,
				MaxDischargeCRate:   0.5,
				RoundTripEfficiency: 0.9,
				MinSOC:              0.1,
				InitialSOC:          0.5,
				Cost:                model.AssetCost{CapitalCost: 7000, ReplacementCost: 6000, OMCost: 50, LifetimeYears: 12},
			},
		},
		Economics:   model.EconomicParams{ProjectLifetimeYears: 25, NominalDiscountRate: 0.07, InflationRate: 0.02},
		MaxShortage: 0.02,
	}
}
