package search

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/stat"

	"hpp-sizer/internal/model"
)

// DifferentialEvolution is a best/1/bin differential evolution over a bounded
// box of unit counts, with immediate updating and Latin hypercube
// initialisation. Zero-valued fields take the defaults of
// NewDifferentialEvolution.
type DifferentialEvolution struct {
	// PopSize multiplies the number of dimensions to give the population size.
	PopSize int
	// Mutation is dithered uniformly in [MutationMin, MutationMax) each generation.
	MutationMin float64
	MutationMax float64
	Crossover   float64

	MaxIterations int
	// The run converges when std(energies) <= Atol + Tol*|mean(energies)|.
	Tol  float64
	Atol float64

	Seed uint64

	Logger *slog.Logger
}

func NewDifferentialEvolution(seed uint64) *DifferentialEvolution {
	return &DifferentialEvolution{
		PopSize:       15,
		MutationMin:   0.25,
		MutationMax:   0.5,
		Crossover:     0.7,
		MaxIterations: 1000,
		Tol:           0.01,
		Seed:          seed,
	}
}

func (s *DifferentialEvolution) Name() string { return "differential_evolution" }

func (s *DifferentialEvolution) withDefaults() DifferentialEvolution {
	d := *NewDifferentialEvolution(s.Seed)
	out := *s
	if out.PopSize == 0 {
		out.PopSize = d.PopSize
	}
	if out.MutationMin == 0 && out.MutationMax == 0 {
		out.MutationMin, out.MutationMax = d.MutationMin, d.MutationMax
	}
	if out.Crossover == 0 {
		out.Crossover = d.Crossover
	}
	if out.MaxIterations == 0 {
		out.MaxIterations = d.MaxIterations
	}
	if out.Tol == 0 && out.Atol == 0 {
		out.Tol = d.Tol
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

func (s DifferentialEvolution) validate() error {
	switch {
	case s.PopSize < 1:
		return fmt.Errorf("%w: population size must be >= 1", model.ErrInvalidConfiguration)
	case s.MutationMin < 0 || s.MutationMax > 2 || s.MutationMin > s.MutationMax:
		return fmt.Errorf("%w: mutation range must satisfy 0 <= min <= max <= 2", model.ErrInvalidConfiguration)
	case s.Crossover < 0 || s.Crossover > 1:
		return fmt.Errorf("%w: crossover probability must be in [0, 1]", model.ErrInvalidConfiguration)
	case s.MaxIterations < 1:
		return fmt.Errorf("%w: max iterations must be >= 1", model.ErrInvalidConfiguration)
	case s.Tol < 0 || s.Atol < 0:
		return fmt.Errorf("%w: tolerances must be >= 0", model.ErrInvalidConfiguration)
	}
	return nil
}

func (s *DifferentialEvolution) Optimize(space Space, obj Objective) (*Result, error) {
	if space == nil || obj == nil {
		return nil, fmt.Errorf("%w: space and objective are required", model.ErrInvalidConfiguration)
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}
	p := s.withDefaults()
	if err := p.validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	lower, upper := space.Bounds()
	lo, hi := lower.Vector(), upper.Vector()
	scale := func(u []float64) model.Configuration {
		x := make([]float64, model.Dims)
		for j := range x {
			x[j] = lo[j] + u[j]*(hi[j]-lo[j])
		}
		return model.ConfigurationFromVector(x)
	}

	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	n := max(5, p.PopSize*model.Dims)
	pop := latinHypercube(rng, n, model.Dims)
	energies := make([]float64, n)
	evals := 0
	best := 0
	for i := range pop {
		energies[i] = obj.Score(scale(pop[i]))
		evals++
		if energies[i] < energies[best] {
			best = i
		}
	}

	converged := false
	iter := 0
	trial := make([]float64, model.Dims)
	for iter < p.MaxIterations {
		iter++
		f := p.MutationMin + rng.Float64()*(p.MutationMax-p.MutationMin)
		for i := range pop {
			p.mutate(rng, trial, pop, best, i, f)
			e := obj.Score(scale(trial))
			evals++
			if e <= energies[i] {
				copy(pop[i], trial)
				energies[i] = e
				if e < energies[best] {
					best = i
				}
			}
		}

		mean, std := stat.PopMeanStdDev(energies, nil)
		p.Logger.Debug("differential evolution generation",
			"generation", iter,
			"best", scale(pop[best]).String(),
			"best_score", energies[best],
			"mean", mean,
			"std", std,
		)
		if std <= p.Atol+p.Tol*math.Abs(mean) {
			converged = true
			break
		}
	}

	cont := scale(pop[best])
	chosen, extra := roundFeasible(obj, cont, lower, upper)
	res, err := finish(s.Name(), obj, chosen, evals+extra, started)
	if err != nil {
		return nil, fmt.Errorf("re-evaluate rounded configuration: %w", err)
	}
	res.Iterations = iter
	res.Converged = converged
	res.Continuous = &cont
	p.Logger.Info("differential evolution finished",
		"generations", iter,
		"converged", converged,
		"evaluations", res.Evaluations,
		"continuous", cont.String(),
		"best", chosen.String(),
		"feasible", res.Feasible,
		"score", res.Score,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// mutate writes a best/1/bin trial vector for member i into trial.
// Components are in the unit cube; any that leave it are resampled uniformly.
func (s DifferentialEvolution) mutate(rng *rand.Rand, trial []float64, pop [][]float64, best, i int, f float64) {
	r0, r1 := pickTwo(rng, len(pop), i)
	copy(trial, pop[i])
	fill := rng.IntN(len(trial))
	for j := range trial {
		if j == fill || rng.Float64() < s.Crossover {
			trial[j] = pop[best][j] + f*(pop[r0][j]-pop[r1][j])
		}
	}
	for j, v := range trial {
		if v < 0 || v > 1 {
			trial[j] = rng.Float64()
		}
	}
}

// pickTwo draws two distinct population indices, both different from skip.
func pickTwo(rng *rand.Rand, n, skip int) (int, int) {
	a := rng.IntN(n - 1)
	if a >= skip {
		a++
	}
	b := rng.IntN(n - 2)
	lo, hi := min(a, skip), max(a, skip)
	if b >= lo {
		b++
	}
	if b >= hi {
		b++
	}
	return a, b
}

// latinHypercube samples n points in the unit cube with exactly one point in
// each of the n equal slices of every dimension.
func latinHypercube(rng *rand.Rand, n, dims int) [][]float64 {
	pop := make([][]float64, n)
	for i := range pop {
		pop[i] = make([]float64, dims)
	}
	seg := 1 / float64(n)
	for j := 0; j < dims; j++ {
		perm := rng.Perm(n)
		for i := range pop {
			pop[i][j] = (float64(perm[i]) + rng.Float64()) * seg
		}
	}
	return pop
}

// roundFeasible rounds the continuous optimum to whole units. When the nearest
// point is infeasible the ceiling is tried as well and the better score wins.
// It returns the chosen configuration and the number of evaluations spent.
func roundFeasible(obj Objective, cont, lower, upper model.Configuration) (model.Configuration, int) {
	nearest := roundWithin(cont, lower, upper, math.Round)
	score := obj.Score(nearest)
	if obj.Feasible(score) {
		return nearest, 1
	}
	ceil := roundWithin(cont, lower, upper, math.Ceil)
	if ceil == nearest {
		return nearest, 1
	}
	if obj.Score(ceil) < score {
		return ceil, 2
	}
	return nearest, 2
}

// roundWithin rounds every count and clamps it to the integers inside the
// bounds, so the result is always a whole-unit point of the space.
func roundWithin(c, lower, upper model.Configuration, round func(float64) float64) model.Configuration {
	x, lo, hi := c.Vector(), lower.Vector(), upper.Vector()
	for j := range x {
		x[j] = math.Min(math.Max(round(x[j]), math.Ceil(lo[j])), math.Floor(hi[j]))
	}
	return model.ConfigurationFromVector(x)
}
