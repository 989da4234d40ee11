package main

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/darwin/config"
	"github.com/pthm-cable/darwin/game"
	"github.com/pthm-cable/darwin/telemetry"
)

// Quality scores a run's windows. Each component lies in [0, 1].
type Quality struct {
	Stability float64 // exp(-cv²) of the windowed mean population
	Diversity float64 // share of animals not carrying the most popular genome
	Energy    float64 // closeness of median energy to breeding.min_energy
}

// Quality component weights.
const (
	qualityWeightStability = 0.40
	qualityWeightDiversity = 0.30
	qualityWeightEnergy    = 0.30

	qualityWarmupWindows = 3 // skip first N windows (warmup)
	qualityMinPop        = 3 // exclude windows with fewer animals
)

// Score combines the components into one value in [0, 1].
func (q Quality) Score() float64 {
	return clamp01(qualityWeightStability*q.Stability +
		qualityWeightDiversity*q.Diversity +
		qualityWeightEnergy*q.Energy)
}

// Evaluation is the outcome of one parameter vector averaged over seeds.
type Evaluation struct {
	Fitness  float64 // lower is better
	Survival float64 // mean steps survived
	Quality  Quality
}

// FitnessEvaluator runs headless games for every seed and scores them.
type FitnessEvaluator struct {
	params     *ParamVector
	maxSteps   int
	seeds      []int64
	baseConfig *config.Config
	logger     *slog.Logger

	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxSteps int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxSteps:    maxSteps,
		seeds:       seeds,
		baseConfig:  baseCfg,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame of the best seed of the best
// evaluation so far.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// Config returns the base config with x applied.
func (fe *FitnessEvaluator) Config(x []float64) *config.Config {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)
	return cfg
}

// run is one game played to extinction or maxSteps.
type run struct {
	survival int
	quality  Quality
	hall     *telemetry.HallOfFame
}

// Evaluate plays every seed in parallel and averages the results.
func (fe *FitnessEvaluator) Evaluate(x []float64) Evaluation {
	cfg := fe.Config(x)
	runs := make([]run, len(fe.seeds))

	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runs[i] = fe.play(cfg.Clone(), seed)
		}()
	}
	wg.Wait()

	var ev Evaluation
	bestSeed := math.Inf(1)
	var bestHall *telemetry.HallOfFame
	for _, r := range runs {
		f := computeFitness(r.survival, r.quality.Score())
		ev.Fitness += f
		ev.Survival += float64(r.survival)
		ev.Quality.Stability += r.quality.Stability
		ev.Quality.Diversity += r.quality.Diversity
		ev.Quality.Energy += r.quality.Energy
		if f < bestSeed {
			bestSeed, bestHall = f, r.hall
		}
	}
	n := float64(len(runs))
	ev.Fitness /= n
	ev.Survival /= n
	ev.Quality.Stability /= n
	ev.Quality.Diversity /= n
	ev.Quality.Energy /= n

	fe.mu.Lock()
	if ev.Fitness < fe.bestFitness {
		fe.bestFitness = ev.Fitness
		fe.bestHallOfFame = bestHall
	}
	fe.mu.Unlock()
	return ev
}

// play runs one seeded game and collects its windows.
func (fe *FitnessEvaluator) play(cfg *config.Config, seed int64) run {
	if err := cfg.Validate(); err != nil {
		// Infeasible point: treat as immediate extinction.
		return run{}
	}

	var windows []telemetry.WindowStats
	g, err := game.NewGameWithOptions(cfg, game.Options{
		Seed:   seed,
		Logger: fe.logger,
		StatsCallback: func(w telemetry.WindowStats) {
			windows = append(windows, w)
		},
	})
	if err != nil {
		return run{}
	}
	_ = g.Run(context.Background(), fe.maxSteps)
	_ = g.Unload()

	return run{
		survival: g.Tick(),
		quality:  computeQuality(windows, cfg.Breeding.MinEnergy),
		hall:     g.HallOfFame(),
	}
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalSteps × (1.0 + 0.2 × quality))
// Survival dominates; quality adds up to 20% bonus.
func computeFitness(survivalSteps int, quality float64) float64 {
	return -(float64(survivalSteps) * (1.0 + 0.2*quality))
}

// computeQuality scores the windows past warmup that hold enough animals.
// Median energy is compared against the breeding threshold breedMin, where
// animals both survive and reproduce.
func computeQuality(windows []telemetry.WindowStats, breedMin int) Quality {
	if len(windows) <= qualityWarmupWindows {
		return Quality{}
	}
	target := float64(max(breedMin, 1))

	var counts, diversity, energy []float64
	for _, w := range windows[qualityWarmupWindows:] {
		if w.Animals < qualityMinPop {
			continue
		}
		counts = append(counts, w.AnimalsMean)
		diversity = append(diversity, 1-float64(w.PopularCount)/float64(w.Animals))
		energy = append(energy, math.Exp(-math.Pow((w.EnergyP50-target)/target, 2)))
	}
	if len(counts) == 0 {
		return Quality{}
	}

	q := Quality{
		Diversity: stat.Mean(diversity, nil),
		Energy:    stat.Mean(energy, nil),
	}
	if len(counts) >= 2 {
		mean, std := stat.MeanStdDev(counts, nil)
		if mean > 0 {
			cv := std / mean
			q.Stability = math.Exp(-cv * cv)
		}
	}
	return q
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
