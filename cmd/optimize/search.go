package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/darwin/config"
)

// evalRecord is one row of optimize_log.csv. Parameters are read back from
// the applied config, so they show the rounded values the runs used.
type evalRecord struct {
	Eval           int     `csv:"eval"`
	Fitness        float64 `csv:"fitness"`
	Survival       float64 `csv:"survival_steps"`
	Stability      float64 `csv:"stability"`
	Diversity      float64 `csv:"diversity"`
	Energy         float64 `csv:"energy"`
	PlantGrow      int     `csv:"plant_grow"`
	PlantEnergy    int     `csv:"plant_energy"`
	StartEnergy    int     `csv:"start_energy"`
	BreedMinEnergy int     `csv:"breed_min_energy"`
	BreedCost      int     `csv:"breed_cost"`
	MutationMax    int     `csv:"mutation_max"`
}

func newEvalRecord(n int, ev Evaluation, cfg *config.Config) evalRecord {
	return evalRecord{
		Eval:           n,
		Fitness:        ev.Fitness,
		Survival:       ev.Survival,
		Stability:      ev.Quality.Stability,
		Diversity:      ev.Quality.Diversity,
		Energy:         ev.Quality.Energy,
		PlantGrow:      cfg.Plants.Grow,
		PlantEnergy:    cfg.Plants.Energy,
		StartEnergy:    cfg.Animals.Energy,
		BreedMinEnergy: cfg.Breeding.MinEnergy,
		BreedCost:      cfg.Breeding.Cost,
		MutationMax:    cfg.Mutation.Max,
	}
}

// evalLog appends evaluation rows, writing the header with the first one.
type evalLog struct {
	w             io.Writer
	headerWritten bool
}

func (l *evalLog) write(rec evalRecord) error {
	rows := []evalRecord{rec}
	if !l.headerWritten {
		l.headerWritten = true
		return gocsv.Marshal(rows, l.w)
	}
	return gocsv.MarshalWithoutHeaders(rows, l.w)
}

// search drives CMA-ES over the normalized parameter space.
type search struct {
	params    *ParamVector
	evaluator *FitnessEvaluator
	log       *evalLog
	logger    *slog.Logger
	maxEvals  int

	evals     int
	best      Evaluation
	bestRaw   []float64
	startTime time.Time
}

// objective evaluates a normalized point, records it and returns its fitness.
func (s *search) objective(x []float64) float64 {
	raw := s.params.Clamp(s.params.Denormalize(x))
	ev := s.evaluator.Evaluate(raw)
	s.evals++

	if s.bestRaw == nil || ev.Fitness < s.best.Fitness {
		s.best = ev
		s.bestRaw = append([]float64(nil), raw...)
	}
	if err := s.log.write(newEvalRecord(s.evals, ev, s.evaluator.Config(raw))); err != nil {
		s.logger.Warn("failed to log evaluation", "eval", s.evals, "error", err)
	}

	elapsed := time.Since(s.startTime)
	eta := time.Duration(s.maxEvals-s.evals) * (elapsed / time.Duration(s.evals))
	s.logger.Info("evaluation",
		"eval", s.evals,
		"survival", math.Round(ev.Survival),
		"stability", ev.Quality.Stability,
		"diversity", ev.Quality.Diversity,
		"energy", ev.Quality.Energy,
		"fitness", ev.Fitness,
		"best_fitness", s.best.Fitness,
		"elapsed", elapsed.Round(time.Second),
		"eta", eta.Round(time.Second),
	)
	return ev.Fitness
}

// run minimizes from init and returns the best raw parameters seen.
func (s *search) run(init []float64, population int) ([]float64, error) {
	if population == 0 {
		population = 4 + int(3*math.Log(float64(s.params.Dim())))
	}
	s.startTime = time.Now()
	s.logger.Info("starting CMA-ES",
		"params", s.params.Dim(), "population", population, "max_evals", s.maxEvals)

	result, err := optimize.Minimize(
		optimize.Problem{Func: s.objective},
		s.params.Normalize(s.params.Clamp(init)),
		&optimize.Settings{FuncEvaluations: s.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: population},
	)
	if s.bestRaw == nil {
		if result == nil {
			return nil, fmt.Errorf("no evaluations completed: %w", err)
		}
		s.bestRaw = s.params.Clamp(s.params.Denormalize(result.X))
	}
	return s.bestRaw, err
}
