// Package main searches habitat parameters with CMA-ES for configurations
// whose populations survive longest and stay stable and diverse.
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pthm-cable/darwin/config"
)

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	maxSteps := flag.Int("max-steps", 20000, "Step cap per run")
	seeds := flag.Int("seeds", 3, "Runs per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		slog.Error("--output is required")
		os.Exit(1)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logFile, err := os.Create(filepath.Join(*outputDir, "optimize_log.csv"))
	if err != nil {
		slog.Error("failed to create evaluation log", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	params := NewParamVector()
	s := &search{
		params:    params,
		evaluator: NewFitnessEvaluator(params, *maxSteps, evalSeeds, baseCfg),
		log:       &evalLog{w: logFile},
		logger:    logger,
		maxEvals:  *maxEvals,
	}
	best, err := s.run(params.ExtractFromConfig(baseCfg), *population)
	if best == nil {
		slog.Error("optimization failed", "error", err)
		os.Exit(1)
	}
	if err != nil {
		slog.Info("optimization ended", "reason", err)
	}
	slog.Info("optimization complete",
		"evals", s.evals,
		"elapsed", time.Since(s.startTime).Round(time.Second),
		"best_fitness", s.best.Fitness,
		"best_survival", s.best.Survival)

	cfgPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := s.evaluator.Config(best).WriteYAML(cfgPath); err != nil {
		slog.Error("failed to write best config", "error", err)
	} else {
		slog.Info("best config saved", "path", cfgPath)
	}

	if hof := s.evaluator.BestHallOfFame(); hof != nil {
		hofPath := filepath.Join(*outputDir, "hall_of_fame.json")
		if err := hof.Save(hofPath); err != nil {
			slog.Error("failed to save hall of fame", "error", err)
		} else {
			slog.Info("hall of fame saved", "path", hofPath)
		}
	}
}
