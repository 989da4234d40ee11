package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/darwin/config"
	"github.com/pthm-cable/darwin/game"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	dbPath := flag.String("db", "", "SQLite file for per-step statistics (empty = disabled)")
	hallPath := flag.String("hall", "", "Hall of fame JSON to start from")
	observeAddr := flag.String("observe", "", "Listen address for the websocket observer, e.g. 127.0.0.1:8080")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	maxSteps := flag.Int("max-steps", 0, "Stop after N steps (0 = unlimited)")
	interval := flag.Duration("interval", 0, "Wall time per step (0 = as fast as possible)")
	track := flag.Int("track", 0, "Record lifetimes of the first N founders")
	reseed := flag.Int("reseed", 0, "Animals placed from the hall of fame on extinction (0 = stop)")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, err := game.NewGameWithOptions(cfg, game.Options{
		Seed:        *seed,
		OutputDir:   *outputDir,
		DBPath:      *dbPath,
		HallPath:    *hallPath,
		ObserveAddr: *observeAddr,
		Interval:    *interval,
		Track:       *track,
		Reseed:      *reseed,
		Logger:      logger,
	})
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	slog.Info("starting simulation", "max_steps", *maxSteps, "observe", *observeAddr)
	runErr := g.Run(ctx, *maxSteps)
	if err := g.Unload(); err != nil {
		slog.Error("failed to flush telemetry", "error", err)
	}
	if runErr != nil {
		slog.Error("simulation failed", "step", g.Tick(), "error", runErr)
		os.Exit(1)
	}
	slog.Info("simulation finished", "steps", g.Tick(), "elapsed", time.Since(start).Round(time.Millisecond))
}
