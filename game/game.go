// Package game drives a habitat headlessly: it owns the step loop, the
// telemetry destinations and reseeding from the hall of fame.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pthm-cable/darwin/config"
	"github.com/pthm-cable/darwin/habitat"
	"github.com/pthm-cable/darwin/observer"
	"github.com/pthm-cable/darwin/telemetry"
)

// Options configures a Game.
type Options struct {
	Seed        int64         // RNG seed (0 = time-based)
	OutputDir   string        // CSV logs and config snapshot; empty disables
	DBPath      string        // SQLite statistics store; empty disables
	HallPath    string        // hall of fame JSON to start from; empty starts empty
	ObserveAddr string        // websocket observer listen address; empty disables
	Interval    time.Duration // wall time per step; 0 runs as fast as possible
	Track       int           // number of founders whose lifetimes are recorded
	Reseed      int           // animals placed from the hall of fame on extinction
	Logger      *slog.Logger

	// StatsCallback, if set, receives every aggregated window.
	StatsCallback func(telemetry.WindowStats)
}

// Game owns a habitat and everything that observes it.
type Game struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger
	rng    *rand.Rand

	habitat *habitat.Habitat
	step    int

	outputManager *telemetry.OutputManager
	store         *telemetry.Store
	hub           *observer.Hub
	hallOfFame    *telemetry.HallOfFame
	perfCollector *telemetry.PerfCollector
	recorder      *telemetry.Recorder
}

// NewGameWithOptions builds the habitat and opens the telemetry
// destinations. The habitat is populated from cfg.
func NewGameWithOptions(cfg *config.Config, opts Options) (*Game, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = cfg.World.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Game{
		cfg:    cfg,
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewSource(seed)),
	}
	if err := g.setupTelemetry(); err != nil {
		g.Unload()
		return nil, err
	}

	h, err := habitat.New(cfg,
		habitat.WithLogger(logger),
		habitat.WithRand(g.rng),
		habitat.WithSink(g.recorder),
		habitat.WithPerf(g.perfCollector),
	)
	if err != nil {
		g.Unload()
		return nil, fmt.Errorf("creating habitat: %w", err)
	}
	g.habitat = h

	if err := h.Populate(); err != nil {
		g.Unload()
		return nil, fmt.Errorf("populating habitat: %w", err)
	}
	g.trackFounders(opts.Track)

	logger.Info("game created",
		"seed", seed,
		"variant", cfg.World.Variant,
		"width", cfg.World.Width,
		"height", cfg.World.Height,
		"animals", h.AnimalCount(),
		"plants", h.PlantCount(),
	)
	return g, nil
}

// Run steps the habitat until ctx is cancelled, maxSteps steps have run
// (0 = unlimited), or the population dies out with nothing to reseed.
func (g *Game) Run(ctx context.Context, maxSteps int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if g.hub != nil {
		go func() {
			if err := observer.Serve(ctx, g.opts.ObserveAddr, g.hub); err != nil {
				g.logger.Error("observer stopped", "error", err)
			}
		}()
	}

	var tick <-chan time.Time
	if g.opts.Interval > 0 {
		ticker := time.NewTicker(g.opts.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for maxSteps == 0 || g.step < maxSteps {
		if tick != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return nil
		}

		g.Step()
		if err := g.recorder.Err(); err != nil {
			return err
		}
		if g.habitat.AnimalCount() == 0 && !g.reseedFromHallIfNeeded() {
			g.logger.Info("population extinct", "step", g.step)
			return nil
		}
	}
	g.logger.Info("max steps reached", "step", g.step)
	return nil
}

// Step advances the habitat by one step.
func (g *Game) Step() telemetry.StepStats {
	g.step++
	stats := g.habitat.Step(g.step)
	if every := g.cfg.Telemetry.LogEvery; every > 0 && g.step%every == 0 {
		g.perfCollector.Stats().LogStats()
	}
	return stats
}

// Habitat returns the simulated habitat.
func (g *Game) Habitat() *habitat.Habitat {
	return g.habitat
}

// HallOfFame returns the genomes that dominated the run so far.
func (g *Game) HallOfFame() *telemetry.HallOfFame {
	return g.hallOfFame
}

// Tick returns the number of steps run so far.
func (g *Game) Tick() int {
	return g.step
}

// Unload flushes telemetry and closes every destination.
func (g *Game) Unload() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if g.recorder != nil {
		keep(g.recorder.Finish())
	}
	if g.hub != nil {
		g.hub.Close()
	}
	keep(g.store.Close())
	keep(g.outputManager.Close())
	if dropped := g.store.Dropped(); dropped > 0 {
		g.logger.Warn("store dropped rows", "count", dropped)
	}
	return firstErr
}
