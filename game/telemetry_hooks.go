package game

import (
	"context"
	"fmt"

	"github.com/pthm-cable/darwin/observer"
	"github.com/pthm-cable/darwin/telemetry"
)

// hallOfFameSize bounds the number of genomes remembered for reseeding.
const hallOfFameSize = 20

// setupTelemetry opens the destinations named in the options and builds the
// recorder that fans habitat events out to them.
func (g *Game) setupTelemetry() error {
	tcfg := g.cfg.Telemetry

	om, err := telemetry.NewOutputManager(g.opts.OutputDir, tcfg.Compress)
	if err != nil {
		return fmt.Errorf("creating output manager: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(g.cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}
	if om != nil {
		g.logger.Info("output directory", "path", om.Dir())
	}

	if g.opts.DBPath != "" {
		store, err := telemetry.OpenStore(g.opts.DBPath, g.logger)
		if err != nil {
			return err
		}
		g.store = store
		runID, err := store.BeginRun(context.Background(), g.cfg)
		if err != nil {
			return err
		}
		g.logger.Info("stats store", "path", g.opts.DBPath, "run", runID)
	}

	if g.opts.ObserveAddr != "" {
		g.hub = observer.NewHub(g.logger)
	}

	if g.opts.HallPath != "" {
		hall, err := telemetry.LoadHallOfFameFromFile(g.opts.HallPath, g.rng)
		if err != nil {
			return fmt.Errorf("loading hall of fame: %w", err)
		}
		g.hallOfFame = hall
		g.logger.Info("hall of fame loaded", "path", g.opts.HallPath, "entries", hall.Size())
	} else {
		g.hallOfFame = telemetry.NewHallOfFame(hallOfFameSize, g.rng)
	}

	g.perfCollector = telemetry.NewPerfCollector(tcfg.Window)

	rec := telemetry.NewRecorder(tcfg.Window, g.hallOfFame)
	rec.Output = om
	rec.Store = g.store
	if g.hub != nil {
		rec.Publisher = g.hub
	}
	rec.Perf = g.perfCollector
	rec.Logger = g.logger
	rec.LogEvery = tcfg.LogEvery
	rec.OnWindow = g.opts.StatsCallback
	g.recorder = rec
	return nil
}

// trackFounders subscribes lifetime tracking to the first n founders.
func (g *Game) trackFounders(n int) {
	ids := g.habitat.Animals()
	if n > len(ids) {
		n = len(ids)
	}
	for _, id := range ids[:n] {
		if err := g.habitat.Track(id); err != nil {
			g.logger.Warn("tracking founder failed", "id", id, "error", err)
		}
	}
	if n > 0 {
		g.logger.Debug("tracking founders", "count", n)
	}
}
