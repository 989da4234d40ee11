package game

import (
	c "github.com/pthm-cable/darwin/components"
	"github.com/pthm-cable/darwin/systems"
)

// reseedFromHallIfNeeded repopulates an extinct habitat with genomes sampled
// from the hall of fame. It reports whether any animal was placed.
func (g *Game) reseedFromHallIfNeeded() bool {
	if g.opts.Reseed <= 0 || g.hallOfFame.Size() == 0 {
		return false
	}

	cfg := g.cfg
	placed := 0
	for i := 0; i < g.opts.Reseed; i++ {
		genes, err := c.ParseGenome(g.hallOfFame.Sample())
		if err != nil {
			g.logger.Warn("hall of fame genome rejected", "error", err)
			continue
		}
		genome := c.Genome{Genes: genes, Current: systems.RandomPointer(g.rng, len(genes))}
		pos := c.Pos(g.rng.Intn(cfg.World.Width), g.rng.Intn(cfg.World.Height))
		if _, err := g.habitat.PlaceAnimal(pos, systems.RandomDirection(g.rng), genome, cfg.Animals.Energy); err != nil {
			g.logger.Warn("reseed placement failed", "pos", pos, "error", err)
			continue
		}
		placed++
	}

	if placed > 0 {
		g.logger.Info("hall_of_fame_reseed",
			"step", g.step,
			"reseeded_count", placed,
			"hall_size", g.hallOfFame.Size(),
		)
	}
	return placed > 0
}
