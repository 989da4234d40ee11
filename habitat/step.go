package habitat

import (
	"github.com/mlange-42/ark/ecs"

	c "github.com/pthm-cable/darwin/components"
	"github.com/pthm-cable/darwin/systems"
	"github.com/pthm-cable/darwin/telemetry"
)

// Step runs one tick numbered n: sweep the dead, move, feed, breed, grow,
// then the fire phase on the fire variant. It emits and returns the
// statistics of the resulting state.
func (h *Habitat) Step(n int) telemetry.StepStats {
	h.step = n
	h.births = 0
	h.deaths = 0
	h.emitStepStarted(n)

	h.perf.StartStep()
	h.perf.StartPhase(telemetry.PhaseSweep)
	h.sweep()
	h.perf.StartPhase(telemetry.PhaseMove)
	h.moveAll()
	h.perf.StartPhase(telemetry.PhaseFeed)
	h.feed()
	h.perf.StartPhase(telemetry.PhaseBreed)
	h.breedAll()
	h.perf.StartPhase(telemetry.PhaseGrow)
	h.growPlants(h.cfg.Plants.Grow)
	if h.fire != nil {
		h.perf.StartPhase(telemetry.PhaseFire)
		h.burn(n)
	}

	h.perf.StartPhase(telemetry.PhaseStats)
	stats := h.Stats()
	h.perf.EndStep()
	h.emitStep(stats)
	return stats
}

// sweep takes dead animals off the grid and folds their ages into the
// lifetime statistic.
func (h *Habitat) sweep() {
	for _, pos := range h.occupiedTiles() {
		list := h.occupancy[pos]
		alive := make([]ecs.Entity, 0, len(list))
		for _, e := range list {
			v := h.vitalsMap.Get(e)
			if !v.Dead() {
				alive = append(alive, e)
				continue
			}
			h.retire(v)
			h.release(e)
		}
		if len(alive) == len(list) {
			continue
		}
		if len(alive) == 0 {
			delete(h.occupancy, pos)
		} else {
			h.occupancy[pos] = alive
		}
		h.markTile(pos)
	}
	h.flushTiles()
}

// retire counts a dead animal that leaves the grid.
func (h *Habitat) retire(v *c.Vitals) {
	h.deadCount++
	h.lifetime += v.Age
}

// moveAll moves every animal once and rebuilds the occupancy index. Tiles
// are visited in row-major order, animals on a tile in insertion order.
func (h *Habitat) moveAll() {
	next := make(map[c.Position][]ecs.Entity, len(h.occupancy))
	for _, pos := range h.occupiedTiles() {
		for _, e := range h.occupancy[pos] {
			to, err := h.move(e)
			if err != nil {
				// Genome-less animals cannot move
				to = pos
			}
			if to != pos {
				h.markTile(pos)
				h.markTile(to)
			}
			next[to] = append(next[to], e)
		}
	}
	h.occupancy = next
	h.flushTiles()
}

// feed lets the strongest living animal on each plant tile eat the plant.
// Ties go to the animal listed first.
func (h *Habitat) feed() {
	yield := max(h.cfg.Plants.Energy, 0)
	for _, pos := range h.plants.Positions() {
		var best ecs.Entity
		bestEnergy, found := 0, false
		for _, e := range h.occupancy[pos] {
			v := h.vitalsMap.Get(e)
			if v.Dead() {
				continue
			}
			if !found || v.Energy > bestEnergy {
				best, bestEnergy, found = e, v.Energy, true
			}
		}
		if !found {
			continue
		}
		h.eat(best, yield)
		h.removePlant(pos)
	}
}

// breedAll lets the top two animals of every tile breed when both hold the
// minimum breeding energy. The child stays on the tile.
func (h *Habitat) breedAll() {
	minEnergy := h.cfg.Breeding.MinEnergy
	for _, pos := range h.occupiedTiles() {
		list := h.occupancy[pos]
		if len(list) < 2 {
			continue
		}
		first, second, ok := h.topPair(list)
		if !ok {
			continue
		}
		if h.vitalsMap.Get(first).Energy < minEnergy || h.vitalsMap.Get(second).Energy < minEnergy {
			continue
		}
		if _, err := h.breed(first, second); err != nil {
			h.logger.Debug("breeding skipped", "tile", pos, "err", err)
		}
	}
	h.flushTiles()
}

// burn runs the fire phase: propagate, then ignite a random plant on the
// configured cadence.
func (h *Habitat) burn(step int) {
	ignited := h.fire.Propagate(systems.FireHooks{
		HasPlant: h.plants.Has,
		Burn:     h.burnTile,
		Changed:  h.emitFire,
	})
	if len(ignited) > 0 {
		h.logger.Debug("fire spread", "step", step, "tiles", len(ignited))
	}

	if h.fire.Due(step) {
		if pos, ok := h.fire.IgniteRandom(h.rng, h.plants.Positions()); ok {
			h.emitFire(pos, h.fire.Duration())
			h.logger.Debug("fire ignited", "step", step, "tile", pos)
		}
	}
	h.flushTiles()
}

// burnTile destroys the plant and every animal on a burning tile. Animals
// are killed, counted as dead and taken off the grid at once.
func (h *Habitat) burnTile(pos c.Position) {
	h.removePlant(pos)

	list, ok := h.occupancy[pos]
	if !ok {
		return
	}
	delete(h.occupancy, pos)
	h.markTile(pos)
	for _, e := range list {
		h.kill(e)
		h.retire(h.vitalsMap.Get(e))
		h.release(e)
	}
}
