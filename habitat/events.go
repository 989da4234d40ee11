package habitat

import (
	"fmt"

	c "github.com/pthm-cable/darwin/components"
	"github.com/pthm-cable/darwin/systems"
	"github.com/pthm-cable/darwin/telemetry"
)

// Sink receives habitat events. Calls happen synchronously on the stepping
// goroutine and carry copies; implementations that hand data to other
// goroutines must not block.
type Sink interface {
	// StepStarted announces step n before any of its events.
	StepStarted(n int)
	// TileChanged reports a tile's new animal count (zero when emptied) and
	// the current maximum count over all tiles.
	TileChanged(pos c.Position, count, maxCount int)
	PlantAdded(pos c.Position)
	PlantRemoved(pos c.Position)
	// FireChanged reports a tile's remaining burn duration; 0 means extinguished.
	FireChanged(pos c.Position, remaining int)
	// AnimalChanged reports the state of a tracked animal after it changed.
	AnimalChanged(state telemetry.AnimalState)
	// AnimalMoved reports a tracked animal changing tiles.
	AnimalMoved(id uint32, from, to c.Position)
	StepCompleted(stats telemetry.StepStats)
}

// NopSink ignores every event. Embed it to implement a subset of Sink.
type NopSink struct{}

func (NopSink) StepStarted(int)                            {}
func (NopSink) TileChanged(c.Position, int, int)           {}
func (NopSink) PlantAdded(c.Position)                      {}
func (NopSink) PlantRemoved(c.Position)                    {}
func (NopSink) FireChanged(c.Position, int)                {}
func (NopSink) AnimalChanged(telemetry.AnimalState)        {}
func (NopSink) AnimalMoved(uint32, c.Position, c.Position) {}
func (NopSink) StepCompleted(telemetry.StepStats)          {}

// AddSink registers s for all subsequent events.
func (h *Habitat) AddSink(s Sink) {
	h.sinks = append(h.sinks, s)
}

// RemoveSink unregisters s. Sinks are compared by identity.
func (h *Habitat) RemoveSink(s Sink) {
	for i, existing := range h.sinks {
		if existing == s {
			h.sinks = append(h.sinks[:i], h.sinks[i+1:]...)
			return
		}
	}
}

// Track subscribes sinks to the property stream of one animal.
func (h *Habitat) Track(id uint32) error {
	if _, ok := h.entity(id); !ok {
		return fmt.Errorf("track animal %d: %w", id, ErrInvalidArgument)
	}
	h.tracked[id] = struct{}{}
	return nil
}

// Untrack ends the property stream of one animal.
func (h *Habitat) Untrack(id uint32) {
	delete(h.tracked, id)
}

// markTile queues a TileChanged event for the next flush.
func (h *Habitat) markTile(pos c.Position) {
	if len(h.sinks) == 0 {
		return
	}
	h.dirty[pos] = struct{}{}
}

// flushTiles emits TileChanged for every tile marked since the last flush,
// in row-major order.
func (h *Habitat) flushTiles() {
	if len(h.dirty) == 0 {
		return
	}
	tiles := make([]c.Position, 0, len(h.dirty))
	for p := range h.dirty {
		tiles = append(tiles, p)
	}
	clear(h.dirty)
	systems.SortPositions(tiles)

	maxCount := h.MaxOccupancy()
	for _, p := range tiles {
		count := len(h.occupancy[p])
		for _, s := range h.sinks {
			s.TileChanged(p, count, maxCount)
		}
	}
}

func (h *Habitat) emitPlant(pos c.Position, added bool) {
	for _, s := range h.sinks {
		if added {
			s.PlantAdded(pos)
		} else {
			s.PlantRemoved(pos)
		}
	}
}

func (h *Habitat) emitFire(pos c.Position, remaining int) {
	for _, s := range h.sinks {
		s.FireChanged(pos, remaining)
	}
}

func (h *Habitat) emitStepStarted(n int) {
	for _, s := range h.sinks {
		s.StepStarted(n)
	}
}

func (h *Habitat) emitStep(stats telemetry.StepStats) {
	for _, s := range h.sinks {
		s.StepCompleted(stats)
	}
}

func (h *Habitat) isTracked(id uint32) bool {
	if len(h.sinks) == 0 || len(h.tracked) == 0 {
		return false
	}
	_, ok := h.tracked[id]
	return ok
}
