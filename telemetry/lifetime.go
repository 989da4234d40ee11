package telemetry

import c "github.com/pthm-cable/darwin/components"

// LifetimeStats tracks per-animal statistics over its lifetime.
type LifetimeStats struct {
	ID     uint32 `csv:"id" json:"id"`
	Genome string `csv:"genome" json:"genome"`
	BornAt int    `csv:"born_at" json:"born_at"`
	DiedAt int    `csv:"died_at" json:"died_at"`
	Age    int    `csv:"age" json:"age"`

	Moves int `csv:"moves" json:"moves"` // moves that changed the tile

	// Reproduction
	Children    int `csv:"children" json:"children"`
	Descendants int `csv:"descendants" json:"descendants"`

	// Energy
	PeakEnergy int `csv:"peak_energy" json:"peak_energy"`
	Eaten      int `csv:"eaten" json:"eaten"`
}

// LifetimeTracker manages lifetime statistics of tracked animals.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Observe folds a state update into the animal's record, creating it on
// first sight. When the state reports death the record is removed and
// returned; otherwise Observe returns nil.
func (lt *LifetimeTracker) Observe(s AnimalState) *LifetimeStats {
	rec := lt.stats[s.ID]
	if rec == nil {
		rec = &LifetimeStats{ID: s.ID, Genome: s.Genome, BornAt: s.BornAt}
		lt.stats[s.ID] = rec
	}
	rec.Age = s.Age
	rec.Children = s.Children
	rec.Descendants = s.Descendants
	rec.Eaten = s.Eaten
	rec.PeakEnergy = max(rec.PeakEnergy, s.Energy)

	if !s.Dead() {
		return nil
	}
	rec.DiedAt = s.DiedAt
	return lt.Remove(s.ID)
}

// RecordMove counts a tile change of a tracked animal.
func (lt *LifetimeTracker) RecordMove(id uint32, from, to c.Position) {
	if s := lt.stats[id]; s != nil && from != to {
		s.Moves++
	}
}

// Get returns the lifetime stats for an animal, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes an animal's stats and returns them.
func (lt *LifetimeTracker) Remove(id uint32) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// Count returns the number of tracked animals.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
