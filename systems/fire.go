package systems

import (
	"math/rand"

	c "github.com/pthm-cable/darwin/components"
)

var orthogonal = [4]c.Position{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}

// FireHooks connects the fire system to the tile state it destroys.
type FireHooks struct {
	// HasPlant reports whether a tile currently holds a plant.
	HasPlant func(p c.Position) bool
	// Burn destroys the plant and every animal on a burning tile.
	Burn func(p c.Position)
	// Changed reports a tile's remaining burn duration; 0 means extinguished.
	Changed func(p c.Position, remaining int)
}

// FireSystem tracks burning tiles and their remaining duration.
// A tile moves unburnt -> burning(d) -> burning(d-1) -> ... -> extinguished,
// where extinguished means absent from the burning set.
type FireSystem struct {
	bounds   Bounds
	interval int
	duration int
	burning  map[c.Position]int
}

// NewFireSystem creates a fire system that ignites a random plant every
// interval steps and keeps tiles burning for duration propagation passes.
func NewFireSystem(bounds Bounds, interval, duration int) *FireSystem {
	return &FireSystem{
		bounds:   bounds,
		interval: interval,
		duration: duration,
		burning:  make(map[c.Position]int),
	}
}

// Duration returns the burn duration assigned at ignition.
func (fs *FireSystem) Duration() int {
	return fs.duration
}

// Remaining returns the remaining duration of p and whether it is burning.
func (fs *FireSystem) Remaining(p c.Position) (int, bool) {
	d, ok := fs.burning[p]
	return d, ok
}

// Count returns the number of burning tiles.
func (fs *FireSystem) Count() int {
	return len(fs.burning)
}

// Positions returns the burning tiles in row-major order.
func (fs *FireSystem) Positions() []c.Position {
	out := make([]c.Position, 0, len(fs.burning))
	for p := range fs.burning {
		out = append(out, p)
	}
	SortPositions(out)
	return out
}

// Ignite sets p burning at the configured duration.
// Returns false if p is off-grid or already burning.
func (fs *FireSystem) Ignite(p c.Position) bool {
	if !fs.bounds.Contains(p) {
		return false
	}
	if _, ok := fs.burning[p]; ok {
		return false
	}
	fs.burning[p] = fs.duration
	return true
}

// Propagate runs one propagation pass. Each burning tile that holds a plant
// ignites its orthogonal neighbours that are not burning yet; then the tile's
// plant and animals are destroyed and its duration decremented, extinguishing
// it at zero. Ignitions and extinctions are applied after the scan, so fire
// started in this pass does not spread until the next one.
// Returns the newly ignited tiles.
func (fs *FireSystem) Propagate(h FireHooks) []c.Position {
	var ignited, extinguished []c.Position
	scheduled := make(map[c.Position]bool)

	for _, p := range fs.Positions() {
		if h.HasPlant(p) {
			for _, off := range orthogonal {
				n := p.Add(off)
				if !fs.bounds.Contains(n) || scheduled[n] {
					continue
				}
				if _, ok := fs.burning[n]; ok {
					continue
				}
				scheduled[n] = true
				ignited = append(ignited, n)
			}
		}

		h.Burn(p)

		remaining := fs.burning[p] - 1
		if remaining <= 0 {
			extinguished = append(extinguished, p)
			continue
		}
		fs.burning[p] = remaining
		h.Changed(p, remaining)
	}

	for _, p := range extinguished {
		delete(fs.burning, p)
		h.Changed(p, 0)
	}
	for _, p := range ignited {
		fs.burning[p] = fs.duration
		h.Changed(p, fs.duration)
	}
	return ignited
}

// Due reports whether a random ignition happens at this step.
func (fs *FireSystem) Due(step int) bool {
	return fs.interval > 0 && step%fs.interval == 0
}

// IgniteRandom sets a uniformly chosen plant tile burning.
// Returns false if there are no candidates or the chosen tile already burns.
func (fs *FireSystem) IgniteRandom(rng *rand.Rand, plants []c.Position) (c.Position, bool) {
	if len(plants) == 0 {
		return c.Position{}, false
	}
	p := plants[rng.Intn(len(plants))]
	return p, fs.Ignite(p)
}
