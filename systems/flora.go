package systems

import (
	"math"
	"math/rand"
	"slices"

	c "github.com/pthm-cable/darwin/components"
)

// Share of each growth batch placed in the equator band.
const equatorShare = 0.8

// PlantField tracks which tiles hold a plant (at most one per tile).
// Plants grow preferentially in the equator band, a horizontal strip of
// rows [EquatorLo, EquatorHi).
type PlantField struct {
	bounds    Bounds
	equatorLo int
	equatorHi int
	plants    map[c.Position]struct{}
}

// NewPlantField creates an empty field.
func NewPlantField(bounds Bounds, equatorLo, equatorHi int) *PlantField {
	return &PlantField{
		bounds:    bounds,
		equatorLo: equatorLo,
		equatorHi: equatorHi,
		plants:    make(map[c.Position]struct{}),
	}
}

// Has reports whether p holds a plant.
func (pf *PlantField) Has(p c.Position) bool {
	_, ok := pf.plants[p]
	return ok
}

// Add plants p. Returns false if it already held a plant or is off-grid.
func (pf *PlantField) Add(p c.Position) bool {
	if !pf.bounds.Contains(p) || pf.Has(p) {
		return false
	}
	pf.plants[p] = struct{}{}
	return true
}

// Remove clears p. Returns false if there was no plant.
func (pf *PlantField) Remove(p c.Position) bool {
	if !pf.Has(p) {
		return false
	}
	delete(pf.plants, p)
	return true
}

// Count returns the number of plants.
func (pf *PlantField) Count() int {
	return len(pf.plants)
}

// Positions returns all plant tiles in row-major order.
func (pf *PlantField) Positions() []c.Position {
	out := make([]c.Position, 0, len(pf.plants))
	for p := range pf.plants {
		out = append(out, p)
	}
	slices.SortFunc(out, comparePositions)
	return out
}

// InEquator reports whether row y belongs to the equator band.
func (pf *PlantField) InEquator(y int) bool {
	return y >= pf.equatorLo && y < pf.equatorHi
}

// Grow adds up to amount plants on free tiles: 20% (rounded) among free
// tiles outside the equator, 80% (rounded) among free equator tiles.
// A band with fewer free tiles than its share is filled completely.
// Returns the new plant positions.
func (pf *PlantField) Grow(rng *rand.Rand, amount int) []c.Position {
	if amount <= 0 {
		return nil
	}
	var equator, outer []c.Position
	for y := 0; y < pf.bounds.Height; y++ {
		for x := 0; x < pf.bounds.Width; x++ {
			p := c.Pos(x, y)
			if pf.Has(p) {
				continue
			}
			if pf.InEquator(y) {
				equator = append(equator, p)
			} else {
				outer = append(outer, p)
			}
		}
	}

	equatorCount := int(math.Round(float64(amount) * equatorShare))
	outerCount := int(math.Round(float64(amount) * (1 - equatorShare)))

	added := make([]c.Position, 0, amount)
	for _, p := range sample(rng, outer, outerCount) {
		pf.plants[p] = struct{}{}
		added = append(added, p)
	}
	for _, p := range sample(rng, equator, equatorCount) {
		pf.plants[p] = struct{}{}
		added = append(added, p)
	}
	return added
}

// sample picks n distinct elements uniformly with a partial Fisher-Yates
// shuffle. It reorders candidates.
func sample(rng *rand.Rand, candidates []c.Position, n int) []c.Position {
	n = min(n, len(candidates))
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:n]
}

func comparePositions(a, b c.Position) int {
	if a.Less(b) {
		return -1
	}
	if b.Less(a) {
		return 1
	}
	return 0
}

// SortPositions orders positions row-major in place.
func SortPositions(ps []c.Position) {
	slices.SortFunc(ps, comparePositions)
}
