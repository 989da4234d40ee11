package habitat

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/darwin/telemetry"
)

// Stats recomputes the statistics of the current state. Step carries the
// number of the last step run; Births and Deaths count that step's events.
func (h *Habitat) Stats() telemetry.StepStats {
	var energies, descendants []float64
	genomes := make(map[string]int)

	query := h.records.Query()
	for query.Next() {
		genome, vitals, org := query.Get()
		if vitals.Dead() {
			continue
		}
		energies = append(energies, float64(vitals.Energy))
		descendants = append(descendants, float64(org.Descendants))
		genomes[genome.Key()]++
	}

	s := telemetry.StepStats{
		Step:        h.step,
		Animals:     len(energies),
		Plants:      h.plants.Count(),
		EmptyFields: h.EmptyFields(),
		AvgLifetime: h.AverageLifetime(),
		Births:      h.births,
		Deaths:      h.deaths,
	}
	if h.fire != nil {
		s.Burning = h.fire.Count()
	}
	s.PopularGenome, s.PopularCount = popular(genomes)
	if len(descendants) > 0 {
		s.AvgDescendants = stat.Mean(descendants, nil)
	}
	s.EnergyMean, s.EnergyP10, s.EnergyP50, s.EnergyP90 = telemetry.ComputeEnergyStats(energies)
	return s
}

// popular returns the most frequent genome and its count. Ties go to the
// lexicographically smallest genome.
func popular(genomes map[string]int) (string, int) {
	best, count := "", 0
	for key, n := range genomes {
		if n > count || (n == count && key < best) {
			best, count = key, n
		}
	}
	return best, count
}

// AnimalCount returns the number of living animals.
func (h *Habitat) AnimalCount() int {
	n := 0
	for _, list := range h.occupancy {
		for _, e := range list {
			if !h.vitalsMap.Get(e).Dead() {
				n++
			}
		}
	}
	return n
}

// PlantCount returns the number of plants.
func (h *Habitat) PlantCount() int {
	return h.plants.Count()
}

// EmptyFields returns the number of tiles holding neither an animal nor a
// plant. Animals that died this step still occupy their tile until swept.
func (h *Habitat) EmptyFields() int {
	used := len(h.occupancy)
	for _, p := range h.plants.Positions() {
		if _, ok := h.occupancy[p]; !ok {
			used++
		}
	}
	return h.bounds.Width*h.bounds.Height - used
}

// DeadCount returns the number of animals swept or burned so far.
func (h *Habitat) DeadCount() int {
	return h.deadCount
}

// AverageLifetime returns the mean age at death, or 0 if none died yet.
func (h *Habitat) AverageLifetime() float64 {
	if h.deadCount == 0 {
		return 0
	}
	return float64(h.lifetime) / float64(h.deadCount)
}

// AverageDescendants returns the mean descendant count of living animals,
// or 0 if there are none.
func (h *Habitat) AverageDescendants() float64 {
	return h.Stats().AvgDescendants
}

// PopularGenome returns the most frequent genome among living animals and
// its count.
func (h *Habitat) PopularGenome() (string, int) {
	s := h.Stats()
	return s.PopularGenome, s.PopularCount
}
