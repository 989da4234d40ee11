package telemetry

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
)

// HallEntry records a genome that was at some point the most popular one.
type HallEntry struct {
	Genome    string `json:"genome"`
	PeakCount int    `json:"peak_count"` // largest number of carriers seen
	FirstStep int    `json:"first_step"` // first step it led the population
	LastStep  int    `json:"last_step"`
	Steps     int    `json:"steps"` // steps spent as the most popular genome
}

// HallOfFame stores the dominant genomes of a run, ranked by peak carrier
// count, for reseeding when the population dies out.
type HallOfFame struct {
	hall    []HallEntry
	maxSize int
	rng     *rand.Rand
}

// NewHallOfFame creates a new hall of fame with the given capacity.
func NewHallOfFame(maxSize int, rng *rand.Rand) *HallOfFame {
	if maxSize < 1 {
		maxSize = 1
	}
	return &HallOfFame{
		hall:    make([]HallEntry, 0, maxSize),
		maxSize: maxSize,
		rng:     rng,
	}
}

// Consider evaluates the popular genome of a step snapshot.
// Returns true if the genome is in the hall afterwards.
func (hof *HallOfFame) Consider(stats StepStats) bool {
	if stats.PopularGenome == "" || stats.PopularCount < 2 {
		return false
	}

	for i := range hof.hall {
		e := &hof.hall[i]
		if e.Genome != stats.PopularGenome {
			continue
		}
		e.LastStep = stats.Step
		e.Steps++
		if stats.PopularCount > e.PeakCount {
			e.PeakCount = stats.PopularCount
			entry := *e
			hof.hall = append(hof.hall[:i], hof.hall[i+1:]...)
			hof.hall = hof.insertEntry(hof.hall, entry)
		}
		return true
	}

	entry := HallEntry{
		Genome:    stats.PopularGenome,
		PeakCount: stats.PopularCount,
		FirstStep: stats.Step,
		LastStep:  stats.Step,
		Steps:     1,
	}
	hof.hall = hof.insertEntry(hof.hall, entry)
	return hof.contains(entry.Genome)
}

func (hof *HallOfFame) contains(genome string) bool {
	for _, e := range hof.hall {
		if e.Genome == genome {
			return true
		}
	}
	return false
}

// insertEntry adds an entry to the hall, maintaining sorted order by peak count.
// If the hall is full, the lowest entry is removed.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	// Find insertion point (sorted descending by peak)
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].PeakCount < entry.PeakCount
	})

	// If hall is full and entry would be last (lowest), skip it
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall
}

// Sample selects a genome from the hall using tournament selection.
// Returns "" if the hall is empty.
func (hof *HallOfFame) Sample() string {
	if len(hof.hall) == 0 {
		return ""
	}

	// Tournament selection with k=3
	const tournamentSize = 3
	best := -1
	for i := 0; i < tournamentSize; i++ {
		idx := hof.rng.Intn(len(hof.hall))
		if best < 0 || hof.hall[idx].PeakCount > hof.hall[best].PeakCount {
			best = idx
		}
	}
	return hof.hall[best].Genome
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.hall)
}

// Entries returns a copy of the hall, best first.
func (hof *HallOfFame) Entries() []HallEntry {
	return append([]HallEntry(nil), hof.hall...)
}

// MarshalJSON serializes the hall of fame to JSON.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(hof.hall, "", "  ")
}

// Save writes the hall of fame to path as JSON.
func (hof *HallOfFame) Save(path string) error {
	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing hall of fame: %w", err)
	}
	return nil
}

// LoadHallOfFameFromFile reads a hall of fame JSON file.
func LoadHallOfFameFromFile(path string, rng *rand.Rand) (*HallOfFame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hall of fame: %w", err)
	}

	var entries []HallEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing hall of fame JSON: %w", err)
	}

	maxSize := max(len(entries), 30)
	hof := NewHallOfFame(maxSize, rng)
	for _, e := range entries {
		if e.Genome == "" {
			continue
		}
		hof.hall = hof.insertEntry(hof.hall, e)
	}
	return hof, nil
}
