package telemetry

// Collector accumulates step snapshots within windows and produces WindowStats.
type Collector struct {
	window int

	// Current window tracking
	windowStart int
	last        StepStats
	steps       int

	// Accumulators for current window
	animalsSum  int
	animalsPeak int
	births      int
	deaths      int
	burningPeak int
}

// NewCollector creates a new stats collector that flushes every window steps.
func NewCollector(window int) *Collector {
	if window < 1 {
		window = 1
	}
	return &Collector{window: window}
}

// Add folds one step snapshot into the current window.
func (c *Collector) Add(s StepStats) {
	c.last = s
	c.steps++
	c.animalsSum += s.Animals
	c.animalsPeak = max(c.animalsPeak, s.Animals)
	c.births += s.Births
	c.deaths += s.Deaths
	c.burningPeak = max(c.burningPeak, s.Burning)
}

// ShouldFlush returns true if enough steps have passed to flush the window.
func (c *Collector) ShouldFlush(step int) bool {
	return step-c.windowStart >= c.window
}

// Pending reports whether steps were added since the last flush.
func (c *Collector) Pending() bool {
	return c.steps > 0
}

// Flush produces a WindowStats from the steps added since the last flush
// and resets counters for the next window. Point-in-time fields come from
// the last step added.
func (c *Collector) Flush() WindowStats {
	stats := WindowStats{
		WindowStart: c.windowStart,
		WindowEnd:   c.last.Step,

		Animals:     c.last.Animals,
		Plants:      c.last.Plants,
		AnimalsPeak: c.animalsPeak,

		Births:      c.births,
		Deaths:      c.deaths,
		BurningPeak: c.burningPeak,

		PopularGenome:  c.last.PopularGenome,
		PopularCount:   c.last.PopularCount,
		AvgLifetime:    c.last.AvgLifetime,
		AvgDescendants: c.last.AvgDescendants,

		EnergyMean: c.last.EnergyMean,
		EnergyP50:  c.last.EnergyP50,
	}
	if c.steps > 0 {
		stats.AnimalsMean = float64(c.animalsSum) / float64(c.steps)
	}

	// Reset for next window
	c.windowStart = c.last.Step
	c.steps = 0
	c.animalsSum = 0
	c.animalsPeak = 0
	c.births = 0
	c.deaths = 0
	c.burningPeak = 0

	return stats
}

// Window returns the number of steps per window.
func (c *Collector) Window() int {
	return c.window
}
