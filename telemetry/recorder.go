package telemetry

import (
	"log/slog"

	c "github.com/pthm-cable/darwin/components"
)

// Recorder turns habitat events into statistics output: per-step CSV rows,
// windowed aggregates, bookmarks, the hall of fame, lifetimes of tracked
// animals, store rows and observer events. Every destination is optional.
//
// Recorder implements the habitat event sink; it must be driven from the
// goroutine that steps the habitat.
type Recorder struct {
	Output    *OutputManager
	Store     *Store
	Publisher Publisher
	Perf      *PerfCollector
	Logger    *slog.Logger

	// LogEvery logs a stats line every that many steps; 0 disables it.
	LogEvery int

	// OnWindow, if set, receives every flushed window.
	OnWindow func(WindowStats)

	collector *Collector
	bookmarks *BookmarkDetector
	hall      *HallOfFame
	lifetimes *LifetimeTracker

	step int
	err  error
}

// NewRecorder creates a recorder aggregating over window steps. hall may
// be nil.
func NewRecorder(window int, hall *HallOfFame) *Recorder {
	return &Recorder{
		Logger:    slog.Default(),
		collector: NewCollector(window),
		bookmarks: NewBookmarkDetector(10),
		hall:      hall,
		lifetimes: NewLifetimeTracker(),
	}
}

// Err returns the first output error encountered.
func (r *Recorder) Err() error {
	return r.err
}

func (r *Recorder) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
		r.Logger.Error("telemetry output failed", "error", err)
	}
}

func (r *Recorder) publish(e Event) {
	if r.Publisher != nil {
		r.Publisher.Publish(e)
	}
}

// StepStarted stamps the events of step n with its number.
func (r *Recorder) StepStarted(n int) {
	r.step = n
}

// TileChanged is ignored; tile counts are only of interest to renderers.
func (r *Recorder) TileChanged(c.Position, int, int) {}

// PlantAdded is ignored; plant totals arrive with the step stats.
func (r *Recorder) PlantAdded(c.Position) {}

// PlantRemoved is ignored; plant totals arrive with the step stats.
func (r *Recorder) PlantRemoved(c.Position) {}

// FireChanged forwards burn counters to the observer.
func (r *Recorder) FireChanged(pos c.Position, remaining int) {
	r.publish(NewFireEvent(r.step, pos, remaining))
}

// AnimalChanged updates the lifetime record of a tracked animal and writes
// it out once the animal dies.
func (r *Recorder) AnimalChanged(s AnimalState) {
	r.publish(NewAnimalEvent(r.step, s))
	if done := r.lifetimes.Observe(s); done != nil {
		r.keep(r.Output.WriteLifetime(*done))
	}
}

// AnimalMoved counts tile changes of tracked animals.
func (r *Recorder) AnimalMoved(id uint32, from, to c.Position) {
	r.lifetimes.RecordMove(id, from, to)
}

// StepCompleted writes the step and, at window boundaries, the aggregate.
func (r *Recorder) StepCompleted(s StepStats) {
	r.step = s.Step
	r.keep(r.Output.WriteStep(s))
	r.Store.RecordStep(s)
	r.publish(NewStepEvent(s))
	if r.hall != nil {
		r.hall.Consider(s)
	}
	if r.LogEvery > 0 && s.Step%r.LogEvery == 0 {
		s.LogStats()
	}

	r.collector.Add(s)
	if r.collector.ShouldFlush(s.Step) {
		r.flush()
	}
}

// Finish flushes a partial window and writes the hall of fame.
func (r *Recorder) Finish() error {
	if r.collector.Pending() {
		r.flush()
	}
	r.keep(r.Output.WriteHallOfFame(r.hall))
	return r.err
}

func (r *Recorder) flush() {
	w := r.collector.Flush()
	r.keep(r.Output.WriteWindow(w))
	r.Store.RecordWindow(w)
	r.publish(NewWindowEvent(w))
	if r.OnWindow != nil {
		r.OnWindow(w)
	}

	if r.Perf != nil {
		r.keep(r.Output.WritePerf(r.Perf.Stats(), w.WindowEnd))
	}

	for _, b := range r.bookmarks.Check(w) {
		b.LogBookmark()
		r.keep(r.Output.WriteBookmark(b))
		r.Store.RecordBookmark(b)
		r.publish(NewBookmarkEvent(b))
	}
}

// Lifetimes returns the tracker of live tracked animals.
func (r *Recorder) Lifetimes() *LifetimeTracker {
	return r.lifetimes
}
