// Package telemetry provides step statistics, windowed aggregation, CSV and
// SQLite output, and the event envelopes published to observers.
package telemetry

import c "github.com/pthm-cable/darwin/components"

// EventType identifies telemetry events.
type EventType string

const (
	EventStep     EventType = "step"
	EventWindow   EventType = "window"
	EventAnimal   EventType = "animal"
	EventFire     EventType = "fire"
	EventBookmark EventType = "bookmark"
)

// Event is the envelope published to observers. Exactly one of the payload
// fields is set, matching Type.
type Event struct {
	Type EventType `json:"type"`
	Step int       `json:"step"`

	Stats    *StepStats   `json:"stats,omitempty"`
	Window   *WindowStats `json:"window,omitempty"`
	Animal   *AnimalState `json:"animal,omitempty"`
	Fire     *FireState   `json:"fire,omitempty"`
	Bookmark *Bookmark    `json:"bookmark,omitempty"`
}

// FireState reports the remaining burn passes of a tile; 0 means extinguished.
type FireState struct {
	X         int `json:"x"`
	Y         int `json:"y"`
	Remaining int `json:"remaining"`
}

// Publisher receives events. Implementations must not block the caller.
type Publisher interface {
	Publish(Event)
}

// NewStepEvent wraps a step snapshot.
func NewStepEvent(s StepStats) Event {
	return Event{Type: EventStep, Step: s.Step, Stats: &s}
}

// NewWindowEvent wraps an aggregated window.
func NewWindowEvent(w WindowStats) Event {
	return Event{Type: EventWindow, Step: w.WindowEnd, Window: &w}
}

// NewAnimalEvent wraps the state of a tracked animal.
func NewAnimalEvent(step int, s AnimalState) Event {
	return Event{Type: EventAnimal, Step: step, Animal: &s}
}

// NewFireEvent reports a burn counter change on a tile.
func NewFireEvent(step int, pos c.Position, remaining int) Event {
	return Event{Type: EventFire, Step: step, Fire: &FireState{X: pos.X, Y: pos.Y, Remaining: remaining}}
}

// NewBookmarkEvent wraps a detected bookmark.
func NewBookmarkEvent(b Bookmark) Event {
	return Event{Type: EventBookmark, Step: b.Step, Bookmark: &b}
}
