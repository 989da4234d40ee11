package telemetry

import (
	c "github.com/pthm-cable/darwin/components"
)

// AnimalState is a copied view of one animal, emitted to observers that
// track it individually.
type AnimalState struct {
	ID     uint32      `json:"id"`
	X      int         `json:"x"`
	Y      int         `json:"y"`
	Facing c.Direction `json:"facing"`

	Energy int    `json:"energy"`
	Age    int    `json:"age"`
	Eaten  int    `json:"eaten"`
	Gene   int    `json:"gene"` // read pointer into Genome
	Genome string `json:"genome"`

	Children    int `json:"children"`
	Descendants int `json:"descendants"`
	BornAt      int `json:"born_at"`
	DiedAt      int `json:"died_at"` // components.NotDead while alive
}

// Position returns the tile the animal stands on.
func (s AnimalState) Position() c.Position {
	return c.Pos(s.X, s.Y)
}

// Dead reports whether the animal has died.
func (s AnimalState) Dead() bool {
	return s.Energy < 0
}
