package systems

import (
	c "github.com/pthm-cable/darwin/components"
)

// Boundary resolves an attempted one-tile move into the position and facing
// an animal actually ends up with.
type Boundary interface {
	// Resolve moves from one tile in the direction of facing.
	Resolve(from c.Position, facing c.Direction) (c.Position, c.Direction)
}

// Bounds describes the grid rectangle [0, Width) x [0, Height).
type Bounds struct {
	Width, Height int
}

// Contains reports whether p lies on the grid.
func (b Bounds) Contains(p c.Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}

// Max returns the upper-right tile.
func (b Bounds) Max() c.Position {
	return c.Pos(b.Width-1, b.Height-1)
}

// WrapBoundary is the open-world policy: the horizontal axis wraps around,
// the poles reflect. A move off the top or bottom row leaves the animal in
// place and turns it around.
type WrapBoundary struct {
	Bounds Bounds
}

// Resolve implements Boundary.
func (w WrapBoundary) Resolve(from c.Position, facing c.Direction) (c.Position, c.Direction) {
	next, err := from.Add(facing.Vector()).WrapX(w.Bounds.Width)
	if err != nil {
		// Zero-width grid: nothing can move
		return from, facing
	}
	if next.Y < 0 || next.Y >= w.Bounds.Height {
		return from, facing.Reverse()
	}
	return next, facing
}

// ClampBoundary is the bounded policy: attempted positions are clamped into
// the grid on both axes and the facing never changes.
type ClampBoundary struct {
	Bounds Bounds
}

// Resolve implements Boundary.
func (cb ClampBoundary) Resolve(from c.Position, facing c.Direction) (c.Position, c.Direction) {
	next := from.Add(facing.Vector()).Clamp(c.Position{}, cb.Bounds.Max())
	return next, facing
}
