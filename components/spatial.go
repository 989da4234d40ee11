package components

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is returned when a geometry operation receives a
// malformed input such as a non-positive modulus.
var ErrInvalidArgument = errors.New("invalid argument")

// Position is a grid coordinate. Y grows towards the north.
type Position struct {
	X, Y int
}

// Pos is shorthand for Position{X: x, Y: y}.
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// Add returns p + o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Opposite returns -p.
func (p Position) Opposite() Position {
	return Position{X: -p.X, Y: -p.Y}
}

// Precedes reports whether both components of p are <= those of o.
func (p Position) Precedes(o Position) bool {
	return p.X <= o.X && p.Y <= o.Y
}

// Follows reports whether both components of p are >= those of o.
func (p Position) Follows(o Position) bool {
	return p.X >= o.X && p.Y >= o.Y
}

// LowerLeft returns the componentwise minimum of p and o.
func (p Position) LowerLeft(o Position) Position {
	return Position{X: min(p.X, o.X), Y: min(p.Y, o.Y)}
}

// UpperRight returns the componentwise maximum of p and o.
func (p Position) UpperRight(o Position) Position {
	return Position{X: max(p.X, o.X), Y: max(p.Y, o.Y)}
}

// WrapX folds X into [0, width).
func (p Position) WrapX(width int) (Position, error) {
	if width <= 0 {
		return p, fmt.Errorf("wrap x: modulus %d: %w", width, ErrInvalidArgument)
	}
	return Position{X: mod(p.X, width), Y: p.Y}, nil
}

// WrapY folds Y into [0, height).
func (p Position) WrapY(height int) (Position, error) {
	if height <= 0 {
		return p, fmt.Errorf("wrap y: modulus %d: %w", height, ErrInvalidArgument)
	}
	return Position{X: p.X, Y: mod(p.Y, height)}, nil
}

// Wrap folds both components onto a width x height torus.
func (p Position) Wrap(width, height int) (Position, error) {
	q, err := p.WrapX(width)
	if err != nil {
		return p, err
	}
	return q.WrapY(height)
}

// Clamp limits p to the rectangle spanned by lo and hi (inclusive).
func (p Position) Clamp(lo, hi Position) Position {
	return p.UpperRight(lo).LowerLeft(hi)
}

// Less orders positions row-major: by Y, then by X.
func (p Position) Less(o Position) bool {
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.X < o.X
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func mod(a, m int) int {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

// Direction is one of the eight compass headings in clockwise order.
type Direction uint8

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

// NumDirections is the size of the compass.
const NumDirections = 8

var directionVectors = [NumDirections]Position{
	North:     {0, 1},
	NorthEast: {1, 1},
	East:      {1, 0},
	SouthEast: {1, -1},
	South:     {0, -1},
	SouthWest: {-1, -1},
	West:      {-1, 0},
	NorthWest: {-1, 1},
}

var directionNames = [NumDirections]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Vector returns the unit displacement for d.
func (d Direction) Vector() Position {
	return directionVectors[d%NumDirections]
}

// Rotate turns d by t.
func (d Direction) Rotate(t Turn) Direction {
	return Direction((int(d) + int(t)) % NumDirections)
}

// Reverse returns the opposite heading.
func (d Direction) Reverse() Direction {
	return d.Rotate(Backward)
}

// Valid reports whether d is one of the eight headings.
func (d Direction) Valid() bool {
	return d < NumDirections
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
	return directionNames[d]
}

// Turn is a relative rotation in 45 degree steps clockwise.
type Turn uint8

const (
	Forward Turn = iota
	ForwardRight
	Right
	BackwardRight
	Backward
	BackwardLeft
	Left
	ForwardLeft
)

// NumTurns is the number of distinct turns, one per compass heading.
const NumTurns = 8

// Rune returns the digit used when rendering a genome as text.
func (t Turn) Rune() rune {
	return rune('0' + t%NumTurns)
}
