package systems

import (
	"math/rand"
	"testing"

	c "github.com/pthm-cable/darwin/components"
)

// fireFixture records hook calls against a plain plant set.
type fireFixture struct {
	plants  map[c.Position]bool
	burned  []c.Position
	changes map[c.Position][]int
}

func newFireFixture(plants ...c.Position) *fireFixture {
	f := &fireFixture{plants: make(map[c.Position]bool), changes: make(map[c.Position][]int)}
	for _, p := range plants {
		f.plants[p] = true
	}
	return f
}

func (f *fireFixture) hooks() FireHooks {
	return FireHooks{
		HasPlant: func(p c.Position) bool { return f.plants[p] },
		Burn: func(p c.Position) {
			delete(f.plants, p)
			f.burned = append(f.burned, p)
		},
		Changed: func(p c.Position, remaining int) {
			f.changes[p] = append(f.changes[p], remaining)
		},
	}
}

func TestPropagateIgnitesNeighboursOfPlantTile(t *testing.T) {
	fs := NewFireSystem(Bounds{Width: 5, Height: 5}, 10, 3)
	f := newFireFixture(c.Pos(2, 2))
	fs.Ignite(c.Pos(2, 2))

	ignited := fs.Propagate(f.hooks())
	if len(ignited) != 4 {
		t.Fatalf("ignited %d neighbours, want 4", len(ignited))
	}
	for _, n := range []c.Position{c.Pos(2, 3), c.Pos(3, 2), c.Pos(2, 1), c.Pos(1, 2)} {
		d, ok := fs.Remaining(n)
		if !ok || d != 3 {
			t.Errorf("neighbour %v: remaining %d burning %v, want 3", n, d, ok)
		}
		if got := f.changes[n]; len(got) != 1 || got[0] != 3 {
			t.Errorf("neighbour %v: changes %v, want exactly one ignition at 3", n, got)
		}
	}
	if f.plants[c.Pos(2, 2)] {
		t.Error("plant on burning tile survived")
	}
	if d, _ := fs.Remaining(c.Pos(2, 2)); d != 2 {
		t.Errorf("origin remaining = %d, want 2", d)
	}
}

func TestPropagateWithoutPlantDoesNotSpread(t *testing.T) {
	fs := NewFireSystem(Bounds{Width: 5, Height: 5}, 10, 2)
	f := newFireFixture()
	fs.Ignite(c.Pos(0, 0))

	if ignited := fs.Propagate(f.hooks()); len(ignited) != 0 {
		t.Errorf("bare tile ignited %v", ignited)
	}
	if len(f.burned) != 1 {
		t.Errorf("burned %v, want the origin only", f.burned)
	}
}

func TestPropagateCornerStaysOnGrid(t *testing.T) {
	fs := NewFireSystem(Bounds{Width: 3, Height: 3}, 10, 2)
	f := newFireFixture(c.Pos(0, 0))
	fs.Ignite(c.Pos(0, 0))

	if ignited := fs.Propagate(f.hooks()); len(ignited) != 2 {
		t.Errorf("corner ignited %v, want 2 neighbours", ignited)
	}
}

func TestSpreadTileExtinguishedDurationPassesAfterIgnitionPass(t *testing.T) {
	const duration = 3
	fs := NewFireSystem(Bounds{Width: 5, Height: 1}, 10, duration)
	f := newFireFixture(c.Pos(0, 0))
	fs.Ignite(c.Pos(0, 0))

	// Pass 1 ignites (1,0) from the plant on (0,0)
	fs.Propagate(f.hooks())
	neighbour := c.Pos(1, 0)
	if _, ok := fs.Remaining(neighbour); !ok {
		t.Fatal("neighbour not ignited in pass 1")
	}

	// The neighbour stays burning for duration more passes, counting the
	// ignition pass that makes duration+1 passes in total
	for pass := 2; pass <= duration+1; pass++ {
		fs.Propagate(f.hooks())
		_, ok := fs.Remaining(neighbour)
		if pass < duration+1 && !ok {
			t.Fatalf("neighbour extinguished early in pass %d", pass)
		}
		if pass == duration+1 && ok {
			t.Fatalf("neighbour still burning after pass %d", pass)
		}
	}

	got := f.changes[neighbour]
	want := []int{3, 2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("changes %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("changes %v, want %v", got, want)
		}
	}
}

func TestDirectIgnitionExtinguishedOnDurationthPass(t *testing.T) {
	const duration = 3
	fs := NewFireSystem(Bounds{Width: 3, Height: 1}, 10, duration)
	f := newFireFixture()
	origin := c.Pos(1, 0)
	fs.Ignite(origin)

	for pass := 1; pass <= duration; pass++ {
		fs.Propagate(f.hooks())
		_, ok := fs.Remaining(origin)
		if pass < duration && !ok {
			t.Fatalf("extinguished early in pass %d", pass)
		}
		if pass == duration && ok {
			t.Fatalf("still burning after pass %d", pass)
		}
	}
	if got := f.changes[origin]; len(got) != duration || got[duration-1] != 0 {
		t.Errorf("changes %v, want countdown ending in 0", got)
	}
}

func TestNewFireDoesNotSpreadSamePass(t *testing.T) {
	fs := NewFireSystem(Bounds{Width: 4, Height: 1}, 10, 5)
	f := newFireFixture(c.Pos(0, 0), c.Pos(1, 0), c.Pos(2, 0))
	fs.Ignite(c.Pos(0, 0))

	fs.Propagate(f.hooks())
	if _, ok := fs.Remaining(c.Pos(2, 0)); ok {
		t.Error("fire jumped two tiles in one pass")
	}
	if !f.plants[c.Pos(1, 0)] {
		t.Error("newly ignited tile burned in its ignition pass")
	}
}

func TestIgniteRandom(t *testing.T) {
	fs := NewFireSystem(Bounds{Width: 5, Height: 5}, 4, 2)
	rng := rand.New(rand.NewSource(5))

	if _, ok := fs.IgniteRandom(rng, nil); ok {
		t.Error("ignited without plants")
	}
	p, ok := fs.IgniteRandom(rng, []c.Position{c.Pos(1, 1)})
	if !ok || p != c.Pos(1, 1) {
		t.Errorf("IgniteRandom = %v, %v", p, ok)
	}
	if !fs.Due(8) || fs.Due(9) || !fs.Due(0) {
		t.Error("Due does not follow the interval")
	}
}
