package habitat

import (
	"errors"
	"math/rand"
	"testing"

	c "github.com/pthm-cable/darwin/components"
	"github.com/pthm-cable/darwin/config"
	"github.com/pthm-cable/darwin/telemetry"
)

// testConfig returns defaults on a small grid without growth.
func testConfig(variant string, width, height int) *config.Config {
	cfg := config.Default()
	cfg.World.Variant = variant
	cfg.World.Width = width
	cfg.World.Height = height
	cfg.World.Seed = 1
	cfg.Plants.Start = 0
	cfg.Plants.Grow = 0
	cfg.Animals.Start = 0
	cfg.Fire.Interval = 1000
	cfg.Fire.Duration = 2
	cfg.ComputeDerived()
	return cfg
}

func newTestHabitat(t *testing.T, cfg *config.Config, opts ...Option) *Habitat {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(42)))}, opts...)
	h, err := New(cfg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func genomeOf(turns ...c.Turn) c.Genome {
	return c.Genome{Genes: turns}
}

func mustPlace(t *testing.T, h *Habitat, pos c.Position, facing c.Direction, g c.Genome, energy int) uint32 {
	t.Helper()
	id, err := h.PlaceAnimal(pos, facing, g, energy)
	if err != nil {
		t.Fatalf("PlaceAnimal: %v", err)
	}
	return id
}

func mustAnimal(t *testing.T, h *Habitat, id uint32) telemetry.AnimalState {
	t.Helper()
	s, ok := h.Animal(id)
	if !ok {
		t.Fatalf("animal %d not found", id)
	}
	return s
}

var _ Sink = (*telemetry.Recorder)(nil)

// recordingSink keeps every event it receives.
type recordingSink struct {
	tiles   map[c.Position]int
	added   []c.Position
	removed []c.Position
	fires   map[c.Position][]int
	animals []telemetry.AnimalState
	moves   [][2]c.Position
	steps   []telemetry.StepStats
	started []int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{tiles: make(map[c.Position]int), fires: make(map[c.Position][]int)}
}

func (r *recordingSink) StepStarted(n int)                        { r.started = append(r.started, n) }
func (r *recordingSink) TileChanged(pos c.Position, count, _ int) { r.tiles[pos] = count }
func (r *recordingSink) PlantAdded(pos c.Position)                { r.added = append(r.added, pos) }
func (r *recordingSink) PlantRemoved(pos c.Position)              { r.removed = append(r.removed, pos) }
func (r *recordingSink) FireChanged(pos c.Position, remaining int) {
	r.fires[pos] = append(r.fires[pos], remaining)
}
func (r *recordingSink) AnimalChanged(s telemetry.AnimalState) { r.animals = append(r.animals, s) }
func (r *recordingSink) AnimalMoved(_ uint32, from, to c.Position) {
	r.moves = append(r.moves, [2]c.Position{from, to})
}
func (r *recordingSink) StepCompleted(s telemetry.StepStats) { r.steps = append(r.steps, s) }

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"zero width", func(cfg *config.Config) { cfg.World.Width = 0 }},
		{"unknown variant", func(cfg *config.Config) { cfg.World.Variant = "torus" }},
		{"fire without duration", func(cfg *config.Config) {
			cfg.World.Variant = config.VariantFire
			cfg.Fire.Duration = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(config.VariantWorld, 5, 5)
			tt.modify(cfg)
			if _, err := New(cfg); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("New() error = %v, want ErrInvalidArgument", err)
			}
		})
	}
	if _, err := New(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("New(nil) error = %v", err)
	}
}

func TestPopulate(t *testing.T) {
	cfg := testConfig(config.VariantWorld, 20, 10)
	cfg.Plants.Start = 30
	cfg.Animals.Start = 15
	cfg.Animals.GenomeLength = 6
	cfg.Animals.Energy = 12

	sink := newRecordingSink()
	h := newTestHabitat(t, cfg, WithSink(sink))
	if err := h.Populate(); err != nil {
		t.Fatalf("Populate: %v", err)
	}

	if h.PlantCount() != 30 {
		t.Errorf("plants = %d, want 30", h.PlantCount())
	}
	if len(sink.added) != 30 {
		t.Errorf("PlantAdded fired %d times, want 30", len(sink.added))
	}
	if h.AnimalCount() != 15 {
		t.Errorf("animals = %d, want 15", h.AnimalCount())
	}
	for _, id := range h.Animals() {
		s := mustAnimal(t, h, id)
		if len(s.Genome) != 6 || s.Energy != 12 {
			t.Errorf("animal %d: genome %q energy %d", id, s.Genome, s.Energy)
		}
		if got := sink.tiles[s.Position()]; got != len(h.AnimalsAt(s.Position())) {
			t.Errorf("tile %v: last TileChanged count %d, occupancy %d", s.Position(), got, len(h.AnimalsAt(s.Position())))
		}
	}
}

func TestRemoveSink(t *testing.T) {
	h := newTestHabitat(t, testConfig(config.VariantWorld, 5, 5))
	sink := newRecordingSink()
	h.AddSink(sink)
	h.AddPlant(c.Pos(1, 1))
	h.RemoveSink(sink)
	h.AddPlant(c.Pos(2, 2))

	if len(sink.added) != 1 {
		t.Errorf("sink saw %d plants after removal, want 1", len(sink.added))
	}
}
