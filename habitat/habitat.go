// Package habitat runs the grid ecosystem: animals and plants on a bounded
// map, a boundary policy, and the fixed per-step pipeline.
//
// A Habitat is owned by one goroutine. Observers receive copies through
// Sink and must not call back into the habitat concurrently.
package habitat

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mlange-42/ark/ecs"

	c "github.com/pthm-cable/darwin/components"
	"github.com/pthm-cable/darwin/config"
	"github.com/pthm-cable/darwin/systems"
	"github.com/pthm-cable/darwin/telemetry"
)

// Habitat holds the grid, its occupants and the running statistics.
type Habitat struct {
	cfg    *config.Config
	logger *slog.Logger
	rng    *rand.Rand

	bounds   systems.Bounds
	boundary systems.Boundary
	plants   *systems.PlantField
	fire     *systems.FireSystem // nil unless the fire variant

	// ECS arena of animal records, living and lineage-only
	world     *ecs.World
	animals   *ecs.Map5[c.Position, c.Heading, c.Genome, c.Vitals, c.Organism]
	records   *ecs.Filter3[c.Genome, c.Vitals, c.Organism]
	posMap    *ecs.Map1[c.Position]
	headMap   *ecs.Map1[c.Heading]
	genomeMap *ecs.Map1[c.Genome]
	vitalsMap *ecs.Map1[c.Vitals]
	orgMap    *ecs.Map1[c.Organism]

	// Animals on the grid per tile, in insertion order. No empty lists.
	occupancy map[c.Position][]ecs.Entity
	ids       map[uint32]ecs.Entity
	nextID    uint32

	step      int
	deadCount int
	lifetime  int // summed ages of all dead animals

	// Per-step counters, reset at the start of Step
	births int
	deaths int

	sinks   []Sink
	tracked map[uint32]struct{}
	dirty   map[c.Position]struct{}

	perf *telemetry.PerfCollector // nil disables step timing
}

// Option configures a Habitat.
type Option func(*Habitat)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Habitat) {
		h.logger = l
	}
}

// WithRand sets the random source. Defaults to one seeded from
// world.seed, or from the clock when the seed is 0.
func WithRand(rng *rand.Rand) Option {
	return func(h *Habitat) {
		h.rng = rng
	}
}

// WithPerf times every step phase into p.
func WithPerf(p *telemetry.PerfCollector) Option {
	return func(h *Habitat) {
		h.perf = p
	}
}

// WithSink registers an event sink.
func WithSink(s Sink) Option {
	return func(h *Habitat) {
		h.sinks = append(h.sinks, s)
	}
}

// New creates an empty habitat. The configuration is kept by reference:
// plant, breeding and mutation parameters may be changed between steps.
// Grid size, variant and fire parameters are fixed at construction.
func New(cfg *config.Config, opts ...Option) (*Habitat, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config: %w", ErrInvalidArgument)
	}
	width, height := cfg.World.Width, cfg.World.Height
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("grid %dx%d: %w", width, height, ErrInvalidArgument)
	}
	bounds := systems.Bounds{Width: width, Height: height}
	lo, hi := config.EquatorBand(height)

	h := &Habitat{
		cfg:       cfg,
		logger:    slog.Default(),
		bounds:    bounds,
		plants:    systems.NewPlantField(bounds, lo, hi),
		occupancy: make(map[c.Position][]ecs.Entity),
		ids:       make(map[uint32]ecs.Entity),
		tracked:   make(map[uint32]struct{}),
		dirty:     make(map[c.Position]struct{}),
	}

	switch cfg.World.Variant {
	case config.VariantWorld:
		h.boundary = systems.WrapBoundary{Bounds: bounds}
	case config.VariantFire:
		if cfg.Fire.Interval < 1 || cfg.Fire.Duration < 1 {
			return nil, fmt.Errorf("fire interval %d duration %d: %w",
				cfg.Fire.Interval, cfg.Fire.Duration, ErrInvalidArgument)
		}
		h.boundary = systems.ClampBoundary{Bounds: bounds}
		h.fire = systems.NewFireSystem(bounds, cfg.Fire.Interval, cfg.Fire.Duration)
	default:
		return nil, fmt.Errorf("map variant %q: %w", cfg.World.Variant, ErrInvalidArgument)
	}

	for _, opt := range opts {
		opt(h)
	}
	if h.rng == nil {
		seed := cfg.World.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		h.rng = rand.New(rand.NewSource(seed))
	}

	world := ecs.NewWorld()
	h.world = world
	h.animals = ecs.NewMap5[c.Position, c.Heading, c.Genome, c.Vitals, c.Organism](world)
	h.records = ecs.NewFilter3[c.Genome, c.Vitals, c.Organism](world)
	h.posMap = ecs.NewMap1[c.Position](world)
	h.headMap = ecs.NewMap1[c.Heading](world)
	h.genomeMap = ecs.NewMap1[c.Genome](world)
	h.vitalsMap = ecs.NewMap1[c.Vitals](world)
	h.orgMap = ecs.NewMap1[c.Organism](world)

	return h, nil
}

// Populate places the starting plants with the growth rule and the starting
// animals on uniformly random tiles.
func (h *Habitat) Populate() error {
	h.growPlants(h.cfg.Plants.Start)
	for i := 0; i < h.cfg.Animals.Start; i++ {
		pos := c.Pos(h.rng.Intn(h.bounds.Width), h.rng.Intn(h.bounds.Height))
		if _, err := h.SpawnAnimal(pos, h.cfg.Animals.GenomeLength, h.cfg.Animals.Energy); err != nil {
			return fmt.Errorf("populating animals: %w", err)
		}
	}
	h.logger.Info("habitat populated",
		"variant", h.cfg.World.Variant,
		"width", h.bounds.Width,
		"height", h.bounds.Height,
		"plants", h.plants.Count(),
		"animals", h.AnimalCount(),
	)
	return nil
}

// Bounds returns the grid size.
func (h *Habitat) Bounds() systems.Bounds {
	return h.bounds
}

// Config returns the live parameter bundle.
func (h *Habitat) Config() *config.Config {
	return h.cfg
}

// CurrentStep returns the number of the last step run.
func (h *Habitat) CurrentStep() int {
	return h.step
}

// HasPlant reports whether pos holds a plant.
func (h *Habitat) HasPlant(pos c.Position) bool {
	return h.plants.Has(pos)
}

// AddPlant places a plant on pos. Returns false if the tile already holds
// one or lies off the grid.
func (h *Habitat) AddPlant(pos c.Position) bool {
	if !h.plants.Add(pos) {
		return false
	}
	h.emitPlant(pos, true)
	return true
}

// Plants returns the plant tiles in row-major order.
func (h *Habitat) Plants() []c.Position {
	return h.plants.Positions()
}

// Ignite sets pos burning. Returns false on the world variant, off-grid or
// if the tile already burns.
func (h *Habitat) Ignite(pos c.Position) bool {
	if h.fire == nil || !h.fire.Ignite(pos) {
		return false
	}
	h.emitFire(pos, h.fire.Duration())
	return true
}

// FireRemaining returns the remaining burn duration of pos and whether it burns.
func (h *Habitat) FireRemaining(pos c.Position) (int, bool) {
	if h.fire == nil {
		return 0, false
	}
	return h.fire.Remaining(pos)
}

// Burning returns the burning tiles in row-major order.
func (h *Habitat) Burning() []c.Position {
	if h.fire == nil {
		return nil
	}
	return h.fire.Positions()
}

// MaxOccupancy returns the largest number of animals on one tile.
func (h *Habitat) MaxOccupancy() int {
	n := 0
	for _, list := range h.occupancy {
		n = max(n, len(list))
	}
	return n
}

// occupiedTiles returns the occupied tiles in row-major order.
func (h *Habitat) occupiedTiles() []c.Position {
	tiles := make([]c.Position, 0, len(h.occupancy))
	for p := range h.occupancy {
		tiles = append(tiles, p)
	}
	systems.SortPositions(tiles)
	return tiles
}

func (h *Habitat) growPlants(amount int) {
	for _, p := range h.plants.Grow(h.rng, amount) {
		h.emitPlant(p, true)
	}
}

func (h *Habitat) removePlant(pos c.Position) {
	if h.plants.Remove(pos) {
		h.emitPlant(pos, false)
	}
}
