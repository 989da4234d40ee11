package habitat

import (
	"testing"

	c "github.com/pthm-cable/darwin/components"
	"github.com/pthm-cable/darwin/config"
	"github.com/pthm-cable/darwin/telemetry"
)

func TestStepConservesAnimalsOnFireMap(t *testing.T) {
	cfg := testConfig(config.VariantFire, 10, 10)
	cfg.Plants.Start = 20
	cfg.Animals.Start = 10
	cfg.Animals.Energy = 2
	cfg.Animals.GenomeLength = 8

	h := newTestHabitat(t, cfg)
	if err := h.Populate(); err != nil {
		t.Fatal(err)
	}
	if h.AnimalCount() != 10 || h.PlantCount() != 20 {
		t.Fatalf("seeded %d animals, %d plants", h.AnimalCount(), h.PlantCount())
	}

	for step := 1; step <= 5; step++ {
		alive, plants := h.AnimalCount(), h.PlantCount()
		planted := make(map[c.Position]bool)
		for _, p := range h.Plants() {
			planted[p] = true
		}
		stats := h.Step(step)

		if got := alive + stats.Births - stats.Deaths; got != h.AnimalCount() {
			t.Errorf("step %d: %d alive + %d births - %d deaths != %d alive",
				step, alive, stats.Births, stats.Deaths, h.AnimalCount())
		}
		if stats.Animals != h.AnimalCount() {
			t.Errorf("step %d: stats report %d animals, habitat %d", step, stats.Animals, h.AnimalCount())
		}
		// Dead animals stay on their tile until the next sweep, so the
		// occupied tiles are those reached by this step's moves
		occupiedPlants := 0
		for p := range h.occupancy {
			if planted[p] {
				occupiedPlants++
			}
		}
		if eaten := plants - h.PlantCount(); eaten < 0 || eaten > occupiedPlants {
			t.Errorf("step %d: %d plants gone with %d occupied tiles", step, eaten, occupiedPlants)
		}
	}
}

func TestStepDeterministic(t *testing.T) {
	run := func() []telemetry.StepStats {
		cfg := testConfig(config.VariantWorld, 30, 20)
		cfg.Plants.Start = 100
		cfg.Plants.Grow = 10
		cfg.Animals.Start = 40
		cfg.Animals.Energy = 30
		cfg.Breeding.MinEnergy = 15
		cfg.Breeding.Cost = 6
		h := newTestHabitat(t, cfg)
		if err := h.Populate(); err != nil {
			t.Fatal(err)
		}
		var out []telemetry.StepStats
		for i := 1; i <= 60; i++ {
			out = append(out, h.Step(i))
		}
		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("step %d diverged:\n%+v\n%+v", i+1, a[i], b[i])
		}
	}
}

func TestFeedStrongestEats(t *testing.T) {
	cfg := testConfig(config.VariantWorld, 5, 5)
	cfg.Plants.Energy = 7
	cfg.Breeding.MinEnergy = 1000
	h := newTestHabitat(t, cfg)
	h.AddPlant(c.Pos(2, 2))

	weak := mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 5)
	strong := mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 9)
	h.Step(1)

	if h.HasPlant(c.Pos(2, 2)) {
		t.Error("plant survived an occupied tile")
	}
	if s := mustAnimal(t, h, strong); s.Energy != 8+7 || s.Eaten != 1 {
		t.Errorf("strong animal: energy %d eaten %d", s.Energy, s.Eaten)
	}
	if s := mustAnimal(t, h, weak); s.Energy != 4 || s.Eaten != 0 {
		t.Errorf("weak animal: energy %d eaten %d", s.Energy, s.Eaten)
	}
}

func TestFeedTieGoesToFirst(t *testing.T) {
	cfg := testConfig(config.VariantWorld, 5, 5)
	cfg.Breeding.MinEnergy = 1000
	h := newTestHabitat(t, cfg)
	h.AddPlant(c.Pos(2, 2))

	first := mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 6)
	second := mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 6)
	h.Step(1)

	if mustAnimal(t, h, first).Eaten != 1 || mustAnimal(t, h, second).Eaten != 0 {
		t.Error("tie not resolved in favour of the first animal on the tile")
	}
}

func TestFeedIgnoresDeadAnimals(t *testing.T) {
	h := newTestHabitat(t, testConfig(config.VariantWorld, 5, 5))
	h.AddPlant(c.Pos(2, 2))
	mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 0)

	stats := h.Step(1)
	if !h.HasPlant(c.Pos(2, 2)) {
		t.Error("a dying animal ate the plant")
	}
	if stats.Deaths != 1 || stats.Animals != 0 {
		t.Errorf("deaths %d animals %d", stats.Deaths, stats.Animals)
	}
}

func TestStepBreedsOnSharedTile(t *testing.T) {
	cfg := testConfig(config.VariantWorld, 5, 5)
	cfg.Breeding.MinEnergy = 20
	cfg.Breeding.Cost = 10
	h := newTestHabitat(t, cfg)

	mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 50)
	mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 40)
	mustPlace(t, h, c.Pos(0, 0), c.North, genomeOf(c.Forward), 50)
	stats := h.Step(1)

	if stats.Births != 1 {
		t.Fatalf("births = %d, want 1", stats.Births)
	}
	ids := h.AnimalsAt(c.Pos(2, 2))
	if len(ids) != 3 {
		t.Fatalf("tile holds %v, want both parents and the child", ids)
	}
	if s := mustAnimal(t, h, ids[2]); s.Energy != 20 || s.BornAt != 1 {
		t.Errorf("child: energy %d born at %d", s.Energy, s.BornAt)
	}
	if got := mustAnimal(t, h, ids[0]).Energy; got != 39 {
		t.Errorf("first parent energy %d, want 39", got)
	}
}

func TestStepBreedingPicksTopTwo(t *testing.T) {
	cfg := testConfig(config.VariantWorld, 5, 5)
	cfg.Breeding.MinEnergy = 20
	cfg.Breeding.Cost = 10
	h := newTestHabitat(t, cfg)

	low := mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 25)
	high := mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 60)
	mid := mustPlace(t, h, c.Pos(2, 1), c.North, genomeOf(c.Forward), 40)
	h.Step(1)

	if mustAnimal(t, h, low).Children != 0 {
		t.Error("weakest animal bred")
	}
	if mustAnimal(t, h, high).Children != 1 || mustAnimal(t, h, mid).Children != 1 {
		t.Error("strongest pair did not breed")
	}
}

func TestStepSweepsDead(t *testing.T) {
	h := newTestHabitat(t, testConfig(config.VariantWorld, 5, 5))
	id := mustPlace(t, h, c.Pos(1, 1), c.East, genomeOf(c.Forward), 0)

	s1 := h.Step(1)
	if s1.Deaths != 1 || h.DeadCount() != 0 {
		t.Errorf("step 1: deaths %d, swept %d", s1.Deaths, h.DeadCount())
	}
	if len(h.AnimalsAt(c.Pos(2, 1))) != 1 {
		t.Error("dead animal left its tile before the sweep")
	}

	h.Step(2)
	if h.DeadCount() != 1 || h.AverageLifetime() != 1 {
		t.Errorf("after sweep: dead %d lifetime %v", h.DeadCount(), h.AverageLifetime())
	}
	if len(h.AnimalsAt(c.Pos(2, 1))) != 0 {
		t.Error("dead animal still on the grid")
	}
	if _, ok := h.Animal(id); ok {
		t.Error("childless dead record kept")
	}
}

func TestStepGrowsTowardEquator(t *testing.T) {
	cfg := testConfig(config.VariantWorld, 10, 10)
	cfg.Plants.Grow = 10
	h := newTestHabitat(t, cfg)

	h.Step(1)
	if h.PlantCount() != 10 {
		t.Fatalf("plants = %d, want 10", h.PlantCount())
	}
	equator := 0
	for _, p := range h.Plants() {
		if p.Y >= 4 && p.Y < 6 {
			equator++
		}
	}
	if equator != 8 {
		t.Errorf("%d plants in the equator, want 8", equator)
	}
}

func TestFireKillsAnimals(t *testing.T) {
	sink := newRecordingSink()
	h := newTestHabitat(t, testConfig(config.VariantFire, 5, 5), WithSink(sink))

	id := mustPlace(t, h, c.Pos(0, 0), c.SouthWest, genomeOf(c.Forward), 10)
	if !h.Ignite(c.Pos(0, 0)) {
		t.Fatal("Ignite failed")
	}

	stats := h.Step(1)
	if stats.Deaths != 1 || h.AnimalCount() != 0 {
		t.Errorf("deaths %d, animals %d", stats.Deaths, h.AnimalCount())
	}
	if h.DeadCount() != 1 || h.AverageLifetime() != 1 {
		t.Errorf("burned animal not folded into lifetime: dead %d avg %v", h.DeadCount(), h.AverageLifetime())
	}
	if _, ok := h.Animal(id); ok {
		t.Error("burned record kept")
	}
	if sink.tiles[c.Pos(0, 0)] != 0 {
		t.Errorf("burned tile reported %d animals", sink.tiles[c.Pos(0, 0)])
	}

	h.Step(2)
	if _, burning := h.FireRemaining(c.Pos(0, 0)); burning {
		t.Error("fire outlived its duration")
	}
	if got := sink.fires[c.Pos(0, 0)]; len(got) != 3 || got[0] != 2 || got[2] != 0 {
		t.Errorf("fire events %v, want [2 1 0]", got)
	}
}

func TestFireSpreadsFromPlantTile(t *testing.T) {
	h := newTestHabitat(t, testConfig(config.VariantFire, 5, 5))
	h.AddPlant(c.Pos(2, 2))
	h.AddPlant(c.Pos(2, 3))
	h.Ignite(c.Pos(2, 2))

	stats := h.Step(1)
	if stats.Burning != 5 {
		t.Errorf("burning = %d, want origin plus 4 neighbours", stats.Burning)
	}
	if h.HasPlant(c.Pos(2, 2)) {
		t.Error("plant on the burning tile survived")
	}
	if !h.HasPlant(c.Pos(2, 3)) {
		t.Error("neighbour plant burned in its ignition pass")
	}

	h.Step(2)
	if h.HasPlant(c.Pos(2, 3)) {
		t.Error("neighbour plant survived a full pass")
	}
	if d, ok := h.FireRemaining(c.Pos(2, 4)); !ok || d != 2 {
		t.Errorf("second-generation fire at (2,4): %d %v", d, ok)
	}
}

func TestFireIgnitesOnInterval(t *testing.T) {
	cfg := testConfig(config.VariantFire, 5, 5)
	cfg.Fire.Interval = 3
	h := newTestHabitat(t, cfg)
	h.AddPlant(c.Pos(4, 4))

	h.Step(1)
	h.Step(2)
	if len(h.Burning()) != 0 {
		t.Fatalf("fire before the interval: %v", h.Burning())
	}
	h.Step(3)
	if d, ok := h.FireRemaining(c.Pos(4, 4)); !ok || d != 2 {
		t.Errorf("interval ignition: %d %v", d, ok)
	}
}

func TestWorldVariantHasNoFire(t *testing.T) {
	h := newTestHabitat(t, testConfig(config.VariantWorld, 5, 5))
	h.AddPlant(c.Pos(1, 1))
	if h.Ignite(c.Pos(1, 1)) {
		t.Error("world variant accepted a fire")
	}
	for i := 1; i <= 5; i++ {
		if s := h.Step(i * 1000); s.Burning != 0 {
			t.Fatalf("burning tiles on the world variant: %d", s.Burning)
		}
	}
}

func TestStepCompletedEvent(t *testing.T) {
	sink := newRecordingSink()
	h := newTestHabitat(t, testConfig(config.VariantWorld, 5, 5), WithSink(sink))
	mustPlace(t, h, c.Pos(1, 1), c.North, genomeOf(c.Forward), 10)

	want := h.Step(7)
	if len(sink.started) != 1 || sink.started[0] != 7 {
		t.Errorf("StepStarted %v, want [7]", sink.started)
	}
	if len(sink.steps) != 1 || sink.steps[0] != want {
		t.Errorf("StepCompleted %+v, want %+v", sink.steps, want)
	}
	if sink.tiles[c.Pos(1, 1)] != 0 || sink.tiles[c.Pos(1, 2)] != 1 {
		t.Errorf("tile events %v", sink.tiles)
	}
}
