package habitat

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mlange-42/ark/ecs"

	c "github.com/pthm-cable/darwin/components"
	"github.com/pthm-cable/darwin/config"
	"github.com/pthm-cable/darwin/systems"
	"github.com/pthm-cable/darwin/telemetry"
)

// Senescence cap: an ageing animal skips a move with probability min(age, maxSkipPercent)%.
const maxSkipPercent = 80

// SpawnAnimal creates a founder on pos with a random facing, a random genome
// of the given length and a random read pointer.
func (h *Habitat) SpawnAnimal(pos c.Position, genomeLength, energy int) (uint32, error) {
	if genomeLength < 0 {
		return 0, fmt.Errorf("genome length %d: %w", genomeLength, ErrInvalidArgument)
	}
	if energy < 0 {
		return 0, fmt.Errorf("starting energy %d: %w", energy, ErrInvalidArgument)
	}
	if !h.bounds.Contains(pos) {
		return 0, fmt.Errorf("position %v off the grid: %w", pos, ErrInvalidArgument)
	}
	facing := systems.RandomDirection(h.rng)
	genome := systems.RandomGenome(h.rng, genomeLength)
	id, _ := h.place(pos, facing, genome, energy, [2]ecs.Entity{})
	h.flushTiles()
	return id, nil
}

// PlaceAnimal creates a founder with the given facing and genome. The genes
// are copied.
func (h *Habitat) PlaceAnimal(pos c.Position, facing c.Direction, genome c.Genome, energy int) (uint32, error) {
	if energy < 0 {
		return 0, fmt.Errorf("starting energy %d: %w", energy, ErrInvalidArgument)
	}
	if !facing.Valid() {
		return 0, fmt.Errorf("facing %d: %w", facing, ErrInvalidArgument)
	}
	if !h.bounds.Contains(pos) {
		return 0, fmt.Errorf("position %v off the grid: %w", pos, ErrInvalidArgument)
	}
	n := genome.Len()
	if genome.Current < 0 || (n > 0 && genome.Current >= n) || (n == 0 && genome.Current != 0) {
		return 0, fmt.Errorf("read pointer %d for %d genes: %w", genome.Current, n, ErrInvalidArgument)
	}
	for _, t := range genome.Genes {
		if t >= c.NumTurns {
			return 0, fmt.Errorf("gene %d: %w", t, ErrInvalidArgument)
		}
	}
	genome.Genes = slices.Clone(genome.Genes)
	id, _ := h.place(pos, facing, genome, energy, [2]ecs.Entity{})
	h.flushTiles()
	return id, nil
}

// place adds a new record and puts the animal on pos.
func (h *Habitat) place(pos c.Position, facing c.Direction, genome c.Genome, energy int, parents [2]ecs.Entity) (uint32, ecs.Entity) {
	h.nextID++
	id := h.nextID

	heading := c.Heading{Dir: facing}
	vitals := c.Vitals{Energy: energy, DiedAt: c.NotDead}
	org := c.Organism{ID: id, BornAt: h.step, Parents: parents, Refs: 1}
	e := h.animals.NewEntity(&pos, &heading, &genome, &vitals, &org)

	h.ids[id] = e
	h.occupancy[pos] = append(h.occupancy[pos], e)
	h.markTile(pos)
	return id, e
}

// Breed creates a child of a and b on a's tile. Both parents must be alive
// and hold at least breeding.min_energy; mutation.min must be below
// mutation.max. Nothing is changed when an argument is rejected.
func (h *Habitat) Breed(a, b uint32) (uint32, error) {
	ea, ok := h.entity(a)
	if !ok {
		return 0, fmt.Errorf("parent %d: unknown animal: %w", a, ErrInvalidArgument)
	}
	eb, ok := h.entity(b)
	if !ok {
		return 0, fmt.Errorf("parent %d: unknown animal: %w", b, ErrInvalidArgument)
	}
	if ea == eb {
		return 0, fmt.Errorf("parent %d given twice: %w", a, ErrInvalidArgument)
	}
	id, err := h.breed(ea, eb)
	h.flushTiles()
	return id, err
}

func (h *Habitat) breed(ea, eb ecs.Entity) (uint32, error) {
	minEnergy := h.cfg.Breeding.MinEnergy
	cost := h.cfg.Breeding.Cost
	lo, hi := h.cfg.Mutation.Min, h.cfg.Mutation.Max

	for _, e := range [2]ecs.Entity{ea, eb} {
		v := h.vitalsMap.Get(e)
		id := h.orgMap.Get(e).ID
		if v.Dead() {
			return 0, fmt.Errorf("parent %d is dead: %w", id, ErrInvalidArgument)
		}
		if v.Energy < minEnergy {
			return 0, fmt.Errorf("parent %d energy %d below %d: %w", id, v.Energy, minEnergy, ErrInvalidArgument)
		}
	}
	if cost < 0 {
		return 0, fmt.Errorf("breeding cost %d: %w", cost, ErrInvalidArgument)
	}
	if lo >= hi {
		return 0, fmt.Errorf("mutation bounds [%d,%d): %w", lo, hi, ErrInvalidArgument)
	}
	ga, gb := h.genomeMap.Get(ea), h.genomeMap.Get(eb)
	if ga.Len() != gb.Len() {
		return 0, fmt.Errorf("genome lengths %d and %d differ: %w", ga.Len(), gb.Len(), ErrInvalidArgument)
	}

	va, vb := h.vitalsMap.Get(ea), h.vitalsMap.Get(eb)
	va.Energy -= cost
	vb.Energy -= cost
	h.noteDeath(va)
	h.noteDeath(vb)

	k := systems.SplitPoint(ga.Len(), va.Energy, vb.Energy)
	genes := systems.Crossover(h.rng, ga.Genes, gb.Genes, k)
	systems.Mutate(h.rng, genes, lo, hi)
	facing := systems.RandomDirection(h.rng)
	genome := c.Genome{Genes: genes, Current: systems.RandomPointer(h.rng, len(genes))}

	for _, e := range [2]ecs.Entity{ea, eb} {
		org := h.orgMap.Get(e)
		org.Children++
		org.Refs++
	}
	pos := *h.posMap.Get(ea)

	// Component pointers are invalid after the child is created
	id, child := h.place(pos, facing, genome, 2*cost, [2]ecs.Entity{ea, eb})
	h.births++
	h.addDescendant(child)
	h.notify(ea)
	h.notify(eb)
	h.notify(child)
	return id, nil
}

// Mutate re-rolls between mutation.min and mutation.max (exclusive) distinct
// genes of a living animal.
func (h *Habitat) Mutate(id uint32) error {
	e, ok := h.entity(id)
	if !ok {
		return fmt.Errorf("mutate animal %d: %w", id, ErrInvalidArgument)
	}
	lo, hi := h.cfg.Mutation.Min, h.cfg.Mutation.Max
	if lo >= hi {
		return fmt.Errorf("mutation bounds [%d,%d): %w", lo, hi, ErrInvalidArgument)
	}
	if h.vitalsMap.Get(e).Dead() {
		return fmt.Errorf("mutate dead animal %d: %w", id, ErrInvalidArgument)
	}
	systems.Mutate(h.rng, h.genomeMap.Get(e).Genes, lo, hi)
	h.notify(e)
	return nil
}

// Move runs one move of a living animal and returns its new tile.
func (h *Habitat) Move(id uint32) (c.Position, error) {
	e, ok := h.entity(id)
	if !ok {
		return c.Position{}, fmt.Errorf("move animal %d: %w", id, ErrInvalidArgument)
	}
	from := *h.posMap.Get(e)
	if !h.onGrid(e, from) {
		return c.Position{}, fmt.Errorf("move animal %d: not on the grid: %w", id, ErrInvalidState)
	}
	to, err := h.move(e)
	if err != nil {
		return c.Position{}, err
	}
	if to != from {
		h.relocate(e, from, to)
	}
	h.flushTiles()
	return to, nil
}

// move turns the animal by its current gene, advances the read pointer,
// pays one energy and ages it, then resolves the step through the boundary
// policy. An ageing animal may stay put instead; it still turns and pays.
// The occupancy index is left to the caller.
func (h *Habitat) move(e ecs.Entity) (c.Position, error) {
	v := h.vitalsMap.Get(e)
	g := h.genomeMap.Get(e)
	org := h.orgMap.Get(e)
	if v.Dead() {
		return c.Position{}, fmt.Errorf("move dead animal %d: %w", org.ID, ErrInvalidState)
	}
	if g.Len() == 0 {
		return c.Position{}, fmt.Errorf("move animal %d without genes: %w", org.ID, ErrInvalidState)
	}

	head := h.headMap.Get(e)
	pos := h.posMap.Get(e)
	from := *pos

	head.Dir = head.Dir.Rotate(g.Next())
	v.Energy--
	v.Age++
	h.noteDeath(v)

	if !h.skipsMove(v.Age) {
		*pos, head.Dir = h.boundary.Resolve(from, head.Dir)
	}

	if h.isTracked(org.ID) {
		if *pos != from {
			for _, s := range h.sinks {
				s.AnimalMoved(org.ID, from, *pos)
			}
		}
		h.notify(e)
	}
	return *pos, nil
}

// skipsMove rolls the senescence skip of the ageing mobility model.
func (h *Habitat) skipsMove(age int) bool {
	if h.cfg.Animals.Mobility != config.MobilityAgeing {
		return false
	}
	return h.rng.Intn(100) < min(age, maxSkipPercent)
}

// relocate moves e between tile lists, keeping insertion order.
func (h *Habitat) relocate(e ecs.Entity, from, to c.Position) {
	h.removeFromTile(e, from)
	h.occupancy[to] = append(h.occupancy[to], e)
	h.markTile(from)
	h.markTile(to)
}

func (h *Habitat) removeFromTile(e ecs.Entity, pos c.Position) {
	list := h.occupancy[pos]
	i := slices.Index(list, e)
	if i < 0 {
		return
	}
	list = slices.Delete(list, i, i+1)
	if len(list) == 0 {
		delete(h.occupancy, pos)
	} else {
		h.occupancy[pos] = list
	}
}

func (h *Habitat) onGrid(e ecs.Entity, pos c.Position) bool {
	return slices.Contains(h.occupancy[pos], e)
}

// Eat adds delta energy to a living animal and counts one eaten plant.
// Dead animals are left unchanged.
func (h *Habitat) Eat(id uint32, delta int) error {
	e, ok := h.entity(id)
	if !ok {
		return fmt.Errorf("feed animal %d: %w", id, ErrInvalidArgument)
	}
	if h.vitalsMap.Get(e).Dead() {
		return nil
	}
	if delta < 0 {
		return fmt.Errorf("feed animal %d energy %d: %w", id, delta, ErrInvalidArgument)
	}
	h.eat(e, delta)
	return nil
}

func (h *Habitat) eat(e ecs.Entity, delta int) {
	v := h.vitalsMap.Get(e)
	if v.Dead() {
		return
	}
	v.Eaten++
	v.Energy += delta
	h.notify(e)
}

// Kill force-kills an animal. It stays on its tile until the next sweep.
func (h *Habitat) Kill(id uint32) error {
	e, ok := h.entity(id)
	if !ok {
		return fmt.Errorf("kill animal %d: %w", id, ErrInvalidArgument)
	}
	h.kill(e)
	return nil
}

func (h *Habitat) kill(e ecs.Entity) {
	v := h.vitalsMap.Get(e)
	v.Energy = c.KilledEnergy
	h.noteDeath(v)
	h.notify(e)
}

// noteDeath records the death step the first time energy goes negative.
func (h *Habitat) noteDeath(v *c.Vitals) {
	if v.Dead() && v.DiedAt == c.NotDead {
		v.DiedAt = h.step
		h.deaths++
	}
}

// topPair ranks the living animals of a tile by energy, age and children,
// all descending, with a random tiebreak, and returns the best two.
func (h *Habitat) topPair(list []ecs.Entity) (first, second ecs.Entity, ok bool) {
	type candidate struct {
		e                     ecs.Entity
		energy, age, children int
		key                   int64
	}
	cands := make([]candidate, 0, len(list))
	for _, e := range list {
		v := h.vitalsMap.Get(e)
		if v.Dead() {
			continue
		}
		cands = append(cands, candidate{
			e:        e,
			energy:   v.Energy,
			age:      v.Age,
			children: h.orgMap.Get(e).Children,
		})
	}
	if len(cands) < 2 {
		return ecs.Entity{}, ecs.Entity{}, false
	}
	for i := range cands {
		cands[i].key = h.rng.Int63()
	}
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(b.energy, a.energy),
			cmp.Compare(b.age, a.age),
			cmp.Compare(b.children, a.children),
			cmp.Compare(a.key, b.key),
		)
	})
	return cands[0].e, cands[1].e, true
}

// Animal returns a copy of an animal's state. Dead animals remain readable
// while a descendant references them.
func (h *Habitat) Animal(id uint32) (telemetry.AnimalState, bool) {
	e, ok := h.entity(id)
	if !ok {
		return telemetry.AnimalState{}, false
	}
	return h.state(e), true
}

// AnimalsAt returns the ids of the animals on pos in insertion order.
func (h *Habitat) AnimalsAt(pos c.Position) []uint32 {
	list := h.occupancy[pos]
	ids := make([]uint32, len(list))
	for i, e := range list {
		ids[i] = h.orgMap.Get(e).ID
	}
	return ids
}

// Animals returns the ids of all animals on the grid, tile by tile in
// row-major order.
func (h *Habitat) Animals() []uint32 {
	var ids []uint32
	for _, p := range h.occupiedTiles() {
		ids = append(ids, h.AnimalsAt(p)...)
	}
	return ids
}

func (h *Habitat) entity(id uint32) (ecs.Entity, bool) {
	e, ok := h.ids[id]
	if !ok || !h.world.Alive(e) {
		return ecs.Entity{}, false
	}
	return e, true
}

func (h *Habitat) state(e ecs.Entity) telemetry.AnimalState {
	pos := h.posMap.Get(e)
	v := h.vitalsMap.Get(e)
	g := h.genomeMap.Get(e)
	org := h.orgMap.Get(e)
	return telemetry.AnimalState{
		ID:          org.ID,
		X:           pos.X,
		Y:           pos.Y,
		Facing:      h.headMap.Get(e).Dir,
		Energy:      v.Energy,
		Age:         v.Age,
		Eaten:       v.Eaten,
		Gene:        g.Current,
		Genome:      g.Key(),
		Children:    org.Children,
		Descendants: org.Descendants,
		BornAt:      org.BornAt,
		DiedAt:      v.DiedAt,
	}
}

// notify emits the state of e if it is tracked.
func (h *Habitat) notify(e ecs.Entity) {
	if len(h.tracked) == 0 || len(h.sinks) == 0 {
		return
	}
	if !h.isTracked(h.orgMap.Get(e).ID) {
		return
	}
	state := h.state(e)
	for _, s := range h.sinks {
		s.AnimalChanged(state)
	}
}
