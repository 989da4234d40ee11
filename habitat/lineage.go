package habitat

import (
	"github.com/mlange-42/ark/ecs"
)

// Lineage lives in the ECS arena. Every record names its two parents; a
// record is referenced once by itself while its animal is on the grid and
// once by each child record. Descendant counts are pushed upward at birth,
// so no record ever points down the tree and no cycles form.

// addDescendant credits every distinct ancestor of child with one descendant.
// Ancestors reachable through both parents are counted once.
func (h *Habitat) addDescendant(child ecs.Entity) {
	parents := h.orgMap.Get(child).Parents
	queue := []ecs.Entity{parents[0], parents[1]}
	seen := make(map[ecs.Entity]struct{})

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e == (ecs.Entity{}) || !h.world.Alive(e) {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}

		org := h.orgMap.Get(e)
		org.Descendants++
		queue = append(queue, org.Parents[0], org.Parents[1])
		if e != parents[0] && e != parents[1] {
			h.notify(e)
		}
	}
}

// release drops one reference to a record. Records without references are
// removed from the world and release their parents in turn.
func (h *Habitat) release(e ecs.Entity) {
	stack := []ecs.Entity{e}
	for len(stack) > 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if e == (ecs.Entity{}) || !h.world.Alive(e) {
			continue
		}

		org := h.orgMap.Get(e)
		org.Refs--
		if org.Refs > 0 {
			continue
		}
		parents, id := org.Parents, org.ID
		delete(h.ids, id)
		delete(h.tracked, id)
		h.world.RemoveEntity(e)
		stack = append(stack, parents[0], parents[1])
	}
}

// RecordCount returns the number of animal records held, including dead
// animals kept for their descendants' lineage.
func (h *Habitat) RecordCount() int {
	return len(h.ids)
}
