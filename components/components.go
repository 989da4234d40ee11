// Package components defines ECS components and value types for the habitat.
package components

import (
	"fmt"
	"strings"

	"github.com/mlange-42/ark/ecs"
)

// Heading holds the facing of an animal.
type Heading struct {
	Dir Direction
}

// Genome is a fixed-length cyclic program of turns.
// Current is the read pointer consumed by each move.
type Genome struct {
	Genes   []Turn
	Current int
}

// Len returns the genome length.
func (g *Genome) Len() int {
	return len(g.Genes)
}

// Next returns the gene under the read pointer and advances it cyclically.
func (g *Genome) Next() Turn {
	t := g.Genes[g.Current]
	g.Current = (g.Current + 1) % len(g.Genes)
	return t
}

// Key renders the genes as a digit string ("0173..."), used to group equal genomes.
func (g *Genome) Key() string {
	return GenomeKey(g.Genes)
}

// GenomeKey renders genes as a digit string.
func GenomeKey(genes []Turn) string {
	var b strings.Builder
	b.Grow(len(genes))
	for _, t := range genes {
		b.WriteRune(t.Rune())
	}
	return b.String()
}

// ParseGenome reads genes back from the digit string produced by GenomeKey.
func ParseGenome(key string) ([]Turn, error) {
	if key == "" {
		return nil, fmt.Errorf("parse genome: empty: %w", ErrInvalidArgument)
	}
	genes := make([]Turn, 0, len(key))
	for i, r := range key {
		if r < '0' || r >= '0'+NumTurns {
			return nil, fmt.Errorf("parse genome: %q at %d: %w", r, i, ErrInvalidArgument)
		}
		genes = append(genes, Turn(r-'0'))
	}
	return genes, nil
}

// NotDead marks a Vitals record whose animal has not died yet.
const NotDead = -1

// KilledEnergy is the energy assigned to animals destroyed by a hazard.
const KilledEnergy = -1

// Vitals holds the energy state machine of an animal.
// An animal is dead iff Energy < 0.
type Vitals struct {
	Energy int
	Age    int
	Eaten  int // plants eaten over the lifetime
	DiedAt int // step of death, NotDead while alive
}

// Dead reports whether the animal has run out of energy.
func (v *Vitals) Dead() bool {
	return v.Energy < 0
}

// Organism holds identity and lineage bookkeeping.
// Parents point at records in the same world; the zero entity means none.
type Organism struct {
	ID          uint32
	BornAt      int
	Parents     [2]ecs.Entity
	Children    int
	Descendants int

	// Refs counts the holders of this record: one while alive, plus one per
	// child record naming it as a parent. The record is released at zero.
	Refs int
}
