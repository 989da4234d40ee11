package systems

import (
	"math"
	"math/rand"

	c "github.com/pthm-cable/darwin/components"
)

// RandomDirection returns a uniformly chosen heading.
func RandomDirection(rng *rand.Rand) c.Direction {
	return c.Direction(rng.Intn(c.NumDirections))
}

// RandomTurn returns a uniformly chosen turn.
func RandomTurn(rng *rand.Rand) c.Turn {
	return c.Turn(rng.Intn(c.NumTurns))
}

// RandomGenome returns a genome of the given length filled with random turns
// and a random read pointer in [0, length).
func RandomGenome(rng *rand.Rand, length int) c.Genome {
	genes := make([]c.Turn, length)
	for i := range genes {
		genes[i] = RandomTurn(rng)
	}
	return c.Genome{Genes: genes, Current: RandomPointer(rng, length)}
}

// RandomPointer picks a read pointer for a genome of the given length.
func RandomPointer(rng *rand.Rand, length int) int {
	if length <= 0 {
		return 0
	}
	return rng.Intn(length)
}

// SplitPoint returns how many genes the first parent contributes when the two
// parents hold energies a and b. The share is proportional to energy and
// rounded; parents without positive energy split evenly.
func SplitPoint(length, a, b int) int {
	a, b = max(a, 0), max(b, 0)
	if a+b == 0 {
		return int(math.Round(float64(length) / 2))
	}
	return int(math.Round(float64(length) * float64(a) / float64(a+b)))
}

// Crossover builds a child genome from two equally long parent genomes.
// The first parent contributes k genes as a contiguous block; a coin flip
// decides whether that block is the prefix or the suffix. The second parent
// fills the rest from the matching positions.
func Crossover(rng *rand.Rand, first, second []c.Turn, k int) []c.Turn {
	n := len(first)
	k = min(max(k, 0), n)
	child := make([]c.Turn, n)
	if rng.Intn(2) == 0 {
		copy(child[:k], first[:k])
		copy(child[k:], second[k:])
	} else {
		copy(child[:n-k], second[:n-k])
		copy(child[n-k:], first[n-k:])
	}
	return child
}

// Mutate re-rolls between lo (inclusive) and hi (exclusive) distinct genes.
// It returns the mutated indices. The caller guarantees lo < hi.
func Mutate(rng *rand.Rand, genes []c.Turn, lo, hi int) []int {
	count := lo + rng.Intn(hi-lo)
	count = min(count, len(genes))
	if count <= 0 {
		return nil
	}
	picked := rng.Perm(len(genes))[:count]
	for _, i := range picked {
		genes[i] = RandomTurn(rng)
	}
	return picked
}
