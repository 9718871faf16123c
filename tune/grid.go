package tune

import (
	"math/rand/v2"
	"sort"
)

// Grid enumerates hyperparameter candidates as the cartesian product of
// per-parameter value lists. Construction order is preserved so candidate
// order is deterministic.
type Grid struct {
	names  []string
	values map[string][]float64
}

// NewGrid returns an empty grid.
func NewGrid() *Grid {
	return &Grid{values: make(map[string][]float64)}
}

// Add registers candidate values for one parameter. Adding the same
// parameter twice replaces its values.
func (g *Grid) Add(name string, values ...float64) *Grid {
	if _, ok := g.values[name]; !ok {
		g.names = append(g.names, name)
	}
	g.values[name] = append([]float64(nil), values...)
	return g
}

// Size returns the number of points in the full grid.
func (g *Grid) Size() int {
	if len(g.names) == 0 {
		return 0
	}
	n := 1
	for _, name := range g.names {
		n *= len(g.values[name])
	}
	return n
}

// Points expands the grid into its full candidate list. The first
// parameter added varies slowest.
func (g *Grid) Points() []Params {
	size := g.Size()
	if size == 0 {
		return nil
	}
	out := make([]Params, 0, size)
	idx := make([]int, len(g.names))
	for {
		p := make(Params, len(g.names))
		for i, name := range g.names {
			p[name] = g.values[name][idx[i]]
		}
		out = append(out, p)

		// Odometer increment, last parameter fastest.
		i := len(idx) - 1
		for i >= 0 {
			idx[i]++
			if idx[i] < len(g.values[g.names[i]]) {
				break
			}
			idx[i] = 0
			i--
		}
		if i < 0 {
			return out
		}
	}
}

// RandomPoints samples n distinct points from the grid without replacement.
// If n is at least the grid size the full grid is returned. The draw is
// fully determined by seed.
func (g *Grid) RandomPoints(n int, seed uint64) []Params {
	all := g.Points()
	if n >= len(all) {
		return all
	}
	rng := rand.New(rand.NewPCG(seed, seed))
	perm := rng.Perm(len(all))[:n]
	sort.Ints(perm)
	out := make([]Params, n)
	for i, j := range perm {
		out[i] = all[j]
	}
	return out
}
