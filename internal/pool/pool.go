// Package pool implements the bounded solution pool shared across search
// workers: an ordered multiset of incomparable solutions, keyed by the
// objective comparator extended with an item-copy-vector tiebreak so that
// distinct-but-equivalent solutions can coexist up to a fixed size.
package pool

import "github.com/piwi3910/packingsolver/internal/model"

// Pool is a bounded, ordered container of solutions. It is not safe for
// concurrent use by itself; callers (the search driver, via the
// formatter) must serialize Add calls with a mutex.
type Pool struct {
	sizeMax   int
	solutions []*model.Solution
}

// New creates a pool that keeps at most sizeMax solutions.
func New(sizeMax int) *Pool {
	if sizeMax <= 0 {
		sizeMax = 1
	}
	return &Pool{sizeMax: sizeMax}
}

// Best returns the current best solution, or nil if the pool is empty.
func (p *Pool) Best() *model.Solution {
	if len(p.solutions) == 0 {
		return nil
	}
	return p.solutions[0]
}

// Worst returns the current worst solution, or nil if the pool is empty
// or not yet full (an unfilled pool imposes no lower bound).
func (p *Pool) Worst() *model.Solution {
	if len(p.solutions) < p.sizeMax {
		return nil
	}
	return p.solutions[len(p.solutions)-1]
}

// Solutions returns the pool's contents, best first.
func (p *Pool) Solutions() []*model.Solution { return p.solutions }

// less is the total order: the objective comparator, extended to break
// ties between equally-good-but-distinct solutions by their item-copy
// vector, compared lexicographically by item type id. This matches
// SolutionPoolComparator from the original implementation.
func less(a, b *model.Solution) bool {
	if a.Less(b) {
		return true
	}
	if b.Less(a) {
		return false
	}
	va, vb := a.ItemCopiesVector(), b.ItemCopiesVector()
	for i := 0; i < len(va) && i < len(vb); i++ {
		if va[i] != vb[i] {
			return va[i] < vb[i]
		}
	}
	return false
}

func equal(a, b *model.Solution) bool {
	return !less(a, b) && !less(b, a)
}

// Add inserts sol into the pool if it is not dominated by the current
// worst (once full) and not already present. It returns +1 if sol becomes
// the new best, 0 if inserted but not best, or -1 if rejected.
func (p *Pool) Add(sol *model.Solution) int {
	for _, existing := range p.solutions {
		if equal(existing, sol) {
			return -1
		}
	}
	if len(p.solutions) >= p.sizeMax {
		worst := p.solutions[len(p.solutions)-1]
		if !less(sol, worst) {
			return -1
		}
	}

	pos := 0
	for pos < len(p.solutions) && less(p.solutions[pos], sol) {
		pos++
	}
	p.solutions = append(p.solutions, nil)
	copy(p.solutions[pos+1:], p.solutions[pos:])
	p.solutions[pos] = sol

	if len(p.solutions) > p.sizeMax {
		p.solutions = p.solutions[:p.sizeMax]
	}

	if pos == 0 {
		return 1
	}
	return 0
}
