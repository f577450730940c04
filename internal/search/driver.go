// Package search implements the generic best-first tree search driver
// (C6) that every branching scheme (onedimensional, rectangle, box)
// plugs into: a priority queue of node handles keyed by the scheme's
// guide ordering, a dominance table keyed by the scheme's item-copy-
// multiset hash, and cooperative cancellation via a Timer.
package search

import (
	"container/heap"

	"github.com/piwi3910/packingsolver/internal/model"
)

// NodeHandle is the minimal capability every scheme's Node type exposes:
// an insertion-order id used as the FIFO tiebreak among guide-equal
// nodes in the priority queue.
type NodeHandle interface {
	ID() int64
}

// Scheme is the common contract from spec §4.4 every branching scheme
// satisfies, parameterized over its own Node handle type N and its own
// Insertion record type I (these differ across onedimensional, rectangle,
// and box, so the driver is generic rather than depending on one).
type Scheme[N NodeHandle, I any] interface {
	Root() N
	Insertions(parent N) []I
	Child(parent N, insertion I) N
	Leaf(n N) bool
	RequiresFull() bool
	Bound(n N, worst *model.Solution) bool
	Dominates(a, b N) bool
	HashKey(n N) string
	Less(a, b N) bool
	ToSolution(leaf N) (*model.Solution, error)
}

// SolutionSink is the pool-facing side of the algorithm formatter (C7):
// the driver never touches the pool directly, matching spec §4.8/§5
// ("whenever a child is a leaf ... offers it to the pool via the
// formatter").
type SolutionSink interface {
	Offer(sol *model.Solution) int
	Worst() *model.Solution
}

// nodeQueue adapts a generic slice of node handles to container/heap
// using the scheme's guide-ordering Less.
type nodeQueue[N NodeHandle] struct {
	items []N
	less  func(a, b N) bool
}

func (q *nodeQueue[N]) Len() int            { return len(q.items) }
func (q *nodeQueue[N]) Less(i, j int) bool  { return q.less(q.items[i], q.items[j]) }
func (q *nodeQueue[N]) Swap(i, j int)       { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *nodeQueue[N]) Push(x interface{})  { q.items = append(q.items, x.(N)) }
func (q *nodeQueue[N]) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// Driver runs one worker's best-first search against its own priority
// queue and dominance table. The SolutionSink it reports to may be shared
// with other Drivers; cmd/packingsolver runs a single Driver per run.
type Driver[N NodeHandle, I any] struct {
	scheme    Scheme[N, I]
	sink      SolutionSink
	timer     *Timer
	queue     *nodeQueue[N]
	dominance map[string][]N

	NodesExplored int64
	NodesPruned   int64
}

// NewDriver builds a driver bound to one scheme instance, one shared
// solution sink, and one timer.
func NewDriver[N NodeHandle, I any](scheme Scheme[N, I], sink SolutionSink, timer *Timer) *Driver[N, I] {
	return &Driver[N, I]{
		scheme:    scheme,
		sink:      sink,
		timer:     timer,
		queue:     &nodeQueue[N]{less: scheme.Less},
		dominance: map[string][]N{},
	}
}

// Run drives the search to completion: the queue empties, the timer
// fires, or ctx-equivalent cancellation trips. It returns a non-nil error
// only on a genuine scheme error (e.g. ToSolution replay failure); running out of
// time is not an error per spec §7 -- the sink's current best remains
// the final answer.
func (d *Driver[N, I]) Run() error {
	root := d.scheme.Root()
	heap.Init(d.queue)
	heap.Push(d.queue, root)

	for d.queue.Len() > 0 {
		if d.timer.Expired() {
			return nil
		}
		n := heap.Pop(d.queue).(N)
		d.NodesExplored++

		if d.scheme.Bound(n, d.sink.Worst()) {
			d.NodesPruned++
			continue
		}

		for _, insertion := range d.scheme.Insertions(n) {
			child := d.scheme.Child(n, insertion)

			if d.scheme.Leaf(child) {
				sol, err := d.scheme.ToSolution(child)
				if err != nil {
					return err
				}
				if sol.Feasible() {
					d.sink.Offer(sol)
				}
				continue
			}

			// Leaf is always false for objectives that don't require a full
			// packing (Knapsack/Default): every node is itself a valid
			// candidate solution there, so it must still reach the pool even
			// though the search keeps branching past it.
			if !d.scheme.RequiresFull() {
				sol, err := d.scheme.ToSolution(child)
				if err != nil {
					return err
				}
				if sol.Feasible() {
					d.sink.Offer(sol)
				}
			}

			key := d.scheme.HashKey(child)
			dominated := false
			for _, rep := range d.dominance[key] {
				if d.scheme.Dominates(rep, child) {
					dominated = true
					break
				}
			}
			if dominated {
				d.NodesPruned++
				continue
			}
			d.dominance[key] = append(d.dominance[key], child)
			heap.Push(d.queue, child)
		}
	}
	return nil
}
