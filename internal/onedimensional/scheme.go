// Package onedimensional implements the branching scheme for the
// one-dimensional bin-packing problem family: items and bins are
// described by a single length, and a node's only geometric state is the
// length, weight, item count, and stacking budget of the bin currently
// being filled.
package onedimensional

import (
	"fmt"
	"math"
	"strings"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/perr"
)

const unlimited = math.MaxInt64

// Insertion is one candidate placement: add an item, either to the bin
// currently being filled or to a freshly opened bin of BinTypeID.
type Insertion struct {
	ItemTypeID int
	NewBin     bool
	BinTypeID  int
}

// Node is an immutable snapshot of a partial one-dimensional packing.
type Node struct {
	parent *Node
	id     int64

	itemTypeID int
	newBin     bool
	binTypeID  int
	position   int64

	itemCopiesRemaining []int64

	numberOfBins  int64
	numberOfItems int64
	itemLength    int64
	itemWeight    float64
	currentLength int64
	waste         int64
	profit        float64

	lastBinTypeID               int
	lastBinLength                int64
	lastBinWeight                float64
	lastBinNumberOfItems         int64
	lastBinMaximumNumberOfItems  int64
	lastBinRemainingWeight       float64
	lastBinWeightAboveRemaining  float64
	lastBinEligibility           int
}

// ID returns the node's insertion order, used as the FIFO tiebreak among
// guide-equal nodes.
func (n *Node) ID() int64 { return n.id }

// Scheme is the one-dimensional branching scheme bound to one instance.
type Scheme struct {
	instance *model.Instance
	guideID  int
	nextID   int64
}

// New builds a scheme for ins, rejecting objectives that have no meaning
// for a single axis (OpenDimensionX/Y apply only to schemes with at least
// two axes).
func New(ins *model.Instance, guideID int) (*Scheme, error) {
	if ins.Dimension() != 1 {
		return nil, perr.Newf(perr.ConstraintViolation, "one-dimensional scheme requires a dimension-1 instance, got %d", ins.Dimension())
	}
	switch ins.Objective() {
	case model.OpenDimensionX, model.OpenDimensionY:
		return nil, perr.Newf(perr.ObjectiveUnsupported, "%s has no meaning for a one-dimensional instance", ins.Objective())
	}
	return &Scheme{instance: ins, guideID: guideID}, nil
}

// Root returns the empty packing: no bins open, every item type's full
// supply remaining.
func (s *Scheme) Root() *Node {
	remaining := make([]int64, len(s.instance.ItemTypes()))
	for i, it := range s.instance.ItemTypes() {
		remaining[i] = it.Copies
	}
	s.nextID++
	return &Node{
		id:                          s.nextID,
		itemTypeID:                  -1,
		itemCopiesRemaining:         remaining,
		lastBinRemainingWeight:      -1,
		lastBinWeightAboveRemaining: -1,
		lastBinMaximumNumberOfItems: unlimited,
	}
}

// Leaf reports whether n is a complete solution. For Default and Knapsack
// (which do not require a full packing) it is always false: the driver
// offers every generated node to the pool regardless, since any partial
// packing is itself a valid candidate under those objectives.
func (s *Scheme) Leaf(n *Node) bool {
	if !s.instance.Objective().RequiresFull() {
		return false
	}
	return n.numberOfItems == s.instance.NumberOfItems()
}

// RequiresFull reports whether the instance's objective only accepts
// fully-packed solutions (see Leaf).
func (s *Scheme) RequiresFull() bool { return s.instance.Objective().RequiresFull() }

func remainingAvailable(remaining int64) bool { return remaining != 0 }

// Insertions enumerates the legal children of parent: same-bin insertions
// for every item type that still fits the bin being filled, or, only when
// no same-bin insertion exists, one new-bin insertion per (item type, bin
// type) combination that fits an empty bin.
func (s *Scheme) Insertions(parent *Node) []Insertion {
	var out []Insertion

	if parent.numberOfBins > 0 {
		bt := s.instance.BinType(parent.lastBinTypeID)
		for _, it := range s.instance.ItemTypes() {
			if !remainingAvailable(parent.itemCopiesRemaining[it.ID]) {
				continue
			}
			if parent.lastBinEligibility >= 0 && it.EligibilityID >= 0 && it.EligibilityID != parent.lastBinEligibility {
				continue
			}
			newLength := parent.lastBinLength + it.Extents[0] - it.NestingLength
			if newLength > bt.Extents[0] {
				continue
			}
			newWeight := parent.lastBinWeight + it.Weight
			if newWeight > bt.MaximumWeight*model.PSTOL {
				continue
			}
			if parent.lastBinRemainingWeight >= 0 && it.Weight > parent.lastBinRemainingWeight*model.PSTOL {
				continue
			}
			maxItems := parent.lastBinMaximumNumberOfItems
			if it.MaximumStackability > 0 && it.MaximumStackability < maxItems {
				maxItems = it.MaximumStackability
			}
			if parent.lastBinNumberOfItems+1 > maxItems {
				continue
			}
			if parent.lastBinWeightAboveRemaining >= 0 && it.Weight > parent.lastBinWeightAboveRemaining*model.PSTOL {
				continue
			}
			out = append(out, Insertion{ItemTypeID: it.ID, NewBin: false})
		}
	}

	if len(out) > 0 {
		return out
	}

	for _, bt := range s.instance.BinTypes() {
		if bt.Copies == 0 {
			continue
		}
		for _, it := range s.instance.ItemTypes() {
			if !remainingAvailable(parent.itemCopiesRemaining[it.ID]) {
				continue
			}
			if it.Extents[0] > bt.Extents[0] {
				continue
			}
			if it.Weight > bt.MaximumWeight*model.PSTOL {
				continue
			}
			out = append(out, Insertion{ItemTypeID: it.ID, NewBin: true, BinTypeID: bt.ID})
		}
	}
	return out
}

// Child applies insertion to parent and returns the resulting node.
func (s *Scheme) Child(parent *Node, ins Insertion) *Node {
	it := s.instance.ItemType(ins.ItemTypeID)

	s.nextID++
	c := &Node{
		parent:                      parent,
		id:                          s.nextID,
		itemTypeID:                  it.ID,
		newBin:                      ins.NewBin,
		itemCopiesRemaining:         append([]int64(nil), parent.itemCopiesRemaining...),
		numberOfBins:                parent.numberOfBins,
		numberOfItems:               parent.numberOfItems + 1,
		itemLength:                  parent.itemLength + it.Extents[0],
		itemWeight:                  parent.itemWeight + it.Weight,
		profit:                      parent.profit + it.Profit,
		lastBinTypeID:               parent.lastBinTypeID,
		lastBinEligibility:          parent.lastBinEligibility,
	}
	if it.Copies >= 0 {
		c.itemCopiesRemaining[it.ID]--
	}

	if ins.NewBin {
		bt := s.instance.BinType(ins.BinTypeID)
		c.binTypeID = bt.ID
		c.position = 0
		c.numberOfBins++
		c.lastBinTypeID = bt.ID
		c.lastBinLength = it.Extents[0]
		c.lastBinWeight = it.Weight
		c.lastBinNumberOfItems = 1
		c.lastBinMaximumNumberOfItems = unlimited
		if it.MaximumStackability > 0 {
			c.lastBinMaximumNumberOfItems = it.MaximumStackability
		}
		c.lastBinRemainingWeight = -1
		if it.MaximumWeightAfter > 0 {
			c.lastBinRemainingWeight = it.MaximumWeightAfter
		}
		c.lastBinWeightAboveRemaining = -1
		if it.MaximumWeightAbove > 0 {
			c.lastBinWeightAboveRemaining = it.MaximumWeightAbove
		}
		c.lastBinEligibility = it.EligibilityID
		c.currentLength = parent.currentLength + bt.Extents[0]
	} else {
		c.position = parent.lastBinLength
		c.lastBinLength = parent.lastBinLength + it.Extents[0] - it.NestingLength
		c.lastBinWeight = parent.lastBinWeight + it.Weight
		c.lastBinNumberOfItems = parent.lastBinNumberOfItems + 1
		c.lastBinMaximumNumberOfItems = parent.lastBinMaximumNumberOfItems
		if it.MaximumStackability > 0 && it.MaximumStackability < c.lastBinMaximumNumberOfItems {
			c.lastBinMaximumNumberOfItems = it.MaximumStackability
		}
		c.lastBinRemainingWeight = parent.lastBinRemainingWeight
		if c.lastBinRemainingWeight >= 0 {
			c.lastBinRemainingWeight -= it.Weight
		}
		if it.MaximumWeightAfter > 0 && (c.lastBinRemainingWeight < 0 || it.MaximumWeightAfter < c.lastBinRemainingWeight) {
			c.lastBinRemainingWeight = it.MaximumWeightAfter
		}
		c.lastBinWeightAboveRemaining = parent.lastBinWeightAboveRemaining
		if c.lastBinWeightAboveRemaining >= 0 {
			c.lastBinWeightAboveRemaining -= it.Weight
		}
		if it.MaximumWeightAbove > 0 && (c.lastBinWeightAboveRemaining < 0 || it.MaximumWeightAbove < c.lastBinWeightAboveRemaining) {
			c.lastBinWeightAboveRemaining = it.MaximumWeightAbove
		}
		c.currentLength = parent.currentLength
	}
	c.waste = c.currentLength - c.itemLength
	return c
}

// HashKey groups nodes into the dominance bucket of their item-copy
// multiset, matching NodeHasher from the common contract.
func (s *Scheme) HashKey(n *Node) string {
	var b strings.Builder
	for _, r := range n.itemCopiesRemaining {
		fmt.Fprintf(&b, "%d,", r)
	}
	return b.String()
}

// Dominates reports whether a dominates b: same last-inserted item type
// and no more bin length used, so every future available to b is also
// available to a.
func (s *Scheme) Dominates(a, b *Node) bool {
	return a.itemTypeID == b.itemTypeID && a.currentLength <= b.currentLength
}

// ubKnapsack is a cheap admissible bound on the best profit reachable
// from n: if the remaining packable volume covers the remaining item
// volume, the bound is the instance's total item profit (every item
// fits); otherwise it is n's profit plus the most profit-dense item
// type's density applied to the remaining packable volume.
func (s *Scheme) ubKnapsack(n *Node) float64 {
	remainingItemVolume := int64(0)
	for _, it := range s.instance.ItemTypes() {
		r := n.itemCopiesRemaining[it.ID]
		if r < 0 {
			remainingItemVolume = unlimited
			break
		}
		remainingItemVolume += r * it.Volume()
	}

	remainingPackableVolume := int64(0)
	for _, bt := range s.instance.BinTypes() {
		if bt.Copies < 0 {
			remainingPackableVolume = unlimited
			break
		}
		remainingPackableVolume += bt.Volume() * bt.Copies
	}
	remainingPackableVolume -= n.currentLength
	if remainingPackableVolume < 0 {
		remainingPackableVolume = 0
	}

	if remainingPackableVolume >= remainingItemVolume {
		return s.instance.TotalItemProfit()
	}
	eff := s.instance.ItemType(s.instance.MaxEfficiencyItemTypeID())
	density := 0.0
	if eff.Volume() > 0 {
		density = eff.Profit / float64(eff.Volume())
	}
	return n.profit + float64(remainingPackableVolume)*density
}

func meanItemLength(ins *model.Instance) float64 {
	if len(ins.ItemTypes()) == 0 {
		return 1
	}
	var sum int64
	for _, it := range ins.ItemTypes() {
		sum += it.Extents[0]
	}
	return float64(sum) / float64(len(ins.ItemTypes()))
}

// Less is the guide ordering used by the best-first queue: smaller guide
// value comes first; under guide 8 ties are broken by smaller waste, and
// any remaining ties by node id (FIFO among equals).
func (s *Scheme) Less(a, b *Node) bool {
	ga, gb := s.guideValue(a), s.guideValue(b)
	if model.StrictlyLess(ga, gb) {
		return true
	}
	if model.StrictlyGreater(ga, gb) {
		return false
	}
	if s.guideID == 8 && a.waste != b.waste {
		return a.waste < b.waste
	}
	return a.id < b.id
}

func (s *Scheme) guideValue(n *Node) float64 {
	switch s.guideID {
	case 0:
		if n.itemLength == 0 {
			return 0
		}
		return float64(n.currentLength) / float64(n.itemLength)
	case 1:
		if n.itemLength == 0 {
			return 0
		}
		return float64(n.currentLength) / float64(n.itemLength) / meanItemLength(s.instance)
	case 2:
		if n.currentLength == 0 {
			return 0
		}
		wastePct := float64(n.waste) / float64(n.currentLength)
		return (0.1 + wastePct) / meanItemLength(s.instance)
	case 3:
		if n.currentLength == 0 {
			return 0
		}
		wastePct := float64(n.waste) / float64(n.currentLength)
		m := meanItemLength(s.instance)
		return (0.1 + wastePct) / (m * m)
	case 4:
		if n.profit == 0 {
			return 0
		}
		return float64(n.currentLength) / n.profit
	case 5:
		if n.profit == 0 || n.itemLength == 0 {
			return 0
		}
		return float64(n.currentLength*n.numberOfItems) / (n.profit * float64(n.itemLength))
	case 6:
		return float64(n.waste)
	case 8:
		return -s.ubKnapsack(n)
	default: // 7
		return -s.ubKnapsack(n)
	}
}

// Bound reports whether no descendant of n can beat worst, given the
// objective. It is a cheap, admissible (possibly loose) test: for
// profit-maximizing objectives it uses ubKnapsack; for bin-minimizing
// objectives a node can never reduce the bin count it has already spent.
func (s *Scheme) Bound(n *Node, worst *model.Solution) bool {
	if worst == nil {
		return false
	}
	switch s.instance.Objective() {
	case model.BinPacking:
		return n.numberOfBins >= worst.NumberOfBins()
	case model.VariableSizedBinPacking:
		return false
	case model.BinPackingWithLeftovers:
		return n.waste >= worst.Waste()
	case model.Knapsack, model.Default:
		return s.ubKnapsack(n) <= worst.Profit()
	default:
		return false
	}
}

// Better reports whether a is strictly preferable to b by the objective's
// scalar, evaluated on node aggregates rather than completed solutions.
// VariableSizedBinPacking compares bin counts here, not bin cost.
func (s *Scheme) Better(a, b *Node) bool {
	switch s.instance.Objective() {
	case model.BinPacking:
		return a.numberOfBins < b.numberOfBins
	case model.VariableSizedBinPacking:
		return a.numberOfBins < b.numberOfBins
	case model.BinPackingWithLeftovers:
		return a.waste < b.waste
	default:
		return a.profit > b.profit
	}
}

// ToSolution replays the chain from root to leaf, appending each
// placement in chronological order.
func (s *Scheme) ToSolution(leaf *Node) (*model.Solution, error) {
	var chain []*Node
	for n := leaf; n != nil && n.itemTypeID >= 0; n = n.parent {
		chain = append(chain, n)
	}
	sol := model.NewSolution(s.instance)
	binPos := -1
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		if n.newBin {
			pos, err := sol.AddBin(n.binTypeID, 1)
			if err != nil {
				return nil, err
			}
			binPos = pos
		}
		it := s.instance.ItemType(n.itemTypeID)
		rotation := model.Rotation{0}
		if err := sol.AddItem(binPos, n.itemTypeID, rotation, []int64{n.position}); err != nil {
			return nil, err
		}
		_ = it
	}
	return sol, nil
}
