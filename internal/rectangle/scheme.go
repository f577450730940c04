// Package rectangle implements the branching scheme for two-dimensional
// rectangle packing: a node's geometric state is a staircase front of
// uncovered corners plus a list of previously placed items' top edges,
// used to generate anchor points in amortized constant work per child.
package rectangle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/perr"
)

// Corner is one staircase front entry: the front sits at x for every y in
// [YStart, YEnd).
type Corner struct {
	X      int64
	YStart int64
	YEnd   int64
}

// TopEdge records the top-left point of a previously placed item, used
// as an anchor candidate for an item placed flush above it.
type TopEdge struct {
	X int64
	Y int64
}

// Insertion is one candidate placement: an item type under a rotation,
// either into the bin being filled (NewBin < 0) or into a freshly opened
// bin (NewBin = direction index + 1).
type Insertion struct {
	ItemTypeID int
	Rotation   model.Rotation
	NewBin     int
	BinTypeID  int
	X, Y       int64
}

// Node is an immutable snapshot of a partial rectangle packing.
type Node struct {
	parent *Node
	id     int64

	itemTypeID int
	rotation   model.Rotation
	newBin     int
	binTypeID  int
	x, y       int64

	itemCopiesRemaining []int64

	numberOfBins  int64
	numberOfItems int64
	itemArea      int64
	itemWeight    float64
	waste         int64
	profit        float64

	lastBinTypeID  int
	lastBinWeight  float64
	front          []Corner
	topEdges       []TopEdge
	xeMax, yeMax   int64
	maxGroupID     int
}

func (n *Node) ID() int64 { return n.id }

// Scheme is the rectangle branching scheme bound to one instance.
type Scheme struct {
	instance *model.Instance
	guideID  int
	nextID   int64
}

// New builds a scheme for ins.
func New(ins *model.Instance, guideID int) (*Scheme, error) {
	if ins.Dimension() != 2 {
		return nil, perr.Newf(perr.ConstraintViolation, "rectangle scheme requires a dimension-2 instance, got %d", ins.Dimension())
	}
	return &Scheme{instance: ins, guideID: guideID}, nil
}

// Root returns the empty packing.
func (s *Scheme) Root() *Node {
	remaining := make([]int64, len(s.instance.ItemTypes()))
	for i, it := range s.instance.ItemTypes() {
		remaining[i] = it.Copies
	}
	s.nextID++
	return &Node{id: s.nextID, itemTypeID: -1, itemCopiesRemaining: remaining, maxGroupID: -1}
}

// Leaf mirrors the one-dimensional scheme's rule: full-objective problems
// require total demand met; Default/Knapsack treat every node as a
// non-leaf that the driver nonetheless offers to the pool.
func (s *Scheme) Leaf(n *Node) bool {
	if !s.instance.Objective().RequiresFull() {
		return false
	}
	return n.numberOfItems == s.instance.NumberOfItems()
}

// RequiresFull reports whether the instance's objective only accepts
// fully-packed solutions (see Leaf).
func (s *Scheme) RequiresFull() bool { return s.instance.Objective().RequiresFull() }

func freshFront(bt model.BinType) []Corner {
	return []Corner{{X: 0, YStart: 0, YEnd: bt.Extents[1]}}
}

// Insertions enumerates the legal children of parent.
func (s *Scheme) Insertions(parent *Node) []Insertion {
	var out []Insertion

	if parent.numberOfBins > 0 {
		bt := s.instance.BinType(parent.lastBinTypeID)
		out = s.insertionsInto(parent, bt, parent.front, parent.topEdges, -1, 0)
	}

	if len(out) > 0 {
		return out
	}

	for _, bt := range s.instance.BinTypes() {
		if bt.Copies == 0 {
			continue
		}
		out = append(out, s.insertionsInto(parent, bt, freshFront(bt), nil, 1, bt.ID)...)
	}
	return out
}

func (s *Scheme) insertionsInto(parent *Node, bt model.BinType, front []Corner, topEdges []TopEdge, newBin int, binTypeID int) []Insertion {
	type key struct {
		item, rot int
		x, y      int64
	}
	seen := map[key]bool{}
	var out []Insertion

	anchors := make([]model.Point2D, 0, len(front)+len(topEdges))
	for _, c := range front {
		anchors = append(anchors, model.Point2D{X: c.X, Y: c.YStart})
	}
	for _, t := range topEdges {
		anchors = append(anchors, model.Point2D{X: t.X, Y: t.Y})
	}

	for _, it := range s.instance.ItemTypes() {
		if !remainingAvailable(parent.itemCopiesRemaining[it.ID]) {
			continue
		}
		for ri, rot := range it.Rotations {
			ext := it.ExtentsUnder(rot)
			w, h := ext[0], ext[1]
			for _, a := range anchors {
				for _, p := range s.candidatePoints(bt, a, w, h) {
					k := key{it.ID, ri, p.X, p.Y}
					if seen[k] {
						continue
					}
					if !s.feasibleAt(parent, bt, it, p.X, p.Y, w, h) {
						continue
					}
					seen[k] = true
					out = append(out, Insertion{ItemTypeID: it.ID, Rotation: rot, NewBin: newBin, BinTypeID: binTypeID, X: p.X, Y: p.Y})
				}
			}
		}
	}
	return out
}

// candidatePoints returns the anchor itself, if it clears the bin extents
// and every defect, or else up to one x-shifted and one y-shifted retry
// per overlapping defect.
func (s *Scheme) candidatePoints(bt model.BinType, a model.Point2D, w, h int64) []model.Point2D {
	rect := model.Rect{X: a.X, Y: a.Y, Lx: w, Ly: h}
	if rect.X+rect.Lx > bt.Extents[0] || rect.Y+rect.Ly > bt.Extents[1] {
		return nil
	}
	overlapping := overlappingDefects(bt, rect)
	if len(overlapping) == 0 {
		return []model.Point2D{a}
	}
	var out []model.Point2D
	for _, d := range overlapping {
		shiftedX := model.Point2D{X: d.Rect.X + d.Rect.Lx, Y: a.Y}
		if clearsEverything(bt, shiftedX, w, h) {
			out = append(out, shiftedX)
		}
		shiftedY := model.Point2D{X: a.X, Y: d.Rect.Y + d.Rect.Ly}
		if clearsEverything(bt, shiftedY, w, h) {
			out = append(out, shiftedY)
		}
	}
	return out
}

func overlappingDefects(bt model.BinType, rect model.Rect) []model.Defect {
	var out []model.Defect
	for _, d := range bt.Defects {
		if rect.Intersects(d.Rect) {
			out = append(out, d)
		}
	}
	return out
}

func clearsEverything(bt model.BinType, p model.Point2D, w, h int64) bool {
	rect := model.Rect{X: p.X, Y: p.Y, Lx: w, Ly: h}
	if rect.X < 0 || rect.Y < 0 || rect.X+rect.Lx > bt.Extents[0] || rect.Y+rect.Ly > bt.Extents[1] {
		return false
	}
	return len(overlappingDefects(bt, rect)) == 0
}

func (s *Scheme) feasibleAt(parent *Node, bt model.BinType, it model.ItemType, x, y, w, h int64) bool {
	newWeight := parent.lastBinWeight + it.Weight
	if parent.numberOfBins == 0 {
		newWeight = it.Weight
	}
	if newWeight > bt.MaximumWeight*model.PSTOL {
		return false
	}
	if !s.unloadingOK(parent, it, x, y) {
		return false
	}
	return true
}

func (s *Scheme) unloadingOK(parent *Node, it model.ItemType, x, y int64) bool {
	switch s.instance.UnloadingConstraint() {
	case model.IncreasingX:
		return it.GroupID >= parent.maxGroupID || parent.maxGroupID < 0
	case model.IncreasingY:
		return it.GroupID >= parent.maxGroupID || parent.maxGroupID < 0
	default:
		return true
	}
}

func remainingAvailable(remaining int64) bool { return remaining != 0 }

// Child applies insertion to parent and returns the resulting node,
// updating the staircase front per the maintenance rule: corners fully
// inside the new item's y-band are dropped, overlapping corners are
// trimmed to the part outside the band, and one new corner is inserted
// at the item's right edge.
func (s *Scheme) Child(parent *Node, ins Insertion) *Node {
	it := s.instance.ItemType(ins.ItemTypeID)
	ext := it.ExtentsUnder(ins.Rotation)
	w, h := ext[0], ext[1]

	s.nextID++
	c := &Node{
		parent:              parent,
		id:                  s.nextID,
		itemTypeID:          it.ID,
		rotation:            ins.Rotation,
		newBin:              ins.NewBin,
		x:                   ins.X,
		y:                   ins.Y,
		itemCopiesRemaining: append([]int64(nil), parent.itemCopiesRemaining...),
		numberOfBins:        parent.numberOfBins,
		numberOfItems:       parent.numberOfItems + 1,
		itemArea:            parent.itemArea + w*h,
		itemWeight:          parent.itemWeight + it.Weight,
		profit:              parent.profit + it.Profit,
		lastBinTypeID:       parent.lastBinTypeID,
		maxGroupID:          parent.maxGroupID,
	}
	if it.Copies >= 0 {
		c.itemCopiesRemaining[it.ID]--
	}
	if it.GroupID > c.maxGroupID {
		c.maxGroupID = it.GroupID
	}

	var front []Corner
	var topEdges []TopEdge
	if ins.NewBin >= 0 {
		bt := s.instance.BinType(ins.BinTypeID)
		c.binTypeID = bt.ID
		c.lastBinTypeID = bt.ID
		c.numberOfBins++
		c.lastBinWeight = it.Weight
		front = freshFront(bt)
		c.xeMax, c.yeMax = 0, 0
	} else {
		front = parent.front
		topEdges = parent.topEdges
		c.lastBinWeight = parent.lastBinWeight + it.Weight
		c.xeMax, c.yeMax = parent.xeMax, parent.yeMax
	}

	c.front = updateFront(front, ins.X, ins.Y, w, h)
	c.topEdges = append(append([]TopEdge(nil), topEdges...), TopEdge{X: ins.X, Y: ins.Y + h})

	if ins.X+w > c.xeMax {
		c.xeMax = ins.X + w
	}
	if ins.Y+h > c.yeMax {
		c.yeMax = ins.Y + h
	}
	c.waste = c.xeMax*c.yeMax - c.itemArea
	return c
}

func updateFront(front []Corner, x0, y0, w, h int64) []Corner {
	y1 := y0 + h
	var out []Corner
	for _, corner := range front {
		if corner.YEnd <= y0 || corner.YStart >= y1 {
			out = append(out, corner)
			continue
		}
		if corner.YStart < y0 {
			out = append(out, Corner{X: corner.X, YStart: corner.YStart, YEnd: y0})
		}
		if corner.YEnd > y1 {
			out = append(out, Corner{X: corner.X, YStart: y1, YEnd: corner.YEnd})
		}
	}
	out = append(out, Corner{X: x0 + w, YStart: y0, YEnd: y1})
	sort.Slice(out, func(i, j int) bool { return out[i].YStart < out[j].YStart })
	return out
}

// HashKey groups nodes by their item-copy multiset.
func (s *Scheme) HashKey(n *Node) string {
	var b strings.Builder
	for _, r := range n.itemCopiesRemaining {
		fmt.Fprintf(&b, "%d,", r)
	}
	return b.String()
}

// Dominates holds when a and b share the same number of bins and, for
// every pair of front corners with overlapping y-bands, a's corner is no
// further right than b's -- a's staircase is everywhere no further right
// than b's.
func (s *Scheme) Dominates(a, b *Node) bool {
	if a.numberOfBins != b.numberOfBins {
		return false
	}
	for _, ca := range a.front {
		for _, cb := range b.front {
			if model.YIntersects(ca.YStart, ca.YEnd, cb.YStart, cb.YEnd) && ca.X > cb.X {
				return false
			}
		}
	}
	return true
}

// Less is the guide ordering used by the best-first queue.
func (s *Scheme) Less(a, b *Node) bool {
	ga, gb := s.guideValue(a), s.guideValue(b)
	if model.StrictlyLess(ga, gb) {
		return true
	}
	if model.StrictlyGreater(ga, gb) {
		return false
	}
	return a.id < b.id
}

func meanItemArea(ins *model.Instance) float64 {
	if len(ins.ItemTypes()) == 0 {
		return 1
	}
	var sum int64
	for _, it := range ins.ItemTypes() {
		sum += it.Volume()
	}
	return float64(sum) / float64(len(ins.ItemTypes()))
}

func (s *Scheme) guideValue(n *Node) float64 {
	envelope := float64(n.xeMax * n.yeMax)
	switch s.guideID {
	case 1:
		if n.itemArea == 0 {
			return 0
		}
		return envelope / float64(n.itemArea) / meanItemArea(s.instance)
	case 4:
		if n.profit == 0 {
			return 0
		}
		return envelope / n.profit
	case 5:
		if n.profit == 0 || n.itemArea == 0 {
			return 0
		}
		return envelope * float64(n.numberOfItems) / (n.profit * float64(n.itemArea))
	case 6:
		return float64(n.waste)
	case 7:
		return -s.ubKnapsack(n)
	default: // 0
		if n.itemArea == 0 {
			return 0
		}
		return envelope / float64(n.itemArea)
	}
}

func (s *Scheme) ubKnapsack(n *Node) float64 {
	remainingItemVolume := int64(0)
	unboundedDemand := false
	for _, it := range s.instance.ItemTypes() {
		r := n.itemCopiesRemaining[it.ID]
		if r < 0 {
			unboundedDemand = true
			break
		}
		remainingItemVolume += r * it.Volume()
	}

	remainingPackableVolume := int64(0)
	unboundedSupply := false
	for _, bt := range s.instance.BinTypes() {
		if bt.Copies < 0 {
			unboundedSupply = true
			break
		}
		remainingPackableVolume += bt.Volume() * bt.Copies
	}
	remainingPackableVolume -= n.itemArea
	if remainingPackableVolume < 0 {
		remainingPackableVolume = 0
	}

	if unboundedSupply || (!unboundedDemand && remainingPackableVolume >= remainingItemVolume) {
		return s.instance.TotalItemProfit()
	}
	eff := s.instance.ItemType(s.instance.MaxEfficiencyItemTypeID())
	density := 0.0
	if eff.Volume() > 0 {
		density = eff.Profit / float64(eff.Volume())
	}
	return n.profit + float64(remainingPackableVolume)*density
}

// Bound reports whether no descendant of n can beat worst.
func (s *Scheme) Bound(n *Node, worst *model.Solution) bool {
	if worst == nil {
		return false
	}
	switch s.instance.Objective() {
	case model.BinPacking:
		return n.numberOfBins >= worst.NumberOfBins()
	case model.BinPackingWithLeftovers:
		return n.waste >= worst.Waste()
	case model.OpenDimensionX:
		return n.xeMax >= worst.MaxX()
	case model.OpenDimensionY:
		return n.yeMax >= worst.MaxY()
	case model.Knapsack, model.Default:
		return s.ubKnapsack(n) <= worst.Profit()
	default:
		return false
	}
}

// Better reports whether a is strictly preferable to b on node
// aggregates.
func (s *Scheme) Better(a, b *Node) bool {
	switch s.instance.Objective() {
	case model.BinPacking:
		return a.numberOfBins < b.numberOfBins
	case model.BinPackingWithLeftovers:
		return a.waste < b.waste
	case model.OpenDimensionX:
		return a.xeMax < b.xeMax
	case model.OpenDimensionY:
		return a.yeMax < b.yeMax
	default:
		return a.profit > b.profit
	}
}

// ToSolution replays the chain from root to leaf.
func (s *Scheme) ToSolution(leaf *Node) (*model.Solution, error) {
	var chain []*Node
	for n := leaf; n != nil && n.itemTypeID >= 0; n = n.parent {
		chain = append(chain, n)
	}
	sol := model.NewSolution(s.instance)
	binPos := -1
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		if n.newBin >= 0 {
			pos, err := sol.AddBin(n.binTypeID, 1)
			if err != nil {
				return nil, err
			}
			binPos = pos
		}
		if err := sol.AddItem(binPos, n.itemTypeID, n.rotation, []int64{n.x, n.y}); err != nil {
			return nil, err
		}
	}
	return sol, nil
}
