// Package box implements the branching scheme for three-dimensional box
// packing: a generalization of the rectangle scheme's staircase front to a
// 3D skyline, with y- and z-uncovered caches supplying anchor points for
// boxes stacked directly above or in front of an already-placed box.
package box

import (
	"fmt"
	"strings"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/perr"
)

// Cell is one 3D staircase front entry: the front sits at x for every
// (y, z) in [YStart, YEnd) x [ZStart, ZEnd).
type Cell struct {
	X              int64
	YStart, YEnd   int64
	ZStart, ZEnd   int64
}

// Insertion is one candidate placement: an item type under a rotation,
// either into the bin being filled (NewBin < 0) or into a freshly opened
// bin (NewBin = direction index + 1).
type Insertion struct {
	ItemTypeID int
	Rotation   model.Rotation
	NewBin     int
	BinTypeID  int
	X, Y, Z    int64
}

// Node is an immutable snapshot of a partial box packing.
type Node struct {
	parent *Node
	id     int64

	itemTypeID int
	rotation   model.Rotation
	newBin     int
	binTypeID  int
	x, y, z    int64

	itemCopiesRemaining []int64

	numberOfBins  int64
	numberOfItems int64
	itemVolume    int64
	itemWeight    float64
	waste         int64
	profit        float64

	lastBinTypeID        int
	lastBinWeight        float64
	front                []Cell
	yUncovered           []model.Point3D
	zUncovered           []model.Point3D
	xeMax, yeMax, zeMax  int64
	maxGroupID           int
}

func (n *Node) ID() int64 { return n.id }

// Scheme is the box branching scheme bound to one instance.
type Scheme struct {
	instance *model.Instance
	guideID  int
	nextID   int64
}

// New builds a scheme for ins.
func New(ins *model.Instance, guideID int) (*Scheme, error) {
	if ins.Dimension() != 3 {
		return nil, perr.Newf(perr.ConstraintViolation, "box scheme requires a dimension-3 instance, got %d", ins.Dimension())
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

// Leaf mirrors the rectangle scheme's rule.
func (s *Scheme) Leaf(n *Node) bool {
	if !s.instance.Objective().RequiresFull() {
		return false
	}
	return n.numberOfItems == s.instance.NumberOfItems()
}

// RequiresFull reports whether the instance's objective only accepts
// fully-packed solutions (see Leaf).
func (s *Scheme) RequiresFull() bool { return s.instance.Objective().RequiresFull() }

func freshFront(bt model.BinType) []Cell {
	return []Cell{{X: 0, YStart: 0, YEnd: bt.Extents[1], ZStart: 0, ZEnd: bt.Extents[2]}}
}

func remainingAvailable(remaining int64) bool { return remaining != 0 }

// Insertions enumerates the legal children of parent.
func (s *Scheme) Insertions(parent *Node) []Insertion {
	var out []Insertion

	if parent.numberOfBins > 0 {
		bt := s.instance.BinType(parent.lastBinTypeID)
		out = s.insertionsInto(parent, bt, parent.front, parent.yUncovered, parent.zUncovered, -1, 0)
	}

	if len(out) > 0 {
		return out
	}

	for _, bt := range s.instance.BinTypes() {
		if bt.Copies == 0 {
			continue
		}
		out = append(out, s.insertionsInto(parent, bt, freshFront(bt), nil, nil, 1, bt.ID)...)
	}
	return out
}

func (s *Scheme) insertionsInto(parent *Node, bt model.BinType, front []Cell, yUncovered, zUncovered []model.Point3D, newBin int, binTypeID int) []Insertion {
	type key struct {
		item, rot  int
		x, y, z    int64
	}
	seen := map[key]bool{}
	var out []Insertion

	anchors := make([]model.Point3D, 0, len(front)+len(yUncovered)+len(zUncovered))
	for _, c := range front {
		anchors = append(anchors, model.Point3D{X: c.X, Y: c.YStart, Z: c.ZStart})
	}
	anchors = append(anchors, yUncovered...)
	anchors = append(anchors, zUncovered...)

	for _, it := range s.instance.ItemTypes() {
		if !remainingAvailable(parent.itemCopiesRemaining[it.ID]) {
			continue
		}
		for ri, rot := range it.Rotations {
			ext := it.ExtentsUnder(rot)
			w, h, d := ext[0], ext[1], ext[2]
			for _, a := range anchors {
				for _, p := range s.candidatePoints(bt, a, w, h, d) {
					k := key{it.ID, ri, p.X, p.Y, p.Z}
					if seen[k] {
						continue
					}
					if !s.feasibleAt(parent, bt, it) {
						continue
					}
					seen[k] = true
					out = append(out, Insertion{ItemTypeID: it.ID, Rotation: rot, NewBin: newBin, BinTypeID: binTypeID, X: p.X, Y: p.Y, Z: p.Z})
				}
			}
		}
	}
	return out
}

// candidatePoints mirrors the rectangle scheme's defect-shift retries,
// restricted to the bin's (x, y) floor plane: defects are 2D, so a
// vertical (z) shift never clears one.
func (s *Scheme) candidatePoints(bt model.BinType, a model.Point3D, w, h, d int64) []model.Point3D {
	if a.X+w > bt.Extents[0] || a.Y+h > bt.Extents[1] || a.Z+d > bt.Extents[2] {
		return nil
	}
	footprint := model.Rect{X: a.X, Y: a.Y, Lx: w, Ly: h}
	overlapping := overlappingDefects(bt, footprint)
	if len(overlapping) == 0 {
		return []model.Point3D{a}
	}
	var out []model.Point3D
	for _, def := range overlapping {
		shiftedX := model.Point3D{X: def.Rect.X + def.Rect.Lx, Y: a.Y, Z: a.Z}
		if clearsEverything(bt, shiftedX, w, h, d) {
			out = append(out, shiftedX)
		}
		shiftedY := model.Point3D{X: a.X, Y: def.Rect.Y + def.Rect.Ly, Z: a.Z}
		if clearsEverything(bt, shiftedY, w, h, d) {
			out = append(out, shiftedY)
		}
	}
	return out
}

func overlappingDefects(bt model.BinType, footprint model.Rect) []model.Defect {
	var out []model.Defect
	for _, def := range bt.Defects {
		if footprint.Intersects(def.Rect) {
			out = append(out, def)
		}
	}
	return out
}

func clearsEverything(bt model.BinType, p model.Point3D, w, h, d int64) bool {
	if p.X < 0 || p.Y < 0 || p.Z < 0 {
		return false
	}
	if p.X+w > bt.Extents[0] || p.Y+h > bt.Extents[1] || p.Z+d > bt.Extents[2] {
		return false
	}
	footprint := model.Rect{X: p.X, Y: p.Y, Lx: w, Ly: h}
	return len(overlappingDefects(bt, footprint)) == 0
}

func (s *Scheme) feasibleAt(parent *Node, bt model.BinType, it model.ItemType) bool {
	newWeight := parent.lastBinWeight + it.Weight
	if parent.numberOfBins == 0 {
		newWeight = it.Weight
	}
	return newWeight <= bt.MaximumWeight*model.PSTOL
}

// Child applies insertion to parent, updating the 3D front per the same
// maintenance rule as the rectangle scheme generalized to two banded
// axes: cells whose (y, z) band lies fully inside the new box's footprint
// are dropped, overlapping cells are split into the up-to-4 remaining
// sub-bands outside the footprint, and one new cell is inserted at the
// box's far (x) face.
func (s *Scheme) Child(parent *Node, ins Insertion) *Node {
	it := s.instance.ItemType(ins.ItemTypeID)
	ext := it.ExtentsUnder(ins.Rotation)
	w, h, d := ext[0], ext[1], ext[2]

	s.nextID++
	c := &Node{
		parent:              parent,
		id:                  s.nextID,
		itemTypeID:          it.ID,
		rotation:            ins.Rotation,
		newBin:              ins.NewBin,
		x:                   ins.X,
		y:                   ins.Y,
		z:                   ins.Z,
		itemCopiesRemaining: append([]int64(nil), parent.itemCopiesRemaining...),
		numberOfBins:        parent.numberOfBins,
		numberOfItems:       parent.numberOfItems + 1,
		itemVolume:          parent.itemVolume + w*h*d,
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

	var front []Cell
	var yUncovered, zUncovered []model.Point3D
	if ins.NewBin >= 0 {
		bt := s.instance.BinType(ins.BinTypeID)
		c.binTypeID = bt.ID
		c.lastBinTypeID = bt.ID
		c.numberOfBins++
		c.lastBinWeight = it.Weight
		front = freshFront(bt)
		c.xeMax, c.yeMax, c.zeMax = 0, 0, 0
	} else {
		front = parent.front
		yUncovered = parent.yUncovered
		zUncovered = parent.zUncovered
		c.lastBinWeight = parent.lastBinWeight + it.Weight
		c.xeMax, c.yeMax, c.zeMax = parent.xeMax, parent.yeMax, parent.zeMax
	}

	c.front = updateFront(front, ins.X, ins.Y, ins.Z, w, h, d)
	c.yUncovered = append(append([]model.Point3D(nil), yUncovered...), model.Point3D{X: ins.X, Y: ins.Y + h, Z: ins.Z})
	c.zUncovered = append(append([]model.Point3D(nil), zUncovered...), model.Point3D{X: ins.X, Y: ins.Y, Z: ins.Z + d})

	if ins.X+w > c.xeMax {
		c.xeMax = ins.X + w
	}
	if ins.Y+h > c.yeMax {
		c.yeMax = ins.Y + h
	}
	if ins.Z+d > c.zeMax {
		c.zeMax = ins.Z + d
	}
	c.waste = c.xeMax*c.yeMax*c.zeMax - c.itemVolume
	return c
}

// updateFront removes or trims every cell whose (y, z) band overlaps the
// new box's footprint and appends one new cell at the box's far face.
func updateFront(front []Cell, x0, y0, z0, w, h, d int64) []Cell {
	y1, z1 := y0+h, z0+d
	var out []Cell
	for _, cell := range front {
		if !model.YIntersects(cell.YStart, cell.YEnd, y0, y1) || !model.ZIntersects(cell.ZStart, cell.ZEnd, z0, z1) {
			out = append(out, cell)
			continue
		}
		out = append(out, subtractBand(cell, y0, y1, z0, z1)...)
	}
	out = append(out, Cell{X: x0 + w, YStart: y0, YEnd: y1, ZStart: z0, ZEnd: z1})
	return out
}

// subtractBand splits cell's (y, z) band around its intersection with
// [yLo, yHi) x [zLo, zHi), returning the up to four remaining sub-bands
// that lie outside the subtracted region, at the same x depth.
func subtractBand(cell Cell, yLo, yHi, zLo, zHi int64) []Cell {
	iy0, iy1 := max64(cell.YStart, yLo), min64(cell.YEnd, yHi)
	iz0, iz1 := max64(cell.ZStart, zLo), min64(cell.ZEnd, zHi)
	if iy0 >= iy1 || iz0 >= iz1 {
		return []Cell{cell}
	}

	var out []Cell
	if iy0 > cell.YStart {
		out = append(out, Cell{X: cell.X, YStart: cell.YStart, YEnd: iy0, ZStart: cell.ZStart, ZEnd: cell.ZEnd})
	}
	if iy1 < cell.YEnd {
		out = append(out, Cell{X: cell.X, YStart: iy1, YEnd: cell.YEnd, ZStart: cell.ZStart, ZEnd: cell.ZEnd})
	}
	if iz0 > cell.ZStart {
		out = append(out, Cell{X: cell.X, YStart: iy0, YEnd: iy1, ZStart: cell.ZStart, ZEnd: iz0})
	}
	if iz1 < cell.ZEnd {
		out = append(out, Cell{X: cell.X, YStart: iy0, YEnd: iy1, ZStart: iz1, ZEnd: cell.ZEnd})
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// HashKey groups nodes by their item-copy multiset.
func (s *Scheme) HashKey(n *Node) string {
	var b strings.Builder
	for _, r := range n.itemCopiesRemaining {
		fmt.Fprintf(&b, "%d,", r)
	}
	return b.String()
}

// Dominates extends the rectangle scheme's rule to 3D: a and b must use
// the same number of bins, and for every pair of overlapping front cells
// a's x is no greater than b's.
func (s *Scheme) Dominates(a, b *Node) bool {
	if a.numberOfBins != b.numberOfBins {
		return false
	}
	for _, ca := range a.front {
		for _, cb := range b.front {
			if model.YIntersects(ca.YStart, ca.YEnd, cb.YStart, cb.YEnd) &&
				model.ZIntersects(ca.ZStart, ca.ZEnd, cb.ZStart, cb.ZEnd) && ca.X > cb.X {
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

func meanItemVolume(ins *model.Instance) float64 {
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
	envelope := float64(n.xeMax * n.yeMax * n.zeMax)
	switch s.guideID {
	case 1:
		if n.itemVolume == 0 {
			return 0
		}
		return envelope / float64(n.itemVolume) / meanItemVolume(s.instance)
	case 4:
		if n.profit == 0 {
			return 0
		}
		return envelope / n.profit
	case 5:
		if n.profit == 0 || n.itemVolume == 0 {
			return 0
		}
		return envelope * float64(n.numberOfItems) / (n.profit * float64(n.itemVolume))
	case 6:
		return float64(n.waste)
	case 7:
		return -s.ubKnapsack(n)
	default: // 0
		if n.itemVolume == 0 {
			return 0
		}
		return envelope / float64(n.itemVolume)
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
	remainingPackableVolume -= n.itemVolume
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
		if err := sol.AddItem(binPos, n.itemTypeID, n.rotation, []int64{n.x, n.y, n.z}); err != nil {
			return nil, err
		}
	}
	return sol, nil
}
