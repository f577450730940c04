package model

import "github.com/piwi3910/packingsolver/internal/perr"

// Placement is one item laid inside a bin at a fixed rotation and position.
type Placement struct {
	ItemTypeID int
	Rotation   Rotation
	Position   []int64
}

// Extents returns the placed item's extents under its chosen rotation.
func (p Placement) Extents(ins *Instance) []int64 {
	return ins.ItemType(p.ItemTypeID).ExtentsUnder(p.Rotation)
}

// Bin is one bin record in a Solution: a bin type used Copies times with
// an identical item layout in each copy.
type Bin struct {
	BinTypeID int
	Copies    int64
	Items     []Placement
}

// Solution is a replayable packing: an append-only list of bins and
// placements, plus the running aggregates needed by the objective
// comparator.
type Solution struct {
	instance     *Instance
	bins         []Bin
	itemCopies   []int64
	numberOfBins int64
	numberOfItems int64
	itemVolume   int64
	itemWeight   float64
	profit       float64
	totalCost    float64
	maxX, maxY, maxZ int64
}

// NewSolution starts an empty solution for the given instance.
func NewSolution(ins *Instance) *Solution {
	return &Solution{
		instance:   ins,
		itemCopies: make([]int64, len(ins.ItemTypes())),
	}
}

func (s *Solution) Instance() *Instance    { return s.instance }
func (s *Solution) Bins() []Bin            { return s.bins }
func (s *Solution) NumberOfBins() int64    { return s.numberOfBins }
func (s *Solution) NumberOfItems() int64   { return s.numberOfItems }
func (s *Solution) ItemVolume() int64      { return s.itemVolume }
func (s *Solution) ItemWeight() float64    { return s.itemWeight }
func (s *Solution) Profit() float64        { return s.profit }
func (s *Solution) TotalCost() float64     { return s.totalCost }
func (s *Solution) ItemCopies(itemTypeID int) int64 { return s.itemCopies[itemTypeID] }
func (s *Solution) MaxX() int64                     { return s.maxX }
func (s *Solution) MaxY() int64                     { return s.maxY }
func (s *Solution) MaxZ() int64                     { return s.maxZ }

// BinVolume returns the sum, over every bin record, of bin volume times
// copies -- the packed envelope against which waste is measured.
func (s *Solution) BinVolume() int64 {
	var v int64
	for _, b := range s.bins {
		v += s.instance.BinType(b.BinTypeID).Volume() * b.Copies
	}
	return v
}

// Waste is the packed envelope minus the volume actually occupied by
// items.
func (s *Solution) Waste() int64 { return s.BinVolume() - s.itemVolume }

// Full reports whether every item type's full demand has been packed.
// Instances with unbounded total demand are never "full."
func (s *Solution) Full() bool {
	if s.instance.TotalItemCopies() < 0 {
		return false
	}
	return s.numberOfItems == s.instance.TotalItemCopies()
}

// AddBin appends a new bin record, used `copies` times, for the given bin
// type and returns its index for use with AddItem.
func (s *Solution) AddBin(binTypeID int, copies int64) (int, error) {
	if binTypeID < 0 || binTypeID >= len(s.instance.BinTypes()) {
		return 0, perr.Newf(perr.IllegalState, "unknown bin type %d", binTypeID)
	}
	if copies <= 0 {
		copies = 1
	}
	bt := s.instance.BinType(binTypeID)
	s.bins = append(s.bins, Bin{BinTypeID: binTypeID, Copies: copies})
	s.numberOfBins += copies
	s.totalCost += bt.EffectiveCost() * float64(copies)
	return len(s.bins) - 1, nil
}

// AddItem appends one placement to the bin at binPos, validating the
// rotation is one the item type allows and updating running totals.
func (s *Solution) AddItem(binPos int, itemTypeID int, rotation Rotation, position []int64) error {
	if binPos < 0 || binPos >= len(s.bins) {
		return perr.Newf(perr.IllegalState, "add_item: bin position %d does not exist", binPos)
	}
	it := s.instance.ItemType(itemTypeID)
	if !allowedRotation(it, rotation) {
		return perr.Newf(perr.IllegalState, "add_item: rotation not allowed for item type %d", itemTypeID)
	}
	p := Placement{ItemTypeID: itemTypeID, Rotation: rotation, Position: position}
	s.bins[binPos].Items = append(s.bins[binPos].Items, p)
	copies := s.bins[binPos].Copies

	s.itemCopies[itemTypeID] += copies
	s.numberOfItems += copies
	s.itemVolume += it.Volume() * copies
	s.itemWeight += it.Weight * float64(copies)
	s.profit += it.Profit * float64(copies)

	ext := it.ExtentsUnder(rotation)
	if len(ext) >= 1 && position[0]+ext[0] > s.maxX {
		s.maxX = position[0] + ext[0]
	}
	if len(ext) >= 2 && position[1]+ext[1] > s.maxY {
		s.maxY = position[1] + ext[1]
	}
	if len(ext) >= 3 && position[2]+ext[2] > s.maxZ {
		s.maxZ = position[2] + ext[2]
	}
	return nil
}

func allowedRotation(it ItemType, r Rotation) bool {
	for _, candidate := range it.Rotations {
		if len(candidate) != len(r) {
			continue
		}
		match := true
		for i := range candidate {
			if candidate[i] != r[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// aabbOverlap reports whether two axis-aligned boxes, given by their
// origin and extents in the same number of dimensions, overlap with
// non-zero measure. It is dimension-agnostic: callers pass 1, 2, or 3
// coordinates.
func aabbOverlap(pos1, ext1, pos2, ext2 []int64) bool {
	for i := range pos1 {
		if pos1[i]+ext1[i] <= pos2[i] || pos2[i]+ext2[i] <= pos1[i] {
			return false
		}
	}
	return true
}

// aabbContains reports whether the box at (pos, ext) lies entirely inside
// a bin of the given extents starting at the origin.
func aabbContains(binExt, pos, ext []int64) bool {
	for i := range pos {
		if pos[i] < 0 || pos[i]+ext[i] > binExt[i] {
			return false
		}
	}
	return true
}

// Feasible checks every universal invariant from the testable-properties
// list: non-overlap (including defects), containment, demand, weight
// budget, and unloading order.
func (s *Solution) Feasible() bool {
	ins := s.instance
	for _, bin := range s.bins {
		bt := ins.BinType(bin.BinTypeID)
		var weight float64
		for i, p1 := range bin.Items {
			it1 := ins.ItemType(p1.ItemTypeID)
			ext1 := it1.ExtentsUnder(p1.Rotation)
			if !aabbContains(bt.Extents, p1.Position, ext1) {
				return false
			}
			weight += it1.Weight
			for _, d := range bt.Defects {
				dPos := []int64{d.Rect.X, d.Rect.Y}
				dExt := []int64{d.Rect.Lx, d.Rect.Ly}
				if aabbOverlap(p1.Position[:2], ext1[:2], dPos, dExt) {
					return false
				}
			}
			for j := i + 1; j < len(bin.Items); j++ {
				p2 := bin.Items[j]
				it2 := ins.ItemType(p2.ItemTypeID)
				ext2 := it2.ExtentsUnder(p2.Rotation)
				if aabbOverlap(p1.Position, ext1, p2.Position, ext2) {
					return false
				}
			}
		}
		if weight > bt.MaximumWeight*PSTOL {
			return false
		}
		if !s.unloadingOrderHolds(bin, bt) {
			return false
		}
	}
	for _, it := range ins.ItemTypes() {
		if !it.Unbounded() && s.itemCopies[it.ID] > it.Copies {
			return false
		}
	}
	if ins.Objective().RequiresFull() && !s.Full() {
		return false
	}
	return true
}

func (s *Solution) unloadingOrderHolds(bin Bin, bt BinType) bool {
	uc := s.instance.UnloadingConstraint()
	if uc == NoUnloadingConstraint {
		return true
	}
	axis := 0
	increasingOnly := false
	switch uc {
	case OnlyXMovements:
		axis = 0
	case OnlyYMovements:
		axis = 1
	case IncreasingX:
		axis, increasingOnly = 0, true
	case IncreasingY:
		axis, increasingOnly = 1, true
	}
	for i, p1 := range bin.Items {
		if len(p1.Position) <= axis {
			continue
		}
		g1 := s.instance.ItemType(p1.ItemTypeID).GroupID
		for j, p2 := range bin.Items {
			if i == j {
				continue
			}
			g2 := s.instance.ItemType(p2.ItemTypeID).GroupID
			if increasingOnly {
				if p1.Position[axis] <= p2.Position[axis] && g1 > g2 {
					return false
				}
				continue
			}
			it1 := s.instance.ItemType(p1.ItemTypeID)
			ext1 := it1.ExtentsUnder(p1.Rotation)
			if p2.Position[axis] > p1.Position[axis]+ext1[axis]/2 && g2 < g1 {
				return false
			}
		}
	}
	return true
}

// Less implements the objective-induced total preorder from the
// component design: a non-full solution loses to a full one (when the
// objective requires fullness), otherwise the objective's scalar decides,
// with the listed secondary tiebreak.
func (s *Solution) Less(other *Solution) bool {
	obj := s.instance.Objective()
	if obj.RequiresFull() {
		sf, of := s.Full(), other.Full()
		if sf != of {
			return sf && !of
		}
	}
	switch obj {
	case BinPacking:
		if s.NumberOfBins() != other.NumberOfBins() {
			return s.NumberOfBins() < other.NumberOfBins()
		}
	case VariableSizedBinPacking:
		if s.TotalCost() != other.TotalCost() {
			return s.TotalCost() < other.TotalCost()
		}
	case BinPackingWithLeftovers:
		if s.Waste() != other.Waste() {
			return s.Waste() < other.Waste()
		}
		if s.NumberOfBins() != other.NumberOfBins() {
			return s.NumberOfBins() < other.NumberOfBins()
		}
	case OpenDimensionX:
		if s.maxX != other.maxX {
			return s.maxX < other.maxX
		}
	case OpenDimensionY:
		if s.maxY != other.maxY {
			return s.maxY < other.maxY
		}
	case Knapsack, Default:
		if s.Profit() != other.Profit() {
			return s.Profit() > other.Profit()
		}
		if s.Waste() != other.Waste() {
			return s.Waste() < other.Waste()
		}
	}
	return false
}

// ItemCopiesVector is the per-item-type copy count vector used by
// SolutionPoolComparator to break ties between solutions of otherwise
// equal quality.
func (s *Solution) ItemCopiesVector() []int64 {
	v := make([]int64, len(s.itemCopies))
	copy(v, s.itemCopies)
	return v
}
