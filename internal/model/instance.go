package model

import (
	"fmt"
	"io"
	"math"

	"github.com/piwi3910/packingsolver/internal/perr"
)

// Rotation is an allowed orientation of an item type: a permutation of axis
// indices the same length as the instance's dimension. Rotation{0,1} is the
// identity in 2D; Rotation{1,0} swaps width and height.
type Rotation []int

func identityRotation(dimension int) Rotation {
	r := make(Rotation, dimension)
	for i := range r {
		r[i] = i
	}
	return r
}

// ItemType is one demand line: a shape, repeated up to Copies times, that
// the instance's items are drawn from.
type ItemType struct {
	ID                  int
	Extents             []int64
	Profit              float64
	Copies              int64
	Rotations           []Rotation
	Weight              float64
	StackabilityID      int
	GroupID             int
	MaximumStackability int64
	MaximumWeightAbove  float64
	MaximumWeightAfter  float64
	EligibilityID       int
	NestingLength       int64
}

// Volume returns the product of the item type's extents (length, area, or
// volume depending on the instance's dimension).
func (it ItemType) Volume() int64 {
	v := int64(1)
	for _, e := range it.Extents {
		v *= e
	}
	return v
}

// Unbounded reports whether the item type has unlimited supply.
func (it ItemType) Unbounded() bool { return it.Copies < 0 }

// ExtentsUnder returns the item's extents under the given rotation.
func (it ItemType) ExtentsUnder(r Rotation) []int64 {
	out := make([]int64, len(r))
	for i, axis := range r {
		out[i] = it.Extents[axis]
	}
	return out
}

// Defect is a forbidden axis-aligned rectangle inside a bin type, given in
// the bin's own (unrotated) floor plane.
type Defect struct {
	BinTypeID int
	Rect      Rect
}

// BinType is one container a solution may use, repeated up to Copies times.
type BinType struct {
	ID               int
	Extents          []int64
	Cost             float64
	Copies           int64
	CopiesMin        int64
	MaximumWeight    float64
	AxlePositions    []int64
	AxleWeightLimits []float64
	Defects          []Defect
}

// Volume returns the bin's usable volume (length, area, or volume).
func (bt BinType) Volume() int64 {
	v := int64(1)
	for _, e := range bt.Extents {
		v *= e
	}
	return v
}

// Unbounded reports whether the bin type has unlimited supply.
func (bt BinType) Unbounded() bool { return bt.Copies < 0 }

// EffectiveCost returns the bin's cost, substituting its own volume when
// Cost is the -1 sentinel ("use own volume/length as cost").
func (bt BinType) EffectiveCost() float64 {
	if bt.Cost < 0 {
		return float64(bt.Volume())
	}
	return bt.Cost
}

// Instance is the frozen problem description shared read-only by every
// branching-scheme node once built.
type Instance struct {
	dimension             int
	itemTypes             []ItemType
	binTypes              []BinType
	objective             Objective
	unloadingConstraint   UnloadingConstraint
	allowRotation         bool
	parameters            map[string]string
	totalItemVolume       int64
	totalItemWeight       float64
	totalItemProfit       float64
	totalItemCopies       int64
	largestBinTypeID      int
	maxEfficiencyItemType int
	maxBinCost            float64
}

func (ins *Instance) Dimension() int                          { return ins.dimension }
func (ins *Instance) ItemTypes() []ItemType                    { return ins.itemTypes }
func (ins *Instance) BinTypes() []BinType                      { return ins.binTypes }
func (ins *Instance) ItemType(id int) ItemType                 { return ins.itemTypes[id] }
func (ins *Instance) BinType(id int) BinType                   { return ins.binTypes[id] }
func (ins *Instance) NumberOfItemTypes() int                   { return len(ins.itemTypes) }
func (ins *Instance) NumberOfBinTypes() int                    { return len(ins.binTypes) }
func (ins *Instance) Objective() Objective                     { return ins.objective }
func (ins *Instance) UnloadingConstraint() UnloadingConstraint { return ins.unloadingConstraint }
func (ins *Instance) AllowRotation() bool                      { return ins.allowRotation }
func (ins *Instance) Parameter(name string) (string, bool) {
	v, ok := ins.parameters[name]
	return v, ok
}

// Parameters returns every named parameter set on the instance (read-only;
// used by internal/importer to round-trip an Instance back to
// parameters.csv).
func (ins *Instance) Parameters() map[string]string { return ins.parameters }
func (ins *Instance) TotalItemVolume() int64       { return ins.totalItemVolume }
func (ins *Instance) TotalItemWeight() float64     { return ins.totalItemWeight }
func (ins *Instance) TotalItemProfit() float64     { return ins.totalItemProfit }
func (ins *Instance) TotalItemCopies() int64       { return ins.totalItemCopies }
func (ins *Instance) LargestBinTypeID() int        { return ins.largestBinTypeID }
func (ins *Instance) MaxEfficiencyItemTypeID() int { return ins.maxEfficiencyItemType }
func (ins *Instance) MaxBinCost() float64          { return ins.maxBinCost }

// NumberOfItems returns the total demand (sum of item copies), the target
// every full-objective leaf must match exactly.
func (ins *Instance) NumberOfItems() int64 { return ins.totalItemCopies }

// InstanceBuilder accumulates item/bin types and parameters before a single
// Build() call that validates and freezes them into an Instance.
type InstanceBuilder struct {
	dimension           int
	itemTypes           []ItemType
	binTypes            []BinType
	objective           Objective
	unloadingConstraint UnloadingConstraint
	allowRotation       bool
	parameters          map[string]string
}

// NewInstanceBuilder starts a builder for a problem of the given dimension
// (1, 2, or 3).
func NewInstanceBuilder(dimension int) *InstanceBuilder {
	return &InstanceBuilder{
		dimension:     dimension,
		allowRotation: true,
		parameters:    map[string]string{},
	}
}

// AddItemType appends an item type, defaulting Rotations to the identity
// rotation (and, when AllowRotation is set and the dimension is 2, the
// axis-swap rotation {1,0}) if the caller left Rotations empty. In 1D and
// 3D the default is the identity rotation only.
func (b *InstanceBuilder) AddItemType(it ItemType) int {
	it.ID = len(b.itemTypes)
	if len(it.Rotations) == 0 {
		it.Rotations = append(it.Rotations, identityRotation(b.dimension))
		if b.allowRotation && b.dimension == 2 {
			it.Rotations = append(it.Rotations, Rotation{1, 0})
		}
	}
	b.itemTypes = append(b.itemTypes, it)
	return it.ID
}

// AddBinType appends a bin type.
func (b *InstanceBuilder) AddBinType(bt BinType) int {
	bt.ID = len(b.binTypes)
	if bt.MaximumWeight == 0 {
		bt.MaximumWeight = math.Inf(1)
	}
	b.binTypes = append(b.binTypes, bt)
	return bt.ID
}

// AddDefect appends a defect to the given bin type.
func (b *InstanceBuilder) AddDefect(d Defect) error {
	if d.BinTypeID < 0 || d.BinTypeID >= len(b.binTypes) {
		return perr.Newf(perr.InvalidInput, "defect references unknown bin type %d", d.BinTypeID)
	}
	b.binTypes[d.BinTypeID].Defects = append(b.binTypes[d.BinTypeID].Defects, d)
	return nil
}

// SetObjective sets the instance's optimization objective.
func (b *InstanceBuilder) SetObjective(o Objective) *InstanceBuilder {
	b.objective = o
	return b
}

// SetUnloadingConstraint sets the instance's unloading constraint.
func (b *InstanceBuilder) SetUnloadingConstraint(u UnloadingConstraint) *InstanceBuilder {
	b.unloadingConstraint = u
	return b
}

// SetAllowRotation toggles whether newly added item types default to
// including the axis-swap rotation.
func (b *InstanceBuilder) SetAllowRotation(v bool) *InstanceBuilder {
	b.allowRotation = v
	return b
}

// SetParameter records a named parameter (from parameters.csv or a CLI
// flag) for later lookup via Instance.Parameter.
func (b *InstanceBuilder) SetParameter(name, value string) *InstanceBuilder {
	b.parameters[name] = value
	return b
}

// Build validates the accumulated types and parameters and freezes them
// into an Instance. It rejects objectives that no implemented scheme can
// express for the instance's dimension, per SPEC_FULL.md §D.6.
func (b *InstanceBuilder) Build() (*Instance, error) {
	if len(b.itemTypes) == 0 {
		return nil, perr.New(perr.ConstraintViolation, "instance has no item types")
	}
	if len(b.binTypes) == 0 {
		return nil, perr.New(perr.ConstraintViolation, "instance has no bin types")
	}
	if b.objective == OpenDimensionXY {
		return nil, perr.New(perr.ObjectiveUnsupported, "OpenDimensionXY has no per-axis rule in this implementation")
	}
	if b.objective == SequentialOneDimensionalRectangleSubproblem {
		return nil, perr.New(perr.ObjectiveUnsupported, "SequentialOneDimensionalRectangleSubproblem has no per-axis rule in this implementation")
	}

	for _, it := range b.itemTypes {
		if len(it.Extents) != b.dimension {
			return nil, perr.Newf(perr.ConstraintViolation, "item type %d has %d extents, want %d", it.ID, len(it.Extents), b.dimension)
		}
		for _, e := range it.Extents {
			if e <= 0 {
				return nil, perr.Newf(perr.ConstraintViolation, "item type %d has non-positive extent", it.ID)
			}
		}
		if len(it.Rotations) == 0 {
			return nil, perr.Newf(perr.ConstraintViolation, "item type %d has no allowed rotation", it.ID)
		}
		for _, r := range it.Rotations {
			if len(r) != b.dimension {
				return nil, perr.Newf(perr.ConstraintViolation, "item type %d has a rotation of wrong dimension", it.ID)
			}
		}
	}

	for _, bt := range b.binTypes {
		if len(bt.Extents) != b.dimension {
			return nil, perr.Newf(perr.ConstraintViolation, "bin type %d has %d extents, want %d", bt.ID, len(bt.Extents), b.dimension)
		}
		for _, e := range bt.Extents {
			if e <= 0 {
				return nil, perr.Newf(perr.ConstraintViolation, "bin type %d has non-positive extent", bt.ID)
			}
		}
		if bt.Cost < 0 && bt.Cost != -1 {
			return nil, perr.Newf(perr.ConstraintViolation, "bin type %d has negative cost", bt.ID)
		}
		if !bt.Unbounded() && bt.CopiesMin > bt.Copies {
			return nil, perr.Newf(perr.ConstraintViolation, "bin type %d has copies_min %d > copies %d", bt.ID, bt.CopiesMin, bt.Copies)
		}
		for _, d := range bt.Defects {
			r := Rect{X: 0, Y: 0, Lx: bt.Extents[0], Ly: bt.Extents[1]}
			if !strictlyInside(d.Rect, r) {
				return nil, perr.Newf(perr.ConstraintViolation, "defect on bin type %d is not strictly inside the bin", bt.ID)
			}
		}
	}

	ins := &Instance{
		dimension:           b.dimension,
		itemTypes:           b.itemTypes,
		binTypes:            b.binTypes,
		objective:           b.objective,
		unloadingConstraint: b.unloadingConstraint,
		allowRotation:       b.allowRotation,
		parameters:          b.parameters,
	}
	ins.computeDerivedAggregates()
	return ins, nil
}

// Format writes a human-readable summary of the instance to w, at two
// verbosity levels: level 0 prints one line of totals, level 1+ adds a
// row per item type and bin type. This matches the two-level verbosity
// table dump of the original implementation's instance printer.
func (ins *Instance) Format(w io.Writer, level int) {
	fmt.Fprintf(w, "dimension: %d  objective: %s  item types: %d  bin types: %d  total item copies: %d\n",
		ins.dimension, ins.objective, len(ins.itemTypes), len(ins.binTypes), ins.totalItemCopies)
	if level <= 0 {
		return
	}
	fmt.Fprintln(w, "item types:")
	for _, it := range ins.itemTypes {
		fmt.Fprintf(w, "  %4d  extents=%v  profit=%.2f  copies=%d  weight=%.2f\n",
			it.ID, it.Extents, it.Profit, it.Copies, it.Weight)
	}
	fmt.Fprintln(w, "bin types:")
	for _, bt := range ins.binTypes {
		fmt.Fprintf(w, "  %4d  extents=%v  cost=%.2f  copies=%d  defects=%d\n",
			bt.ID, bt.Extents, bt.EffectiveCost(), bt.Copies, len(bt.Defects))
	}
}

func strictlyInside(d, bin Rect) bool {
	return d.X > bin.X && d.Y > bin.Y &&
		d.X+d.Lx < bin.X+bin.Lx && d.Y+d.Ly < bin.Y+bin.Ly
}

func (ins *Instance) computeDerivedAggregates() {
	bestEfficiency := -1.0
	for _, it := range ins.itemTypes {
		vol := it.Volume()
		if it.Unbounded() {
			ins.totalItemCopies = -1
		} else if ins.totalItemCopies >= 0 {
			ins.totalItemCopies += it.Copies
			ins.totalItemVolume += vol * it.Copies
			ins.totalItemWeight += it.Weight * float64(it.Copies)
			ins.totalItemProfit += it.Profit * float64(it.Copies)
		}
		efficiency := it.Profit
		if vol > 0 {
			efficiency = it.Profit / float64(vol)
		}
		if efficiency > bestEfficiency {
			bestEfficiency = efficiency
			ins.maxEfficiencyItemType = it.ID
		}
	}

	largestVolume := int64(-1)
	for _, bt := range ins.binTypes {
		v := bt.Volume()
		if v > largestVolume {
			largestVolume = v
			ins.largestBinTypeID = bt.ID
		}
		cost := bt.EffectiveCost()
		if cost > ins.maxBinCost {
			ins.maxBinCost = cost
		}
	}
}
