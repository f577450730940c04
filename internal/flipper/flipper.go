// Package flipper implements the instance/solution axis flipper (C8):
// mapping a rectangle or box Instance across an axis (swapping x with y
// or x with z) lets the same branching scheme be run "in direction X, Y,
// or Z" without duplicating the scheme, per spec §4.9/§9 ("direction
// polymorphism"). cmd/packingsolver flips the instance for a --direction
// of y or z, runs one search on it, and unflips the result back to the
// original axes; only that one direction is searched per run.
package flipper

import (
	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/perr"
)

// swapIndex returns the axis index that Direction swaps with 0 (x): 1
// for DirectionY, 2 for DirectionZ. DirectionX is the identity and is
// rejected by Flip since there is nothing to swap.
func swapIndex(d model.Direction) (int, error) {
	switch d {
	case model.DirectionY:
		return 1, nil
	case model.DirectionZ:
		return 2, nil
	default:
		return 0, perr.Newf(perr.ConstraintViolation, "flipper: direction %s is not swappable with x", d)
	}
}

func swapSlice(v []int64, i, j int) []int64 {
	out := append([]int64(nil), v...)
	out[i], out[j] = out[j], out[i]
	return out
}

// swapRotation conjugates r by the transposition of axes i and j, so that
// ExtentsUnder of the result on the swapped extents gives the swapped
// placed extents. The mapping is its own inverse.
func swapRotation(r model.Rotation, i, j int) model.Rotation {
	swap := func(a int) int {
		switch a {
		case i:
			return j
		case j:
			return i
		}
		return a
	}
	out := make(model.Rotation, len(r))
	for k := range r {
		out[k] = swap(r[swap(k)])
	}
	return out
}

func flipObjective(o model.Objective, axis int) model.Objective {
	if axis != 1 {
		return o
	}
	switch o {
	case model.OpenDimensionX:
		return model.OpenDimensionY
	case model.OpenDimensionY:
		return model.OpenDimensionX
	default:
		return o
	}
}

func flipUnloadingConstraint(u model.UnloadingConstraint, axis int) model.UnloadingConstraint {
	if axis != 1 {
		return u
	}
	switch u {
	case model.OnlyXMovements:
		return model.OnlyYMovements
	case model.OnlyYMovements:
		return model.OnlyXMovements
	case model.IncreasingX:
		return model.IncreasingY
	case model.IncreasingY:
		return model.IncreasingX
	default:
		return u
	}
}

// Flip builds a new Instance with axis 0 (x) swapped with the axis named
// by direction, across every bin type, item type, and defect, and
// remaps the objective and unloading constraint coherently (spec §4.9).
// DirectionX is rejected: flipping x with itself is not meaningful.
func Flip(ins *model.Instance, direction model.Direction) (*model.Instance, error) {
	axis, err := swapIndex(direction)
	if err != nil {
		return nil, err
	}
	if axis >= ins.Dimension() {
		return nil, perr.Newf(perr.ConstraintViolation, "flipper: instance has dimension %d, cannot flip axis %d", ins.Dimension(), axis)
	}

	b := model.NewInstanceBuilder(ins.Dimension())
	b.SetAllowRotation(ins.AllowRotation())
	b.SetObjective(flipObjective(ins.Objective(), axis))
	b.SetUnloadingConstraint(flipUnloadingConstraint(ins.UnloadingConstraint(), axis))

	for _, it := range ins.ItemTypes() {
		flipped := it
		flipped.Extents = swapSlice(it.Extents, 0, axis)
		flipped.Rotations = make([]model.Rotation, len(it.Rotations))
		for i, r := range it.Rotations {
			flipped.Rotations[i] = swapRotation(r, 0, axis)
		}
		b.AddItemType(flipped)
	}

	binIDMap := make(map[int]int, len(ins.BinTypes()))
	for _, bt := range ins.BinTypes() {
		flipped := bt
		flipped.Extents = swapSlice(bt.Extents, 0, axis)
		flipped.Defects = nil
		newID := b.AddBinType(flipped)
		binIDMap[bt.ID] = newID
	}

	for _, bt := range ins.BinTypes() {
		for _, d := range bt.Defects {
			flippedRect := flipRect(d.Rect, axis)
			if err := b.AddDefect(model.Defect{BinTypeID: binIDMap[bt.ID], Rect: flippedRect}); err != nil {
				return nil, err
			}
		}
	}

	return b.Build()
}

// flipRect swaps a defect's x coordinate/extent with its y coordinate/
// extent when axis == 1 (DirectionY); defects are always 2D (floor-plane
// only, per spec §3), so an axis-2 (z) flip leaves them unchanged --
// there is no z coordinate on a Defect to swap.
func flipRect(r model.Rect, axis int) model.Rect {
	if axis != 1 {
		return r
	}
	return model.Rect{X: r.Y, Y: r.X, Lx: r.Ly, Ly: r.Lx}
}

// UnflipPoint applies the inverse point mapping of Flip's axis swap to a
// placement position, so a Solution computed against a flipped Instance
// can be reported against the caller's original axes.
func UnflipPoint(position []int64, direction model.Direction) ([]int64, error) {
	axis, err := swapIndex(direction)
	if err != nil {
		return nil, err
	}
	if axis >= len(position) {
		return nil, perr.Newf(perr.ConstraintViolation, "flipper: position has %d coordinates, cannot unflip axis %d", len(position), axis)
	}
	return swapSlice(position, 0, axis), nil
}

// UnflipSolution replays sol's bins and placements into a fresh Solution
// against original, applying UnflipPoint to every placement position and
// mapping each placement's rotation back through swapRotation. original must be the
// same instance Flip was given (the pre-flip instance).
func UnflipSolution(sol *model.Solution, original *model.Instance, direction model.Direction) (*model.Solution, error) {
	axis, err := swapIndex(direction)
	if err != nil {
		return nil, err
	}

	out := model.NewSolution(original)
	for _, bin := range sol.Bins() {
		pos, err := out.AddBin(bin.BinTypeID, bin.Copies)
		if err != nil {
			return nil, err
		}
		for _, placement := range bin.Items {
			newPos, err := UnflipPoint(placement.Position, direction)
			if err != nil {
				return nil, err
			}
			newRot := swapRotation(placement.Rotation, 0, axis)
			if err := out.AddItem(pos, placement.ItemTypeID, newRot, newPos); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
