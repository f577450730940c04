package flipper

import (
	"testing"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/stretchr/testify/require"
)

func buildRectInstance(t *testing.T) *model.Instance {
	t.Helper()
	b := model.NewInstanceBuilder(2)
	b.AddItemType(model.ItemType{Extents: []int64{10, 20}, Copies: 1, Profit: 1, Rotations: []model.Rotation{{0, 1}}})
	binID := b.AddBinType(model.BinType{Extents: []int64{100, 50}, Copies: -1, Cost: -1})
	require.NoError(t, b.AddDefect(model.Defect{BinTypeID: binID, Rect: model.Rect{X: 5, Y: 1, Lx: 2, Ly: 3}}))
	b.SetObjective(model.OpenDimensionX)
	b.SetUnloadingConstraint(model.IncreasingX)
	ins, err := b.Build()
	require.NoError(t, err)
	return ins
}

func TestFlipSwapsExtentsAndObjective(t *testing.T) {
	ins := buildRectInstance(t)
	flipped, err := Flip(ins, model.DirectionY)
	require.NoError(t, err)

	require.Equal(t, []int64{50, 100}, flipped.BinType(0).Extents)
	require.Equal(t, []int64{20, 10}, flipped.ItemType(0).Extents)
	require.Equal(t, model.OpenDimensionY, flipped.Objective())
	require.Equal(t, model.IncreasingY, flipped.UnloadingConstraint())

	require.Len(t, flipped.BinType(0).Defects, 1)
	d := flipped.BinType(0).Defects[0]
	require.Equal(t, model.Rect{X: 1, Y: 5, Lx: 3, Ly: 2}, d.Rect)
}

func TestFlipRejectsDirectionX(t *testing.T) {
	ins := buildRectInstance(t)
	_, err := Flip(ins, model.DirectionX)
	require.Error(t, err)
}

func TestUnflipSolutionRoundTrips(t *testing.T) {
	ins := buildRectInstance(t)
	flipped, err := Flip(ins, model.DirectionY)
	require.NoError(t, err)

	sol := model.NewSolution(flipped)
	pos, err := sol.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, sol.AddItem(pos, 0, model.Rotation{0, 1}, []int64{3, 7}))

	back, err := UnflipSolution(sol, ins, model.DirectionY)
	require.NoError(t, err)
	require.True(t, back.Feasible())
	require.Equal(t, []int64{7, 3}, back.Bins()[0].Items[0].Position)
}
