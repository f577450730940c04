package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func rectInstance(t *testing.T) *Instance {
	t.Helper()
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{1000, 500}, Copies: 1, Profit: 1, Rotations: []Rotation{{0, 1}}})
	b.AddBinType(BinType{Extents: []int64{6000, 3210}, Copies: -1, Cost: -1})
	b.SetObjective(Default)
	ins, err := b.Build()
	require.NoError(t, err)
	return ins
}

func TestSolutionAddItemRejectsUnknownBin(t *testing.T) {
	ins := rectInstance(t)
	sol := NewSolution(ins)
	err := sol.AddItem(0, 0, Rotation{0, 1}, []int64{0, 0})
	require.Error(t, err)
}

func TestSolutionAddItemRejectsForbiddenRotation(t *testing.T) {
	ins := rectInstance(t)
	sol := NewSolution(ins)
	pos, err := sol.AddBin(0, 1)
	require.NoError(t, err)
	err = sol.AddItem(pos, 0, Rotation{1, 0}, []int64{0, 0})
	require.Error(t, err)
}

func TestSolutionFeasibleSimplePlacement(t *testing.T) {
	ins := rectInstance(t)
	sol := NewSolution(ins)
	pos, err := sol.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, sol.AddItem(pos, 0, Rotation{0, 1}, []int64{0, 0}))
	require.True(t, sol.Feasible())
	require.True(t, sol.Full())
}

func TestSolutionNotFeasibleOnOverlap(t *testing.T) {
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{10, 10}, Copies: 2, Profit: 1, Rotations: []Rotation{{0, 1}}})
	b.AddBinType(BinType{Extents: []int64{20, 20}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	sol := NewSolution(ins)
	pos, err := sol.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, sol.AddItem(pos, 0, Rotation{0, 1}, []int64{0, 0}))
	require.NoError(t, sol.AddItem(pos, 0, Rotation{0, 1}, []int64{5, 5}))
	require.False(t, sol.Feasible())
}

func TestSolutionLessBinPacking(t *testing.T) {
	b := NewInstanceBuilder(1)
	b.AddItemType(ItemType{Extents: []int64{1}, Copies: 2, Profit: 1})
	b.AddBinType(BinType{Extents: []int64{10}, Copies: -1, Cost: -1})
	b.SetObjective(BinPacking)
	ins, err := b.Build()
	require.NoError(t, err)

	better := NewSolution(ins)
	pos, _ := better.AddBin(0, 1)
	better.AddItem(pos, 0, Rotation{0}, []int64{0})
	better.AddItem(pos, 0, Rotation{0}, []int64{1})

	worse := NewSolution(ins)
	p1, _ := worse.AddBin(0, 1)
	worse.AddItem(p1, 0, Rotation{0}, []int64{0})
	p2, _ := worse.AddBin(0, 1)
	worse.AddItem(p2, 0, Rotation{0}, []int64{0})

	require.True(t, better.Less(worse))
	require.False(t, worse.Less(better))
}
