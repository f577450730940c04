package model

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstanceBuilderRejectsNonPositiveExtent(t *testing.T) {
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{0, 5}, Copies: 1})
	b.AddBinType(BinType{Extents: []int64{10, 10}, Copies: -1, Cost: -1})
	_, err := b.Build()
	require.Error(t, err)
}

func TestInstanceBuilderRejectsCopiesMinAboveCopies(t *testing.T) {
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{1, 1}, Copies: 1})
	b.AddBinType(BinType{Extents: []int64{10, 10}, Copies: 2, CopiesMin: 3, Cost: -1})
	_, err := b.Build()
	require.Error(t, err)
}

func TestInstanceBuilderRejectsDefectNotStrictlyInside(t *testing.T) {
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{1, 1}, Copies: 1})
	binID := b.AddBinType(BinType{Extents: []int64{10, 10}, Copies: -1, Cost: -1})
	err := b.AddDefect(Defect{BinTypeID: binID, Rect: Rect{X: 0, Y: 0, Lx: 2, Ly: 2}})
	require.NoError(t, err)
	_, err = b.Build()
	require.Error(t, err)
}

func TestInstanceBuilderRejectsOpenDimensionXY(t *testing.T) {
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{1, 1}, Copies: 1})
	b.AddBinType(BinType{Extents: []int64{10, 10}, Copies: -1, Cost: -1})
	b.SetObjective(OpenDimensionXY)
	_, err := b.Build()
	require.Error(t, err)
}

func TestInstanceDerivedAggregates(t *testing.T) {
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{2, 2}, Copies: 3, Profit: 10, Weight: 1})
	b.AddItemType(ItemType{Extents: []int64{1, 1}, Copies: 2, Profit: 1, Weight: 1})
	b.AddBinType(BinType{Extents: []int64{10, 10}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, int64(5), ins.TotalItemCopies())
	require.Equal(t, int64(3*4+2*1), ins.TotalItemVolume())
	require.Equal(t, 0, ins.MaxEfficiencyItemTypeID())
}

func TestRotationDefaultsToIdentityAndSwapIn2D(t *testing.T) {
	b := NewInstanceBuilder(2)
	id := b.AddItemType(ItemType{Extents: []int64{3, 5}, Copies: 1})
	b.AddBinType(BinType{Extents: []int64{10, 10}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	it := ins.ItemType(id)
	require.Len(t, it.Rotations, 2)
}

func TestInstanceFormatVerbosity(t *testing.T) {
	b := NewInstanceBuilder(2)
	b.AddItemType(ItemType{Extents: []int64{2, 2}, Copies: 3, Profit: 10})
	b.AddBinType(BinType{Extents: []int64{10, 10}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	var quiet bytes.Buffer
	ins.Format(&quiet, 0)
	require.Contains(t, quiet.String(), "item types: 1")
	require.NotContains(t, quiet.String(), "extents=")

	var verbose bytes.Buffer
	ins.Format(&verbose, 1)
	require.True(t, strings.Contains(verbose.String(), "extents=[2 2]"))
}
