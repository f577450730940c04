package onedimensional

import (
	"testing"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/stretchr/testify/require"
)

func buildS5Instance(t *testing.T) *model.Instance {
	t.Helper()
	b := model.NewInstanceBuilder(1)
	b.AddItemType(model.ItemType{Extents: []int64{7}, Copies: 1, Profit: 7})
	b.AddItemType(model.ItemType{Extents: []int64{4}, Copies: 1, Profit: 4})
	b.AddBinType(model.BinType{Extents: []int64{10}, Copies: -1, Cost: -1})
	b.SetObjective(model.BinPacking)
	ins, err := b.Build()
	require.NoError(t, err)
	return ins
}

// allCompletePackings exhaustively explores the (tiny) tree and appends to
// out every leaf reached once all items are placed, used by tests that do
// not need the full best-first driver.
func allCompletePackings(t *testing.T, s *Scheme, n *Node, total int64, out *[]*Node) {
	t.Helper()
	if n.numberOfItems == total {
		*out = append(*out, n)
		return
	}
	for _, ins := range s.Insertions(n) {
		allCompletePackings(t, s, s.Child(n, ins), total, out)
	}
}

func TestOneDimensionalBinPacking_S5(t *testing.T) {
	ins := buildS5Instance(t)
	s, err := New(ins, 6)
	require.NoError(t, err)

	var leaves []*Node
	allCompletePackings(t, s, s.Root(), ins.NumberOfItems(), &leaves)
	require.NotEmpty(t, leaves)

	var best *model.Solution
	for _, leaf := range leaves {
		sol, err := s.ToSolution(leaf)
		require.NoError(t, err)
		require.True(t, sol.Feasible())
		if best == nil || sol.Less(best) {
			best = sol
		}
	}

	require.Equal(t, int64(2), best.NumberOfBins())
	require.Equal(t, int64(9), best.Waste())
}

func TestRoot_NoItemsPlaced(t *testing.T) {
	ins := buildS5Instance(t)
	s, err := New(ins, 0)
	require.NoError(t, err)
	root := s.Root()
	require.Equal(t, int64(0), root.numberOfBins)
	require.Equal(t, int64(0), root.numberOfItems)
}

func TestDominatesSameItemNoMoreLength(t *testing.T) {
	ins := buildS5Instance(t)
	s, err := New(ins, 0)
	require.NoError(t, err)
	root := s.Root()
	insertions := s.Insertions(root)
	require.Len(t, insertions, 2)

	a := s.Child(root, Insertion{ItemTypeID: 1, NewBin: true, BinTypeID: 0})
	b := s.Child(root, Insertion{ItemTypeID: 1, NewBin: true, BinTypeID: 0})
	require.True(t, s.Dominates(a, b))
}

func TestOpenDimensionRejectedForOneDimensional(t *testing.T) {
	b := model.NewInstanceBuilder(1)
	b.AddItemType(model.ItemType{Extents: []int64{1}, Copies: 1, Profit: 1})
	b.AddBinType(model.BinType{Extents: []int64{10}, Copies: -1, Cost: -1})
	b.SetObjective(model.OpenDimensionX)
	ins, err := b.Build()
	require.NoError(t, err)

	_, err = New(ins, 0)
	require.Error(t, err)
}
