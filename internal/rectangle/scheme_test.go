package rectangle

import (
	"testing"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/stretchr/testify/require"
)

func orientedItem(extents ...int64) model.ItemType {
	return model.ItemType{Extents: extents, Copies: 1, Profit: 1, Rotations: []model.Rotation{{0, 1}}}
}

// TestRectangleRoot_S1 pins the root insertion list and resulting front for
// a single oriented item on a large bin.
func TestRectangleRoot_S1(t *testing.T) {
	b := model.NewInstanceBuilder(2)
	b.AddItemType(orientedItem(1000, 500))
	b.AddBinType(model.BinType{Extents: []int64{6000, 3210}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	s, err := New(ins, 0)
	require.NoError(t, err)
	root := s.Root()

	insertions := s.Insertions(root)
	require.Len(t, insertions, 1)
	require.Equal(t, Insertion{ItemTypeID: 0, Rotation: model.Rotation{0, 1}, NewBin: 1, BinTypeID: 0, X: 0, Y: 0}, insertions[0])

	c := s.Child(root, insertions[0])
	require.Len(t, c.front, 2)
	require.Equal(t, Corner{X: 1000, YStart: 0, YEnd: 500}, c.front[0])
	require.Equal(t, Corner{X: 0, YStart: 500, YEnd: 3210}, c.front[1])
}

// TestRectangleSequence_S2 tracks current_area/item_area/waste through a
// three-item placement sequence.
func TestRectangleSequence_S2(t *testing.T) {
	b := model.NewInstanceBuilder(2)
	b.AddItemType(orientedItem(1000, 500)) // A
	b.AddItemType(orientedItem(1250, 1210)) // B
	b.AddItemType(orientedItem(250, 1000))  // C
	b.AddBinType(model.BinType{Extents: []int64{6000, 3210}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	s, err := New(ins, 0)
	require.NoError(t, err)
	root := s.Root()

	a := s.Child(root, Insertion{ItemTypeID: 0, Rotation: model.Rotation{0, 1}, NewBin: 1, BinTypeID: 0, X: 0, Y: 0})
	c := s.Child(a, Insertion{ItemTypeID: 2, Rotation: model.Rotation{0, 1}, NewBin: -1, X: 1000, Y: 0})

	require.Len(t, c.front, 2)
	require.Equal(t, Corner{X: 1250, YStart: 0, YEnd: 1000}, c.front[0])
	require.Equal(t, Corner{X: 0, YStart: 1000, YEnd: 3210}, c.front[1])
	require.Equal(t, int64(1000*1250), c.xeMax*c.yeMax)
	require.Equal(t, int64(1000*500+250*1000), c.itemArea)
	require.Equal(t, int64(500000), c.waste)

	bnode := s.Child(c, Insertion{ItemTypeID: 1, Rotation: model.Rotation{0, 1}, NewBin: -1, X: 0, Y: 1000})
	require.Equal(t, int64(1250*2210), bnode.xeMax*bnode.yeMax)
	require.Equal(t, int64(500000), bnode.waste)
}

// TestRectangleDefectShift_S3 checks both defect-clearing anchors survive
// when the defect straddles neither bin edge.
func TestRectangleDefectShift_S3(t *testing.T) {
	b := model.NewInstanceBuilder(2)
	b.AddItemType(orientedItem(1000, 500))
	binID := b.AddBinType(model.BinType{Extents: []int64{6000, 3210}, Copies: -1, Cost: -1})
	require.NoError(t, b.AddDefect(model.Defect{BinTypeID: binID, Rect: model.Rect{X: 100, Y: 50, Lx: 20, Ly: 10}}))
	ins, err := b.Build()
	require.NoError(t, err)

	s, err := New(ins, 0)
	require.NoError(t, err)
	insertions := s.Insertions(s.Root())

	require.Len(t, insertions, 2)
	var points []model.Point2D
	for _, in := range insertions {
		points = append(points, model.Point2D{X: in.X, Y: in.Y})
	}
	require.Contains(t, points, model.Point2D{X: 120, Y: 0})
	require.Contains(t, points, model.Point2D{X: 0, Y: 60})
}

// TestRectangleDefectOutsideItem_S4 checks a defect beyond the item's
// footprint does not perturb the root insertion.
func TestRectangleDefectOutsideItem_S4(t *testing.T) {
	b := model.NewInstanceBuilder(2)
	b.AddItemType(orientedItem(1000, 500))
	binID := b.AddBinType(model.BinType{Extents: []int64{6000, 3210}, Copies: -1, Cost: -1})
	require.NoError(t, b.AddDefect(model.Defect{BinTypeID: binID, Rect: model.Rect{X: 1000, Y: 50, Lx: 20, Ly: 10}}))
	ins, err := b.Build()
	require.NoError(t, err)

	s, err := New(ins, 0)
	require.NoError(t, err)
	insertions := s.Insertions(s.Root())

	require.Len(t, insertions, 1)
	require.Equal(t, int64(0), insertions[0].X)
	require.Equal(t, int64(0), insertions[0].Y)
}

func TestRectangleDominatesNoFurtherRight(t *testing.T) {
	b := model.NewInstanceBuilder(2)
	b.AddItemType(orientedItem(1000, 500))
	b.AddBinType(model.BinType{Extents: []int64{6000, 3210}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	s, err := New(ins, 0)
	require.NoError(t, err)
	root := s.Root()
	a := s.Child(root, Insertion{ItemTypeID: 0, Rotation: model.Rotation{0, 1}, NewBin: 1, BinTypeID: 0, X: 0, Y: 0})
	bNode := s.Child(root, Insertion{ItemTypeID: 0, Rotation: model.Rotation{0, 1}, NewBin: 1, BinTypeID: 0, X: 0, Y: 0})
	require.True(t, s.Dominates(a, bNode))
}
