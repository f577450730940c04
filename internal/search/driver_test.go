package search

import (
	"context"
	"testing"
	"time"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/onedimensional"
	"github.com/piwi3910/packingsolver/internal/pool"
	"github.com/stretchr/testify/require"
)

// poolSink adapts a bare *pool.Pool to the SolutionSink interface,
// standing in for the formatter's mutex-guarded wrapper in tests that
// don't need concurrent workers.
type poolSink struct{ p *pool.Pool }

func (s poolSink) Offer(sol *model.Solution) int  { return s.p.Add(sol) }
func (s poolSink) Worst() *model.Solution         { return s.p.Worst() }

func TestDriverFindsS5BinPackingOptimum(t *testing.T) {
	b := model.NewInstanceBuilder(1)
	b.AddItemType(model.ItemType{Extents: []int64{7}, Copies: 1, Profit: 7})
	b.AddItemType(model.ItemType{Extents: []int64{4}, Copies: 1, Profit: 4})
	b.AddBinType(model.BinType{Extents: []int64{10}, Copies: -1, Cost: -1})
	b.SetObjective(model.BinPacking)
	ins, err := b.Build()
	require.NoError(t, err)

	scheme, err := onedimensional.New(ins, 6)
	require.NoError(t, err)

	p := pool.New(5)
	timer, cancel := NewTimer(context.Background(), time.Second)
	defer cancel()

	d := NewDriver[*onedimensional.Node, onedimensional.Insertion](scheme, poolSink{p}, timer)
	require.NoError(t, d.Run())

	best := p.Best()
	require.NotNil(t, best)
	require.True(t, best.Feasible())
	require.Equal(t, int64(2), best.NumberOfBins())
	require.Equal(t, int64(9), best.Waste())
}

func TestDriverOffersEveryNodeForKnapsack(t *testing.T) {
	b := model.NewInstanceBuilder(1)
	b.AddItemType(model.ItemType{Extents: []int64{4}, Copies: 1, Profit: 10})
	b.AddBinType(model.BinType{Extents: []int64{10}, Copies: -1, Cost: -1})
	b.SetObjective(model.Knapsack)
	ins, err := b.Build()
	require.NoError(t, err)

	scheme, err := onedimensional.New(ins, 0)
	require.NoError(t, err)

	p := pool.New(1)
	timer, cancel := NewTimer(context.Background(), time.Second)
	defer cancel()

	d := NewDriver[*onedimensional.Node, onedimensional.Insertion](scheme, poolSink{p}, timer)
	require.NoError(t, d.Run())

	best := p.Best()
	require.NotNil(t, best)
	require.Equal(t, 10.0, best.Profit())
}

func TestDriverStopsOnExpiredTimer(t *testing.T) {
	b := model.NewInstanceBuilder(1)
	b.AddItemType(model.ItemType{Extents: []int64{1}, Copies: -1, Profit: 1})
	b.AddBinType(model.BinType{Extents: []int64{1000000}, Copies: -1, Cost: -1})
	b.SetObjective(model.Knapsack)
	ins, err := b.Build()
	require.NoError(t, err)

	scheme, err := onedimensional.New(ins, 7)
	require.NoError(t, err)

	p := pool.New(1)
	timer, cancel := NewTimer(context.Background(), 0)
	cancel() // already expired
	d := NewDriver[*onedimensional.Node, onedimensional.Insertion](scheme, poolSink{p}, timer)
	require.NoError(t, d.Run())
	require.Equal(t, int64(0), d.NodesExplored)
}
