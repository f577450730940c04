package formatter

import (
	"bytes"
	"testing"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/pool"
	"github.com/stretchr/testify/require"
)

func buildSolution(t *testing.T, profit float64) (*model.Instance, *model.Solution) {
	t.Helper()
	b := model.NewInstanceBuilder(1)
	b.AddItemType(model.ItemType{Extents: []int64{1}, Copies: 1, Profit: profit})
	b.AddBinType(model.BinType{Extents: []int64{10}, Copies: -1, Cost: -1})
	b.SetObjective(model.Knapsack)
	ins, err := b.Build()
	require.NoError(t, err)

	sol := model.NewSolution(ins)
	pos, err := sol.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, sol.AddItem(pos, 0, model.Rotation{0}, []int64{0}))
	return ins, sol
}

func TestFormatterOfferPrintsOnlyOnImprovement(t *testing.T) {
	var buf bytes.Buffer
	var callbacks int
	ins, sol := buildSolution(t, 10)
	f := New(pool.New(1), &buf, 1, func(*model.Solution) { callbacks++ })

	require.Equal(t, 1, f.Offer(sol))
	require.Equal(t, 1, callbacks)
	require.Contains(t, buf.String(), "new best")

	_, worse := buildSolution(t, 1)
	require.Equal(t, -1, f.Offer(worse))
	require.Equal(t, 1, callbacks)

	out := f.Output(ins)
	require.Equal(t, 10.0, out.Profit)
}

func TestFormatterWorstReflectsPool(t *testing.T) {
	f := New(pool.New(1), nil, 0, nil)
	require.Nil(t, f.Worst())
	_, sol := buildSolution(t, 5)
	f.Offer(sol)
	require.Equal(t, sol, f.Worst())
}
