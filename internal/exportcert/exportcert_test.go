package exportcert

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/stretchr/testify/require"
)

func buildCertSolution(t *testing.T) *model.Solution {
	t.Helper()
	b := model.NewInstanceBuilder(2)
	b.AddItemType(model.ItemType{Extents: []int64{10, 20}, Copies: 1, Profit: 5, Rotations: []model.Rotation{{0, 1}}})
	binID := b.AddBinType(model.BinType{Extents: []int64{100, 50}, Copies: -1, Cost: -1})
	require.NoError(t, b.AddDefect(model.Defect{BinTypeID: binID, Rect: model.Rect{X: 5, Y: 1, Lx: 2, Ly: 3}}))
	ins, err := b.Build()
	require.NoError(t, err)

	sol := model.NewSolution(ins)
	pos, err := sol.AddBin(0, 1)
	require.NoError(t, err)
	require.NoError(t, sol.AddItem(pos, 0, model.Rotation{0, 1}, []int64{0, 0}))
	return sol
}

func TestWriteCertificateToCSV(t *testing.T) {
	sol := buildCertSolution(t)
	var buf bytes.Buffer
	require.NoError(t, writeCertificateTo(&buf, sol))

	out := buf.String()
	require.Contains(t, out, "TYPE,ID,COPIES,BIN,X,Y,LX,LY,ROTATION")
	require.Contains(t, out, "BIN,0,1,0,0,0,100,50,")
	require.Contains(t, out, "ITEM,0,1,0,0,0,10,20,0-1")
}

func TestWriteCertificateFile(t *testing.T) {
	sol := buildCertSolution(t)
	path := filepath.Join(t.TempDir(), "certificate.csv")
	require.NoError(t, WriteCertificate(path, sol))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "ITEM")
}

func TestWritePDFProducesNonEmptyFile(t *testing.T) {
	sol := buildCertSolution(t)
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, WritePDF(path, sol))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestWritePDFRejectsEmptySolution(t *testing.T) {
	b := model.NewInstanceBuilder(2)
	b.AddItemType(model.ItemType{Extents: []int64{1, 1}, Copies: 1, Profit: 1})
	b.AddBinType(model.BinType{Extents: []int64{10, 10}, Copies: -1, Cost: -1})
	ins, err := b.Build()
	require.NoError(t, err)

	empty := model.NewSolution(ins)
	err = WritePDF(filepath.Join(t.TempDir(), "x.pdf"), empty)
	require.Error(t, err)
}
