package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectCSVDelimiterComma(t *testing.T) {
	require.Equal(t, ',', DetectCSVDelimiter([]byte("X,Y,PROFIT\n1,2,3\n4,5,6\n")))
}

func TestDetectCSVDelimiterSemicolon(t *testing.T) {
	require.Equal(t, ';', DetectCSVDelimiter([]byte("X;Y;PROFIT\n1;2;3\n4;5;6\n")))
}

func TestReadItems2D(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", "ID,X,Y,PROFIT,COPIES,WEIGHT\n0,100,200,5,3,1.5\n1,50,50,2,-1,0\n")

	items, _, err := ReadItems(path, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, []int64{100, 200}, items[0].Extents)
	require.Equal(t, 5.0, items[0].Profit)
	require.Equal(t, int64(3), items[0].Copies)
	require.Equal(t, 1.5, items[0].Weight)
	require.True(t, items[1].Unbounded())
}

func TestReadItemsRotationsColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", "X,Y,PROFIT,COPIES,ROTATIONS\n10,20,1,1,0-1|1-0\n")

	items, _, err := ReadItems(path, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, []model.Rotation{{0, 1}, {1, 0}}, items[0].Rotations)
}

func TestReadItemsOrientedColumn(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", "X,Y,PROFIT,COPIES,ORIENTED\n10,20,1,1,true\n")

	items, _, err := ReadItems(path, 2)
	require.NoError(t, err)
	require.Len(t, items[0].Rotations, 1)
	require.Equal(t, []int{0, 1}, []int(items[0].Rotations[0]))
}

func TestReadItemsMissingExtentColumnErrors(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "items.csv", "X,PROFIT,COPIES\n10,1,1\n")

	_, _, err := ReadItems(path, 2)
	require.Error(t, err)
}

func TestReadBinsAndDefects(t *testing.T) {
	dir := t.TempDir()
	binsPath := writeFile(t, dir, "bins.csv", "ID,X,Y,COST,COPIES\nA,1000,500,10,2\n")
	defectsPath := writeFile(t, dir, "defects.csv", "BIN_TYPE,X,Y,LX,LY\nA,100,50,20,10\n")

	bins, idIndex, _, err := ReadBins(binsPath, 2)
	require.NoError(t, err)
	require.Len(t, bins, 1)
	require.Equal(t, []int64{1000, 500}, bins[0].Extents)
	require.Equal(t, 10.0, bins[0].Cost)
	require.Equal(t, int64(2), bins[0].Copies)

	defects, _, err := ReadDefects(defectsPath, idIndex)
	require.NoError(t, err)
	require.Len(t, defects, 1)
	require.Equal(t, 0, defects[0].BinTypeID)
	require.Equal(t, int64(100), defects[0].Rect.X)
}

func TestReadDefectsUnknownBinErrors(t *testing.T) {
	dir := t.TempDir()
	defectsPath := writeFile(t, dir, "defects.csv", "BIN_TYPE,X,Y,LX,LY\nZZZ,1,1,1,1\n")

	_, _, err := ReadDefects(defectsPath, map[string]int{"A": 0})
	require.Error(t, err)
}

func TestReadParameters(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "parameters.csv", "NAME,VALUE\nobjective,bin_packing\ntime_limit,30\n")

	params, err := ReadParameters(path)
	require.NoError(t, err)
	require.Equal(t, "bin_packing", params["objective"])
	require.Equal(t, "30", params["time_limit"])
}

func TestBuildInstanceEndToEnd(t *testing.T) {
	dir := t.TempDir()
	itemsPath := writeFile(t, dir, "items.csv", "X,Y,PROFIT,COPIES\n10,10,1,5\n")
	binsPath := writeFile(t, dir, "bins.csv", "ID,X,Y,COST,COPIES\n0,100,100,-1,1\n")
	paramsPath := writeFile(t, dir, "parameters.csv", "NAME,VALUE\nobjective,knapsack\n")

	ins, warnings, err := BuildInstance(BuildConfig{
		ItemsPath:      itemsPath,
		BinsPath:       binsPath,
		ParametersPath: paramsPath,
		Dimension:      2,
	})
	require.NoError(t, err)
	require.NotNil(t, ins)
	require.Equal(t, 2, ins.Dimension())
	require.Equal(t, 1, ins.NumberOfItemTypes())
	require.Equal(t, 1, ins.NumberOfBinTypes())
	require.Len(t, warnings, 1) // items.csv has no WEIGHT column
}

func TestBuildInstanceItemInfiniteCopiesOverride(t *testing.T) {
	dir := t.TempDir()
	itemsPath := writeFile(t, dir, "items.csv", "X,Y,PROFIT,COPIES\n10,10,1,5\n")
	binsPath := writeFile(t, dir, "bins.csv", "ID,X,Y,COST,COPIES\n0,100,100,-1,1\n")

	ins, _, err := BuildInstance(BuildConfig{
		ItemsPath:          itemsPath,
		BinsPath:           binsPath,
		Dimension:          2,
		ItemInfiniteCopies: true,
	})
	require.NoError(t, err)
	require.True(t, ins.ItemType(0).Unbounded())
}

func TestWriteInstanceRoundTripsThroughBuildInstance(t *testing.T) {
	dir := t.TempDir()
	itemsPath := writeFile(t, dir, "items.csv", "X,Y,PROFIT,COPIES,WEIGHT\n10,20,5,3,1.5\n")
	binsPath := writeFile(t, dir, "bins.csv", "ID,X,Y,COST,COPIES\n0,100,50,7,2\n")
	defectsPath := writeFile(t, dir, "defects.csv", "BIN_TYPE,X,Y,LX,LY\n0,10,10,5,5\n")
	paramsPath := writeFile(t, dir, "parameters.csv", "NAME,VALUE\nobjective,bin_packing\n")

	ins, _, err := BuildInstance(BuildConfig{
		ItemsPath:      itemsPath,
		BinsPath:       binsPath,
		DefectsPath:    defectsPath,
		ParametersPath: paramsPath,
		Dimension:      2,
	})
	require.NoError(t, err)

	out := filepath.Join(dir, "dump")
	require.NoError(t, os.MkdirAll(out, 0o755))
	require.NoError(t, WriteInstance(out, ins))

	roundTripped, _, err := BuildInstance(BuildConfig{
		ItemsPath:      filepath.Join(out, "items.csv"),
		BinsPath:       filepath.Join(out, "bins.csv"),
		DefectsPath:    filepath.Join(out, "defects.csv"),
		ParametersPath: filepath.Join(out, "parameters.csv"),
		Dimension:      2,
	})
	require.NoError(t, err)
	require.Equal(t, ins.NumberOfItemTypes(), roundTripped.NumberOfItemTypes())
	require.Equal(t, ins.NumberOfBinTypes(), roundTripped.NumberOfBinTypes())
	require.Equal(t, ins.Objective(), roundTripped.Objective())
	require.Equal(t, ins.ItemType(0).Extents, roundTripped.ItemType(0).Extents)
	require.Equal(t, ins.BinType(0).Defects[0].Rect, roundTripped.BinType(0).Defects[0].Rect)
}
