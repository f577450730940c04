// Package exportcert writes a solved Solution out as a certificate: a CSV
// file one row per bin followed by its items (spec §6), and an optional
// visual PDF report rendering each bin's layout, adapted from the
// teacher's sheet-diagram renderer (renderSheetPage/renderSummaryPage)
// over this project's bins/items instead of cut-list sheets/parts.
package exportcert

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/perr"
)

// WriteCertificate writes sol's certificate CSV to path: one row per bin
// followed by a row per placed item, per spec §6's column layout
// TYPE(BIN|ITEM), ID, COPIES, BIN, X[, Y[, Z]], LX[, LY[, LZ]][, ROTATION].
func WriteCertificate(path string, sol *model.Solution) error {
	f, err := os.Create(path)
	if err != nil {
		return perr.Wrap(perr.IO, "cannot create "+path, err)
	}
	defer f.Close()
	return writeCertificateTo(f, sol)
}

func writeCertificateTo(w io.Writer, sol *model.Solution) error {
	ins := sol.Instance()
	dim := ins.Dimension()
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"TYPE", "ID", "COPIES", "BIN"}
	for _, axis := range []string{"X", "Y", "Z"}[:dim] {
		header = append(header, axis)
	}
	for _, axis := range []string{"LX", "LY", "LZ"}[:dim] {
		header = append(header, axis)
	}
	header = append(header, "ROTATION")
	if err := cw.Write(header); err != nil {
		return perr.Wrap(perr.IO, "cannot write certificate header", err)
	}

	for binPos, bin := range sol.Bins() {
		bt := ins.BinType(bin.BinTypeID)
		row := []string{"BIN", itoa(bin.BinTypeID), itoa64(bin.Copies), itoa(binPos)}
		row = appendCoords(row, zeroCoords(dim))
		row = appendCoords(row, bt.Extents)
		row = append(row, "")
		if err := cw.Write(row); err != nil {
			return perr.Wrap(perr.IO, "cannot write bin row", err)
		}

		for _, placement := range bin.Items {
			it := ins.ItemType(placement.ItemTypeID)
			ext := placement.Extents(ins)
			row := []string{"ITEM", itoa(placement.ItemTypeID), itoa64(it.Copies), itoa(binPos)}
			row = appendCoords(row, placement.Position)
			row = appendCoords(row, ext)
			row = append(row, rotationString(placement.Rotation))
			if err := cw.Write(row); err != nil {
				return perr.Wrap(perr.IO, "cannot write item row", err)
			}
		}
	}
	return nil
}

func zeroCoords(dim int) []int64 {
	return make([]int64, dim)
}

func appendCoords(row []string, coords []int64) []string {
	for _, c := range coords {
		row = append(row, itoa64(c))
	}
	return row
}

func itoa(v int) string     { return fmt.Sprintf("%d", v) }
func itoa64(v int64) string { return fmt.Sprintf("%d", v) }

func rotationString(r model.Rotation) string {
	s := ""
	for i, axis := range r {
		if i > 0 {
			s += "-"
		}
		s += itoa(axis)
	}
	return s
}

// partColors mirrors the teacher's placed-item color palette, cycled by
// item type id so adjacent item types in the legend stay visually
// distinct.
var partColors = []struct{ R, G, B int }{
	{76, 175, 80},
	{33, 150, 243},
	{255, 152, 0},
	{156, 39, 176},
	{0, 188, 212},
	{244, 67, 54},
	{255, 235, 59},
	{121, 85, 72},
}

// Page layout constants (A4 landscape in mm), matching the teacher's
// cut-sheet PDF layout.
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	headerHeight = 12.0
	statsHeight  = 20.0
	drawAreaTop  = marginTop + headerHeight + 5.0
)

// WritePDF renders a visual report of sol to path: one page per bin
// showing its 2D floor-plane layout (the first two axes of a 2D or 3D
// instance; 1D instances are drawn as a single horizontal strip),
// followed by a summary page with overall statistics.
func WritePDF(path string, sol *model.Solution) error {
	ins := sol.Instance()
	if len(sol.Bins()) == 0 {
		return perr.New(perr.InvalidInput, "solution has no bins to export")
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 0)

	for binPos, bin := range sol.Bins() {
		renderBinPage(pdf, ins, binPos, bin)
	}
	renderSummaryPage(pdf, sol)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return perr.Wrap(perr.IO, "cannot write "+path, err)
	}
	return nil
}

func renderBinPage(pdf *fpdf.Fpdf, ins *model.Instance, binPos int, bin model.Bin) {
	pdf.AddPage()
	bt := ins.BinType(bin.BinTypeID)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight,
		fmt.Sprintf("Bin %d (type %d, x%d)", binPos, bin.BinTypeID, bin.Copies), "", 0, "L", false, 0, "")

	drawWidth := pageWidth - marginLeft - marginRight
	drawHeight := pageHeight - drawAreaTop - marginTop
	binW, binH := float64(bt.Extents[0]), 1.0
	if len(bt.Extents) >= 2 {
		binH = float64(bt.Extents[1])
	}
	scale := drawWidth / binW
	if binH > 0 && drawHeight/binH < scale {
		scale = drawHeight / binH
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.Rect(marginLeft, drawAreaTop, binW*scale, binH*scale, "D")

	for _, d := range bt.Defects {
		pdf.SetFillColor(200, 200, 200)
		x := marginLeft + float64(d.Rect.X)*scale
		y := drawAreaTop + float64(d.Rect.Y)*scale
		pdf.Rect(x, y, float64(d.Rect.Lx)*scale, float64(d.Rect.Ly)*scale, "F")
	}

	for _, placement := range bin.Items {
		ext := placement.Extents(ins)
		c := partColors[placement.ItemTypeID%len(partColors)]
		pdf.SetFillColor(c.R, c.G, c.B)
		pdf.SetDrawColor(60, 60, 60)
		x := marginLeft + float64(placement.Position[0])*scale
		y := drawAreaTop
		if len(placement.Position) >= 2 {
			y = drawAreaTop + float64(placement.Position[1])*scale
		}
		w := float64(ext[0]) * scale
		h := float64(1)
		if len(ext) >= 2 {
			h = float64(ext[1]) * scale
		} else {
			h = binH * scale
		}
		pdf.Rect(x, y, w, h, "FD")
	}
}

func renderSummaryPage(pdf *fpdf.Fpdf, sol *model.Solution) {
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(pageWidth-marginLeft-marginRight, headerHeight, "Summary", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	lines := []string{
		fmt.Sprintf("Objective: %s", sol.Instance().Objective()),
		fmt.Sprintf("Number of bins: %d", sol.NumberOfBins()),
		fmt.Sprintf("Number of items placed: %d", sol.NumberOfItems()),
		fmt.Sprintf("Profit: %.2f", sol.Profit()),
		fmt.Sprintf("Waste: %d", sol.Waste()),
		fmt.Sprintf("Full: %t", sol.Full()),
	}
	y := marginTop + headerHeight + 5
	for _, line := range lines {
		pdf.SetXY(marginLeft, y)
		pdf.CellFormat(pageWidth-marginLeft-marginRight, statsHeight/4, line, "", 0, "L", false, 0, "")
		y += statsHeight / 4
	}
}
