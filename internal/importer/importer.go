// Package importer reads the instance file formats from spec §6:
// items.csv, bins.csv, defects.csv, and parameters.csv (or an .xlsx
// sibling of any of them), and assembles a model.Instance from them.
// Delimiter detection and case-insensitive header matching follow the
// teacher's internal/importer (DetectCSVDelimiter, header-alias column
// mapping), retargeted from cut-list part rows to item/bin/defect/
// parameter rows.
package importer

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/perr"
)

// DetectCSVDelimiter reads the file content and determines the most
// likely CSV delimiter among comma, semicolon, tab, and pipe: the one
// producing the most consistent (non-one) column count across lines
// wins.
func DetectCSVDelimiter(data []byte) rune {
	candidates := []rune{',', ';', '\t', '|'}
	best := ','
	bestScore := 0

	for _, delim := range candidates {
		r := csv.NewReader(bytes.NewReader(data))
		r.Comma = delim
		r.LazyQuotes = true
		r.FieldsPerRecord = -1

		records, err := r.ReadAll()
		if err != nil || len(records) < 1 {
			continue
		}
		firstCols := len(records[0])
		if firstCols < 2 {
			continue
		}
		score := 0
		for _, row := range records {
			if len(row) == firstCols {
				score++
			}
		}
		weighted := score*10 + firstCols
		if weighted > bestScore {
			bestScore = weighted
			best = delim
		}
	}
	return best
}

// readRows loads every row of path as a [][]string, dispatching to
// excelize for .xlsx/.xls and to a delimiter-sniffing CSV reader
// otherwise. If path does not exist, it retries with the same basename
// under a .xlsx extension (the "CSV-or-XLSX sibling" pattern spec.md
// §6 does not forbid and SPEC_FULL.md §C wires through excelize).
func readRows(path string) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" || ext == ".xls" {
		return readExcelRows(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		sibling := strings.TrimSuffix(path, filepath.Ext(path)) + ".xlsx"
		if _, statErr := os.Stat(sibling); statErr == nil {
			return readExcelRows(sibling)
		}
		return nil, perr.Wrap(perr.IO, "cannot open "+path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, perr.Newf(perr.InvalidInput, "%s is empty", path)
	}

	delim := DetectCSVDelimiter(data)
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, perr.Wrap(perr.InvalidInput, "cannot parse "+path, err)
	}
	return records, nil
}

func readExcelRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, perr.Wrap(perr.IO, "cannot open "+path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, perr.Newf(perr.InvalidInput, "%s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, perr.Wrap(perr.InvalidInput, "cannot read "+path, err)
	}
	return rows, nil
}

// header indexes a header row by trimmed, uppercased column name.
type header map[string]int

func parseHeader(row []string) header {
	h := make(header, len(row))
	for i, cell := range row {
		h[strings.ToUpper(strings.TrimSpace(cell))] = i
	}
	return h
}

func (h header) col(names ...string) int {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return i
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isEmptyRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseInt(s string, def int64) (int64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseInt(s, 10, 64)
}

func parseBool(s string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return def
	case "1", "true", "t", "yes", "y":
		return true
	default:
		return false
	}
}

// extentColumns returns the column indices for X, Y, Z in order,
// trimmed to the instance's dimension (-1 entries are simply absent).
func extentColumns(h header, dimension int) []int {
	all := []int{h.col("X"), h.col("Y"), h.col("Z")}
	return all[:dimension]
}

// ReadItems parses items.csv (or its .xlsx sibling) into ItemType
// records, in file order, with one warning per row when the file has no
// WEIGHT column (the other optional columns default silently).
// The caller is responsible for feeding these into an InstanceBuilder in
// the same order (AddItemType assigns ids sequentially, matching the
// original's item-type ordering).
func ReadItems(path string, dimension int) ([]model.ItemType, []string, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, perr.Newf(perr.InvalidInput, "%s has no rows", path)
	}
	h := parseHeader(rows[0])
	extCols := extentColumns(h, dimension)
	for i, c := range extCols {
		if c == -1 {
			return nil, nil, perr.Newf(perr.InvalidInput, "%s: missing extent column for axis %d", path, i)
		}
	}
	profitCol, copiesCol := h.col("PROFIT"), h.col("COPIES")
	if profitCol == -1 || copiesCol == -1 {
		return nil, nil, perr.Newf(perr.InvalidInput, "%s: missing required column PROFIT or COPIES", path)
	}

	var items []model.ItemType
	var warnings []string
	for lineNum, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		label := rowLabel(path, lineNum+2)

		extents := make([]int64, dimension)
		for i, c := range extCols {
			v, err := parseInt(cell(row, c), 0)
			if err != nil || v <= 0 {
				return nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid extent on axis %d", label, i)
			}
			extents[i] = v
		}
		profit, err := parseFloat(cell(row, profitCol), 0)
		if err != nil {
			return nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid PROFIT", label)
		}
		copies, err := parseInt(cell(row, copiesCol), 1)
		if err != nil {
			return nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid COPIES", label)
		}
		weight, err := parseFloat(cell(row, h.col("WEIGHT")), 0)
		if err != nil {
			return nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid WEIGHT", label)
		}
		groupID, _ := parseInt(cell(row, h.col("GROUP_ID")), 0)
		nestingLength, _ := parseInt(cell(row, h.col("NESTING_LENGTH")), 0)
		maxStack, _ := parseInt(cell(row, h.col("MAXIMUM_STACKABILITY")), 0)
		maxWeightAfter, _ := parseFloat(cell(row, h.col("MAXIMUM_WEIGHT_AFTER")), 0)
		maxWeightAbove, _ := parseFloat(cell(row, h.col("MAXIMUM_WEIGHT_ABOVE")), 0)
		stackabilityID, _ := parseInt(cell(row, h.col("STACKABILITY_ID")), 0)
		eligibilityID, _ := parseInt(cell(row, h.col("ELIGIBILITY_ID")), -1)

		it := model.ItemType{
			Extents:             extents,
			Profit:              profit,
			Copies:              copies,
			Weight:              weight,
			GroupID:             int(groupID),
			NestingLength:       nestingLength,
			MaximumStackability: maxStack,
			MaximumWeightAfter:  maxWeightAfter,
			MaximumWeightAbove:  maxWeightAbove,
			StackabilityID:      int(stackabilityID),
			EligibilityID:       int(eligibilityID),
		}

		if oriented := h.col("ORIENTED"); oriented != -1 && parseBool(cell(row, oriented), false) {
			it.Rotations = []model.Rotation{identity(dimension)}
		} else if rotCol := h.col("ROTATIONS"); rotCol != -1 && cell(row, rotCol) != "" {
			rots, err := parseRotations(cell(row, rotCol), dimension)
			if err != nil {
				return nil, nil, perr.Newf(perr.InvalidInput, "%s: %v", label, err)
			}
			it.Rotations = rots
		}

		items = append(items, it)
		if weight == 0 && h.col("WEIGHT") == -1 {
			warnings = append(warnings, label+": no WEIGHT column, defaulting to 0")
		}
	}
	return items, warnings, nil
}

func identity(dimension int) model.Rotation {
	r := make(model.Rotation, dimension)
	for i := range r {
		r[i] = i
	}
	return r
}

// parseRotations parses a ROTATIONS cell of the form "0-1|1-0": '|'
// separates alternative permutations, '-' separates axis indices within
// one permutation.
func parseRotations(s string, dimension int) ([]model.Rotation, error) {
	var out []model.Rotation
	for _, part := range strings.Split(s, "|") {
		axes := strings.Split(part, "-")
		if len(axes) != dimension {
			return nil, perr.Newf(perr.InvalidInput, "rotation %q has %d axes, want %d", part, len(axes), dimension)
		}
		rot := make(model.Rotation, dimension)
		for i, a := range axes {
			v, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil {
				return nil, perr.Newf(perr.InvalidInput, "rotation %q: invalid axis index", part)
			}
			rot[i] = v
		}
		out = append(out, rot)
	}
	return out, nil
}

func rowLabel(path string, lineNum int) string {
	return filepath.Base(path) + ":" + strconv.Itoa(lineNum)
}

// ReadBins parses bins.csv into BinType records plus a map from each
// row's own ID column value to the record's position, used by ReadDefects
// to resolve BIN_TYPE references.
func ReadBins(path string, dimension int) ([]model.BinType, map[string]int, []string, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil, perr.Newf(perr.InvalidInput, "%s has no rows", path)
	}
	h := parseHeader(rows[0])
	extCols := extentColumns(h, dimension)
	for i, c := range extCols {
		if c == -1 {
			return nil, nil, nil, perr.Newf(perr.InvalidInput, "%s: missing extent column for axis %d", path, i)
		}
	}
	idCol, costCol, copiesCol := h.col("ID"), h.col("COST"), h.col("COPIES")
	if copiesCol == -1 {
		return nil, nil, nil, perr.Newf(perr.InvalidInput, "%s: missing required column COPIES", path)
	}

	var bins []model.BinType
	idIndex := map[string]int{}
	var warnings []string
	for lineNum, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		label := rowLabel(path, lineNum+2)

		extents := make([]int64, dimension)
		for i, c := range extCols {
			v, err := parseInt(cell(row, c), 0)
			if err != nil || v <= 0 {
				return nil, nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid extent on axis %d", label, i)
			}
			extents[i] = v
		}
		cost, err := parseFloat(cell(row, costCol), -1)
		if err != nil {
			return nil, nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid COST", label)
		}
		copies, err := parseInt(cell(row, copiesCol), 1)
		if err != nil {
			return nil, nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid COPIES", label)
		}
		copiesMin, _ := parseInt(cell(row, h.col("COPIES_MIN")), 0)
		maxWeight, _ := parseFloat(cell(row, h.col("MAXIMUM_WEIGHT")), 0)

		bt := model.BinType{
			Extents:       extents,
			Cost:          cost,
			Copies:        copies,
			CopiesMin:     copiesMin,
			MaximumWeight: maxWeight,
		}
		externalID := cell(row, idCol)
		if externalID == "" {
			externalID = strconv.Itoa(len(bins))
		}
		idIndex[externalID] = len(bins)
		bins = append(bins, bt)
	}
	return bins, idIndex, warnings, nil
}

// ReadDefects parses defects.csv, resolving each row's BIN_TYPE column
// against binIndex (from ReadBins) to the bin's position.
func ReadDefects(path string, binIndex map[string]int) ([]model.Defect, []string, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}
	h := parseHeader(rows[0])
	binCol, xCol, yCol, lxCol, lyCol := h.col("BIN_TYPE"), h.col("X"), h.col("Y"), h.col("LX"), h.col("LY")
	if binCol == -1 || xCol == -1 || yCol == -1 || lxCol == -1 || lyCol == -1 {
		return nil, nil, perr.Newf(perr.InvalidInput, "%s: missing required column", path)
	}

	var defects []model.Defect
	for lineNum, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		label := rowLabel(path, lineNum+2)
		binRef := cell(row, binCol)
		binPos, ok := binIndex[binRef]
		if !ok {
			return nil, nil, perr.Newf(perr.InvalidInput, "%s: unknown bin type %q", label, binRef)
		}
		x, errX := parseInt(cell(row, xCol), 0)
		y, errY := parseInt(cell(row, yCol), 0)
		lx, errLx := parseInt(cell(row, lxCol), 0)
		ly, errLy := parseInt(cell(row, lyCol), 0)
		if errX != nil || errY != nil || errLx != nil || errLy != nil {
			return nil, nil, perr.Newf(perr.InvalidInput, "%s: invalid defect geometry", label)
		}
		defects = append(defects, model.Defect{
			BinTypeID: binPos,
			Rect:      model.Rect{X: x, Y: y, Lx: lx, Ly: ly},
		})
	}
	return defects, nil, nil
}

// ReadParameters parses parameters.csv's NAME,VALUE rows into a map.
func ReadParameters(path string) (map[string]string, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return map[string]string{}, nil
	}
	h := parseHeader(rows[0])
	nameCol, valueCol := h.col("NAME"), h.col("VALUE")
	if nameCol == -1 || valueCol == -1 {
		return nil, perr.Newf(perr.InvalidInput, "%s: missing required column NAME or VALUE", path)
	}

	params := map[string]string{}
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		name := strings.ToLower(cell(row, nameCol))
		if name == "" {
			continue
		}
		params[name] = cell(row, valueCol)
	}
	return params, nil
}

// BuildConfig gathers the paths and CLI-flag-driven overrides that
// together produce a built Instance, mirroring the CLI surface of
// spec §6.
type BuildConfig struct {
	ItemsPath      string
	BinsPath       string
	DefectsPath    string
	ParametersPath string
	Dimension      int

	BinInfiniteX       bool
	BinInfiniteY       bool
	BinInfiniteCopies  bool
	ItemInfiniteCopies bool
	NoItemRotation     bool
	Unweighted         bool
	BinUnweighted      bool
	ItemProfitsAuto    bool
}

// BuildInstance reads every configured file and assembles a built
// Instance, applying the CLI override flags from spec §6 before Build()
// validates and freezes it.
func BuildInstance(cfg BuildConfig) (*model.Instance, []string, error) {
	var warnings []string

	items, w, err := ReadItems(cfg.ItemsPath, cfg.Dimension)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, w...)

	bins, binIndex, w, err := ReadBins(cfg.BinsPath, cfg.Dimension)
	if err != nil {
		return nil, nil, err
	}
	warnings = append(warnings, w...)

	var defects []model.Defect
	if cfg.DefectsPath != "" {
		defects, w, err = ReadDefects(cfg.DefectsPath, binIndex)
		if err != nil {
			return nil, nil, err
		}
		warnings = append(warnings, w...)
	}

	params := map[string]string{}
	if cfg.ParametersPath != "" {
		params, err = ReadParameters(cfg.ParametersPath)
		if err != nil {
			return nil, nil, err
		}
	}

	b := model.NewInstanceBuilder(cfg.Dimension)
	b.SetAllowRotation(!cfg.NoItemRotation)

	if obj, ok := params["objective"]; ok {
		if o, ok := model.ParseObjective(obj); ok {
			b.SetObjective(o)
		} else {
			warnings = append(warnings, "unrecognized objective "+obj+", using Default")
		}
	}
	if uc, ok := params["unloading_constraint"]; ok {
		if u, ok := model.ParseUnloadingConstraint(uc); ok {
			b.SetUnloadingConstraint(u)
		} else {
			warnings = append(warnings, "unrecognized unloading_constraint "+uc+", using None")
		}
	}
	for name, value := range params {
		if name != "objective" && name != "unloading_constraint" {
			b.SetParameter(name, value)
		}
	}

	maxProfit := 0.0
	for _, it := range items {
		if it.Profit > maxProfit {
			maxProfit = it.Profit
		}
	}
	for _, it := range items {
		if cfg.ItemInfiniteCopies {
			it.Copies = -1
		}
		if cfg.Unweighted {
			it.Weight = 0
		}
		if cfg.ItemProfitsAuto {
			it.Profit = float64(it.Volume())
		}
		if cfg.NoItemRotation {
			it.Rotations = []model.Rotation{identity(cfg.Dimension)}
		}
		b.AddItemType(it)
	}

	for _, bt := range bins {
		if cfg.BinInfiniteCopies {
			bt.Copies = -1
		}
		if cfg.BinInfiniteX && cfg.Dimension >= 1 {
			bt.Extents[0] = maxExtent(items, 0, bt.Extents[0])
		}
		if cfg.BinInfiniteY && cfg.Dimension >= 2 {
			bt.Extents[1] = maxExtent(items, 1, bt.Extents[1])
		}
		if cfg.BinUnweighted {
			bt.MaximumWeight = 0
		}
		b.AddBinType(bt)
	}

	for _, d := range defects {
		if err := b.AddDefect(d); err != nil {
			return nil, nil, err
		}
	}

	ins, err := b.Build()
	if err != nil {
		return nil, nil, err
	}
	return ins, warnings, nil
}

// WriteInstance writes ins back out as items.csv, bins.csv, parameters.csv,
// and (if any bin type carries one) defects.csv under dir, in exactly the
// column layout ReadItems/ReadBins/ReadDefects/ReadParameters expect, so
// the files round-trip through BuildInstance. This mirrors the original
// implementation's instance writer (onedimensional/instance.cpp::write)
// and is how the flipper's flipped instance can be persisted for
// inspection (SPEC_FULL.md §D.4).
func WriteInstance(dir string, ins *model.Instance) error {
	if err := writeItemsCSV(filepath.Join(dir, "items.csv"), ins); err != nil {
		return err
	}
	if err := writeBinsCSV(filepath.Join(dir, "bins.csv"), ins); err != nil {
		return err
	}
	if err := writeParametersCSV(filepath.Join(dir, "parameters.csv"), ins); err != nil {
		return err
	}
	if hasDefects(ins) {
		if err := writeDefectsCSV(filepath.Join(dir, "defects.csv"), ins); err != nil {
			return err
		}
	}
	return nil
}

func hasDefects(ins *model.Instance) bool {
	for _, bt := range ins.BinTypes() {
		if len(bt.Defects) > 0 {
			return true
		}
	}
	return false
}

func axisNames(dimension int) []string {
	return []string{"X", "Y", "Z"}[:dimension]
}

func writeCSVRows(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return perr.Wrap(perr.IO, "cannot create "+path, err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write(header); err != nil {
		return perr.Wrap(perr.IO, "cannot write "+path, err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return perr.Wrap(perr.IO, "cannot write "+path, err)
		}
	}
	return nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
func formatInt(v int64) string     { return strconv.FormatInt(v, 10) }

func formatRotations(rots []model.Rotation) string {
	parts := make([]string, len(rots))
	for i, r := range rots {
		axes := make([]string, len(r))
		for j, a := range r {
			axes[j] = strconv.Itoa(a)
		}
		parts[i] = strings.Join(axes, "-")
	}
	return strings.Join(parts, "|")
}

func writeItemsCSV(path string, ins *model.Instance) error {
	dim := ins.Dimension()
	header := append(append([]string{}, axisNames(dim)...),
		"PROFIT", "COPIES", "WEIGHT", "GROUP_ID", "NESTING_LENGTH",
		"MAXIMUM_STACKABILITY", "MAXIMUM_WEIGHT_AFTER", "MAXIMUM_WEIGHT_ABOVE",
		"STACKABILITY_ID", "ELIGIBILITY_ID", "ROTATIONS")

	var rows [][]string
	for _, it := range ins.ItemTypes() {
		row := make([]string, 0, len(header))
		for _, e := range it.Extents {
			row = append(row, formatInt(e))
		}
		row = append(row,
			formatFloat(it.Profit), formatInt(it.Copies), formatFloat(it.Weight),
			strconv.Itoa(it.GroupID), formatInt(it.NestingLength),
			formatInt(it.MaximumStackability), formatFloat(it.MaximumWeightAfter),
			formatFloat(it.MaximumWeightAbove), strconv.Itoa(it.StackabilityID),
			strconv.Itoa(it.EligibilityID), formatRotations(it.Rotations))
		rows = append(rows, row)
	}
	return writeCSVRows(path, header, rows)
}

func writeBinsCSV(path string, ins *model.Instance) error {
	dim := ins.Dimension()
	header := append(append([]string{"ID"}, axisNames(dim)...),
		"COST", "COPIES", "COPIES_MIN", "MAXIMUM_WEIGHT")

	var rows [][]string
	for i, bt := range ins.BinTypes() {
		row := []string{strconv.Itoa(i)}
		for _, e := range bt.Extents {
			row = append(row, formatInt(e))
		}
		maxWeight := bt.MaximumWeight
		if maxWeight > 1e18 {
			maxWeight = 0
		}
		row = append(row, formatFloat(bt.Cost), formatInt(bt.Copies),
			formatInt(bt.CopiesMin), formatFloat(maxWeight))
		rows = append(rows, row)
	}
	return writeCSVRows(path, header, rows)
}

func writeDefectsCSV(path string, ins *model.Instance) error {
	header := []string{"BIN_TYPE", "X", "Y", "LX", "LY"}
	var rows [][]string
	for i, bt := range ins.BinTypes() {
		for _, d := range bt.Defects {
			rows = append(rows, []string{
				strconv.Itoa(i),
				formatInt(d.Rect.X), formatInt(d.Rect.Y),
				formatInt(d.Rect.Lx), formatInt(d.Rect.Ly),
			})
		}
	}
	return writeCSVRows(path, header, rows)
}

func writeParametersCSV(path string, ins *model.Instance) error {
	header := []string{"NAME", "VALUE"}
	rows := [][]string{
		{"objective", strings.ToLower(ins.Objective().String())},
	}
	if ins.UnloadingConstraint() != model.NoUnloadingConstraint {
		rows = append(rows, []string{"unloading_constraint", strings.ToLower(ins.UnloadingConstraint().String())})
	}
	for name, value := range ins.Parameters() {
		rows = append(rows, []string{name, value})
	}
	return writeCSVRows(path, header, rows)
}

// maxExtent grows a bin's axis extent to at least the largest item's
// extent on that axis (--bin-infinite-x/y): no item type is excluded on
// that axis alone. The bin does not become unbounded; the result is
// max(current, largest item extent), with no room added beyond that.
func maxExtent(items []model.ItemType, axis int, current int64) int64 {
	best := current
	for _, it := range items {
		if axis < len(it.Extents) && it.Extents[axis] > best {
			best = it.Extents[axis]
		}
	}
	return best
}
