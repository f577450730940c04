// Command packingsolver reads an items/bins/defects/parameters instance,
// runs a best-first tree search against the requested objective, and
// writes the best solution found as a JSON summary and, optionally, a
// CSV/PDF certificate (spec §6).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/piwi3910/packingsolver/internal/box"
	"github.com/piwi3910/packingsolver/internal/exportcert"
	"github.com/piwi3910/packingsolver/internal/flipper"
	"github.com/piwi3910/packingsolver/internal/formatter"
	"github.com/piwi3910/packingsolver/internal/importer"
	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/onedimensional"
	"github.com/piwi3910/packingsolver/internal/perr"
	"github.com/piwi3910/packingsolver/internal/pool"
	"github.com/piwi3910/packingsolver/internal/rectangle"
	"github.com/piwi3910/packingsolver/internal/search"
)

var (
	flagItems          string
	flagBins           string
	flagDefects        string
	flagParameters     string
	flagObjective      string
	flagDirection      string
	flagOutput         string
	flagCertificate    string
	flagPDF            string
	flagTimeLimit      float64
	flagVerbosityLevel int
	flagSeed           int64
	flagGuideID        int
	flagPoolSize       int
	flagDimension      int

	flagBinInfiniteX       bool
	flagBinInfiniteY       bool
	flagBinInfiniteCopies  bool
	flagItemInfiniteCopies bool
	flagNoItemRotation     bool
	flagUnweighted         bool
	flagBinUnweighted      bool
	flagItemProfitsAuto    bool
	flagOnlyWriteAtEnd     bool
	flagWriteInstanceDir   string
)

var rootCmd = &cobra.Command{
	Use:           "packingsolver",
	Short:         "Tree-search geometric packing solver",
	Long:          "packingsolver branches and bounds over 1D, 2D (rectangle), and 3D (box) packing instances to maximize profit, minimize waste, or minimize the number of bins used, depending on the chosen objective.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flagItems, "items", "", "path to items.csv (required)")
	f.StringVar(&flagBins, "bins", "", "path to bins.csv (required)")
	f.StringVar(&flagDefects, "defects", "", "path to defects.csv")
	f.StringVar(&flagParameters, "parameters", "", "path to parameters.csv")
	f.StringVar(&flagObjective, "objective", "", "objective name, overrides parameters.csv")
	f.StringVar(&flagDirection, "direction", "x", "axis the branching scheme treats as the bin's growth direction: x, y, or z")
	f.StringVar(&flagOutput, "output", "", "path to write the JSON run summary")
	f.StringVar(&flagCertificate, "certificate", "", "path to write the CSV solution certificate")
	f.StringVar(&flagPDF, "pdf", "", "path to write a visual PDF report of the best solution")
	f.Float64Var(&flagTimeLimit, "time-limit", 0, "search time limit in seconds (0 = unlimited)")
	f.IntVar(&flagVerbosityLevel, "verbosity-level", 1, "0 = silent, 1 = print on improvement, 2+ = print on every pool insert")
	f.Int64Var(&flagSeed, "seed", 0, "reserved for future randomized restarts; currently unused")
	f.IntVar(&flagGuideID, "guide", 0, "branching scheme guide function id")
	f.IntVar(&flagPoolSize, "pool-size", 1, "number of best distinct solutions kept in the pool")
	f.IntVar(&flagDimension, "dimension", 2, "instance dimension: 1, 2, or 3")

	f.BoolVar(&flagBinInfiniteX, "bin-infinite-x", false, "grow each bin's x extent to at least the largest item's x extent (not unbounded)")
	f.BoolVar(&flagBinInfiniteY, "bin-infinite-y", false, "grow each bin's y extent to at least the largest item's y extent (not unbounded)")
	f.BoolVar(&flagBinInfiniteCopies, "bin-infinite-copies", false, "treat every bin type as having unlimited supply")
	f.BoolVar(&flagItemInfiniteCopies, "item-infinite-copies", false, "treat every item type as having unlimited demand")
	f.BoolVar(&flagNoItemRotation, "no-item-rotation", false, "disable item rotation, regardless of items.csv")
	f.BoolVar(&flagUnweighted, "unweighted", false, "ignore item weights")
	f.BoolVar(&flagBinUnweighted, "bin-unweighted", false, "ignore bin weight limits")
	f.BoolVar(&flagItemProfitsAuto, "item-profits-auto", false, "set each item's profit to its own volume")
	f.BoolVar(&flagOnlyWriteAtEnd, "only-write-at-the-end", false, "write the certificate/PDF only once, after the search stops")
	f.StringVar(&flagWriteInstanceDir, "write-instance", "", "directory to dump the built (post-override, post-direction) instance back to items.csv/bins.csv/parameters.csv, for regression fixtures")

	_ = rootCmd.MarkFlagRequired("items")
	_ = rootCmd.MarkFlagRequired("bins")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "packingsolver:", err)
		var pe *perr.Error
		if errors.As(err, &pe) && pe.Code == perr.IO {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ins, warnings, err := importer.BuildInstance(importer.BuildConfig{
		ItemsPath:          flagItems,
		BinsPath:           flagBins,
		DefectsPath:        flagDefects,
		ParametersPath:     flagParameters,
		Dimension:          flagDimension,
		BinInfiniteX:       flagBinInfiniteX,
		BinInfiniteY:       flagBinInfiniteY,
		BinInfiniteCopies:  flagBinInfiniteCopies,
		ItemInfiniteCopies: flagItemInfiniteCopies,
		NoItemRotation:     flagNoItemRotation,
		Unweighted:         flagUnweighted,
		BinUnweighted:      flagBinUnweighted,
		ItemProfitsAuto:    flagItemProfitsAuto,
	})
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, "packingsolver: warning:", w)
	}
	if flagVerbosityLevel > 0 {
		ins.Format(os.Stderr, flagVerbosityLevel-1)
	}

	if flagObjective != "" {
		obj, ok := model.ParseObjective(flagObjective)
		if !ok {
			return fmt.Errorf("unrecognized --objective %q", flagObjective)
		}
		ins, err = rebuildWithObjective(ins, obj)
		if err != nil {
			return err
		}
	}

	direction, ok := model.ParseDirection(flagDirection)
	if !ok {
		return fmt.Errorf("unrecognized --direction %q", flagDirection)
	}
	searchIns := ins
	if direction != model.DirectionX {
		searchIns, err = flipper.Flip(ins, direction)
		if err != nil {
			return err
		}
	}
	toOriginal := func(sol *model.Solution) (*model.Solution, error) {
		if direction == model.DirectionX {
			return sol, nil
		}
		return flipper.UnflipSolution(sol, ins, direction)
	}

	if flagWriteInstanceDir != "" {
		if err := os.MkdirAll(flagWriteInstanceDir, 0o755); err != nil {
			return perr.Wrap(perr.IO, "cannot create "+flagWriteInstanceDir, err)
		}
		if err := importer.WriteInstance(flagWriteInstanceDir, searchIns); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	timer, cancel := search.NewTimer(ctx, time.Duration(flagTimeLimit*float64(time.Second)))
	defer cancel()

	p := pool.New(flagPoolSize)
	form := formatter.New(p, os.Stdout, flagVerbosityLevel, func(sol *model.Solution) {
		if flagOnlyWriteAtEnd {
			return
		}
		orig, err := toOriginal(sol)
		if err != nil {
			fmt.Fprintln(os.Stderr, "packingsolver: unflip:", err)
			return
		}
		writeArtifacts(orig)
	})

	if err := runDriver(searchIns, form, timer); err != nil {
		return err
	}

	best := form.Best()
	if best != nil {
		orig, err := toOriginal(best)
		if err != nil {
			return err
		}
		writeArtifacts(orig)
	}
	if flagOutput != "" {
		out, err := os.Create(flagOutput)
		if err != nil {
			return err
		}
		defer out.Close()
		if err := form.WriteJSON(out, ins); err != nil {
			return err
		}
	} else {
		_ = form.WriteJSON(os.Stdout, ins)
	}
	return nil
}

func writeArtifacts(sol *model.Solution) {
	if flagCertificate != "" {
		if err := exportcert.WriteCertificate(flagCertificate, sol); err != nil {
			fmt.Fprintln(os.Stderr, "packingsolver: certificate:", err)
		}
	}
	if flagPDF != "" {
		if err := exportcert.WritePDF(flagPDF, sol); err != nil {
			fmt.Fprintln(os.Stderr, "packingsolver: pdf:", err)
		}
	}
}

func rebuildWithObjective(ins *model.Instance, obj model.Objective) (*model.Instance, error) {
	b := model.NewInstanceBuilder(ins.Dimension())
	b.SetAllowRotation(ins.AllowRotation())
	b.SetObjective(obj)
	b.SetUnloadingConstraint(ins.UnloadingConstraint())
	for _, it := range ins.ItemTypes() {
		b.AddItemType(it)
	}
	for _, bt := range ins.BinTypes() {
		defects := bt.Defects
		bt.Defects = nil
		id := b.AddBinType(bt)
		for _, d := range defects {
			d.BinTypeID = id
			if err := b.AddDefect(d); err != nil {
				return nil, err
			}
		}
	}
	return b.Build()
}

// runDriver dispatches to the branching scheme matching the instance's
// dimension and runs the generic search driver against it.
func runDriver(ins *model.Instance, form *formatter.Formatter, timer *search.Timer) error {
	switch ins.Dimension() {
	case 1:
		scheme, err := onedimensional.New(ins, flagGuideID)
		if err != nil {
			return err
		}
		return search.NewDriver[*onedimensional.Node, onedimensional.Insertion](scheme, form, timer).Run()
	case 2:
		scheme, err := rectangle.New(ins, flagGuideID)
		if err != nil {
			return err
		}
		return search.NewDriver[*rectangle.Node, rectangle.Insertion](scheme, form, timer).Run()
	case 3:
		scheme, err := box.New(ins, flagGuideID)
		if err != nil {
			return err
		}
		return search.NewDriver[*box.Node, box.Insertion](scheme, form, timer).Run()
	default:
		return fmt.Errorf("unsupported dimension %d", ins.Dimension())
	}
}
