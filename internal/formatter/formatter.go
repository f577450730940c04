// Package formatter implements the algorithm formatter (C7): progress
// lines gated by verbosity level, a JSON run summary, and the single
// mutex that serializes every worker's offer to the shared solution
// pool, matching the teacher's plain fmt.Fprintf-based reporting rather
// than a logging framework (see SPEC_FULL.md §B).
package formatter

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/piwi3910/packingsolver/internal/model"
	"github.com/piwi3910/packingsolver/internal/pool"
)

// Output is the JSON-serializable summary of one solve run, written to
// the --output path and returned from Formatter.Output.
type Output struct {
	RunID           string    `json:"run_id"`
	Objective       string    `json:"objective"`
	ElapsedSeconds  float64   `json:"elapsed_seconds"`
	NumberOfBins    int64     `json:"number_of_bins"`
	Profit          float64   `json:"profit,omitempty"`
	Waste           int64     `json:"waste"`
	Full            bool      `json:"full"`
	StartedAt       time.Time `json:"started_at"`
}

// Formatter is the mutex-guarded bridge between search.Driver workers and
// the shared solution pool: the only synchronization point across
// workers (spec §5).
type Formatter struct {
	mu            sync.Mutex
	pool          *pool.Pool
	w             io.Writer
	verbosity     int
	runID         string
	started       time.Time
	onNewSolution func(*model.Solution)
}

// New builds a Formatter writing progress lines to w at the given
// verbosity level (0 = silent, 1 = one line per improvement, 2+ = also
// one line per pool insert that is not a new best), invoking onNewSolution (which may be nil)
// each time the pool's best improves.
func New(p *pool.Pool, w io.Writer, verbosity int, onNewSolution func(*model.Solution)) *Formatter {
	return &Formatter{
		pool:          p,
		w:             w,
		verbosity:     verbosity,
		runID:         uuid.New().String()[:8],
		started:       time.Now(),
		onNewSolution: onNewSolution,
	}
}

// Offer serializes sol into the pool and, when it becomes the new best,
// prints a progress line (if verbosity allows) and invokes the
// new-solution callback. It implements search.SolutionSink.
func (f *Formatter) Offer(sol *model.Solution) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	rank := f.pool.Add(sol)
	if rank == 1 {
		if f.verbosity >= 1 && f.w != nil {
			fmt.Fprintf(f.w, "[%s] %8.2fs  bins=%-4d profit=%-10.2f waste=%-10d  new best\n",
				f.runID, time.Since(f.started).Seconds(), sol.NumberOfBins(), sol.Profit(), sol.Waste())
		}
		if f.onNewSolution != nil {
			f.onNewSolution(sol)
		}
	} else if rank == 0 && f.verbosity >= 2 && f.w != nil {
		fmt.Fprintf(f.w, "[%s] %8.2fs  bins=%-4d profit=%-10.2f waste=%-10d  pool insert\n",
			f.runID, time.Since(f.started).Seconds(), sol.NumberOfBins(), sol.Profit(), sol.Waste())
	}
	return rank
}

// Worst implements search.SolutionSink.
func (f *Formatter) Worst() *model.Solution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pool.Worst()
}

// Best returns the pool's current best solution, or nil if none has
// been found yet.
func (f *Formatter) Best() *model.Solution {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pool.Best()
}

// Output builds the JSON-serializable run summary for the pool's
// current best solution. It returns the zero Output if the pool is
// still empty.
func (f *Formatter) Output(ins *model.Instance) Output {
	f.mu.Lock()
	best := f.pool.Best()
	f.mu.Unlock()

	out := Output{
		RunID:          f.runID,
		Objective:      ins.Objective().String(),
		ElapsedSeconds: time.Since(f.started).Seconds(),
		StartedAt:      f.started,
	}
	if best != nil {
		out.NumberOfBins = best.NumberOfBins()
		out.Profit = best.Profit()
		out.Waste = best.Waste()
		out.Full = best.Full()
	}
	return out
}

// WriteJSON marshals the current Output to w.
func (f *Formatter) WriteJSON(w io.Writer, ins *model.Instance) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f.Output(ins))
}
