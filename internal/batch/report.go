package batch

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

// State is the lifecycle position of one symbol within a run.
type State string

const (
	StatePending   State = "pending"
	StateFetching  State = "fetching"
	StateComputing State = "computing"
	StateRendering State = "rendering"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// ReasonCancelled marks targets of symbols that never started because the run was cancelled.
const ReasonCancelled = "cancelled"

// Failure is one target that did not render.
type Failure struct {
	Symbol string
	Period model.PeriodSpec
	Theme  string
	Kind   model.OutputKind
	// Reason is the error kind ("data_unavailable", "render", ...) or "cancelled".
	Reason string
	Err    error
}

// SymbolResult tallies the targets of one symbol.
type SymbolResult struct {
	State    State
	Planned  int
	Rendered int
	Skipped  int
	Failed   int
}

// Report is the outcome of one run. A run never reports success while any
// planned target is missing.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Planned   int
	Succeeded int
	Skipped   int
	Failures  []Failure
	Symbols   map[string]SymbolResult
	Cancelled bool

	mu    sync.Mutex
	order []string
}

func newReport(runID string, started time.Time, plan *Plan) *Report {
	r := &Report{
		RunID:   runID,
		Started: started,
		Planned: plan.Len(),
		Symbols: make(map[string]SymbolResult, len(plan.Symbols)),
		order:   plan.Symbols,
	}
	for _, s := range plan.Symbols {
		r.Symbols[s] = SymbolResult{State: StatePending, Planned: len(plan.Targets(s))}
	}
	return r
}

func (r *Report) setState(symbol string, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.Symbols[symbol]
	res.State = state
	r.Symbols[symbol] = res
}

func (r *Report) rendered(t model.OutputTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Succeeded++
	res := r.Symbols[t.Symbol]
	res.Rendered++
	r.Symbols[t.Symbol] = res
}

func (r *Report) skipped(t model.OutputTarget) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Skipped++
	res := r.Symbols[t.Symbol]
	res.Skipped++
	r.Symbols[t.Symbol] = res
}

func (r *Report) failed(t model.OutputTarget, reason string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failures = append(r.Failures, Failure{
		Symbol: t.Symbol,
		Period: t.Period,
		Theme:  t.Theme,
		Kind:   t.Kind,
		Reason: reason,
		Err:    err,
	})
	res := r.Symbols[t.Symbol]
	res.Failed++
	r.Symbols[t.Symbol] = res
}

// finish freezes the report and orders failures by target.
func (r *Report) finish(at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Finished = at
	sort.SliceStable(r.Failures, func(i, j int) bool {
		a, b := r.Failures[i], r.Failures[j]
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Period != b.Period {
			return a.Period < b.Period
		}
		if a.Theme != b.Theme {
			return a.Theme < b.Theme
		}
		return a.Kind < b.Kind
	})
}

func reason(err error) string {
	return string(errors.GetCode(err).Kind())
}

// OK reports whether every planned target was rendered or skipped.
func (r *Report) OK() bool {
	return !r.Cancelled && len(r.Failures) == 0 && r.Succeeded+r.Skipped == r.Planned
}

// FailedSymbols returns the symbols with at least one failed target, in run order.
func (r *Report) FailedSymbols() []string {
	var out []string
	for _, s := range r.order {
		if r.Symbols[s].Failed > 0 {
			out = append(out, s)
		}
	}
	return out
}

// Summary is a one-line account of the run.
func (r *Report) Summary() string {
	status := "ok"
	switch {
	case r.Cancelled:
		status = "cancelled"
	case !r.OK():
		status = "failed"
	}
	return fmt.Sprintf("run %s %s: %d symbols, %d/%d targets rendered, %d skipped, %d failed in %s",
		r.RunID, status, len(r.Symbols), r.Succeeded, r.Planned, r.Skipped, len(r.Failures),
		r.Finished.Sub(r.Started).Round(time.Millisecond))
}

// Render writes a per-symbol table followed by the failure list.
func (r *Report) Render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "State", "Targets", "Rendered", "Skipped", "Failed"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)
	for _, s := range r.order {
		res := r.Symbols[s]
		table.Append([]string{
			s,
			string(res.State),
			strconv.Itoa(res.Planned),
			strconv.Itoa(res.Rendered),
			strconv.Itoa(res.Skipped),
			strconv.Itoa(res.Failed),
		})
	}
	table.SetFooter([]string{
		"TOTAL",
		"",
		strconv.Itoa(r.Planned),
		strconv.Itoa(r.Succeeded),
		strconv.Itoa(r.Skipped),
		strconv.Itoa(len(r.Failures)),
	})
	table.Render()

	if len(r.Failures) == 0 {
		_, err := fmt.Fprintln(w, r.Summary())
		return err
	}

	failures := tablewriter.NewWriter(w)
	failures.SetHeader([]string{"Symbol", "Period", "Theme", "Kind", "Reason", "Error"})
	failures.SetAutoWrapText(false)
	for _, f := range r.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		failures.Append([]string{f.Symbol, f.Period.Label(), f.Theme, string(f.Kind), f.Reason, msg})
	}
	failures.Render()
	_, err := fmt.Fprintln(w, r.Summary())
	return err
}
