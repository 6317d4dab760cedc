package batch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"

	"KlineStudio/internal/calculator"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
	"KlineStudio/internal/theme"
)

// Output directory names under Options.OutputDir.
const (
	KlineDir    = "kline"
	CandleDir   = "candle"
	MultiDayDir = "multi_day"
)

// Plan is the resolved work of one run: which symbols, periods and themes,
// the indicator union to compute, and every output target per symbol.
type Plan struct {
	Symbols []string
	Periods []model.PeriodSpec
	Themes  []theme.Theme
	Request calculator.Request

	themes  map[string]theme.Theme
	targets map[string][]model.OutputTarget
}

// Targets returns the planned targets of symbol in period, theme, kind order.
func (p *Plan) Targets(symbol string) []model.OutputTarget {
	return p.targets[symbol]
}

// Len returns the total number of planned targets.
func (p *Plan) Len() int {
	n := 0
	for _, t := range p.targets {
		n += len(t)
	}
	return n
}

// Theme returns the planned theme called name.
func (p *Plan) Theme(name string) (theme.Theme, bool) {
	th, ok := p.themes[name]
	return th, ok
}

// Plan resolves symbols against the options. Every error it returns is fatal
// for the run and is raised before any symbol is fetched.
func (o *Orchestrator) Plan(symbols []string) (*Plan, error) {
	themes, err := o.registry.Select(o.opts.Theme)
	if err != nil {
		return nil, err
	}
	if err := o.opts.validate(); err != nil {
		return nil, err
	}

	symbols = lo.Uniq(lo.FilterMap(symbols, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}))
	if o.opts.SymbolLimit > 0 && len(symbols) > o.opts.SymbolLimit {
		symbols = symbols[:o.opts.SymbolLimit]
	}
	if len(symbols) == 0 {
		return nil, errors.New(errors.ErrCodeNoSymbols, "no symbols selected")
	}

	periods := lo.Uniq(append([]model.PeriodSpec{model.Daily}, o.opts.Periods...))
	sort.Slice(periods, func(i, j int) bool { return periods[i] < periods[j] })
	for _, p := range periods {
		if err := p.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "periods", err)
		}
	}

	req := calculator.Union(lo.Map(themes, func(th theme.Theme, _ int) calculator.Request {
		return th.Request()
	})...)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	plan := &Plan{
		Symbols: symbols,
		Periods: periods,
		Themes:  themes,
		Request: req,
		themes:  lo.KeyBy(themes, func(th theme.Theme) string { return th.Name }),
		targets: make(map[string][]model.OutputTarget, len(symbols)),
	}
	for _, symbol := range symbols {
		plan.targets[symbol] = o.targetsFor(symbol, periods, themes)
	}
	if plan.Len() == 0 {
		return nil, errors.New(errors.ErrCodeNoTargets, "options leave nothing to render")
	}
	return plan, nil
}

func (o *Orchestrator) targetsFor(symbol string, periods []model.PeriodSpec, themes []theme.Theme) []model.OutputTarget {
	var out []model.OutputTarget
	for _, p := range periods {
		for _, th := range themes {
			for _, kind := range o.kinds(p) {
				out = append(out, model.OutputTarget{
					Symbol: symbol,
					Period: p,
					Theme:  th.Name,
					Kind:   kind,
					Path:   TargetPath(o.opts.OutputDir, symbol, p, th.Name, kind),
				})
			}
		}
	}
	return out
}

// kinds lists the chart families planned for period p. Overview charts exist
// only for daily bars; multi-day periods only produce candle charts.
func (o *Orchestrator) kinds(p model.PeriodSpec) []model.OutputKind {
	if p.IsDaily() {
		if o.opts.MultiOnly {
			return nil
		}
		var kinds []model.OutputKind
		if !o.opts.CandleOnly {
			kinds = append(kinds, model.KindKline)
		}
		if !o.opts.KlineOnly {
			kinds = append(kinds, model.KindCandle)
		}
		return kinds
	}
	if o.opts.KlineOnly || o.opts.SingleOnly {
		return nil
	}
	return []model.OutputKind{model.KindCandle}
}

// TargetPath is the destination directory of one target. The same inputs
// always map to the same path so reruns overwrite in place.
func TargetPath(outDir, symbol string, p model.PeriodSpec, themeName string, kind model.OutputKind) string {
	switch {
	case kind == model.KindKline:
		return filepath.Join(outDir, KlineDir, themeName, symbol)
	case p.IsDaily():
		return filepath.Join(outDir, CandleDir, themeName, symbol)
	default:
		return filepath.Join(outDir, MultiDayDir, themeName, symbol, p.Label())
	}
}
