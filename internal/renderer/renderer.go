// Package renderer turns enriched series into chart specs on disk.
//
// The batch orchestrator only depends on the Renderer interface. SpecRenderer
// is the built-in implementation: it writes one document per chart, encoded as
// JSON or msgpack, and leaves rasterisation to an external backend.
package renderer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"KlineStudio/internal/aggregator"
	"KlineStudio/internal/calculator"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
	"KlineStudio/internal/theme"
)

// Renderer draws the charts of one output target.
type Renderer interface {
	Render(ctx context.Context, es *model.EnrichedSeries, th theme.Theme, target model.OutputTarget) error
}

// DefaultWindowMonths is the span of one overview chart page.
const DefaultWindowMonths = 3

// SpecRenderer writes chart specs into the target directory.
type SpecRenderer struct {
	Format       Format
	WindowMonths int
}

// NewSpecRenderer creates a renderer writing in format.
func NewSpecRenderer(format Format, windowMonths int) (*SpecRenderer, error) {
	if _, err := format.encoder(); err != nil {
		return nil, err
	}
	if windowMonths <= 0 {
		windowMonths = DefaultWindowMonths
	}
	return &SpecRenderer{Format: format, WindowMonths: windowMonths}, nil
}

// Render writes the charts of target: one per N-month window for kline,
// one per bar for candle.
func (r *SpecRenderer) Render(_ context.Context, es *model.EnrichedSeries, th theme.Theme, target model.OutputTarget) error {
	if es == nil || es.Series == nil {
		return errors.New(errors.ErrCodeRenderFailed, "nothing to render")
	}
	if err := os.MkdirAll(target.Path, 0o755); err != nil {
		return errors.Wrapf(errors.ErrCodeOutputUnwritable, err, "create %s", target.Path)
	}

	var charts map[string]ChartSpec
	var err error
	switch target.Kind {
	case model.KindKline:
		charts, err = r.klineCharts(es, th, target)
	case model.KindCandle:
		charts, err = r.candleCharts(es, th, target)
	default:
		err = errors.Newf(errors.ErrCodeRenderFailed, "unknown output kind %q", target.Kind)
	}
	if err != nil {
		return err
	}

	for name, chart := range charts {
		path := filepath.Join(target.Path, name+r.Format.Ext())
		if err := writeAtomic(path, r.Format, chart); err != nil {
			return err
		}
	}
	return nil
}

func (r *SpecRenderer) klineCharts(es *model.EnrichedSeries, th theme.Theme, target model.OutputTarget) (map[string]ChartSpec, error) {
	if !es.Period.IsDaily() {
		return nil, errors.Newf(errors.ErrCodeRenderFailed, "kline charts need daily bars, got %s", es.Period.Label())
	}
	windows, err := aggregator.WindowByMonths(es.Series, r.WindowMonths)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRenderFailed, "split windows", err)
	}

	charts := make(map[string]ChartSpec, len(windows))
	for _, w := range windows {
		chart, err := r.chart(es, th, target, w.From, w.To)
		if err != nil {
			return nil, err
		}
		chart.Volume = true
		chart.Overlays = overlays(es.Indicators.Slice(w.From, w.To), th)
		chart.Title = fmt.Sprintf("%s %s - %s", target.Symbol, chart.Start, chart.End)
		charts[fmt.Sprintf("%s_%s_%s", target.Symbol, chart.Start, chart.End)] = chart
	}
	return charts, nil
}

func (r *SpecRenderer) candleCharts(es *model.EnrichedSeries, th theme.Theme, target model.OutputTarget) (map[string]ChartSpec, error) {
	charts := make(map[string]ChartSpec, es.Series.Len())
	for i := 0; i < es.Series.Len(); i++ {
		chart, err := r.chart(es, th, target, i, i+1)
		if err != nil {
			return nil, err
		}
		if chart.Details, err = details(es.Series, i); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRenderFailed, "candle details", err)
		}
		chart.Overlays = overlays(es.Indicators.Slice(i, i+1), th)
		if es.Period.IsDaily() {
			chart.Title = fmt.Sprintf("%s %s", target.Symbol, chart.End)
		} else {
			chart.Title = fmt.Sprintf("%s %s %s", target.Symbol, es.Period.Label(), chart.End)
		}
		charts[chart.End] = chart
	}
	return charts, nil
}

func (r *SpecRenderer) chart(es *model.EnrichedSeries, th theme.Theme, target model.OutputTarget, from, to int) (ChartSpec, error) {
	window, err := es.Series.Slice(from, to)
	if err != nil {
		return ChartSpec{}, errors.Wrap(errors.ErrCodeRenderFailed, "slice window", err)
	}
	low, high, err := calculator.PriceRange(window)
	if err != nil {
		return ChartSpec{}, errors.Wrap(errors.ErrCodeRenderFailed, "price range", err)
	}

	candles := make([]Candle, window.Len())
	for i := range candles {
		candles[i] = newCandle(window.At(i))
	}
	first, last, _ := window.DateRange()
	return ChartSpec{
		Symbol:  target.Symbol,
		Theme:   th.Name,
		Kind:    string(target.Kind),
		Period:  es.Period.Label(),
		Start:   first.Format(model.DateLayout),
		End:     last.Format(model.DateLayout),
		YMin:    low,
		YMax:    high,
		Display: th.Display,
		Colors:  th.Colors,
		Candles: candles,
	}, nil
}

// overlays returns the lines the theme draws, in the theme's indicator order.
func overlays(set model.IndicatorSet, th theme.Theme) []Overlay {
	var out []Overlay
	for _, spec := range th.Specs() {
		name := spec.Name()
		switch spec.Kind {
		case calculator.KindMA, calculator.KindVWAP:
			if l, ok := set.Lines[name]; ok {
				out = append(out, Overlay{Name: name, Color: th.Color(name), Panel: PanelPrice, Style: "line", Values: values(l)})
			}
		case calculator.KindRSI:
			if l, ok := set.Lines[name]; ok {
				out = append(out, Overlay{Name: name, Color: th.Colors.RSI, Panel: PanelLower, Style: "line", Values: values(l)})
			}
		case calculator.KindBOLL:
			if b, ok := set.Bands[name]; ok {
				out = append(out,
					Overlay{Name: name + "_upper", Color: th.Colors.BOLLUpper, Panel: PanelPrice, Style: "line", Values: values(b.Upper)},
					Overlay{Name: name + "_mid", Color: th.Colors.BOLLMid, Panel: PanelPrice, Style: "line", Values: values(b.Mid)},
					Overlay{Name: name + "_lower", Color: th.Colors.BOLLLower, Panel: PanelPrice, Style: "line", Values: values(b.Lower)},
				)
			}
		case calculator.KindMACD:
			if m, ok := set.MACD[name]; ok {
				out = append(out,
					Overlay{Name: name, Color: th.Colors.MACDFast, Panel: PanelLower, Style: "line", Values: values(m.MACD)},
					Overlay{Name: name + "_signal", Color: th.Colors.MACDSlow, Panel: PanelLower, Style: "line", Values: values(m.Signal)},
					Overlay{Name: name + "_hist", Color: th.Colors.MACDHist, Panel: PanelLower, Style: "bar", Values: values(m.Hist)},
				)
			}
		}
	}
	return out
}
