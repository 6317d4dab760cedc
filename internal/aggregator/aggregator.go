// Package aggregator folds daily bars into N-trading-day bars and attaches
// indicators computed on the resulting timeframe.
package aggregator

import (
	"github.com/moznion/go-optional"

	"KlineStudio/internal/calculator"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

// Group is the half-open index range [From, To) of daily bars folded into one bar.
type Group struct {
	From int
	To   int
}

// Groups partitions n bars into consecutive groups of p, starting at the first bar.
// The final group is shorter when p does not divide n.
func Groups(n int, p model.PeriodSpec) []Group {
	if n <= 0 || p < 1 {
		return nil
	}
	size := int(p)
	groups := make([]Group, 0, (n+size-1)/size)
	for from := 0; from < n; from += size {
		to := from + size
		if to > n {
			to = n
		}
		groups = append(groups, Group{From: from, To: to})
	}
	return groups
}

// Aggregate converts daily bars into p-day bars: open of the first bar, close of
// the last, highest high, lowest low, summed volume, and the date of the last bar.
// Amount is summed only when every bar in the group reports it.
func Aggregate(daily *model.BarSeries, p model.PeriodSpec) (*model.BarSeries, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.IsDaily() {
		return daily.Slice(0, daily.Len())
	}

	groups := Groups(daily.Len(), p)
	bars := make([]model.Bar, 0, len(groups))
	for _, g := range groups {
		bars = append(bars, fold(daily, g))
	}

	out, err := model.NewBarSeries(daily.Symbol(), bars)
	if err != nil {
		return nil, errors.Wrapf(errors.GetCode(err), err, "aggregate %s into %s bars", daily.Symbol(), p.Label())
	}
	return out, nil
}

func fold(daily *model.BarSeries, g Group) model.Bar {
	first := daily.At(g.From)
	bar := model.Bar{
		Open:   first.Open,
		High:   first.High,
		Low:    first.Low,
		Volume: 0,
	}

	amount, amountOK := 0.0, true
	for i := g.From; i < g.To; i++ {
		d := daily.At(i)
		if d.High > bar.High {
			bar.High = d.High
		}
		if d.Low < bar.Low {
			bar.Low = d.Low
		}
		bar.Volume += d.Volume
		if a, err := d.Amount.Take(); err == nil {
			amount += a
		} else {
			amountOK = false
		}
		bar.Close = d.Close
		bar.Date = d.Date
	}
	if amountOK {
		bar.Amount = optional.Some(amount)
	}
	return bar
}

// Enrich computes req on the timeframe p: directly on daily bars when p is 1,
// otherwise on the aggregated series.
func Enrich(engine calculator.Engine, daily *model.BarSeries, p model.PeriodSpec, req calculator.Request) (*model.EnrichedSeries, error) {
	series, err := Aggregate(daily, p)
	if err != nil {
		return nil, err
	}
	set, err := engine.Compute(series, req)
	if err != nil {
		return nil, err
	}
	return &model.EnrichedSeries{Series: series, Period: p, Indicators: set}, nil
}
