// Package calculator computes per-bar technical indicators over a bar series.
//
// Every function returns lines aligned with the input: one value per bar, with
// the leading lookback positions undefined. Computations never fail on short
// series; they return all-undefined lines instead.
package calculator

import (
	"sync/atomic"

	"KlineStudio/internal/model"
)

// Engine computes indicator sets. Implementations must be pure: the same series
// and request always produce the same set.
type Engine interface {
	Compute(series *model.BarSeries, req Request) (model.IndicatorSet, error)
}

type engine struct{}

// New returns the default indicator engine.
func New() Engine {
	return engine{}
}

// Compute runs every indicator in req over series.
func (engine) Compute(series *model.BarSeries, req Request) (model.IndicatorSet, error) {
	if err := req.Validate(); err != nil {
		return model.IndicatorSet{}, err
	}

	set := model.NewIndicatorSet()
	for _, s := range req.Indicators {
		name := s.Name()
		if set.Has(name) {
			continue
		}
		switch s.Kind {
		case KindMA:
			set.Lines[name] = CalculateMA(series, s.Period)
		case KindVWAP:
			set.Lines[name] = CalculateVWAP(series)
		case KindRSI:
			set.Lines[name] = CalculateRSI(series, s.Period)
		case KindBOLL:
			set.Bands[name] = CalculateBOLL(series, s.Period, s.StdDev)
		case KindMACD:
			set.MACD[name] = CalculateMACD(series, s.Fast, s.Slow, s.Signal)
		}
	}
	return set, nil
}

// Counting wraps an Engine and counts Compute calls.
type Counting struct {
	Engine Engine
	calls  atomic.Int64
}

// NewCounting wraps e.
func NewCounting(e Engine) *Counting {
	return &Counting{Engine: e}
}

// Compute delegates to the wrapped engine.
func (c *Counting) Compute(series *model.BarSeries, req Request) (model.IndicatorSet, error) {
	c.calls.Add(1)
	return c.Engine.Compute(series, req)
}

// Calls returns how many times Compute ran.
func (c *Counting) Calls() int64 {
	return c.calls.Load()
}
