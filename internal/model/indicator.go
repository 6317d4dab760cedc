package model

import (
	"math"
	"sort"

	"github.com/moznion/go-optional"
)

// Value is one per-bar indicator reading. None marks a bar without enough lookback
// or a computation that produced NaN/Inf; a fabricated number is never stored.
type Value = optional.Option[float64]

// Defined wraps f, mapping NaN and ±Inf to None.
func Defined(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return optional.None[float64]()
	}
	return optional.Some(f)
}

// Undefined returns the undefined marker.
func Undefined() Value {
	return optional.None[float64]()
}

// Line is a per-bar aligned indicator sequence.
type Line []Value

// NewLine returns a line of n undefined values.
func NewLine(n int) Line {
	l := make(Line, n)
	for i := range l {
		l[i] = Undefined()
	}
	return l
}

// FirstDefined returns the index of the first defined value, or -1.
func (l Line) FirstDefined() int {
	for i, v := range l {
		if v.IsSome() {
			return i
		}
	}
	return -1
}

// Band holds the three lines of Bollinger Bands.
type Band struct {
	Upper Line
	Mid   Line
	Lower Line
}

// MACDLines holds the MACD line, its signal line and the histogram.
type MACDLines struct {
	MACD   Line
	Signal Line
	Hist   Line
}

// IndicatorSet maps indicator names to per-bar sequences. Every sequence has the
// same length as the series it was computed from.
type IndicatorSet struct {
	Lines map[string]Line
	Bands map[string]Band
	MACD  map[string]MACDLines
}

// NewIndicatorSet returns an empty set.
func NewIndicatorSet() IndicatorSet {
	return IndicatorSet{
		Lines: make(map[string]Line),
		Bands: make(map[string]Band),
		MACD:  make(map[string]MACDLines),
	}
}

// Names returns every indicator name in the set, sorted.
func (s IndicatorSet) Names() []string {
	names := make([]string, 0, len(s.Lines)+len(s.Bands)+len(s.MACD))
	for n := range s.Lines {
		names = append(names, n)
	}
	for n := range s.Bands {
		names = append(names, n)
	}
	for n := range s.MACD {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is present.
func (s IndicatorSet) Has(name string) bool {
	if _, ok := s.Lines[name]; ok {
		return true
	}
	if _, ok := s.Bands[name]; ok {
		return true
	}
	_, ok := s.MACD[name]
	return ok
}

// Slice returns a set restricted to bars [from, to).
func (s IndicatorSet) Slice(from, to int) IndicatorSet {
	out := NewIndicatorSet()
	for n, l := range s.Lines {
		out.Lines[n] = l[from:to:to]
	}
	for n, b := range s.Bands {
		out.Bands[n] = Band{Upper: b.Upper[from:to:to], Mid: b.Mid[from:to:to], Lower: b.Lower[from:to:to]}
	}
	for n, m := range s.MACD {
		out.MACD[n] = MACDLines{MACD: m.MACD[from:to:to], Signal: m.Signal[from:to:to], Hist: m.Hist[from:to:to]}
	}
	return out
}

// EnrichedSeries pairs a bar series with the indicators computed over it.
type EnrichedSeries struct {
	Series     *BarSeries
	Period     PeriodSpec
	Indicators IndicatorSet
}
