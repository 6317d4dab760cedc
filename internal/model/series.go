package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"KlineStudio/internal/errors"
)

// BarSeries is an immutable, date-ascending sequence of bars for one symbol.
// Construct it with NewBarSeries; derived series are always new values.
type BarSeries struct {
	symbol string
	bars   []Bar
}

// NewBarSeries validates bars and returns a series owning a copy of them.
// It never drops or reorders rows: the first offending row fails the whole series.
func NewBarSeries(symbol string, bars []Bar) (*BarSeries, error) {
	if symbol == "" {
		return nil, errors.New(errors.ErrCodeMissingSymbol, "series symbol is empty")
	}

	owned := make([]Bar, len(bars))
	for i, b := range bars {
		b.Date = Day(b.Date)
		if err := b.Validate(); err != nil {
			return nil, errors.Wrapf(errors.GetCode(err), err, "%s row %d", symbol, i)
		}
		if i > 0 {
			prev := owned[i-1].Date
			if b.Date.Equal(prev) {
				return nil, errors.Newf(errors.ErrCodeDuplicateDate,
					"%s row %d: duplicate date %s", symbol, i, b.Date.Format(DateLayout))
			}
			if b.Date.Before(prev) {
				return nil, errors.Newf(errors.ErrCodeNonMonotonicDate,
					"%s row %d: date %s is before %s", symbol, i, b.Date.Format(DateLayout), prev.Format(DateLayout))
			}
		}
		owned[i] = b
	}

	return &BarSeries{symbol: symbol, bars: owned}, nil
}

// Symbol returns the stock code the series belongs to.
func (s *BarSeries) Symbol() string { return s.symbol }

// Len returns the number of bars.
func (s *BarSeries) Len() int { return len(s.bars) }

// At returns the bar at position i.
func (s *BarSeries) At(i int) Bar { return s.bars[i] }

// First returns the earliest bar; ok is false for an empty series.
func (s *BarSeries) First() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[0], true
}

// Last returns the latest bar; ok is false for an empty series.
func (s *BarSeries) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

// Bars returns a copy of the underlying bars.
func (s *BarSeries) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

// Closes extracts the close prices.
func (s *BarSeries) Closes() []float64 {
	closes := make([]float64, len(s.bars))
	for i, b := range s.bars {
		closes[i] = b.Close
	}
	return closes
}

// DateRange returns the first and last dates; ok is false for an empty series.
func (s *BarSeries) DateRange() (first, last time.Time, ok bool) {
	if len(s.bars) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.bars[0].Date, s.bars[len(s.bars)-1].Date, true
}

// Slice returns the contiguous sub-series [from, to).
func (s *BarSeries) Slice(from, to int) (*BarSeries, error) {
	if from < 0 || to > len(s.bars) || from > to {
		return nil, errors.Newf(errors.ErrCodeInvalidRange, "slice [%d,%d) out of range for %d bars", from, to, len(s.bars))
	}
	out := make([]Bar, to-from)
	copy(out, s.bars[from:to])
	return &BarSeries{symbol: s.symbol, bars: out}, nil
}

// Between returns the bars whose dates fall within [start, end]; zero bounds are open.
func (s *BarSeries) Between(start, end time.Time) *BarSeries {
	out := make([]Bar, 0, len(s.bars))
	for _, b := range s.bars {
		if !start.IsZero() && b.Date.Before(Day(start)) {
			continue
		}
		if !end.IsZero() && b.Date.After(Day(end)) {
			continue
		}
		out = append(out, b)
	}
	return &BarSeries{symbol: s.symbol, bars: out}
}

// Fingerprint hashes every field of every bar. Two runs over identical input produce the same value.
func (s *BarSeries) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.symbol))
	buf := make([]byte, 8)
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(f))
		h.Write(buf)
	}
	for _, b := range s.bars {
		binary.LittleEndian.PutUint64(buf, uint64(b.Date.Unix()))
		h.Write(buf)
		put(b.Open)
		put(b.High)
		put(b.Low)
		put(b.Close)
		put(b.Volume)
		put(b.Amount.TakeOr(-1))
	}
	return hex.EncodeToString(h.Sum(nil))
}
