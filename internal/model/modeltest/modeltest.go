// Package modeltest builds bar series for tests.
package modeltest

import (
	"time"

	"KlineStudio/internal/model"
)

// Start is the first trading day used by generated series.
var Start = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// Bars builds one bar per close on consecutive weekdays starting at Start.
// Open equals the previous close, high/low straddle both by 1%, volume is 1000.
func Bars(closes ...float64) []model.Bar {
	bars := make([]model.Bar, len(closes))
	day := Start
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi, lo := open, c
		if c > hi {
			hi = c
		}
		if open < lo {
			lo = open
		}
		bars[i] = model.Bar{
			Date:   day,
			Open:   open,
			High:   hi * 1.01,
			Low:    lo * 0.99,
			Close:  c,
			Volume: 1000,
		}
		day = nextWeekday(day)
	}
	return bars
}

// Series wraps Bars in a validated series and panics on invalid input.
func Series(symbol string, closes ...float64) *model.BarSeries {
	s, err := model.NewBarSeries(symbol, Bars(closes...))
	if err != nil {
		panic(err)
	}
	return s
}

// Ramp returns n closes starting at from and increasing by step.
func Ramp(n int, from, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from + float64(i)*step
	}
	return out
}

// Wave returns n closes oscillating around base, useful for RSI and MACD.
func Wave(n int, base float64) []float64 {
	out := make([]float64, n)
	pattern := []float64{0, 1.5, -0.7, 2.2, -1.9, 0.4, -2.5, 1.1}
	level := base
	for i := range out {
		level += pattern[i%len(pattern)]
		if level < 1 {
			level = 1
		}
		out[i] = level
	}
	return out
}

func nextWeekday(t time.Time) time.Time {
	t = t.AddDate(0, 0, 1)
	for t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		t = t.AddDate(0, 0, 1)
	}
	return t
}
