package model

import (
	"math"
	"time"

	"github.com/moznion/go-optional"

	"KlineStudio/internal/errors"
)

// DateLayout is the trade_date layout used by tushare exports and chart file names.
const DateLayout = "20060102"

// Bar represents one OHLCV record for a trading day or an aggregated multi-day span.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
	// Amount is the turnover value; absent when the source does not report it.
	Amount optional.Option[float64]
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate checks the price and volume invariants of a single bar.
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Newf(errors.ErrCodeNonFiniteNumber, "non-finite value on %s", b.Date.Format(DateLayout))
		}
	}
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return errors.Newf(errors.ErrCodeNonPositivePrice, "non-positive price on %s", b.Date.Format(DateLayout))
	}
	if b.Volume < 0 {
		return errors.Newf(errors.ErrCodeNegativeVolume, "negative volume %.2f on %s", b.Volume, b.Date.Format(DateLayout))
	}
	if b.Low > math.Min(b.Open, b.Close) || math.Max(b.Open, b.Close) > b.High {
		return errors.Newf(errors.ErrCodeOHLCInvariant,
			"low <= min(open,close) <= max(open,close) <= high violated on %s (o=%.4f h=%.4f l=%.4f c=%.4f)",
			b.Date.Format(DateLayout), b.Open, b.High, b.Low, b.Close)
	}
	return nil
}

// Typical returns (high+low+close)/3.
func (b Bar) Typical() float64 {
	return (b.High + b.Low + b.Close) / 3
}
