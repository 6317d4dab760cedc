package model

import (
	"fmt"
	"strconv"

	"KlineStudio/internal/errors"
)

// PeriodSpec is the number of trading days in one bar. Daily is 1.
type PeriodSpec int

// Daily is the no-aggregation period.
const Daily PeriodSpec = 1

// Validate rejects non-positive periods.
func (p PeriodSpec) Validate() error {
	if p < 1 {
		return errors.Newf(errors.ErrCodeInvalidPeriodSpec, "period must be a positive number of trading days, got %d", int(p))
	}
	return nil
}

// IsDaily reports whether p means no aggregation.
func (p PeriodSpec) IsDaily() bool { return p == Daily }

// Label is the directory and log label of the period ("daily", "5d").
func (p PeriodSpec) Label() string {
	if p.IsDaily() {
		return "daily"
	}
	return strconv.Itoa(int(p)) + "d"
}

// OutputKind selects which chart family a target belongs to.
type OutputKind string

const (
	// KindKline is the windowed overview chart with indicator panels, daily bars only.
	KindKline OutputKind = "kline"
	// KindCandle is one chart per bar: single-day for daily, multi-day for aggregated periods.
	KindCandle OutputKind = "candle"
)

// OutputTarget identifies one rendering unit of a run.
type OutputTarget struct {
	Symbol string
	Period PeriodSpec
	Theme  string
	Kind   OutputKind
	Path   string
}

// Key uniquely identifies the (symbol, period, theme, kind) combination.
func (t OutputTarget) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", t.Symbol, t.Period.Label(), t.Theme, t.Kind)
}

func (t OutputTarget) String() string {
	return fmt.Sprintf("%s %s %s/%s", t.Symbol, t.Period.Label(), t.Kind, t.Theme)
}
