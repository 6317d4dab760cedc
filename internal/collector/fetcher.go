package collector

import (
	"context"
	"time"

	"github.com/samber/lo"

	"KlineStudio/internal/model"
)

// Fetcher loads the daily bar history of one symbol.
type Fetcher interface {
	FetchDaily(ctx context.Context, symbol string) (*model.BarSeries, error)
	Name() string
}

// Lister enumerates the symbols a batch should cover.
type Lister interface {
	ListSymbols(ctx context.Context) ([]string, error)
}

// DateFilter keeps bars within [Start, End]. Zero bounds are open.
type DateFilter struct {
	Start time.Time
	End   time.Time
}

// ParseDateFilter reads YYYYMMDD bounds; empty strings leave a bound open.
func ParseDateFilter(start, end string) (DateFilter, error) {
	var f DateFilter
	var err error
	if start != "" {
		if f.Start, err = time.Parse(model.DateLayout, start); err != nil {
			return DateFilter{}, err
		}
	}
	if end != "" {
		if f.End, err = time.Parse(model.DateLayout, end); err != nil {
			return DateFilter{}, err
		}
	}
	return f, nil
}

// IsZero reports whether the filter keeps everything.
func (f DateFilter) IsZero() bool {
	return f.Start.IsZero() && f.End.IsZero()
}

// Apply returns the part of s within the filter.
func (f DateFilter) Apply(s *model.BarSeries) *model.BarSeries {
	if f.IsZero() {
		return s
	}
	return s.Between(f.Start, f.End)
}

// Chronological reverses bars in place when they are strictly newest first,
// the order tushare exports in. Any other order is returned untouched so that
// model.NewBarSeries rejects it.
func Chronological(bars []model.Bar) []model.Bar {
	if len(bars) < 2 {
		return bars
	}
	for i := 1; i < len(bars); i++ {
		if !model.Day(bars[i].Date).Before(model.Day(bars[i-1].Date)) {
			return bars
		}
	}
	return lo.Reverse(bars)
}
