package aggregator

import (
	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

// Window is one calendar span of a series used as a single overview chart page.
type Window struct {
	Index int
	From  int
	To    int
}

// WindowByMonths splits a series into consecutive spans of months calendar months,
// anchored at the month of the first bar. Empty spans are skipped, so Index may
// have gaps when trading paused for a whole window.
func WindowByMonths(series *model.BarSeries, months int) ([]Window, error) {
	if months < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window months must be positive, got %d", months)
	}
	first, ok := series.First()
	if !ok {
		return nil, nil
	}

	base := monthIndex(first)
	var windows []Window
	for i := 0; i < series.Len(); i++ {
		idx := (monthIndex(series.At(i)) - base) / months
		if n := len(windows); n > 0 && windows[n-1].Index == idx {
			windows[n-1].To = i + 1
			continue
		}
		windows = append(windows, Window{Index: idx, From: i, To: i + 1})
	}
	return windows, nil
}

func monthIndex(b model.Bar) int {
	return b.Date.Year()*12 + int(b.Date.Month()) - 1
}
