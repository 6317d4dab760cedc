package calculator

import (
	"math"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
)

// PriceRange scans every bar and returns the lowest low and highest high.
func PriceRange(series *model.BarSeries) (low, high float64, err error) {
	return RecentRange(series, series.Len())
}

// RecentRange scans the most recent n bars and returns the lowest low and highest high.
func RecentRange(series *model.BarSeries, n int) (low, high float64, err error) {
	if series.Len() == 0 {
		return 0, 0, errors.New(errors.ErrCodeEmptySeries, "no bars provided")
	}
	start := series.Len() - n
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < series.Len(); i++ {
		b := series.At(i)
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return low, high, nil
}

// Position returns where price sits within [low, high] as a fraction in [0, 1].
func Position(price, low, high float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New(errors.ErrCodeInvalidParameter, "high must be >= low")
	}
	pos := (price - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
