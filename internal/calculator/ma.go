package calculator

import (
	"KlineStudio/internal/model"
)

// CalculateSMA computes the trailing simple moving average of values over period.
// Positions before period-1 are undefined.
func CalculateSMA(values []float64, period int) model.Line {
	out := model.NewLine(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = model.Defined(sum / float64(period))
	}
	return out
}

// CalculateMA returns the k-bar moving average of closes.
func CalculateMA(series *model.BarSeries, k int) model.Line {
	return CalculateSMA(series.Closes(), k)
}
