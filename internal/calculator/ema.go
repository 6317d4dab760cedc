package calculator

import "KlineStudio/internal/model"

// CalculateEMA computes an exponential moving average of values[start:].
// The first value, at start+period-1, is the simple mean of the first period inputs;
// later values use alpha = 2/(period+1). Positions before that are undefined.
func CalculateEMA(values []float64, start, period int) model.Line {
	out := model.NewLine(len(values))
	if period <= 0 || start < 0 || start+period > len(values) {
		return out
	}

	seedIdx := start + period - 1
	sum := 0.0
	for i := start; i <= seedIdx; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[seedIdx] = model.Defined(prev)

	alpha := 2.0 / float64(period+1)
	for i := seedIdx + 1; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = model.Defined(prev)
	}
	return out
}
