package calculator

import (
	"KlineStudio/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI over k changes.
// The first value sits at index k. A window without losses reads 100,
// including a flat window, and every value is clamped to [0, 100].
func CalculateRSI(series *model.BarSeries, k int) model.Line {
	closes := series.Closes()
	out := model.NewLine(len(closes))
	if k <= 0 || len(closes) < k+1 {
		return out
	}

	// Initial average gain/loss over the first k changes
	var avgGain, avgLoss float64
	for i := 1; i <= k; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(k)
	avgLoss /= float64(k)
	out[k] = model.Defined(rsiValue(avgGain, avgLoss))

	// Wilder smoothing for remaining bars
	for i := k + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(k-1) + gain) / float64(k)
		avgLoss = (avgLoss*float64(k-1) + loss) / float64(k)
		out[i] = model.Defined(rsiValue(avgGain, avgLoss))
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	rsi := 100.0 - 100.0/(1.0+rs)
	if rsi < 0 {
		return 0
	}
	if rsi > 100 {
		return 100
	}
	return rsi
}
