package calculator

import (
	"KlineStudio/internal/model"
)

// CalculateMACD returns the MACD line (fast EMA minus slow EMA), its signal EMA
// and the histogram. The MACD line is defined from slow-1, the signal and
// histogram from slow+signal-2.
func CalculateMACD(series *model.BarSeries, fast, slow, signal int) model.MACDLines {
	closes := series.Closes()
	n := len(closes)
	out := model.MACDLines{
		MACD:   model.NewLine(n),
		Signal: model.NewLine(n),
		Hist:   model.NewLine(n),
	}
	if fast <= 0 || slow <= fast || signal <= 0 || n < slow {
		return out
	}

	fastEMA := CalculateEMA(closes, 0, fast)
	slowEMA := CalculateEMA(closes, 0, slow)

	diff := make([]float64, n)
	for i := slow - 1; i < n; i++ {
		f, errF := fastEMA[i].Take()
		s, errS := slowEMA[i].Take()
		if errF != nil || errS != nil {
			continue
		}
		diff[i] = f - s
		out.MACD[i] = model.Defined(diff[i])
	}

	out.Signal = CalculateEMA(diff, slow-1, signal)
	for i := range out.Hist {
		m, errM := out.MACD[i].Take()
		s, errS := out.Signal[i].Take()
		if errM != nil || errS != nil {
			continue
		}
		out.Hist[i] = model.Defined(m - s)
	}
	return out
}
