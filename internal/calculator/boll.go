package calculator

import (
	"math"

	"KlineStudio/internal/model"
)

// CalculateBOLL returns Bollinger Bands: the k-bar mean of closes plus and minus
// n population standard deviations. Bars before k-1 are undefined in all three lines.
func CalculateBOLL(series *model.BarSeries, k int, n float64) model.Band {
	closes := series.Closes()
	band := model.Band{
		Upper: model.NewLine(len(closes)),
		Mid:   CalculateSMA(closes, k),
		Lower: model.NewLine(len(closes)),
	}
	if k <= 0 {
		return band
	}

	for i := k - 1; i < len(closes); i++ {
		mid, err := band.Mid[i].Take()
		if err != nil {
			continue
		}
		variance := 0.0
		for j := i - k + 1; j <= i; j++ {
			d := closes[j] - mid
			variance += d * d
		}
		sigma := math.Sqrt(variance / float64(k))
		band.Upper[i] = model.Defined(mid + n*sigma)
		band.Lower[i] = model.Defined(mid - n*sigma)
	}
	return band
}
