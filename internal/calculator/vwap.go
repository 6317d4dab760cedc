package calculator

import "KlineStudio/internal/model"

// CalculateVWAP returns the cumulative volume-weighted average of the typical
// price (high+low+close)/3 from the start of the series. It stays undefined
// while no volume has traded.
func CalculateVWAP(series *model.BarSeries) model.Line {
	out := model.NewLine(series.Len())
	var pv, vol float64
	for i := 0; i < series.Len(); i++ {
		b := series.At(i)
		pv += b.Volume * b.Typical()
		vol += b.Volume
		if vol == 0 {
			continue
		}
		out[i] = model.Defined(pv / vol)
	}
	return out
}
