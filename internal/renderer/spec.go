package renderer

import (
	"KlineStudio/internal/calculator"
	"KlineStudio/internal/model"
	"KlineStudio/internal/theme"
)

// ChartSpec is a self-contained description of one chart: bars, overlays and
// presentation. A drawing backend turns it into pixels.
type ChartSpec struct {
	Symbol   string         `json:"symbol" msgpack:"symbol"`
	Theme    string         `json:"theme" msgpack:"theme"`
	Kind     string         `json:"kind" msgpack:"kind"`
	Period   string         `json:"period" msgpack:"period"`
	Title    string         `json:"title" msgpack:"title"`
	Start    string         `json:"start" msgpack:"start"`
	End      string         `json:"end" msgpack:"end"`
	YMin     float64        `json:"y_min" msgpack:"y_min"`
	YMax     float64        `json:"y_max" msgpack:"y_max"`
	Volume   bool           `json:"volume" msgpack:"volume"`
	Display  theme.Display  `json:"display" msgpack:"display"`
	Colors   theme.Palette  `json:"colors" msgpack:"colors"`
	Candles  []Candle       `json:"candles" msgpack:"candles"`
	Overlays []Overlay      `json:"overlays,omitempty" msgpack:"overlays,omitempty"`
	Details  *CandleDetails `json:"details,omitempty" msgpack:"details,omitempty"`
}

// Candle is one bar of a chart.
type Candle struct {
	Date   string   `json:"date" msgpack:"date"`
	Open   float64  `json:"open" msgpack:"open"`
	High   float64  `json:"high" msgpack:"high"`
	Low    float64  `json:"low" msgpack:"low"`
	Close  float64  `json:"close" msgpack:"close"`
	Volume float64  `json:"volume" msgpack:"volume"`
	Amount *float64 `json:"amount,omitempty" msgpack:"amount,omitempty"`
}

// Panel numbers follow the figure's panel order.
const (
	PanelPrice  = 0
	PanelVolume = 1
	PanelLower  = 2
)

// Overlay is one indicator line drawn on a panel. Values align with Candles;
// nil marks a bar without a value.
type Overlay struct {
	Name   string     `json:"name" msgpack:"name"`
	Color  string     `json:"color" msgpack:"color"`
	Panel  int        `json:"panel" msgpack:"panel"`
	Style  string     `json:"style" msgpack:"style"`
	Values []*float64 `json:"values" msgpack:"values"`
}

// RangeLookback is the number of bars, the charted one included, whose
// price range CandleDetails.RangePosition is measured against.
const RangeLookback = 20

// CandleDetails annotates a single-bar chart.
type CandleDetails struct {
	AmplitudePct float64 `json:"amplitude_pct" msgpack:"amplitude_pct"`
	ChangePct    float64 `json:"change_pct" msgpack:"change_pct"`
	// RangePosition places the close within the low/high of the last
	// RangeLookback bars: 0 at the low, 1 at the high.
	RangePosition float64 `json:"range_position" msgpack:"range_position"`
}

func newCandle(b model.Bar) Candle {
	c := Candle{
		Date:   b.Date.Format(model.DateLayout),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	}
	if a, err := b.Amount.Take(); err == nil {
		c.Amount = &a
	}
	return c
}

func values(l model.Line) []*float64 {
	out := make([]*float64, len(l))
	for i, v := range l {
		if f, err := v.Take(); err == nil {
			out[i] = &f
		}
	}
	return out
}

func details(series *model.BarSeries, i int) (*CandleDetails, error) {
	recent, err := series.Slice(max(0, i+1-RangeLookback), i+1)
	if err != nil {
		return nil, err
	}
	low, high, err := calculator.PriceRange(recent)
	if err != nil {
		return nil, err
	}
	b := series.At(i)
	pos, err := calculator.Position(b.Close, low, high)
	if err != nil {
		return nil, err
	}
	return &CandleDetails{
		AmplitudePct:  (b.High - b.Low) / b.Low * 100,
		ChangePct:     (b.Close/b.Open - 1) * 100,
		RangePosition: pos,
	}, nil
}
