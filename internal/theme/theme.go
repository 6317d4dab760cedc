// Package theme holds the named chart presentation presets and the registry
// that resolves them. A theme carries which indicator overlays to draw, the
// colors to draw them in, and the figure layout handed to the renderer.
package theme

import (
	"sort"

	"KlineStudio/internal/calculator"
)

// Flags toggles indicator overlays.
type Flags struct {
	MA5  bool `yaml:"ma5" json:"ma5"`
	MA20 bool `yaml:"ma20" json:"ma20"`
	VWAP bool `yaml:"vwap" json:"vwap"`
	RSI  bool `yaml:"rsi" json:"rsi"`
	BOLL bool `yaml:"boll" json:"boll"`
	MACD bool `yaml:"macd" json:"macd"`
}

// Palette maps chart elements to colors.
type Palette struct {
	Up        string `yaml:"up" json:"up" validate:"required"`
	Down      string `yaml:"down" json:"down" validate:"required"`
	MA5       string `yaml:"ma5" json:"ma5"`
	MA20      string `yaml:"ma20" json:"ma20"`
	VWAP      string `yaml:"vwap" json:"vwap"`
	RSI       string `yaml:"rsi" json:"rsi"`
	BOLLUpper string `yaml:"boll_upper" json:"boll_upper"`
	BOLLMid   string `yaml:"boll_mid" json:"boll_mid"`
	BOLLLower string `yaml:"boll_lower" json:"boll_lower"`
	MACDFast  string `yaml:"macd_fast" json:"macd_fast"`
	MACDSlow  string `yaml:"macd_slow" json:"macd_slow"`
	MACDHist  string `yaml:"macd_hist" json:"macd_hist"`
}

// Display is the figure layout of a chart.
type Display struct {
	Style       string  `yaml:"style" json:"style" validate:"required"`
	GridStyle   string  `yaml:"grid_style" json:"grid_style"`
	YOnRight    bool    `yaml:"y_on_right" json:"y_on_right"`
	FigWidth    float64 `yaml:"fig_width" json:"fig_width" validate:"gt=0"`
	FigHeight   float64 `yaml:"fig_height" json:"fig_height" validate:"gt=0"`
	PanelRatios []int   `yaml:"panel_ratios" json:"panel_ratios" validate:"min=1,dive,gt=0"`
	DPI         int     `yaml:"dpi" json:"dpi" validate:"gt=0"`
	LineWidth   float64 `yaml:"line_width" json:"line_width" validate:"gt=0"`
	FontSize    int     `yaml:"font_size" json:"font_size" validate:"gt=0"`
	LabelSize   int     `yaml:"label_size" json:"label_size" validate:"gt=0"`
	TitleSize   int     `yaml:"title_size" json:"title_size" validate:"gt=0"`
	TightLayout bool    `yaml:"tight_layout" json:"tight_layout"`
}

// Theme is a named, immutable presentation preset.
type Theme struct {
	Name       string  `yaml:"name" json:"name" validate:"required"`
	Indicators Flags   `yaml:"indicators" json:"indicators"`
	Colors     Palette `yaml:"colors" json:"colors"`
	Display    Display `yaml:"display" json:"display"`
}

// Specs returns the indicator specs the theme draws.
func (t Theme) Specs() []calculator.Spec {
	var specs []calculator.Spec
	if t.Indicators.MA5 {
		specs = append(specs, calculator.MA(5))
	}
	if t.Indicators.MA20 {
		specs = append(specs, calculator.MA(20))
	}
	if t.Indicators.VWAP {
		specs = append(specs, calculator.VWAP())
	}
	if t.Indicators.RSI {
		specs = append(specs, calculator.RSI(calculator.DefaultRSIPeriod))
	}
	if t.Indicators.BOLL {
		specs = append(specs, calculator.BOLL(calculator.DefaultBOLLPeriod, calculator.DefaultBOLLStdDev))
	}
	if t.Indicators.MACD {
		specs = append(specs, calculator.MACD(calculator.DefaultMACDFast, calculator.DefaultMACDSlow, calculator.DefaultMACDSignal))
	}
	return specs
}

// Request converts the theme's indicator flags into an engine request.
func (t Theme) Request() calculator.Request {
	return calculator.Request{Indicators: t.Specs()}
}

// IndicatorNames returns the sorted names of the indicators the theme draws.
func (t Theme) IndicatorNames() []string {
	names := make([]string, 0, 6)
	for _, s := range t.Specs() {
		names = append(names, s.Name())
	}
	sort.Strings(names)
	return names
}

// Color returns the palette color for an indicator name, or "" when the
// palette has none.
func (t Theme) Color(name string) string {
	switch name {
	case "MA5":
		return t.Colors.MA5
	case "MA20":
		return t.Colors.MA20
	case "VWAP":
		return t.Colors.VWAP
	case calculator.RSI(calculator.DefaultRSIPeriod).Name():
		return t.Colors.RSI
	default:
		return ""
	}
}
