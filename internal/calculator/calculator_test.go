package calculator_test

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/suite"

	"KlineStudio/internal/calculator"
	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
	"KlineStudio/internal/model/modeltest"
)

const tolerance = 1e-9

type CalculatorTestSuite struct {
	suite.Suite
}

func TestCalculatorSuite(t *testing.T) {
	suite.Run(t, new(CalculatorTestSuite))
}

func (suite *CalculatorTestSuite) requireValue(v model.Value, want float64) {
	got, err := v.Take()
	suite.Require().NoError(err, "expected a defined value")
	suite.InDelta(want, got, tolerance)
}

func (suite *CalculatorTestSuite) TestMAExample() {
	s := modeltest.Series("X", 10, 11, 12, 13, 14)
	line := calculator.CalculateMA(s, 3)

	suite.Len(line, 5)
	suite.True(line[0].IsNone())
	suite.True(line[1].IsNone())
	suite.requireValue(line[2], 11)
	suite.requireValue(line[3], 12)
	suite.requireValue(line[4], 13)
}

func (suite *CalculatorTestSuite) TestMAMatchesTalib() {
	closes := modeltest.Wave(120, 50)
	s := modeltest.Series("X", closes...)
	for _, k := range []int{5, 20} {
		ours := calculator.CalculateMA(s, k)
		ref := talib.Sma(closes, k)
		for i := k - 1; i < len(closes); i++ {
			suite.requireValue(ours[i], ref[i])
		}
		suite.Equal(k-1, ours.FirstDefined())
	}
}

func (suite *CalculatorTestSuite) TestLookbackLongerThanSeries() {
	s := modeltest.Series("X", 10, 11, 12)
	set, err := calculator.New().Compute(s, calculator.Request{Indicators: []calculator.Spec{
		calculator.MA(20), calculator.RSI(14), calculator.BOLL(20, 2), calculator.MACD(12, 26, 9),
	}})
	suite.Require().NoError(err)

	suite.Equal(-1, set.Lines["MA20"].FirstDefined())
	suite.Equal(-1, set.Lines["RSI14"].FirstDefined())
	suite.Equal(-1, set.Bands["BOLL20"].Mid.FirstDefined())
	suite.Equal(-1, set.MACD["MACD"].MACD.FirstDefined())
	suite.Len(set.Lines["MA20"], 3)
}

func (suite *CalculatorTestSuite) TestEMASeedEqualsSMA() {
	closes := modeltest.Wave(60, 30)
	ema := calculator.CalculateEMA(closes, 0, 10)
	sma := calculator.CalculateSMA(closes, 10)

	suite.Equal(9, ema.FirstDefined())
	want, _ := sma[9].Take()
	suite.requireValue(ema[9], want)

	ref := talib.Ema(closes, 10)
	for i := 9; i < len(closes); i++ {
		got, err := ema[i].Take()
		suite.Require().NoError(err)
		suite.InDelta(ref[i], got, 1e-6)
	}
}

func (suite *CalculatorTestSuite) TestVWAPConstantTypicalPrice() {
	bars := modeltest.Bars(10, 10, 10, 10)
	for i := range bars {
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = 10, 11, 9, 10
		bars[i].Volume = float64(100 * (i + 1))
	}
	s, err := model.NewBarSeries("X", bars)
	suite.Require().NoError(err)

	for _, v := range calculator.CalculateVWAP(s) {
		suite.requireValue(v, 10)
	}
}

func (suite *CalculatorTestSuite) TestVWAPUndefinedWithoutVolume() {
	bars := modeltest.Bars(10, 11, 12)
	bars[0].Volume = 0
	bars[1].Volume = 0
	s, err := model.NewBarSeries("X", bars)
	suite.Require().NoError(err)

	line := calculator.CalculateVWAP(s)
	suite.True(line[0].IsNone())
	suite.True(line[1].IsNone())
	suite.requireValue(line[2], bars[2].Typical())
}

func (suite *CalculatorTestSuite) TestRSIBounds() {
	s := modeltest.Series("X", modeltest.Wave(200, 40)...)
	line := calculator.CalculateRSI(s, 14)

	suite.Equal(14, line.FirstDefined())
	for i := 14; i < len(line); i++ {
		v, err := line[i].Take()
		suite.Require().NoError(err)
		suite.GreaterOrEqual(v, 0.0)
		suite.LessOrEqual(v, 100.0)
	}
}

func (suite *CalculatorTestSuite) TestRSIMatchesTalib() {
	closes := modeltest.Wave(200, 40)
	line := calculator.CalculateRSI(modeltest.Series("X", closes...), 14)
	ref := talib.Rsi(closes, 14)
	for i := 14; i < len(closes); i++ {
		got, err := line[i].Take()
		suite.Require().NoError(err)
		suite.InDelta(ref[i], got, 1e-6, "index %d", i)
	}
}

func (suite *CalculatorTestSuite) TestRSINoLosses() {
	s := modeltest.Series("X", modeltest.Ramp(30, 10, 0.5)...)
	line := calculator.CalculateRSI(s, 14)
	for i := 14; i < len(line); i++ {
		suite.requireValue(line[i], 100)
	}
}

func (suite *CalculatorTestSuite) TestRSIFlatSeries() {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 25
	}
	line := calculator.CalculateRSI(modeltest.Series("X", closes...), 14)
	suite.requireValue(line[19], 100)
}

func (suite *CalculatorTestSuite) TestRSIOnlyLosses() {
	line := calculator.CalculateRSI(modeltest.Series("X", modeltest.Ramp(20, 30, -0.5)...), 14)
	suite.requireValue(line[19], 0)
}

func (suite *CalculatorTestSuite) TestBOLLOrdering() {
	closes := modeltest.Wave(100, 60)
	band := calculator.CalculateBOLL(modeltest.Series("X", closes...), 20, 2)

	suite.Equal(19, band.Upper.FirstDefined())
	for i := 19; i < len(closes); i++ {
		up, _ := band.Upper[i].Take()
		mid, _ := band.Mid[i].Take()
		lo, _ := band.Lower[i].Take()
		suite.GreaterOrEqual(up, mid)
		suite.GreaterOrEqual(mid, lo)
	}

	refUp, refMid, refLo := talib.BBands(closes, 20, 2, 2, talib.SMA)
	for i := 19; i < len(closes); i++ {
		up, _ := band.Upper[i].Take()
		mid, _ := band.Mid[i].Take()
		lo, _ := band.Lower[i].Take()
		suite.InDelta(refUp[i], up, 1e-6)
		suite.InDelta(refMid[i], mid, 1e-6)
		suite.InDelta(refLo[i], lo, 1e-6)
	}
}

func (suite *CalculatorTestSuite) TestMACDAlignment() {
	closes := modeltest.Wave(80, 20)
	m := calculator.CalculateMACD(modeltest.Series("X", closes...), 12, 26, 9)

	suite.Equal(25, m.MACD.FirstDefined())
	suite.Equal(33, m.Signal.FirstDefined())
	suite.Equal(33, m.Hist.FirstDefined())

	for i := 33; i < len(closes); i++ {
		macd, _ := m.MACD[i].Take()
		sig, _ := m.Signal[i].Take()
		suite.requireValue(m.Hist[i], macd-sig)
	}
}

// A ramp 10..35 puts both EMAs in steady state at index 25 (EMA12 = 29.5,
// EMA26 = 22.5); a flat 35 afterwards decays each gap geometrically.
func (suite *CalculatorTestSuite) TestMACDValues() {
	closes := modeltest.Ramp(26, 10, 1)
	for i := 0; i < 8; i++ {
		closes = append(closes, 35)
	}
	m := calculator.CalculateMACD(modeltest.Series("X", closes...), 12, 26, 9)

	macdAt := func(k int) float64 {
		return -5.5*math.Pow(11.0/13, float64(k)) + 12.5*math.Pow(25.0/27, float64(k))
	}
	suite.requireValue(m.MACD[25], 7)
	suite.requireValue(m.MACD[33], macdAt(8))

	signal := 0.0
	for k := 0; k <= 8; k++ {
		signal += macdAt(k)
	}
	signal /= 9
	suite.requireValue(m.Signal[33], signal)
	suite.requireValue(m.Hist[33], macdAt(8)-signal)
}

func (suite *CalculatorTestSuite) TestNoNaNEscapes() {
	closes := modeltest.Wave(300, 5)
	set, err := calculator.New().Compute(modeltest.Series("X", closes...), calculator.Request{Indicators: []calculator.Spec{
		calculator.MA(5), calculator.VWAP(), calculator.RSI(14), calculator.BOLL(20, 2), calculator.MACD(12, 26, 9),
	}})
	suite.Require().NoError(err)

	check := func(l model.Line) {
		for _, v := range l {
			if f, err := v.Take(); err == nil {
				suite.False(math.IsNaN(f) || math.IsInf(f, 0))
			}
		}
	}
	for _, l := range set.Lines {
		check(l)
	}
	for _, b := range set.Bands {
		check(b.Upper)
		check(b.Mid)
		check(b.Lower)
	}
	for _, m := range set.MACD {
		check(m.MACD)
		check(m.Signal)
		check(m.Hist)
	}
}

func (suite *CalculatorTestSuite) TestInvalidParameters() {
	s := modeltest.Series("X", 10, 11, 12)
	for _, spec := range []calculator.Spec{
		calculator.MA(0),
		calculator.RSI(-1),
		calculator.BOLL(20, 0),
		calculator.MACD(26, 12, 9),
	} {
		_, err := calculator.New().Compute(s, calculator.Request{Indicators: []calculator.Spec{spec}})
		suite.Require().Error(err, spec.Name())
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
	}
}

func (suite *CalculatorTestSuite) TestParseSpec() {
	cases := map[string]string{
		"MA5":    "MA5",
		"ma20":   "MA20",
		"VWAP":   "VWAP",
		"RSI":    "RSI14",
		"RSI6":   "RSI6",
		"BOLL":   "BOLL20",
		"BOLL10": "BOLL10",
		"MACD":   "MACD",
	}
	for in, want := range cases {
		s, err := calculator.ParseSpec(in)
		suite.Require().NoError(err, in)
		suite.Equal(want, s.Name())
	}

	for _, bad := range []string{"MA", "MAx", "KDJ", ""} {
		_, err := calculator.ParseSpec(bad)
		suite.Error(err, bad)
	}
}

func (suite *CalculatorTestSuite) TestUnion() {
	a, err := calculator.NewRequest("MA5", "MACD")
	suite.Require().NoError(err)
	b, err := calculator.NewRequest("MA5", "RSI")
	suite.Require().NoError(err)

	suite.Equal([]string{"MA5", "MACD", "RSI14"}, calculator.Union(a, b).Names())
}

func (suite *CalculatorTestSuite) TestPriceRange() {
	s := modeltest.Series("X", 10, 12, 8, 11)
	low, high, err := calculator.PriceRange(s)
	suite.Require().NoError(err)
	suite.InDelta(8*0.99, low, tolerance)
	suite.InDelta(12*1.01, high, tolerance)

	_, _, err = calculator.PriceRange(modeltest.Series("X"))
	suite.True(errors.HasCode(err, errors.ErrCodeEmptySeries))

	pos, err := calculator.Position(15, 10, 20)
	suite.Require().NoError(err)
	suite.InDelta(0.5, pos, tolerance)
}

func (suite *CalculatorTestSuite) TestCounting() {
	c := calculator.NewCounting(calculator.New())
	_, err := c.Compute(modeltest.Series("X", 1, 2, 3), calculator.Request{})
	suite.Require().NoError(err)
	suite.EqualValues(1, c.Calls())
}
