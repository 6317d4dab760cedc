package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"KlineStudio/internal/errors"
	"KlineStudio/internal/model"
	"KlineStudio/internal/model/modeltest"
)

type SeriesTestSuite struct {
	suite.Suite
}

func TestSeriesSuite(t *testing.T) {
	suite.Run(t, new(SeriesTestSuite))
}

func (suite *SeriesTestSuite) TestValidSeries() {
	s, err := model.NewBarSeries("600000.SH", modeltest.Bars(10, 11, 12))
	suite.Require().NoError(err)
	suite.Equal(3, s.Len())
	suite.Equal("600000.SH", s.Symbol())
	suite.Equal([]float64{10, 11, 12}, s.Closes())

	first, last, ok := s.DateRange()
	suite.True(ok)
	suite.Equal(modeltest.Start, first)
	suite.True(last.After(first))
}

func (suite *SeriesTestSuite) TestEmptySeriesIsValid() {
	s, err := model.NewBarSeries("600000.SH", nil)
	suite.Require().NoError(err)
	suite.Equal(0, s.Len())
	_, _, ok := s.DateRange()
	suite.False(ok)
}

func (suite *SeriesTestSuite) TestRejectsMissingSymbol() {
	_, err := model.NewBarSeries("", modeltest.Bars(10))
	suite.True(errors.HasCode(err, errors.ErrCodeMissingSymbol))
}

func (suite *SeriesTestSuite) TestRejectsDuplicateDate() {
	bars := modeltest.Bars(10, 11, 12)
	bars[2].Date = bars[1].Date.Add(3 * time.Hour) // same calendar day
	_, err := model.NewBarSeries("X", bars)
	suite.Require().Error(err)
	suite.True(errors.IsValidation(err))
	suite.True(errors.HasCode(err, errors.ErrCodeDuplicateDate))
}

func (suite *SeriesTestSuite) TestRejectsDescendingDates() {
	bars := modeltest.Bars(10, 11, 12)
	bars[0], bars[2] = bars[2], bars[0]
	_, err := model.NewBarSeries("X", bars)
	suite.True(errors.HasCode(err, errors.ErrCodeNonMonotonicDate))
}

func (suite *SeriesTestSuite) TestRejectsOHLCViolations() {
	cases := []struct {
		name   string
		mutate func(b *model.Bar)
		code   errors.ErrorCode
	}{
		{"high below close", func(b *model.Bar) { b.High = b.Close - 1 }, errors.ErrCodeOHLCInvariant},
		{"low above open", func(b *model.Bar) { b.Low = b.Open + 1; b.High = b.Open + 2 }, errors.ErrCodeOHLCInvariant},
		{"zero low", func(b *model.Bar) { b.Low = 0 }, errors.ErrCodeNonPositivePrice},
		{"negative volume", func(b *model.Bar) { b.Volume = -1 }, errors.ErrCodeNegativeVolume},
		{"nan close", func(b *model.Bar) { b.Close = math.NaN() }, errors.ErrCodeNonFiniteNumber},
	}
	for _, tc := range cases {
		suite.Run(tc.name, func() {
			bars := modeltest.Bars(10, 11, 12)
			tc.mutate(&bars[1])
			_, err := model.NewBarSeries("X", bars)
			suite.Require().Error(err)
			suite.True(errors.IsValidation(err))
			suite.True(errors.HasCode(err, tc.code), err.Error())
		})
	}
}

func (suite *SeriesTestSuite) TestImmutability() {
	bars := modeltest.Bars(10, 11, 12)
	s, err := model.NewBarSeries("X", bars)
	suite.Require().NoError(err)

	bars[0].Close = 999
	suite.Equal(10.0, s.At(0).Close)

	out := s.Bars()
	out[1].Close = 999
	suite.Equal(11.0, s.At(1).Close)
}

func (suite *SeriesTestSuite) TestSlice() {
	s := modeltest.Series("X", 10, 11, 12, 13, 14)

	sub, err := s.Slice(1, 4)
	suite.Require().NoError(err)
	suite.Equal([]float64{11, 12, 13}, sub.Closes())

	_, err = s.Slice(3, 9)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidRange))
}

func (suite *SeriesTestSuite) TestBetween() {
	s := modeltest.Series("X", 10, 11, 12, 13, 14)
	sub := s.Between(s.At(1).Date, s.At(3).Date)
	suite.Equal([]float64{11, 12, 13}, sub.Closes())
	suite.Equal(5, s.Between(time.Time{}, time.Time{}).Len())
}

func (suite *SeriesTestSuite) TestFingerprint() {
	a := modeltest.Series("X", 10, 11, 12)
	b := modeltest.Series("X", 10, 11, 12)
	c := modeltest.Series("X", 10, 11, 12.5)
	suite.Equal(a.Fingerprint(), b.Fingerprint())
	suite.NotEqual(a.Fingerprint(), c.Fingerprint())

	bars := modeltest.Bars(10, 11, 12)
	bars[0].Amount = optional.Some(1.0e6)
	d, err := model.NewBarSeries("X", bars)
	suite.Require().NoError(err)
	suite.NotEqual(a.Fingerprint(), d.Fingerprint())
}

func (suite *SeriesTestSuite) TestDefined() {
	suite.True(model.Defined(1.5).IsSome())
	suite.True(model.Defined(math.NaN()).IsNone())
	suite.True(model.Defined(math.Inf(1)).IsNone())
	suite.Equal(-1, model.NewLine(3).FirstDefined())
}

func (suite *SeriesTestSuite) TestPeriodSpec() {
	suite.Equal("daily", model.Daily.Label())
	suite.Equal("5d", model.PeriodSpec(5).Label())
	suite.Error(model.PeriodSpec(0).Validate())
	suite.NoError(model.PeriodSpec(20).Validate())
}
