package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeUnknownTheme, "theme \"x\" not registered")
	suite.Equal("[300] theme \"x\" not registered", err.Error())

	wrapped := Wrap(ErrCodeDataUnavailable, "fetch 600000.SH", fmt.Errorf("timeout"))
	suite.Equal("[200] fetch 600000.SH: timeout", wrapped.Error())
}

func (suite *ErrorTestSuite) TestKindsSurviveWrapping() {
	base := Newf(ErrCodeDuplicateDate, "row %d", 3)
	err := fmt.Errorf("load symbol: %w", base)

	suite.True(IsValidation(err))
	suite.False(IsDataUnavailable(err))
	suite.True(HasCode(err, ErrCodeDuplicateDate))
	suite.Equal(ErrCodeUnknown, GetCode(fmt.Errorf("plain")))
}

func (suite *ErrorTestSuite) TestRunFatal() {
	suite.True(IsRunFatal(New(ErrCodeUnknownTheme, "x")))
	suite.True(IsRunFatal(New(ErrCodeNoSymbols, "x")))
	suite.False(IsRunFatal(New(ErrCodeRenderFailed, "x")))
	suite.False(IsRunFatal(New(ErrCodeDataUnavailable, "x")))
	suite.True(IsRender(New(ErrCodeEncodeFailed, "x")))
	suite.True(IsConfiguration(New(ErrCodeInvalidParameter, "x")))
}
