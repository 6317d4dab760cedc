// Package errors provides the coded error taxonomy shared by the pipeline.
//
// Codes are grouped by how far a failure propagates:
//   - Validation errors (100-199): malformed bars, fatal for one symbol
//   - Data errors (200-299): the data source could not supply bars, fatal for one symbol
//   - Theme errors (300-399): unknown theme, fatal for the whole run
//   - Render errors (400-499): one output target failed
//   - Configuration errors (500-599): bad invocation, fatal for the whole run
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeDuplicateDate, "row %d: duplicate date %s", i, d)
//	if errors.IsValidation(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error is a structured error with a code, message and optional cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps cause with a code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Wrapf wraps cause with a code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode returns the code of the first *Error in err's chain, or ErrCodeUnknown.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error carries a specific code.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsValidation reports whether err is a ValidationError (malformed input bars).
func IsValidation(err error) bool {
	return GetCode(err).Kind() == KindValidation
}

// IsDataUnavailable reports whether err is a DataUnavailableError.
func IsDataUnavailable(err error) bool {
	return GetCode(err).Kind() == KindDataUnavailable
}

// IsUnknownTheme reports whether err is an UnknownThemeError.
func IsUnknownTheme(err error) bool {
	return GetCode(err).Kind() == KindUnknownTheme
}

// IsRender reports whether err is a RenderError.
func IsRender(err error) bool {
	return GetCode(err).Kind() == KindRender
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	return GetCode(err).Kind() == KindConfiguration
}

// IsRunFatal reports whether err must abort a whole run rather than a single symbol or target.
func IsRunFatal(err error) bool {
	k := GetCode(err).Kind()

	return k == KindUnknownTheme || k == KindConfiguration
}
