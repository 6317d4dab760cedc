package errors

// ErrorCode identifies a failure; its hundreds digit selects the Kind.
type ErrorCode int

// Kind is the propagation class of an error code.
type Kind string

const (
	KindUnknown         Kind = "unknown"
	KindValidation      Kind = "validation"
	KindDataUnavailable Kind = "data_unavailable"
	KindUnknownTheme    Kind = "unknown_theme"
	KindRender          Kind = "render"
	KindConfiguration   Kind = "configuration"
)

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidBar        ErrorCode = 100
	ErrCodeNonPositivePrice  ErrorCode = 101
	ErrCodeNegativeVolume    ErrorCode = 102
	ErrCodeOHLCInvariant     ErrorCode = 103
	ErrCodeDuplicateDate     ErrorCode = 104
	ErrCodeNonMonotonicDate  ErrorCode = 105
	ErrCodeMissingSymbol     ErrorCode = 106
	ErrCodeInvalidRange      ErrorCode = 107
	ErrCodeMalformedRecord   ErrorCode = 108
	ErrCodeNonFiniteNumber   ErrorCode = 109
	ErrCodeInvalidPeriodSpec ErrorCode = 110

	// Data errors (200-299)
	ErrCodeDataUnavailable  ErrorCode = 200
	ErrCodeDataNotFound     ErrorCode = 201
	ErrCodeQueryFailed      ErrorCode = 202
	ErrCodeUpstreamRejected ErrorCode = 203
	ErrCodeEmptySeries      ErrorCode = 204
	ErrCodeSymbolListFailed ErrorCode = 205

	// Theme errors (300-399)
	ErrCodeUnknownTheme   ErrorCode = 300
	ErrCodeDuplicateTheme ErrorCode = 301
	ErrCodeInvalidTheme   ErrorCode = 302

	// Render errors (400-499)
	ErrCodeRenderFailed     ErrorCode = 400
	ErrCodeOutputUnwritable ErrorCode = 401
	ErrCodeEncodeFailed     ErrorCode = 402

	// Configuration errors (500-599)
	ErrCodeInvalidConfiguration ErrorCode = 500
	ErrCodeInvalidParameter     ErrorCode = 501
	ErrCodeNoSymbols            ErrorCode = 502
	ErrCodeConflictingOptions   ErrorCode = 503
	ErrCodeNoTargets            ErrorCode = 504
)

// Kind returns the propagation class of the code.
func (c ErrorCode) Kind() Kind {
	switch {
	case c >= 100 && c < 200:
		return KindValidation
	case c >= 200 && c < 300:
		return KindDataUnavailable
	case c >= 300 && c < 400:
		return KindUnknownTheme
	case c >= 400 && c < 500:
		return KindRender
	case c >= 500 && c < 600:
		return KindConfiguration
	default:
		return KindUnknown
	}
}
