package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInvalidType          ErrorCode = 107
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeDuplicateAsset       ErrorCode = 120
	ErrCodeDuplicateBook        ErrorCode = 121
	ErrCodeDuplicateStrategy    ErrorCode = 122
	ErrCodeUnknownAsset         ErrorCode = 123
	ErrCodeUnknownBook          ErrorCode = 124

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 204
	ErrCodeMissingField          ErrorCode = 206
	ErrCodeInvalidIndex          ErrorCode = 207
	ErrCodeLookAhead             ErrorCode = 208

	// Strategy errors (400-499)
	ErrCodeStrategyNotLoaded    ErrorCode = 400
	ErrCodeStrategyConfigError  ErrorCode = 401
	ErrCodeStrategyRuntimeError ErrorCode = 402
	ErrCodeUnsupportedStrategy  ErrorCode = 403
	ErrCodeVersionMismatch      ErrorCode = 404

	// Trading errors (500-599)
	ErrCodeOrderFailed      ErrorCode = 500
	ErrCodeOrderRejected    ErrorCode = 503
	ErrCodeOrderExpired     ErrorCode = 504
	ErrCodeHookFailed       ErrorCode = 505
	ErrCodeFXRateMissing    ErrorCode = 506
	ErrCodeInvalidQuantity  ErrorCode = 507
	ErrCodeOrderNotFound    ErrorCode = 508
	ErrCodePositionNotFound ErrorCode = 501

	// Backtest errors (600-699)
	ErrCodeBacktestStateNil     ErrorCode = 600
	ErrCodeBacktestInitFailed   ErrorCode = 601
	ErrCodeBacktestConfigError  ErrorCode = 602
	ErrCodeBacktestNoStrategies ErrorCode = 604
	ErrCodeBacktestNoResultsDir ErrorCode = 607
	ErrCodeBacktestNoDatasource ErrorCode = 608
	ErrCodeRunCancelled         ErrorCode = 609
	ErrCodeResultWriteFailed    ErrorCode = 610

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
