package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidType          ErrorCode = 107
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidVersion       ErrorCode = 110
	ErrCodeInvalidMultiplier    ErrorCode = 111
	ErrCodeInvalidThreshold     ErrorCode = 112
	ErrCodeUnorderedSeries      ErrorCode = 120
	ErrCodeEmptySeries          ErrorCode = 121
	ErrCodeInvalidCost          ErrorCode = 122

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeNoDataFound           ErrorCode = 204
	ErrCodeColumnNotFound        ErrorCode = 206

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound    ErrorCode = 300
	ErrCodeIndicatorCalculation ErrorCode = 301

	// Strategy errors (400-499)
	ErrCodeUnknownEntryStrategy ErrorCode = 400
	ErrCodeUnknownExitStrategy  ErrorCode = 401
	ErrCodeStrategyConfigError  ErrorCode = 402
	ErrCodeSignalProviderFailed ErrorCode = 403
	ErrCodeExitPolicyFailed     ErrorCode = 404
	ErrCodeSignalLengthMismatch ErrorCode = 405

	// Backtest errors (600-699)
	ErrCodeBacktestStateNil      ErrorCode = 600
	ErrCodeBacktestWriteFailed   ErrorCode = 601
	ErrCodeBacktestConfigError   ErrorCode = 602
	ErrCodeBacktestDataPathError ErrorCode = 603
	ErrCodeBacktestNoDataPaths   ErrorCode = 606
	ErrCodeBacktestNoResultsDir  ErrorCode = 607
	ErrCodeBacktestNoDatasource  ErrorCode = 608
	ErrCodeBacktestCancelled     ErrorCode = 609

	// Sweep errors (700-799)
	ErrCodeCombinationFailed ErrorCode = 700
	ErrCodeCombinationPanic  ErrorCode = 701

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
