package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidInterval      ErrorCode = 102
	ErrCodeInvalidDateRange     ErrorCode = 103
	ErrCodeInvalidSessionTimes  ErrorCode = 104
	ErrCodeMissingParameter     ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106

	// Store errors (200-299)
	ErrCodeStoreUnavailable ErrorCode = 200
	ErrCodeQueryFailed      ErrorCode = 201
	ErrCodeInsertFailed     ErrorCode = 202
	ErrCodeSchemaSetup      ErrorCode = 203
	ErrCodeNoDataFound      ErrorCode = 204

	// Provider errors (300-399)
	ErrCodeProviderFetchFailed ErrorCode = 300
	ErrCodeProviderUnsupported ErrorCode = 301
	ErrCodeProviderAuth        ErrorCode = 302

	// Resolver errors (400-499)
	ErrCodeCacheLookupFailed ErrorCode = 400
	ErrCodeCachePersist      ErrorCode = 401

	// Backtest errors (500-599)
	ErrCodeBacktestConfigError   ErrorCode = 500
	ErrCodeInsufficientCash      ErrorCode = 501
	ErrCodePositionAlreadyClosed ErrorCode = 502
	ErrCodeInvalidQuantity       ErrorCode = 503
	ErrCodeInvalidPrice          ErrorCode = 504

	// Report errors (600-699)
	ErrCodeReportWriteFailed ErrorCode = 600

	// Optimizer errors (700-799)
	ErrCodeUnknownSweepParameter ErrorCode = 700
)
