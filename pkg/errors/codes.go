package errors

// Application error codes for consistent error reporting
const (
	// General errors (1000-1999)
	CodeInternalError   = "ERR_1000"
	CodeUnknownError    = "ERR_1001"
	CodeInvalidInput    = "ERR_1002"
	CodeOperationFailed = "ERR_1003"
	CodeTimeout         = "ERR_1004"
	CodeRateLimit       = "ERR_1005"

	// Auth errors (2000-2099)
	CodeUnauthorized = "ERR_2000"

	// Resource errors (3000-3099)
	CodeNotFound      = "ERR_3000"
	CodeAlreadyExists = "ERR_3001"
	CodeConflict      = "ERR_3002"

	// Validation errors (4000-4099)
	CodeValidationFailed = "ERR_4000"
	CodeInvalidFormat    = "ERR_4001"
	CodeMissingField     = "ERR_4002"
	CodeInvalidValue     = "ERR_4003"
	CodeOutOfRange       = "ERR_4004"

	// Fund errors (5000-5099)
	CodeFundNotFound      = "ERR_5000"
	CodeFundLocked        = "ERR_5001"
	CodeInvalidAssetID    = "ERR_5002"
	CodeInsufficientFunds = "ERR_5003"
	CodeInvalidAllocation = "ERR_5004"

	// Trading errors (5300-5399)
	CodeSwapRejected      = "ERR_5300"
	CodeSwapTransient     = "ERR_5301"
	CodeSettlementFailed  = "ERR_5302"
	CodeSettlementTimeout = "ERR_5303"
	CodePriceUnavailable  = "ERR_5304"
	CodeSettlementPending = "ERR_5305"

	// External service errors (6000-6999)
	CodeExternalServiceError = "ERR_6000"
	CodeGatewayAPIError      = "ERR_6001"
	CodeOracleAPIError       = "ERR_6100"
	CodeAllocationAPIError   = "ERR_6200"

	// Database errors (7000-7099)
	CodeDatabaseError     = "ERR_7000"
	CodeQueryFailed       = "ERR_7001"
	CodeConnectionFailed  = "ERR_7002"
	CodeTransactionFailed = "ERR_7003"
	CodeDuplicateKey      = "ERR_7004"

	// Cache errors (7100-7199)
	CodeCacheError            = "ERR_7100"
	CodeCacheMiss             = "ERR_7101"
	CodeCacheConnectionFailed = "ERR_7102"
)

// ErrorCodeMap maps error codes to human-readable messages
var ErrorCodeMap = map[string]string{
	CodeInternalError:   "An internal error occurred",
	CodeUnknownError:    "An unknown error occurred",
	CodeInvalidInput:    "Invalid input provided",
	CodeOperationFailed: "Operation failed",
	CodeTimeout:         "Operation timed out",
	CodeRateLimit:       "Rate limit exceeded",

	CodeUnauthorized: "Authentication required",

	CodeNotFound:      "Resource not found",
	CodeAlreadyExists: "Resource already exists",
	CodeConflict:      "Resource conflict",

	CodeValidationFailed: "Validation failed",
	CodeInvalidFormat:    "Invalid format",
	CodeMissingField:     "Required field is missing",
	CodeInvalidValue:     "Invalid value",
	CodeOutOfRange:       "Value out of range",

	CodeFundNotFound:      "Fund not found",
	CodeFundLocked:        "Fund is already being reconciled",
	CodeInvalidAssetID:    "Malformed asset identifier",
	CodeInsufficientFunds: "Insufficient liquid balance",
	CodeInvalidAllocation: "Invalid allocation entry",

	CodeSwapRejected:      "Swap rejected by gateway",
	CodeSwapTransient:     "Transient swap submission error",
	CodeSettlementFailed:  "Settlement failed",
	CodeSettlementTimeout: "Settlement not confirmed in time",
	CodePriceUnavailable:  "Price unavailable",
	CodeSettlementPending: "Settlement pending",

	CodeExternalServiceError: "External service error",
	CodeGatewayAPIError:      "Swap gateway error",
	CodeOracleAPIError:       "Price oracle error",
	CodeAllocationAPIError:   "Allocation source error",

	CodeDatabaseError:     "Database error",
	CodeQueryFailed:       "Query failed",
	CodeConnectionFailed:  "Connection failed",
	CodeTransactionFailed: "Transaction failed",
	CodeDuplicateKey:      "Duplicate entry",

	CodeCacheError:            "Cache error",
	CodeCacheMiss:             "Cache miss",
	CodeCacheConnectionFailed: "Cache connection failed",
}

// GetErrorMessage returns the human-readable message for an error code
func GetErrorMessage(code string) string {
	if msg, ok := ErrorCodeMap[code]; ok {
		return msg
	}
	return "Unknown error"
}
