package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConcurrencyConflict is used when an optimistic update lost the race
	// after every retry
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeRequestInProgress is used when an idempotency key is still in flight
	ErrCodeRequestInProgress = "ERR_REQUEST_IN_PROGRESS"
)

// Credit error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeAlreadyPaid is used when settling an installment with no residual
	ErrCodeAlreadyPaid = "ERR_ALREADY_PAID"
	// ErrCodePartialSettlement is used when a payment stopped midway and some
	// writes could not be undone
	ErrCodePartialSettlement = "ERR_PARTIAL_SETTLEMENT"
	// ErrCodeFeatureDisabled is used when an optional capability is not configured
	ErrCodeFeatureDisabled = "ERR_FEATURE_DISABLED"
)

// Store error codes
const (
	// ErrCodeStoreUnavailable is used when the credit store could not be read or reached
	ErrCodeStoreUnavailable = "ERR_STORE_UNAVAILABLE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodePayloadTooLarge is used when the body exceeds the configured limit
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRequestInProgress:   http.StatusConflict,

	// Credit errors
	ErrCodeInvalidState:      http.StatusUnprocessableEntity,
	ErrCodeAlreadyPaid:       http.StatusConflict,
	ErrCodePartialSettlement: http.StatusBadGateway,
	ErrCodeFeatureDisabled:   http.StatusNotImplemented,

	// Store errors
	ErrCodeStoreUnavailable: http.StatusServiceUnavailable,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodePayloadTooLarge: http.StatusRequestEntityTooLarge,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps domain and application error codes to API codes
var LegacyErrorCodeMapping = map[string]string{
	// shared
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeValidation,
	"INVALID_STATE":        ErrCodeInvalidState,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"STORE_UNAVAILABLE":    ErrCodeStoreUnavailable,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,

	// credit domain
	"INVALID_AMOUNT":         ErrCodeValidation,
	"INVALID_PAYMENT_METHOD": ErrCodeValidation,
	"INVALID_NAME":           ErrCodeValidation,
	"INVALID_SALE":           ErrCodeValidation,
	"INVALID_NUMBER":         ErrCodeValidation,
	"INVALID_DUE_DATE":       ErrCodeValidation,
	"INVALID_SCHEDULE":       ErrCodeValidation,
	"INVALID_FILTER":         ErrCodeValidation,
	"CLIENT_REQUIRED":        ErrCodeValidation,
	"OVERPAYMENT":            ErrCodeInvalidState,
	"INVALID_PLAN":           ErrCodeInternal,

	// credit application
	"STORE_READ_FAILED":        ErrCodeStoreUnavailable,
	"REQUEST_IN_PROGRESS":      ErrCodeRequestInProgress,
	"INSTALLMENT_ALREADY_PAID": ErrCodeAlreadyPaid,
	"CLIENT_NOT_FOUND":         ErrCodeNotFound,
	"SALE_NOT_FOUND":           ErrCodeNotFound,
	"INSTALLMENT_NOT_FOUND":    ErrCodeNotFound,
	"EXPORT_DISABLED":          ErrCodeFeatureDisabled,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
