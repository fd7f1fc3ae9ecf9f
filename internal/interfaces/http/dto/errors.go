package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Input error codes
const (
	// ErrCodeValidation is used when a request or domain value fails validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
	// ErrCodeMerchantRequired is used when X-Merchant-ID is missing or malformed
	ErrCodeMerchantRequired = "ERR_MERCHANT_REQUIRED"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Hierarchy error codes
const (
	ErrCodeDepthExceeded        = "ERR_DEPTH_EXCEEDED"
	ErrCodeReferentialIntegrity = "ERR_REFERENTIAL_INTEGRITY"
	ErrCodeDeletionBlocked      = "ERR_DELETION_BLOCKED"
)

// Placement error codes
const (
	ErrCodeCapacityExceeded   = "ERR_CAPACITY_EXCEEDED"
	ErrCodeDuplicatePlacement = "ERR_DUPLICATE_PLACEMENT"
	ErrCodeUploadFailed       = "ERR_UPLOAD_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeMerchantRequired: http.StatusBadRequest,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Hierarchy rules -> 422 Unprocessable Entity, blocked deletes -> 409
	ErrCodeDepthExceeded:        http.StatusUnprocessableEntity,
	ErrCodeReferentialIntegrity: http.StatusUnprocessableEntity,
	ErrCodeDeletionBlocked:      http.StatusConflict,

	// Placement list state conflicts -> 409 Conflict
	ErrCodeCapacityExceeded:   http.StatusConflict,
	ErrCodeDuplicatePlacement: http.StatusConflict,

	// The media store failed, not the client
	ErrCodeUploadFailed: http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"VALIDATION_ERROR":      ErrCodeValidation,
	"NOT_FOUND":             ErrCodeNotFound,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"DEPTH_EXCEEDED":        ErrCodeDepthExceeded,
	"REFERENTIAL_INTEGRITY": ErrCodeReferentialIntegrity,
	"DELETION_BLOCKED":      ErrCodeDeletionBlocked,
	"CAPACITY_EXCEEDED":     ErrCodeCapacityExceeded,
	"DUPLICATE_PLACEMENT":   ErrCodeDuplicatePlacement,
	"UPLOAD_FAILED":         ErrCodeUploadFailed,
	"INTERNAL_ERROR":        ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
