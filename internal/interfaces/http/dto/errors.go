package dto

import (
	"net/http"

	"github.com/FirplakDesarrollador/CRM-sub001/internal/domain/commission"
)

// General error codes
const (
	ErrCodeInternal    = "ERR_INTERNAL"
	ErrCodeValidation  = "ERR_VALIDATION"
	ErrCodeBadRequest  = "ERR_BAD_REQUEST"
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	// ErrCodeLockTimeout is returned when the opportunity stayed busy.
	ErrCodeLockTimeout = "ERR_LOCK_TIMEOUT"
	// ErrCodeRequestTooLarge is returned by the body limit middleware.
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps the transport error codes to HTTP status codes.
// Commission error kinds are mapped by KindHTTPStatus.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidJSON:         http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeTokenInvalid:        http.StatusUnauthorized,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeLockTimeout:         http.StatusConflict,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
}

// KindHTTPStatus maps a commission error kind to its HTTP status.
func KindHTTPStatus(k commission.ErrorKind) int {
	switch k {
	case commission.KindEntryNotFound,
		commission.KindOpportunityNotFound:
		return http.StatusNotFound
	case commission.KindAlreadyReversed,
		commission.KindDuplicateAccrual:
		return http.StatusConflict
	case commission.KindInvalidAdjustment,
		commission.KindInvalidAccrual,
		commission.KindInvalidPayment:
		return http.StatusBadRequest
	case commission.KindNoApplicableRule,
		commission.KindInvalidSplit,
		commission.KindInvalidReferenceType,
		commission.KindOpportunityHasNoAccruals:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if k := commission.ErrorKind(code); k.IsValid() {
		return KindHTTPStatus(k)
	}
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// LegacyErrorCodeMapping maps shared domain error codes to transport codes.
// Commission error kinds are part of the public contract and pass through.
var LegacyErrorCodeMapping = map[string]string{
	"NOT_FOUND":            ErrCodeNotFound,
	"ALREADY_EXISTS":       ErrCodeAlreadyExists,
	"INVALID_INPUT":        ErrCodeInvalidInput,
	"UNAUTHORIZED":         ErrCodeUnauthorized,
	"CONCURRENCY_CONFLICT": ErrCodeConcurrencyConflict,
	"LOCK_TIMEOUT":         ErrCodeLockTimeout,
	"VALIDATION_ERROR":     ErrCodeValidation,
	"BAD_REQUEST":          ErrCodeBadRequest,
	"INTERNAL_ERROR":       ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the code sent to clients.
// Unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := LegacyErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
