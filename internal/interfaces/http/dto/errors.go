package dto

import (
	"net/http"
	"strings"
)

// API error codes
const (
	// General errors
	ErrCodeInternalError   = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeForbidden       = "ERR_FORBIDDEN"
	ErrCodeConflict        = "ERR_CONFLICT"
	ErrCodeTooManyRequests = "ERR_TOO_MANY_REQUESTS"

	// Catalog errors
	ErrCodeTermNotFound         = "ERR_TERM_NOT_FOUND"
	ErrCodeTermClosed           = "ERR_TERM_CLOSED"
	ErrCodeTermMismatch         = "ERR_TERM_MISMATCH"
	ErrCodeFeeStructureNotFound = "ERR_FEE_STRUCTURE_NOT_FOUND"
	ErrCodeOverrideNotFound     = "ERR_OVERRIDE_NOT_FOUND"

	// Student errors
	ErrCodeStudentNotFound = "ERR_STUDENT_NOT_FOUND"

	// Invoice and payment errors
	ErrCodeInvoiceNotFound  = "ERR_INVOICE_NOT_FOUND"
	ErrCodePaymentNotFound  = "ERR_PAYMENT_NOT_FOUND"
	ErrCodeInvalidAmount    = "ERR_INVALID_AMOUNT"
	ErrCodeInvalidState     = "ERR_INVALID_STATE"
	ErrCodeConcurrencyError = "ERR_CONCURRENCY_CONFLICT"

	// Mobile money errors
	ErrCodeTransactionNotFound = "ERR_TRANSACTION_NOT_FOUND"
	ErrCodeInvalidSignature    = "ERR_INVALID_SIGNATURE"
	ErrCodeGatewayError        = "ERR_GATEWAY"
)

// ErrorCodeHTTPStatus maps API error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternalError:   http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeTooManyRequests: http.StatusTooManyRequests,

	ErrCodeTermNotFound:         http.StatusNotFound,
	ErrCodeTermClosed:           http.StatusUnprocessableEntity,
	ErrCodeTermMismatch:         http.StatusUnprocessableEntity,
	ErrCodeFeeStructureNotFound: http.StatusNotFound,
	ErrCodeOverrideNotFound:     http.StatusNotFound,

	ErrCodeStudentNotFound: http.StatusNotFound,

	ErrCodeInvoiceNotFound:  http.StatusNotFound,
	ErrCodePaymentNotFound:  http.StatusNotFound,
	ErrCodeInvalidAmount:    http.StatusBadRequest,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeConcurrencyError: http.StatusConflict,

	ErrCodeTransactionNotFound: http.StatusNotFound,
	ErrCodeInvalidSignature:    http.StatusUnauthorized,
	ErrCodeGatewayError:        http.StatusBadGateway,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to 500
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping translates domain layer error codes to API codes.
// Domain codes are stable identifiers raised by the aggregates and services;
// the API maps them into a single ERR_ namespace for clients.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"ALREADY_EXISTS":          ErrCodeConflict,
	"CONCURRENCY_CONFLICT":    ErrCodeConcurrencyError,
	"UNAUTHORIZED":            ErrCodeUnauthorized,
	"FORBIDDEN":               ErrCodeForbidden,
	"INVALID_STATE":           ErrCodeInvalidState,
	"TERM_NOT_FOUND":          ErrCodeTermNotFound,
	"TERM_CLOSED":             ErrCodeTermClosed,
	"TERM_MISMATCH":           ErrCodeTermMismatch,
	"FEE_STRUCTURE_NOT_FOUND": ErrCodeFeeStructureNotFound,
	"OVERRIDE_NOT_FOUND":      ErrCodeOverrideNotFound,
	"STUDENT_NOT_FOUND":       ErrCodeStudentNotFound,
	"INVOICE_NOT_FOUND":       ErrCodeInvoiceNotFound,
	"PAYMENT_NOT_FOUND":       ErrCodePaymentNotFound,
	"TRANSACTION_NOT_FOUND":   ErrCodeTransactionNotFound,
	"INVALID_AMOUNT":          ErrCodeInvalidAmount,
	"EXCEEDS_BALANCE":         ErrCodeInvalidState,
	"NOT_PAST_DUE":            ErrCodeInvalidState,
	"NO_ARREARS":              ErrCodeInvalidState,
}

// NormalizeErrorCode converts a domain error code to its API equivalent.
// Domain INVALID_* codes are request validation failures; anything else
// unrecognized maps to ERR_INTERNAL so the raw domain namespace never leaks.
func NormalizeErrorCode(code string) string {
	if mapped, ok := DomainErrorCodeMapping[code]; ok {
		return mapped
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeValidation
	}
	if _, ok := ErrorCodeHTTPStatus[code]; ok {
		return code
	}
	return ErrCodeInternalError
}
