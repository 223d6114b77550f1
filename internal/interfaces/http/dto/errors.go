package dto

import "net/http"

// Error codes shared between the domain layer and the HTTP surface
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "UNAUTHORIZED"
	// ErrCodeForbidden is used when the requester does not own the resource
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	// ErrCodeInvalidState is used when an operation is invalid for the current state
	ErrCodeInvalidState = "INVALID_STATE"
	// ErrCodePriceMismatch is used when the quoted total drifted from the verified total
	ErrCodePriceMismatch = "PRICE_MISMATCH"
	// ErrCodeInsufficientStock is used when a cart line exceeds available stock
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	// ErrCodeGatewayNotReady is used when the payment widget has not loaded yet
	ErrCodeGatewayNotReady = "GATEWAY_NOT_READY"
	// ErrCodeGatewayUnavailable is used when the payment widget script probe failed
	ErrCodeGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	// ErrCodeInvalidSignature is used when a webhook delivery fails verification
	ErrCodeInvalidSignature = "INVALID_SIGNATURE"
	// ErrCodeRequestTooLarge is used when the request body exceeds the limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeAlreadyExists: http.StatusConflict,
	ErrCodeInvalidState:  http.StatusConflict,

	// A stale quote is a conflict with the verified catalog state; the
	// client re-fetches the cart and tries again.
	ErrCodePriceMismatch: http.StatusConflict,

	ErrCodeInsufficientStock: http.StatusUnprocessableEntity,

	ErrCodeGatewayNotReady:    http.StatusServiceUnavailable,
	ErrCodeGatewayUnavailable: http.StatusServiceUnavailable,
	ErrCodeInvalidSignature:   http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
