package types

import "net/http"

// ErrorResponse is the body returned for every failed request.
type ErrorResponse struct {
	// Error contains the error details.
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error. See the ErrorType constants.
	Type string `json:"type"`

	// Param is the name of the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`
}

// Error types.
const (
	// ErrorTypeInvalidRequest indicates a client-side error (400).
	ErrorTypeInvalidRequest = "invalid_request_error"

	// ErrorTypePermissionDenied indicates access to a protected field (403).
	ErrorTypePermissionDenied = "permission_denied"

	// ErrorTypeNotFound indicates an unknown route (404).
	ErrorTypeNotFound = "not_found"

	// ErrorTypeMethodNotAllowed indicates the wrong HTTP method (405).
	ErrorTypeMethodNotAllowed = "method_not_allowed"

	// ErrorTypeBudgetExhausted indicates no privacy budget remains (409).
	ErrorTypeBudgetExhausted = "budget_exhausted"

	// ErrorTypeRequestTooLarge indicates the body exceeded the limit (413).
	ErrorTypeRequestTooLarge = "request_too_large"

	// ErrorTypeMechanism indicates the mechanism rejected the request (422).
	ErrorTypeMechanism = "mechanism_error"

	// ErrorTypeServerError indicates an internal server error (500).
	ErrorTypeServerError = "server_error"

	// ErrorTypeServiceUnavailable indicates the accountant is closed (503).
	ErrorTypeServiceUnavailable = "service_unavailable"

	// ErrorTypeTimeout indicates the request ran past its deadline (504).
	ErrorTypeTimeout = "timeout"
)

// Error codes.
const (
	// CodeMissingField indicates a required field is missing.
	CodeMissingField = "missing_field"

	// CodeInvalidValue indicates a field has an invalid value.
	CodeInvalidValue = "invalid_value"

	// CodeInvalidJSON indicates the request body is not valid JSON.
	CodeInvalidJSON = "invalid_json"

	// CodeInvalidCost indicates a cost that is not finite and positive.
	CodeInvalidCost = "invalid_cost"

	// CodeBudgetExhausted indicates the budget is spent.
	CodeBudgetExhausted = "budget_exhausted"

	// CodeProtectedField indicates a protected field was touched.
	CodeProtectedField = "protected_field"

	// CodeInternalError indicates an internal server error.
	CodeInternalError = "internal_error"
)

// NewErrorResponse creates a new error response with the given details.
func NewErrorResponse(message, errorType, param, code string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType,
			Param:   param,
			Code:    code,
		},
	}
}

// NewInvalidRequestError creates an error response for invalid requests (400).
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewServerError creates an error response for internal server errors (500).
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewTimeoutError creates an error response for requests past their deadline.
func NewTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeTimeout, "", "")
}

// HTTPStatusCode returns the HTTP status code for the error type.
func (e *ErrorDetail) HTTPStatusCode() int {
	switch e.Type {
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypePermissionDenied:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case ErrorTypeBudgetExhausted:
		return http.StatusConflict
	case ErrorTypeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorTypeMechanism:
		return http.StatusUnprocessableEntity
	case ErrorTypeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
