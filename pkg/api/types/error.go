package types

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information.
type ErrorDetail struct {
	// Message is a human-readable error message.
	Message string `json:"message"`

	// Type categorizes the error by HTTP class.
	Type string `json:"type"`

	// Param is the request field that caused the error, if any.
	Param string `json:"param,omitempty"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// SkippedFields explains why no element could be evaluated.
	SkippedFields []SkippedField `json:"skipped_fields,omitempty"`
}

// Error types.
const (
	ErrorTypeInvalidRequest     = "invalid_request_error"
	ErrorTypeNotFound           = "not_found"
	ErrorTypeConflict           = "conflict"
	ErrorTypeUnprocessable      = "unprocessable_entity"
	ErrorTypeRateLimitExceeded  = "rate_limit_exceeded"
	ErrorTypeServerError        = "server_error"
	ErrorTypeServiceUnavailable = "service_unavailable"
	ErrorTypeGatewayTimeout     = "gateway_timeout"
)

// Error codes.
const (
	CodeInvalidJSON         = "invalid_json"
	CodeInvalidValue        = "invalid_value"
	CodeRequestTooLarge     = "request_too_large"
	CodeTooManyFields       = "too_many_fields"
	CodeNoElementsEvaluated = "no_elements_evaluated"
	CodeUnsupportedUnit     = "unsupported_unit"
	CodeInvalidMeasurement  = "invalid_measurement"
	CodeElementNotFound     = "element_not_found"
	CodeElementExists       = "element_exists"
	CodeRulesNotLoaded      = "rules_not_loaded"
	CodeCatalogDisabled     = "catalog_disabled"
	CodeRateLimited         = "rate_limited"
	CodeTimeout             = "timeout"
	CodeInternalError       = "internal_error"
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

// NewInvalidRequestError creates a 400 error response.
func NewInvalidRequestError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeInvalidRequest, param, code)
}

// NewNotFoundError creates a 404 error response.
func NewNotFoundError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeNotFound, "", code)
}

// NewConflictError creates a 409 error response.
func NewConflictError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeConflict, "", code)
}

// NewUnprocessableError creates a 422 error response.
func NewUnprocessableError(message, param, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeUnprocessable, param, code)
}

// NewRateLimitError creates a 429 error response.
func NewRateLimitError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeRateLimitExceeded, "", CodeRateLimited)
}

// NewServerError creates a 500 error response.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServerError, "", CodeInternalError)
}

// NewServiceUnavailableError creates a 503 error response.
func NewServiceUnavailableError(message, code string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeServiceUnavailable, "", code)
}

// NewGatewayTimeoutError creates a 504 error response.
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(message, ErrorTypeGatewayTimeout, "", CodeTimeout)
}
