package http

import (
	"fmt"
	"math"
	"net/http"
	"time"
)

// Error codes returned in the response body and used as metric labels.
const (
	CodeBadRequest   = "ERR_BAD_REQUEST"
	CodeValidation   = "ERR_VALIDATION"
	CodeInvalidInput = "ERR_INVALID_INPUT"
	CodeRateLimited  = "ERR_RATE_LIMITED"
	CodeInternal     = "ERR_INTERNAL"
)

// AppError is an error with a stable code and the HTTP status it maps to.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Field      string                 `json:"field,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty"`
	Status     int                    `json:"-"`
	RetryAfter time.Duration          `json:"-"`
	Err        error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error. The cause is logged, never rendered.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// BadRequestError creates a 400 error.
func BadRequestError(message string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: message, Status: http.StatusBadRequest}
}

// UnprocessableError creates a 422 error for input that parsed but cannot be processed.
func UnprocessableError(message string) *AppError {
	return &AppError{Code: CodeInvalidInput, Message: message, Status: http.StatusUnprocessableEntity}
}

// TooManyRequestsError creates a 429 error. retryAfter is rounded up to whole
// seconds and sent back as the Retry-After header.
func TooManyRequestsError(retryAfter time.Duration) *AppError {
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	secs := int(math.Ceil(retryAfter.Seconds()))
	e := &AppError{
		Code:       CodeRateLimited,
		Message:    "rate limit exceeded",
		Status:     http.StatusTooManyRequests,
		RetryAfter: time.Duration(secs) * time.Second,
	}
	return e.WithParam("retry_after_s", secs)
}
