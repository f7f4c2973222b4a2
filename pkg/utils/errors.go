package utils

import (
	"errors"
	"fmt"
)

// ResponseCode business response code
type ResponseCode int

// Response codes. 0 is success; 4xxx map to HTTP 4xx at the gateway;
// 5xxx are internal failures.
const (
	CodeSuccess ResponseCode = 0

	CodeInvalidParam    ResponseCode = 4000
	CodeUnauthorized    ResponseCode = 4001
	CodeForbidden       ResponseCode = 4003
	CodeProductNotFound ResponseCode = 4040
	CodeTicketNotFound  ResponseCode = 4041
	CodeOrderNotFound   ResponseCode = 4042
	CodeAlreadyQueued   ResponseCode = 4090
	CodeStockExhausted  ResponseCode = 4091
	CodeSaleWindowOpen  ResponseCode = 4092
	CodeOrderBusy       ResponseCode = 4290
	CodeRateLimit       ResponseCode = 4291

	CodeInternalError      ResponseCode = 5000
	CodeDatabaseError      ResponseCode = 5001
	CodeRedisError         ResponseCode = 5002
	CodeOrderConfirmFailed ResponseCode = 5003
)

// AppError application error structure
type AppError struct {
	Code    ResponseCode `json:"code"`
	Message string       `json:"message"`
	Err     error        `json:"-"`
}

// Error implement error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("code: %d, message: %s, error: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("code: %d, message: %s", e.Code, e.Message)
}

// Unwrap implement errors.Unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so predefined errors survive wrapping.
func (e *AppError) Is(target error) bool {
	var appErr *AppError
	if !errors.As(target, &appErr) {
		return false
	}
	return e.Code == appErr.Code
}

// NewError create new application error
func NewError(code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapError wrap error with a response code
func WrapError(err error, code ResponseCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Predefined errors
var (
	// Parameter errors
	ErrInvalidParam = NewError(CodeInvalidParam, "invalid parameter")

	// Admission errors
	ErrAlreadyQueued   = NewError(CodeAlreadyQueued, "user already holds an active ticket for this product")
	ErrProductNotFound = NewError(CodeProductNotFound, "product not found")
	ErrTicketNotFound  = NewError(CodeTicketNotFound, "ticket not found")

	// Stock and order errors
	ErrStockExhausted     = NewError(CodeStockExhausted, "stock exhausted")
	ErrOrderConfirmFailed = NewError(CodeOrderConfirmFailed, "order confirmation failed")
	ErrOrderBusy          = NewError(CodeOrderBusy, "another purchase is in flight, retry later")
	ErrOrderNotFound      = NewError(CodeOrderNotFound, "order not found")
	ErrSaleWindowOpen     = NewError(CodeSaleWindowOpen, "a sale window is active for this product")

	// System errors
	ErrRateLimit     = NewError(CodeRateLimit, "rate limit exceeded")
	ErrInternalError = NewError(CodeInternalError, "internal server error")
	ErrDatabaseError = NewError(CodeDatabaseError, "database error")
	ErrRedisError    = NewError(CodeRedisError, "redis error")
)

// IsAppError check if it's an application error
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetErrorCode get error code
func GetErrorCode(err error) ResponseCode {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Code
	}
	return CodeInternalError
}

// GetErrorMessage get error message
func GetErrorMessage(err error) string {
	if appErr, ok := IsAppError(err); ok {
		return appErr.Message
	}
	return err.Error()
}
