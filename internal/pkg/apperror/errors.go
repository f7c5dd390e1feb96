package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes returned to clients in the error_code field.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeForbidden            = "FORBIDDEN"
	CodeConflict             = "CONFLICT"
	CodeInternal             = "INTERNAL_ERROR"
	CodeInsufficientCredits  = "INSUFFICIENT_CREDITS"
	CodeNsfwNotAllowed       = "NSFW_NOT_ALLOWED"
	CodeSelfReferral         = "SELF_REFERRAL"
	CodeAccountBanned        = "ACCOUNT_BANNED"
	CodeAccountLocked        = "ACCOUNT_LOCKED"
	CodeRateLimited          = "RATE_LIMITED"
	CodePaymentProviderError = "PAYMENT_PROVIDER_ERROR"
	CodeUpstreamError        = "UPSTREAM_ERROR"
	CodeIdempotencyConflict  = "IDEMPOTENCY_CONFLICT"
)

// AppError is the error type services hand back to controllers.
type AppError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so errors.Is(err, apperror.ErrInsufficientCredits) works for wrapped copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(status int, code, message string, err error) *AppError {
	return &AppError{Status: status, Code: code, Message: message, Err: err}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, CodeValidation, message, nil)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, CodeNotFound, message, nil)
}

func Unauthorized(message string) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, message, nil)
}

func Forbidden(message string) *AppError {
	return New(http.StatusForbidden, CodeForbidden, message, nil)
}

func Conflict(message string) *AppError {
	return New(http.StatusConflict, CodeConflict, message, nil)
}

func PaymentRequired(code, message string) *AppError {
	return New(http.StatusPaymentRequired, code, message, nil)
}

func TooManyRequests(code, message string) *AppError {
	return New(http.StatusTooManyRequests, code, message, nil)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, "internal server error", err)
}

func Upstream(message string, err error) *AppError {
	return New(http.StatusBadGateway, CodeUpstreamError, message, err)
}

var (
	ErrInsufficientCredits = PaymentRequired(CodeInsufficientCredits, "not enough credits for this generation")
	ErrNsfwNotAllowed      = New(http.StatusForbidden, CodeNsfwNotAllowed, "your plan does not include NSFW generation", nil)
	ErrSelfReferral        = New(http.StatusBadRequest, CodeSelfReferral, "you cannot use your own referral code", nil)
	ErrAccountBanned       = New(http.StatusForbidden, CodeAccountBanned, "this account has been banned", nil)
	ErrAccountLocked       = New(http.StatusForbidden, CodeAccountLocked, "this account is locked", nil)
	ErrRateLimited         = TooManyRequests(CodeRateLimited, "the AI provider is rate limiting requests, try again shortly")
	ErrPaymentProvider     = New(http.StatusBadGateway, CodePaymentProviderError, "payment provider request failed", nil)
)

// Wrap returns a copy of a sentinel with the cause attached.
func Wrap(sentinel *AppError, err error) *AppError {
	return &AppError{Status: sentinel.Status, Code: sentinel.Code, Message: sentinel.Message, Err: err}
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
