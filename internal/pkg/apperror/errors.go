package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden        ErrorCode = "FORBIDDEN"
	ErrCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrCodeConflict         ErrorCode = "CONFLICT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeRateLimited      ErrorCode = "RATE_LIMITED"
	ErrCodeInvalidOrExpired ErrorCode = "INVALID_OR_EXPIRED"
	ErrCodeProvider         ErrorCode = "PROVIDER_ERROR"
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	ErrCodeConfiguration    ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeDeliveryFailed   ErrorCode = "DELIVERY_FAILED"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	// RetryAfter заполняется только для RATE_LIMITED, в секундах.
	RetryAfter int
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, чтобы errors.Is работал с заготовленными значениями.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// RateLimited создаёт ошибку кулдауна с оставшимся временем ожидания.
func RateLimited(retryAfter int) *AppError {
	return &AppError{
		Code:       ErrCodeRateLimited,
		Message:    fmt.Sprintf("Please wait %ds before requesting a new OTP.", retryAfter),
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeBadRequest, ErrCodeValidation, ErrCodeInvalidOrExpired, ErrCodeInvalidSignature:
		return http.StatusBadRequest
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ErrCodeProvider, ErrCodeDeliveryFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// As извлекает AppError из цепочки.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func HasCode(err error, code ErrorCode) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

func IsValidation(err error) bool {
	return HasCode(err, ErrCodeValidation)
}

var (
	ErrInvalidOrExpiredOTP  = New(ErrCodeInvalidOrExpired, "Invalid or expired OTP.")
	ErrServiceNotFound      = New(ErrCodeNotFound, "Service not found")
	ErrConsultationNotFound = New(ErrCodeNotFound, "Consultation not found")
	ErrUserNotFound         = New(ErrCodeNotFound, "No account found for this email.")
	ErrProviderNotFound     = New(ErrCodeNotFound, "Unknown payment provider")
	ErrKundliNotFound       = New(ErrCodeNotFound, "No kundli data found.")
	ErrReportNotFound       = New(ErrCodeNotFound, "Report not found")
	ErrEmailTaken           = New(ErrCodeConflict, "Email already registered. Please sign in.")
	ErrOrderMismatch        = New(ErrCodeBadRequest, "Order does not belong to this consultation")
	ErrInvalidSignature     = New(ErrCodeInvalidSignature, "Invalid signature")
	ErrInvalidPayload       = New(ErrCodeBadRequest, "Invalid payload")
	ErrUnauthorized         = New(ErrCodeUnauthorized, "Unauthorized")
	ErrForbidden            = New(ErrCodeForbidden, "Forbidden")
	ErrInvalidCredentials   = New(ErrCodeUnauthorized, "Invalid email or password")
	ErrNotifierMissing      = New(ErrCodeConfiguration, "Notification channel is not configured")
)
