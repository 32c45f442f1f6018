package models

// Назначение OTP-кода.
const (
	OTPPurposeSignup        = "SIGNUP"
	OTPPurposeResetPassword = "RESET_PASSWORD"
)

// PaymentStatus константы статусов оплаты консультации.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// ConsultationStatus константы статусов самой консультации.
const (
	ConsultationStatusPending   = "PENDING"
	ConsultationStatusCompleted = "COMPLETED"
)

// Роли пользователей.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Платёжные провайдеры.
const (
	ProviderRazorpay = "razorpay"
	ProviderCashfree = "cashfree"
)

// DefaultCurrency единственная валюта заказов.
const DefaultCurrency = "INR"

// ValidOTPPurposes список допустимых назначений OTP.
var ValidOTPPurposes = map[string]struct{}{
	OTPPurposeSignup:        {},
	OTPPurposeResetPassword: {},
}

// ValidConsultationStatuses список валидных статусов консультации.
var ValidConsultationStatuses = map[string]struct{}{
	ConsultationStatusPending:   {},
	ConsultationStatusCompleted: {},
}

// IsTerminalPaymentStatus сообщает, что статус оплаты больше не меняется вебхуками.
func IsTerminalPaymentStatus(status string) bool {
	return status != PaymentStatusPending
}
