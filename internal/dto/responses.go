package dto

// ErrorResponse стандартный ответ с ошибкой.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code,omitempty"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// MessageResponse ответ без данных.
type MessageResponse struct {
	Message string `json:"message"`
}

// OTPSentResponse ответ на выдачу кода.
type OTPSentResponse struct {
	Message   string `json:"message"`
	ExpiresIn int    `json:"expiresIn"`
}

// VerifiedResponse ответ на проверку кода без его погашения.
type VerifiedResponse struct {
	Verified bool `json:"verified"`
}
