package dto

// SignupRequest начало регистрации по email.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name" binding:"required"`
}

// OTPVerifyRequest подтверждение кода из письма.
type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required"`
	OTP   string `json:"otp" binding:"required"`
}

// ResetRequest запрос кода для сброса пароля.
type ResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetConfirmRequest установка нового пароля по коду.
type ResetConfirmRequest struct {
	Email       string `json:"email" binding:"required"`
	OTP         string `json:"otp" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// LoginRequest вход по паролю.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// CreatePaymentOrderRequest бронирование консультации с оплатой.
type CreatePaymentOrderRequest struct {
	ServiceID           string  `json:"serviceId" binding:"required"`
	Name                string  `json:"name" binding:"required"`
	Email               string  `json:"email" binding:"required"`
	Phone               string  `json:"phone"`
	BirthDate           *string `json:"birthDate"`
	BirthTime           *string `json:"birthTime"`
	BirthPlace          *string `json:"birthPlace"`
	Gender              *string `json:"gender"`
	MaritalStatus       *string `json:"maritalStatus"`
	Education           *string `json:"education"`
	Profession          *string `json:"profession"`
	ConsultationPurpose *string `json:"consultationPurpose"`
}

// VerifyPaymentRequest подтверждение оплаты с клиента.
// Поля razorpay_* приходят из checkout-виджета Razorpay как есть.
type VerifyPaymentRequest struct {
	ConsultationID    string `json:"consultationId" binding:"required"`
	OrderID           string `json:"orderId"`
	PaymentID         string `json:"paymentId"`
	Signature         string `json:"signature"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// Normalize сводит поля виджета Razorpay к общим.
func (r *VerifyPaymentRequest) Normalize() {
	if r.OrderID == "" {
		r.OrderID = r.RazorpayOrderID
	}
	if r.PaymentID == "" {
		r.PaymentID = r.RazorpayPaymentID
	}
	if r.Signature == "" {
		r.Signature = r.RazorpaySignature
	}
}

// AdminUpdateConsultationRequest правка консультации администратором.
type AdminUpdateConsultationRequest struct {
	Notes              *string `json:"notes"`
	ConsultationStatus *string `json:"consultation_status"`
	PaymentStatus      *string `json:"payment_status"`
}

// UpdateServiceRequest правка услуги каталога.
type UpdateServiceRequest struct {
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Price           *float64 `json:"price"`
	DurationMinutes *int     `json:"duration_minutes"`
	IsActive        *bool    `json:"is_active"`
}

// KundliRequest параметры расчёта гороскопа.
type KundliRequest struct {
	DateOfBirth  string   `json:"dateOfBirth"`
	TimeOfBirth  string   `json:"timeOfBirth"`
	PlaceOfBirth string   `json:"placeOfBirth"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Timezone     string   `json:"timezone"`
	Ayanamsa     string   `json:"ayanamsa"`
}

// UpdateProfileRequest форма личного кабинета. Отсутствующие поля не меняются.
type UpdateProfileRequest struct {
	Name          *string  `json:"name"`
	DateOfBirth   *string  `json:"dateOfBirth"`
	TimeOfBirth   *string  `json:"timeOfBirth"`
	BirthPlace    *string  `json:"birthPlace"`
	BirthCity     *string  `json:"birthCity"`
	BirthCountry  *string  `json:"birthCountry"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	Gender        *string  `json:"gender"`
	MaritalStatus *string  `json:"maritalStatus"`
	Education     *string  `json:"education"`
	Profession    *string  `json:"profession"`
	Bio           *string  `json:"bio"`
}

// ContactRequest форма обратной связи.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateServiceRequest новая услуга каталога.
type CreateServiceRequest struct {
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Description     string   `json:"description"`
	Price           *float64 `json:"price"`
	Currency        string   `json:"currency"`
	DurationMinutes int      `json:"duration_minutes"`
}
