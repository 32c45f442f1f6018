package models

import (
	"time"

	"github.com/google/uuid"
)

// Consultation бронирование платной консультации.
// ServiceName и Price копируются из каталога при создании и дальше не меняются.
type Consultation struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	UserID              *uuid.UUID `db:"user_id" json:"user_id,omitempty"`
	Email               string     `db:"email" json:"email"`
	Name                string     `db:"name" json:"name"`
	Phone               string     `db:"phone" json:"phone"`
	ServiceName         string     `db:"service_name" json:"service_name"`
	Price               float64    `db:"price" json:"price"`
	PaymentProvider     *string    `db:"payment_provider" json:"payment_provider,omitempty"`
	PaymentOrderID      *string    `db:"payment_order_id" json:"payment_order_id,omitempty"`
	PaymentID           *string    `db:"payment_id" json:"payment_id,omitempty"`
	PaymentStatus       string     `db:"payment_status" json:"payment_status"`
	ConsultationStatus  string     `db:"consultation_status" json:"consultation_status"`
	BirthDate           *string    `db:"birth_date" json:"birth_date,omitempty"`
	BirthTime           *string    `db:"birth_time" json:"birth_time,omitempty"`
	BirthPlace          *string    `db:"birth_place" json:"birth_place,omitempty"`
	Gender              *string    `db:"gender" json:"gender,omitempty"`
	MaritalStatus       *string    `db:"marital_status" json:"marital_status,omitempty"`
	Education           *string    `db:"education" json:"education,omitempty"`
	Profession          *string    `db:"profession" json:"profession,omitempty"`
	ConsultationPurpose *string    `db:"consultation_purpose" json:"consultation_purpose,omitempty"`
	Notes               *string    `db:"notes" json:"notes,omitempty"`
	ReportURL           *string    `db:"report_url" json:"report_url,omitempty"`
	ReportFileName      *string    `db:"report_file_name" json:"report_file_name,omitempty"`
	ReportUploadedAt    *time.Time `db:"report_uploaded_at" json:"report_uploaded_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// BirthDetails анкета клиента, которую астролог видит перед консультацией.
type BirthDetails struct {
	BirthDate           *string `json:"birth_date,omitempty"`
	BirthTime           *string `json:"birth_time,omitempty"`
	BirthPlace          *string `json:"birth_place,omitempty"`
	Gender              *string `json:"gender,omitempty"`
	MaritalStatus       *string `json:"marital_status,omitempty"`
	Education           *string `json:"education,omitempty"`
	Profession          *string `json:"profession,omitempty"`
	ConsultationPurpose *string `json:"consultation_purpose,omitempty"`
}

// ConsultationRef минимальная ссылка на консультацию, затронутую вебхуком.
type ConsultationRef struct {
	ID     uuid.UUID  `db:"id"`
	UserID *uuid.UUID `db:"user_id"`
}

// ConsultationFilter параметры выборки для админки.
type ConsultationFilter struct {
	PaymentStatus string
	Limit         int
	Offset        int
}

// IsOwnedBy проверяет принадлежность консультации пользователю (по id или email).
func (c *Consultation) IsOwnedBy(user *User) bool {
	if user == nil {
		return false
	}
	if c.UserID != nil && *c.UserID == user.ID {
		return true
	}
	return c.Email == user.Email
}
