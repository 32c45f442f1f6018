package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile анкетные и натальные данные пользователя. Запись создаётся при первом сохранении.
type UserProfile struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	UserID        uuid.UUID  `db:"user_id" json:"userId"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"dateOfBirth"`
	TimeOfBirth   *string    `db:"time_of_birth" json:"timeOfBirth"`
	BirthPlace    *string    `db:"birth_place" json:"birthPlace"`
	BirthCity     *string    `db:"birth_city" json:"birthCity"`
	BirthCountry  *string    `db:"birth_country" json:"birthCountry"`
	Latitude      *float64   `db:"latitude" json:"latitude"`
	Longitude     *float64   `db:"longitude" json:"longitude"`
	Gender        *string    `db:"gender" json:"gender"`
	MaritalStatus *string    `db:"marital_status" json:"maritalStatus"`
	Education     *string    `db:"education" json:"education"`
	Profession    *string    `db:"profession" json:"profession"`
	Bio           *string    `db:"bio" json:"bio"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// ProfileUpdate частичное обновление анкеты: nil оставляет сохранённое значение.
type ProfileUpdate struct {
	DateOfBirth   *time.Time
	TimeOfBirth   *string
	BirthPlace    *string
	BirthCity     *string
	BirthCountry  *string
	Latitude      *float64
	Longitude     *float64
	Gender        *string
	MaritalStatus *string
	Education     *string
	Profession    *string
	Bio           *string
}

// UserSummary строка списка пользователей в админке.
type UserSummary struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Name            string     `db:"name" json:"name"`
	Phone           *string    `db:"phone" json:"phone"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"emailVerified"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
}

// DashboardStats сводка для главной страницы админки.
type DashboardStats struct {
	TotalUsers             int     `db:"total_users" json:"totalUsers"`
	TotalConsultations     int     `db:"total_consultations" json:"totalConsultations"`
	TotalRevenue           float64 `db:"total_revenue" json:"totalRevenue"`
	PendingConsultations   int     `db:"pending_consultations" json:"pendingConsultations"`
	CompletedConsultations int     `db:"completed_consultations" json:"completedConsultations"`
}
