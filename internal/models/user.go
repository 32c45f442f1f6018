package models

import (
	"time"

	"github.com/google/uuid"
)

// User описывает пользователя: зарегистрированного или гостя, созданного при оплате.
type User struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	Email           string     `db:"email" json:"email"`
	Name            string     `db:"name" json:"name"`
	Phone           *string    `db:"phone" json:"phone,omitempty"`
	PasswordHash    *string    `db:"password_hash" json:"-"`
	Role            string     `db:"role" json:"role"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsAdmin проверяет роль администратора.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
