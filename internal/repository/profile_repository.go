package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/astrobyab/consult-backend/internal/models"
)

// ErrProfileNotFound анкета пользователя ещё не заполнялась.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository отвечает за таблицу user_profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID возвращает анкету пользователя.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := r.db.GetContext(ctx, &profile, `SELECT * FROM user_profiles WHERE user_id = $1`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("profile repository: get %w", err)
	}
	return &profile, nil
}

// Upsert создаёт анкету или обновляет переданные поля существующей.
func (r *ProfileRepository) Upsert(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.UserProfile, error) {
	var profile models.UserProfile
	query := `
		INSERT INTO user_profiles (
			user_id, date_of_birth, time_of_birth, birth_place, birth_city, birth_country,
			latitude, longitude, gender, marital_status, education, profession, bio
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			date_of_birth = COALESCE(EXCLUDED.date_of_birth, user_profiles.date_of_birth),
			time_of_birth = COALESCE(EXCLUDED.time_of_birth, user_profiles.time_of_birth),
			birth_place = COALESCE(EXCLUDED.birth_place, user_profiles.birth_place),
			birth_city = COALESCE(EXCLUDED.birth_city, user_profiles.birth_city),
			birth_country = COALESCE(EXCLUDED.birth_country, user_profiles.birth_country),
			latitude = COALESCE(EXCLUDED.latitude, user_profiles.latitude),
			longitude = COALESCE(EXCLUDED.longitude, user_profiles.longitude),
			gender = COALESCE(EXCLUDED.gender, user_profiles.gender),
			marital_status = COALESCE(EXCLUDED.marital_status, user_profiles.marital_status),
			education = COALESCE(EXCLUDED.education, user_profiles.education),
			profession = COALESCE(EXCLUDED.profession, user_profiles.profession),
			bio = COALESCE(EXCLUDED.bio, user_profiles.bio),
			updated_at = NOW()
		RETURNING *
	`
	if err := r.db.GetContext(ctx, &profile, query,
		userID, upd.DateOfBirth, upd.TimeOfBirth, upd.BirthPlace, upd.BirthCity, upd.BirthCountry,
		upd.Latitude, upd.Longitude, upd.Gender, upd.MaritalStatus, upd.Education, upd.Profession, upd.Bio,
	); err != nil {
		return nil, fmt.Errorf("profile repository: upsert %w", err)
	}
	return &profile, nil
}
