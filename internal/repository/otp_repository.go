package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/repository/common"
)

// ErrOTPNotFound возвращается, когда подходящий код не найден.
var ErrOTPNotFound = errors.New("otp challenge not found")

const otpColumns = `id, email, code, purpose, pending_password_hash, pending_name, expires_at, created_at`

// OTPRepository отвечает за таблицу otp_challenges.
type OTPRepository struct {
	db *sqlx.DB
}

// NewOTPRepository создаёт экземпляр репозитория.
func NewOTPRepository(db *sqlx.DB) *OTPRepository {
	return &OTPRepository{db: db}
}

// Latest возвращает самый свежий код для пары (email, purpose), в том числе истёкший.
func (r *OTPRepository) Latest(ctx context.Context, email, purpose string) (*models.OTPChallenge, error) {
	var challenge models.OTPChallenge
	query := `
		SELECT ` + otpColumns + `
		FROM otp_challenges
		WHERE email = $1 AND purpose = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &challenge, query, email, purpose); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: latest %w", err)
	}
	return &challenge, nil
}

// Replace удаляет все коды пары и вставляет новый в одной транзакции.
func (r *OTPRepository) Replace(ctx context.Context, challenge *models.OTPChallenge) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM otp_challenges WHERE email = $1 AND purpose = $2`,
			challenge.Email, challenge.Purpose,
		); err != nil {
			return fmt.Errorf("otp repository: delete previous %w", err)
		}

		query := `
			INSERT INTO otp_challenges (email, code, purpose, pending_password_hash, pending_name, expires_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		if err := tx.QueryRowxContext(ctx, query,
			challenge.Email,
			challenge.Code,
			challenge.Purpose,
			challenge.PendingPasswordHash,
			challenge.PendingName,
			challenge.ExpiresAt,
			challenge.CreatedAt,
		).Scan(&challenge.ID); err != nil {
			return fmt.Errorf("otp repository: insert %w", err)
		}
		return nil
	})
}

// FindMatch ищет действующий код, совпадающий по email, коду и назначению.
func (r *OTPRepository) FindMatch(ctx context.Context, email, code, purpose string, now time.Time) (*models.OTPChallenge, error) {
	var challenge models.OTPChallenge
	query := `
		SELECT ` + otpColumns + `
		FROM otp_challenges
		WHERE email = $1 AND code = $2 AND purpose = $3 AND expires_at > $4
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &challenge, query, email, code, purpose, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("otp repository: find match %w", err)
	}
	return &challenge, nil
}

// Delete удаляет использованный код.
func (r *OTPRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otp_challenges WHERE id = $1`, id); err != nil {
		return fmt.Errorf("otp repository: delete %w", err)
	}
	return nil
}
