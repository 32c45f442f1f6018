package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/repository/common"
)

// ErrKundliNotFound возвращается, когда сохранённого расчёта нет.
var ErrKundliNotFound = errors.New("kundli calculation not found")

// KundliRepository отвечает за таблицу kundli_calculations.
type KundliRepository struct {
	db *sqlx.DB
}

func NewKundliRepository(db *sqlx.DB) *KundliRepository {
	return &KundliRepository{db: db}
}

// GetByCacheKey возвращает расчёт по ключу кэша.
func (r *KundliRepository) GetByCacheKey(ctx context.Context, cacheKey string) (*models.KundliCalculation, error) {
	return common.GetByField[models.KundliCalculation](ctx, r.db, "kundli_calculations", "cache_key", cacheKey, ErrKundliNotFound)
}

// Create сохраняет расчёт. Повтор ключа обновляет владельца и время.
func (r *KundliRepository) Create(ctx context.Context, calc *models.KundliCalculation) error {
	query := `
		INSERT INTO kundli_calculations (user_id, cache_key, input, result, engine, ayanamsa)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cache_key) DO UPDATE SET user_id = EXCLUDED.user_id, updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		calc.UserID, calc.CacheKey, calc.Input, calc.Result, calc.Engine, calc.Ayanamsa,
	).Scan(&calc.ID, &calc.CreatedAt, &calc.UpdatedAt); err != nil {
		return fmt.Errorf("kundli repository: create %w", err)
	}
	return nil
}

// Latest возвращает последний расчёт пользователя; cacheKey сужает выборку, если задан.
func (r *KundliRepository) Latest(ctx context.Context, userID uuid.UUID, cacheKey string) (*models.KundliCalculation, error) {
	var calc models.KundliCalculation
	query := `
		SELECT * FROM kundli_calculations
		WHERE user_id = $1 AND ($2::text = '' OR cache_key = $2)
		ORDER BY updated_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &calc, query, userID, cacheKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKundliNotFound
		}
		return nil, fmt.Errorf("kundli repository: latest %w", err)
	}
	return &calc, nil
}
