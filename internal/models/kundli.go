package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

// KundliCalculation сохранённый результат расчёта гороскопа.
type KundliCalculation struct {
	ID        uuid.UUID      `db:"id" json:"id"`
	UserID    uuid.UUID      `db:"user_id" json:"user_id"`
	CacheKey  string         `db:"cache_key" json:"cache_key"`
	Input     types.JSONText `db:"input" json:"input"`
	Result    types.JSONText `db:"result" json:"result"`
	Engine    string         `db:"engine" json:"engine"`
	Ayanamsa  string         `db:"ayanamsa" json:"ayanamsa"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}
