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

var (
	// ErrServiceNotFound возвращается, когда услуга не найдена.
	ErrServiceNotFound = errors.New("service not found")
	// ErrSlugTaken slug уже занят другой услугой.
	ErrSlugTaken = fmt.Errorf("catalog repository: slug %w", common.ErrAlreadyExists)
)

// CatalogRepository отвечает за каталог услуг.
type CatalogRepository struct {
	db *sqlx.DB
}

func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListServices возвращает услуги каталога.
func (r *CatalogRepository) ListServices(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	var items []models.Service
	query := `
		SELECT * FROM services
		WHERE ($1::boolean = FALSE OR is_active = TRUE)
		ORDER BY price ASC, name ASC
	`
	if err := r.db.SelectContext(ctx, &items, query, activeOnly); err != nil {
		return nil, fmt.Errorf("catalog repository: list services %w", err)
	}
	return items, nil
}

// GetBySlug возвращает услугу по slug.
func (r *CatalogRepository) GetBySlug(ctx context.Context, slug string) (*models.Service, error) {
	return common.GetByField[models.Service](ctx, r.db, "services", "slug", slug, ErrServiceNotFound)
}

// GetByID возвращает услугу по идентификатору.
func (r *CatalogRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	return common.GetByID[models.Service](ctx, r.db, "services", id, ErrServiceNotFound)
}

// UpdateService применяет частичное обновление услуги.
func (r *CatalogRepository) UpdateService(ctx context.Context, id uuid.UUID, upd models.ServiceUpdate) (*models.Service, error) {
	var svc models.Service
	query := `
		UPDATE services
		SET name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4, price),
			duration_minutes = COALESCE($5, duration_minutes),
			is_active = COALESCE($6, is_active),
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	if err := r.db.GetContext(ctx, &svc, query, id, upd.Name, upd.Description, upd.Price, upd.DurationMinutes, upd.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog repository: update service %w", err)
	}
	return &svc, nil
}

// CreateService добавляет услугу в каталог.
func (r *CatalogRepository) CreateService(ctx context.Context, svc *models.Service) error {
	query := `
		INSERT INTO services (slug, name, description, price, currency, duration_minutes, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		svc.Slug, svc.Name, svc.Description, svc.Price, svc.Currency, svc.DurationMinutes, svc.IsActive,
	).Scan(&svc.ID, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
		if common.IsUniqueViolation(err) {
			return ErrSlugTaken
		}
		return fmt.Errorf("catalog repository: create service %w", err)
	}
	return nil
}
