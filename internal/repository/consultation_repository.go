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

// ErrConsultationNotFound возвращается, когда консультация не найдена.
var ErrConsultationNotFound = errors.New("consultation not found")

// ConsultationRepository отвечает за таблицу consultations.
type ConsultationRepository struct {
	db *sqlx.DB
}

// NewConsultationRepository создаёт экземпляр репозитория.
func NewConsultationRepository(db *sqlx.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

// Create сохраняет новую консультацию в статусе pending.
func (r *ConsultationRepository) Create(ctx context.Context, c *models.Consultation) error {
	c.PaymentStatus = models.PaymentStatusPending
	if c.ConsultationStatus == "" {
		c.ConsultationStatus = models.ConsultationStatusPending
	}

	query := `
		INSERT INTO consultations (
			user_id, email, name, phone, service_name, price,
			payment_status, consultation_status,
			birth_date, birth_time, birth_place, gender, marital_status,
			education, profession, consultation_purpose
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`
	if err := r.db.QueryRowxContext(ctx, query,
		c.UserID, c.Email, c.Name, c.Phone, c.ServiceName, c.Price,
		c.PaymentStatus, c.ConsultationStatus,
		c.BirthDate, c.BirthTime, c.BirthPlace, c.Gender, c.MaritalStatus,
		c.Education, c.Profession, c.ConsultationPurpose,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("consultation repository: create %w", err)
	}
	return nil
}

// GetByID возвращает консультацию по идентификатору.
func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	return common.GetByID[models.Consultation](ctx, r.db, "consultations", id, ErrConsultationNotFound)
}

// SetProviderOrder запоминает провайдера и его идентификатор заказа.
func (r *ConsultationRepository) SetProviderOrder(ctx context.Context, id uuid.UUID, provider, orderID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE consultations
		SET payment_provider = $2, payment_order_id = $3, updated_at = NOW()
		WHERE id = $1
	`, id, provider, orderID)
	if err != nil {
		return fmt.Errorf("consultation repository: set provider order %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConsultationNotFound
	}
	return nil
}

// TransitionPayment переводит консультацию из pending в терминальный статус.
// Возвращает false, если статус уже не pending и строка не изменилась.
func (r *ConsultationRepository) TransitionPayment(ctx context.Context, id uuid.UUID, status string, paymentID *string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE consultations
		SET payment_status = $2, payment_id = COALESCE($3, payment_id), updated_at = NOW()
		WHERE id = $1 AND payment_status = 'pending'
	`, id, status, paymentID)
	if err != nil {
		return false, fmt.Errorf("consultation repository: transition payment %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consultation repository: transition payment rows %w", err)
	}
	return n > 0, nil
}

// TransitionByProviderOrder обновляет все pending-консультации с данным заказом провайдера.
func (r *ConsultationRepository) TransitionByProviderOrder(ctx context.Context, provider, orderID, status string, paymentID *string) ([]models.ConsultationRef, error) {
	var refs []models.ConsultationRef
	query := `
		UPDATE consultations
		SET payment_status = $3, payment_id = COALESCE($4, payment_id), updated_at = NOW()
		WHERE payment_provider = $1 AND payment_order_id = $2 AND payment_status = 'pending'
		RETURNING id, user_id
	`
	if err := r.db.SelectContext(ctx, &refs, query, provider, orderID, status, paymentID); err != nil {
		return nil, fmt.Errorf("consultation repository: transition by order %w", err)
	}
	return refs, nil
}

// ListByOwner возвращает консультации пользователя: по user_id или по email гостевой брони.
func (r *ConsultationRepository) ListByOwner(ctx context.Context, userID uuid.UUID, email string) ([]models.Consultation, error) {
	var items []models.Consultation
	query := `
		SELECT * FROM consultations
		WHERE user_id = $1 OR email = $2
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &items, query, userID, email); err != nil {
		return nil, fmt.Errorf("consultation repository: list by owner %w", err)
	}
	return items, nil
}

// List возвращает консультации для админки с фильтром по статусу оплаты.
func (r *ConsultationRepository) List(ctx context.Context, filter models.ConsultationFilter) ([]models.Consultation, error) {
	var items []models.Consultation
	query := `
		SELECT * FROM consultations
		WHERE ($1::text = '' OR payment_status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	if err := r.db.SelectContext(ctx, &items, query, filter.PaymentStatus, filter.Limit, filter.Offset); err != nil {
		return nil, fmt.Errorf("consultation repository: list %w", err)
	}
	return items, nil
}

// UpdateAdminFields меняет заметки и статус консультации, не трогая оплату.
func (r *ConsultationRepository) UpdateAdminFields(ctx context.Context, id uuid.UUID, notes, consultationStatus *string) (*models.Consultation, error) {
	var c models.Consultation
	query := `
		UPDATE consultations
		SET notes = COALESCE($2, notes),
			consultation_status = COALESCE($3, consultation_status),
			updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	if err := r.db.GetContext(ctx, &c, query, id, notes, consultationStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConsultationNotFound
		}
		return nil, fmt.Errorf("consultation repository: update admin fields %w", err)
	}
	return &c, nil
}

// MarkRefunded переводит оплаченную консультацию в refunded.
func (r *ConsultationRepository) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE consultations
		SET payment_status = 'refunded', updated_at = NOW()
		WHERE id = $1 AND payment_status = 'completed'
	`, id)
	if err != nil {
		return false, fmt.Errorf("consultation repository: mark refunded %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// AttachReport сохраняет ссылку на загруженный PDF-отчёт.
func (r *ConsultationRepository) AttachReport(ctx context.Context, id uuid.UUID, reportURL, fileName string, uploadedAt time.Time) (*models.Consultation, error) {
	var c models.Consultation
	query := `
		UPDATE consultations
		SET report_url = $2, report_file_name = $3, report_uploaded_at = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	if err := r.db.GetContext(ctx, &c, query, id, reportURL, fileName, uploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConsultationNotFound
		}
		return nil, fmt.Errorf("consultation repository: attach report %w", err)
	}
	return &c, nil
}

// DashboardStats считает сводку для админки одним запросом. Выручка только по completed.
func (r *ConsultationRepository) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE role = $1) AS total_users,
			COUNT(*) AS total_consultations,
			COALESCE(SUM(price) FILTER (WHERE payment_status = $2), 0)::float8 AS total_revenue,
			COUNT(*) FILTER (WHERE payment_status = $3) AS pending_consultations,
			COUNT(*) FILTER (WHERE payment_status = $2) AS completed_consultations
		FROM consultations
	`
	if err := r.db.GetContext(ctx, &stats, query,
		models.RoleUser, models.PaymentStatusCompleted, models.PaymentStatusPending,
	); err != nil {
		return nil, fmt.Errorf("consultation repository: dashboard stats %w", err)
	}
	return &stats, nil
}
