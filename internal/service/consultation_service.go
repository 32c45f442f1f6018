package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/repository"
	"github.com/astrobyab/consult-backend/internal/storage"
	"github.com/astrobyab/consult-backend/internal/validation"
)

const (
	defaultAdminPageSize = 50
	maxAdminPageSize     = 200
)

// ConsultationRepository операции чтения и админского редактирования консультаций.
type ConsultationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error)
	ListByOwner(ctx context.Context, userID uuid.UUID, email string) ([]models.Consultation, error)
	List(ctx context.Context, filter models.ConsultationFilter) ([]models.Consultation, error)
	UpdateAdminFields(ctx context.Context, id uuid.UUID, notes, consultationStatus *string) (*models.Consultation, error)
	MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)
	AttachReport(ctx context.Context, id uuid.UUID, reportURL, fileName string, uploadedAt time.Time) (*models.Consultation, error)
}

// ReportStore файловое хранилище PDF-отчётов.
type ReportStore interface {
	Save(ctx context.Context, consultationID uuid.UUID, r io.Reader) (int64, error)
	Open(ctx context.Context, consultationID uuid.UUID) (io.ReadCloser, error)
}

// ConsultationService просмотр бронирований и работа администратора с ними.
type ConsultationService struct {
	consultations ConsultationRepository
	users         UserRepository
	reports       ReportStore
	now           Clock
}

// AdminUpdateInput изменяемые администратором поля. Refund переводит completed в refunded.
type AdminUpdateInput struct {
	Notes              *string
	ConsultationStatus *string
	Refund             bool
}

// ReportFile открытый отчёт для отдачи клиенту.
type ReportFile struct {
	Name    string
	Content io.ReadCloser
}

// NewConsultationService создаёт сервис консультаций.
func NewConsultationService(consultations ConsultationRepository, users UserRepository, reports ReportStore) *ConsultationService {
	return &ConsultationService{consultations: consultations, users: users, reports: reports, now: time.Now}
}

// ListOwn возвращает брони пользователя, включая гостевые брони на его email.
func (s *ConsultationService) ListOwn(ctx context.Context, userID uuid.UUID) ([]models.Consultation, error) {
	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.consultations.ListByOwner(ctx, user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("consultation service: %w", err)
	}
	return items, nil
}

// Get возвращает консультацию владельцу или администратору.
func (s *ConsultationService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Consultation, error) {
	user, err := s.currentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() && !c.IsOwnedBy(user) {
		return nil, apperror.ErrForbidden
	}
	return c, nil
}

// AdminList выборка для админки.
func (s *ConsultationService) AdminList(ctx context.Context, filter models.ConsultationFilter) ([]models.Consultation, error) {
	if filter.PaymentStatus != "" {
		switch filter.PaymentStatus {
		case models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusFailed, models.PaymentStatusRefunded:
		default:
			return nil, apperror.New(apperror.ErrCodeValidation, "unknown payment status filter")
		}
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAdminPageSize
	}
	if filter.Limit > maxAdminPageSize {
		filter.Limit = maxAdminPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, err := s.consultations.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("consultation service: %w", err)
	}
	return items, nil
}

// AdminUpdate меняет заметки и статус консультации. Статус оплаты вручную меняется
// только возвратом из completed.
func (s *ConsultationService) AdminUpdate(ctx context.Context, id uuid.UUID, in AdminUpdateInput) (*models.Consultation, error) {
	if in.ConsultationStatus != nil {
		if _, ok := models.ValidConsultationStatuses[*in.ConsultationStatus]; !ok {
			return nil, apperror.New(apperror.ErrCodeValidation, "consultation_status must be PENDING or COMPLETED")
		}
	}
	if err := validation.ValidateOptionalText("notes", in.Notes, validation.MaxNotesLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	if in.Refund {
		refunded, err := s.consultations.MarkRefunded(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("consultation service: %w", err)
		}
		if !refunded {
			return nil, apperror.New(apperror.ErrCodeConflict, "Only completed payments can be refunded")
		}
		logger.Entry(logrus.Fields{"consultation_id": id}).Info("Consultation refunded")
	}

	c, err := s.consultations.UpdateAdminFields(ctx, id, in.Notes, in.ConsultationStatus)
	if err != nil {
		if errors.Is(err, repository.ErrConsultationNotFound) {
			return nil, apperror.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("consultation service: %w", err)
	}
	return c, nil
}

// UploadReport сохраняет PDF-отчёт и записывает ссылку на скачивание.
func (s *ConsultationService) UploadReport(ctx context.Context, id uuid.UUID, fileName string, r io.Reader) (*models.Consultation, error) {
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}

	size, err := s.reports.Save(ctx, id, r)
	switch {
	case errors.Is(err, storage.ErrNotPDF):
		return nil, apperror.New(apperror.ErrCodeValidation, "Only PDF files are supported.")
	case errors.Is(err, storage.ErrTooLarge):
		return nil, apperror.New(apperror.ErrCodeValidation, "PDF exceeds upload size limit.")
	case err != nil:
		return nil, fmt.Errorf("consultation service: %w", err)
	}

	safeName := storage.SanitizeFilename(fileName)
	c, err := s.consultations.AttachReport(ctx, id, ReportURL(id), safeName, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrConsultationNotFound) {
			return nil, apperror.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("consultation service: %w", err)
	}

	logger.Entry(logrus.Fields{
		"consultation_id": id,
		"file_name":       safeName,
		"size":            size,
	}).Info("Consultation report uploaded")
	return c, nil
}

// OpenReport открывает отчёт для владельца или администратора.
func (s *ConsultationService) OpenReport(ctx context.Context, userID, id uuid.UUID) (*ReportFile, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.ReportURL == nil {
		return nil, apperror.ErrReportNotFound
	}

	content, err := s.reports.Open(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrReportMissing) {
			return nil, apperror.ErrReportNotFound
		}
		return nil, fmt.Errorf("consultation service: %w", err)
	}

	name := "consultation-report.pdf"
	if c.ReportFileName != nil && *c.ReportFileName != "" {
		name = *c.ReportFileName
	}
	return &ReportFile{Name: name, Content: content}, nil
}

// ReportURL путь скачивания отчёта консультации.
func ReportURL(id uuid.UUID) string {
	return "/api/consultations/" + id.String() + "/report"
}

func (s *ConsultationService) load(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrConsultationNotFound) {
			return nil, apperror.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("consultation service: %w", err)
	}
	return c, nil
}

func (s *ConsultationService) currentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("consultation service: %w", err)
	}
	return user, nil
}
