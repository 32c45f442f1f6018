package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/repository"
	"github.com/astrobyab/consult-backend/internal/validation"
)

const (
	catalogCacheTTL        = 5 * time.Minute
	defaultServiceDuration = 30
)

// CatalogRepository хранилище каталога услуг.
type CatalogRepository interface {
	ListServices(ctx context.Context, activeOnly bool) ([]models.Service, error)
	GetBySlug(ctx context.Context, slug string) (*models.Service, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
	UpdateService(ctx context.Context, id uuid.UUID, upd models.ServiceUpdate) (*models.Service, error)
	CreateService(ctx context.Context, svc *models.Service) error
}

// ServiceInput новая услуга каталога. Slug строится из названия, если не задан.
type ServiceInput struct {
	Name            string
	Slug            string
	Description     string
	Price           *float64
	Currency        string
	DurationMinutes int
}

// CatalogService каталог услуг с кэшем чтения.
type CatalogService struct {
	repo  CatalogRepository
	cache *CacheService
}

// NewCatalogService создаёт сервис каталога. cache может быть nil.
func NewCatalogService(repo CatalogRepository, cache *CacheService) *CatalogService {
	return &CatalogService{repo: repo, cache: cache}
}

// List возвращает услуги. Публичный каталог показывает только активные.
func (s *CatalogService) List(ctx context.Context, activeOnly bool) ([]models.Service, error) {
	load := func() (interface{}, error) {
		return s.repo.ListServices(ctx, activeOnly)
	}
	if s.cache == nil {
		items, err := s.repo.ListServices(ctx, activeOnly)
		if err != nil {
			return nil, fmt.Errorf("catalog service: %w", err)
		}
		return items, nil
	}

	value, err := s.cache.GetOrSet(ctx, CatalogListCacheKey(activeOnly), catalogCacheTTL, load)
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	return value.([]models.Service), nil
}

// GetBySlug возвращает активную услугу по slug.
func (s *CatalogService) GetBySlug(ctx context.Context, slug string) (*models.Service, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !validation.IsSlug(slug) {
		return nil, apperror.ErrServiceNotFound
	}

	var (
		svc *models.Service
		err error
	)
	if s.cache != nil {
		var value interface{}
		value, err = s.cache.GetOrSet(ctx, CatalogSlugCacheKey(slug), catalogCacheTTL, func() (interface{}, error) {
			return s.repo.GetBySlug(ctx, slug)
		})
		if err == nil {
			svc = value.(*models.Service)
		}
	} else {
		svc, err = s.repo.GetBySlug(ctx, slug)
	}
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	if !svc.IsActive {
		return nil, apperror.ErrServiceNotFound
	}
	return svc, nil
}

// Update применяет правку администратора. Снимки в консультациях не меняются.
func (s *CatalogService) Update(ctx context.Context, id uuid.UUID, upd models.ServiceUpdate) (*models.Service, error) {
	if upd.Name != nil {
		if err := validation.ValidateLength("name", strings.TrimSpace(*upd.Name), validation.MinNameLength, validation.MaxNameLength); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if upd.Price != nil && *upd.Price <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "price must be positive")
	}
	if upd.DurationMinutes != nil && *upd.DurationMinutes <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "duration_minutes must be positive")
	}

	svc, err := s.repo.UpdateService(ctx, id, upd)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateCatalog()
	}
	logger.Entry(logrus.Fields{"service_id": id, "slug": svc.Slug}).Info("Catalog service updated")
	return svc, nil
}

// Create добавляет услугу. Новая услуга сразу активна.
func (s *CatalogService) Create(ctx context.Context, in ServiceInput) (*models.Service, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price == nil {
		return nil, apperror.ErrInvalidPayload
	}
	if err := validation.ValidateLength("name", name, validation.MinNameLength, validation.MaxNameLength); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if *in.Price <= 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "price must be positive")
	}

	slug := strings.ToLower(strings.TrimSpace(in.Slug))
	if slug == "" {
		slug = validation.Slugify(name)
	}
	if !validation.IsSlug(slug) {
		return nil, apperror.New(apperror.ErrCodeValidation, "slug may contain only lowercase letters, digits and dashes")
	}

	svc := &models.Service{
		Slug:            slug,
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		Price:           *in.Price,
		Currency:        strings.ToUpper(strings.TrimSpace(in.Currency)),
		DurationMinutes: in.DurationMinutes,
		IsActive:        true,
	}
	if svc.Currency == "" {
		svc.Currency = "INR"
	}
	if svc.DurationMinutes <= 0 {
		svc.DurationMinutes = defaultServiceDuration
	}

	if err := s.repo.CreateService(ctx, svc); err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			return nil, apperror.New(apperror.ErrCodeConflict, "A service with this slug already exists.")
		}
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	if s.cache != nil {
		s.cache.InvalidateCatalog()
	}
	logger.Entry(logrus.Fields{"service_id": svc.ID, "slug": svc.Slug}).Info("Catalog service created")
	return svc, nil
}
