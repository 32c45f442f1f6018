package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"

	"github.com/astrobyab/consult-backend/internal/kundli"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/repository"
)

// KundliRepository хранилище рассчитанных гороскопов.
type KundliRepository interface {
	GetByCacheKey(ctx context.Context, cacheKey string) (*models.KundliCalculation, error)
	Create(ctx context.Context, calc *models.KundliCalculation) error
	Latest(ctx context.Context, userID uuid.UUID, cacheKey string) (*models.KundliCalculation, error)
}

// KundliGenerator источник расчёта (внешний сервис с локальным запасным вариантом).
type KundliGenerator interface {
	Generate(ctx context.Context, in kundli.Input, ayanamsa string) (*kundli.Result, error)
}

// KundliService расчёт гороскопа с кэшем по входным данным.
type KundliService struct {
	repo      KundliRepository
	generator KundliGenerator
	now       Clock
}

// KundliRequest входные данные расчёта. Пустой часовой пояс означает UTC.
type KundliRequest struct {
	kundli.Input
	Ayanamsa string
}

// KundliResponse ответ API: результат хранится и отдаётся как JSON.
type KundliResponse struct {
	Result   json.RawMessage `json:"result"`
	CacheKey string          `json:"cacheKey,omitempty"`
	Cached   bool            `json:"cached"`
}

// NewKundliService создаёт сервис гороскопов.
func NewKundliService(repo KundliRepository, generator KundliGenerator) *KundliService {
	return &KundliService{repo: repo, generator: generator, now: time.Now}
}

// Calculate возвращает сохранённый расчёт с тем же ключом или считает новый.
func (s *KundliService) Calculate(ctx context.Context, userID uuid.UUID, req KundliRequest) (*KundliResponse, error) {
	in := req.Input
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.TimeOfBirth = strings.TrimSpace(in.TimeOfBirth)
	in.PlaceOfBirth = strings.TrimSpace(in.PlaceOfBirth)
	if in.DateOfBirth == "" || in.TimeOfBirth == "" || in.PlaceOfBirth == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "Missing required fields.")
	}
	if err := kundli.Validate(in); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "Invalid date or time of birth.")
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	ayanamsa := strings.TrimSpace(req.Ayanamsa)
	if ayanamsa == "" {
		ayanamsa = kundli.DefaultAyanamsa
	}

	cacheKey := kundli.CacheKey(in, ayanamsa)
	cached, err := s.repo.GetByCacheKey(ctx, cacheKey)
	switch {
	case err == nil:
		return &KundliResponse{Result: json.RawMessage(cached.Result), CacheKey: cacheKey, Cached: true}, nil
	case !errors.Is(err, repository.ErrKundliNotFound):
		return nil, fmt.Errorf("kundli service: %w", err)
	}

	result, err := s.generator.Generate(ctx, in, ayanamsa)
	if err != nil {
		return nil, fmt.Errorf("kundli service: %w", err)
	}

	inputJSON, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("kundli service: encode input %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("kundli service: encode result %w", err)
	}

	calc := &models.KundliCalculation{
		UserID:   userID,
		CacheKey: cacheKey,
		Input:    types.JSONText(inputJSON),
		Result:   types.JSONText(resultJSON),
		Engine:   result.Metadata.Engine,
		Ayanamsa: ayanamsa,
	}
	if err := s.repo.Create(ctx, calc); err != nil {
		return nil, fmt.Errorf("kundli service: %w", err)
	}

	return &KundliResponse{Result: resultJSON, CacheKey: cacheKey, Cached: false}, nil
}

// Latest возвращает последний расчёт пользователя или nil, если расчётов нет.
func (s *KundliService) Latest(ctx context.Context, userID uuid.UUID) (*KundliResponse, error) {
	calc, err := s.repo.Latest(ctx, userID, "")
	if err != nil {
		if errors.Is(err, repository.ErrKundliNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("kundli service: %w", err)
	}
	return &KundliResponse{Result: json.RawMessage(calc.Result), CacheKey: calc.CacheKey}, nil
}

// RenderPDF строит PDF по последнему расчёту пользователя (или по указанному ключу).
func (s *KundliService) RenderPDF(ctx context.Context, userID uuid.UUID, cacheKey string) ([]byte, error) {
	calc, err := s.repo.Latest(ctx, userID, strings.TrimSpace(cacheKey))
	if err != nil {
		if errors.Is(err, repository.ErrKundliNotFound) {
			return nil, apperror.ErrKundliNotFound
		}
		return nil, fmt.Errorf("kundli service: %w", err)
	}

	var result kundli.Result
	if err := json.Unmarshal(calc.Result, &result); err != nil {
		return nil, fmt.Errorf("kundli service: decode stored result %w", err)
	}
	return kundli.RenderPDF(&result, s.now())
}
