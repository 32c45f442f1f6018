package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/notify"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/repository"
	"github.com/astrobyab/consult-backend/internal/validation"
)

const (
	DefaultOTPTTL      = 10 * time.Minute
	DefaultOTPCooldown = 60 * time.Second
)

// OTPRepository описывает хранилище одноразовых кодов.
type OTPRepository interface {
	Latest(ctx context.Context, email, purpose string) (*models.OTPChallenge, error)
	Replace(ctx context.Context, challenge *models.OTPChallenge) error
	FindMatch(ctx context.Context, email, code, purpose string, now time.Time) (*models.OTPChallenge, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Clock возвращает текущее время; в тестах подменяется.
type Clock func() time.Time

// OTPService выпускает, проверяет и гасит одноразовые коды.
type OTPService struct {
	repo     OTPRepository
	notifier notify.Notifier
	now      Clock
	ttl      time.Duration
	cooldown time.Duration
}

// IssueOTPInput параметры выпуска кода. Pending* заполняются только для SIGNUP.
type IssueOTPInput struct {
	Email               string
	Purpose             string
	PendingPasswordHash *string
	PendingName         *string
}

// NewOTPService создаёт сервис. Нулевые ttl и cooldown заменяются значениями по умолчанию.
func NewOTPService(repo OTPRepository, notifier notify.Notifier, ttl, cooldown time.Duration) *OTPService {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	if cooldown <= 0 {
		cooldown = DefaultOTPCooldown
	}
	return &OTPService{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		ttl:      ttl,
		cooldown: cooldown,
	}
}

// SetClock подменяет источник времени.
func (s *OTPService) SetClock(clock Clock) {
	s.now = clock
}

// Issue выпускает новый код для пары (email, purpose) и отправляет его письмом.
// Предыдущие коды пары удаляются. Повтор раньше кулдауна, пока прошлый код жив, даёт RATE_LIMITED.
func (s *OTPService) Issue(ctx context.Context, in IssueOTPInput) (*models.OTPChallenge, error) {
	if _, ok := models.ValidOTPPurposes[in.Purpose]; !ok {
		return nil, apperror.New(apperror.ErrCodeValidation, "unknown OTP purpose")
	}
	if s.notifier == nil {
		return nil, apperror.ErrNotifierMissing
	}
	email := validation.NormalizeEmail(in.Email)
	now := s.now()

	last, err := s.repo.Latest(ctx, email, in.Purpose)
	switch {
	case err == nil:
		// истёкший код не держит кулдаун
		if elapsed := now.Sub(last.CreatedAt); last.IsLive(now) && elapsed < s.cooldown {
			return nil, apperror.RateLimited(retryAfterSeconds(s.cooldown - elapsed))
		}
	case !errors.Is(err, repository.ErrOTPNotFound):
		return nil, fmt.Errorf("otp service: %w", err)
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("otp service: generate code: %w", err)
	}

	challenge := &models.OTPChallenge{
		Email:               email,
		Code:                code,
		Purpose:             in.Purpose,
		PendingPasswordHash: in.PendingPasswordHash,
		PendingName:         in.PendingName,
		ExpiresAt:           now.Add(s.ttl),
		CreatedAt:           now,
	}
	if err := s.repo.Replace(ctx, challenge); err != nil {
		return nil, fmt.Errorf("otp service: %w", err)
	}

	// Код уже сохранён: при сбое доставки он остаётся, повтор возможен после кулдауна.
	if err := s.notifier.Send(ctx, s.message(challenge)); err != nil {
		logger.Entry(logrus.Fields{
			"email":   email,
			"purpose": in.Purpose,
			"error":   err.Error(),
		}).Warn("OTP delivery failed")
		return challenge, apperror.Wrap(err, apperror.ErrCodeDeliveryFailed, "Failed to send OTP email. Please try again shortly.")
	}

	return challenge, nil
}

// Verify ищет действующий код. Любой промах возвращает одну и ту же ошибку.
func (s *OTPService) Verify(ctx context.Context, email, code, purpose string) (*models.OTPChallenge, error) {
	if !validation.IsOTPCode(code) {
		return nil, apperror.ErrInvalidOrExpiredOTP
	}
	challenge, err := s.repo.FindMatch(ctx, validation.NormalizeEmail(email), code, purpose, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return nil, apperror.ErrInvalidOrExpiredOTP
		}
		return nil, fmt.Errorf("otp service: %w", err)
	}
	return challenge, nil
}

// Consume удаляет код после успешного использования.
func (s *OTPService) Consume(ctx context.Context, challenge *models.OTPChallenge) error {
	if err := s.repo.Delete(ctx, challenge.ID); err != nil {
		return fmt.Errorf("otp service: %w", err)
	}
	return nil
}

func (s *OTPService) message(c *models.OTPChallenge) notify.Message {
	subject := "Your AstrobyAB signup OTP"
	if c.Purpose == models.OTPPurposeResetPassword {
		subject = "Your AstrobyAB password reset OTP"
	}
	return notify.Message{
		To:      c.Email,
		Subject: subject,
		Text:    fmt.Sprintf("Your OTP is %s. It expires in %d minutes.", c.Code, int(s.ttl.Minutes())),
		Kind:    "otp." + c.Purpose,
	}
}

// generateOTPCode возвращает равномерно распределённый код 100000..999999.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func retryAfterSeconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
