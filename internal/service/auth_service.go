package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/repository"
	"github.com/astrobyab/consult-backend/internal/validation"
)

// UserRepository описывает зависимости от таблицы пользователей.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// OTPEngine операции OTP, которые нужны сценариям аутентификации.
type OTPEngine interface {
	Issue(ctx context.Context, in IssueOTPInput) (*models.OTPChallenge, error)
	Verify(ctx context.Context, email, code, purpose string) (*models.OTPChallenge, error)
	Consume(ctx context.Context, challenge *models.OTPChallenge) error
}

// AuthService регистрация по OTP, сброс пароля и вход.
type AuthService struct {
	users  UserRepository
	otp    OTPEngine
	tokens *TokenManager
	now    Clock
}

// SignupInput данные регистрации.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// AuthResult пользователь и выданный ему токен.
type AuthResult struct {
	User  *models.User `json:"user"`
	Token *AccessToken `json:"token"`
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(users UserRepository, otp OTPEngine, tokens *TokenManager) *AuthService {
	return &AuthService{users: users, otp: otp, tokens: tokens, now: time.Now}
}

// StartSignup хеширует пароль и отправляет SIGNUP-код; пользователь создаётся только после подтверждения.
func (s *AuthService) StartSignup(ctx context.Context, in SignupInput) error {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateName(in.Name); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	email := validation.NormalizeEmail(in.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: hash password %w", err)
	}
	hashStr := string(hash)
	name := strings.TrimSpace(in.Name)

	_, err = s.otp.Issue(ctx, IssueOTPInput{
		Email:               email,
		Purpose:             models.OTPPurposeSignup,
		PendingPasswordHash: &hashStr,
		PendingName:         &name,
	})
	return err
}

// CompleteSignup проверяет код, создаёт подтверждённого пользователя и гасит код.
func (s *AuthService) CompleteSignup(ctx context.Context, email, code string) (*AuthResult, error) {
	email = validation.NormalizeEmail(email)
	challenge, err := s.otp.Verify(ctx, email, code, models.OTPPurposeSignup)
	if err != nil {
		return nil, err
	}
	if challenge.PendingPasswordHash == nil {
		return nil, apperror.ErrInvalidOrExpiredOTP
	}
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	verifiedAt := s.now()
	user := &models.User{
		Email:           email,
		PasswordHash:    challenge.PendingPasswordHash,
		Role:            models.RoleUser,
		EmailVerifiedAt: &verifiedAt,
	}
	if challenge.PendingName != nil {
		user.Name = *challenge.PendingName
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.ErrEmailTaken
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}

	if err := s.otp.Consume(ctx, challenge); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// RequestPasswordReset отправляет RESET_PASSWORD-код существующему пользователю.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	email = validation.NormalizeEmail(email)
	if _, err := s.lookupUser(ctx, email); err != nil {
		return err
	}

	_, err := s.otp.Issue(ctx, IssueOTPInput{Email: email, Purpose: models.OTPPurposeResetPassword})
	return err
}

// VerifyPasswordReset только проверяет код, не гася его.
func (s *AuthService) VerifyPasswordReset(ctx context.Context, email, code string) error {
	_, err := s.otp.Verify(ctx, email, code, models.OTPPurposeResetPassword)
	return err
}

// ConfirmPasswordReset проверяет код, меняет пароль и гасит код.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	email = validation.NormalizeEmail(email)

	challenge, err := s.otp.Verify(ctx, email, code, models.OTPPurposeResetPassword)
	if err != nil {
		return err
	}
	user, err := s.lookupUser(ctx, email)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: hash password %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}

	return s.otp.Consume(ctx, challenge)
}

// Login проверяет пароль и выдаёт токен. Гостевой аккаунт без пароля войти не может.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, validation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if user.PasswordHash == nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	return s.issue(user)
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return user, nil
}

func (s *AuthService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return apperror.ErrEmailTaken
	case errors.Is(err, repository.ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("auth service: %w", err)
	}
}

func (s *AuthService) lookupUser(ctx context.Context, email string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}
