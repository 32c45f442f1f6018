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

// ProfileRepository хранилище анкет.
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error)
	Upsert(ctx context.Context, userID uuid.UUID, upd models.ProfileUpdate) (*models.UserProfile, error)
}

// ProfileUsers операции над пользователем, которые нужны анкете.
type ProfileUsers interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string) error
}

// ProfileService личный кабинет: учётная запись и натальные данные.
type ProfileService struct {
	users    ProfileUsers
	profiles ProfileRepository
}

// ProfileView пользователь вместе с анкетой. Profile равен nil, пока анкета не сохранялась.
type ProfileView struct {
	User    *models.User        `json:"user"`
	Profile *models.UserProfile `json:"profile"`
}

// ProfileInput поля формы профиля. Пустые и отсутствующие значения не затирают сохранённые.
type ProfileInput struct {
	Name          *string
	DateOfBirth   *string
	TimeOfBirth   *string
	BirthPlace    *string
	BirthCity     *string
	BirthCountry  *string
	Latitude      *float64
	Longitude     *float64
	Gender        *string
	MaritalStatus *string
	Education     *string
	Profession    *string
	Bio           *string
}

func NewProfileService(users ProfileUsers, profiles ProfileRepository) *ProfileService {
	return &ProfileService{users: users, profiles: profiles}
}

// Get возвращает учётную запись и анкету.
func (s *ProfileService) Get(ctx context.Context, userID uuid.UUID) (*ProfileView, error) {
	user, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("profile service: %w", err)
	}
	return &ProfileView{User: user, Profile: profile}, nil
}

// Update меняет имя (если передано непустое) и сохраняет анкету.
func (s *ProfileService) Update(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.UserProfile, error) {
	upd, err := buildProfileUpdate(in)
	if err != nil {
		return nil, err
	}

	if _, err := s.user(ctx, userID); err != nil {
		return nil, err
	}

	if name := trimmed(in.Name); name != nil {
		if err := validation.ValidateName(*name); err != nil {
			return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
		if err := s.users.UpdateName(ctx, userID, *name); err != nil {
			return nil, fmt.Errorf("profile service: %w", err)
		}
	}

	profile, err := s.profiles.Upsert(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}

	logger.Entry(logrus.Fields{"user_id": userID}).Info("Profile updated")
	return profile, nil
}

func buildProfileUpdate(in ProfileInput) (models.ProfileUpdate, error) {
	upd := models.ProfileUpdate{
		BirthPlace:    trimmed(in.BirthPlace),
		BirthCity:     trimmed(in.BirthCity),
		BirthCountry:  trimmed(in.BirthCountry),
		Gender:        trimmed(in.Gender),
		MaritalStatus: trimmed(in.MaritalStatus),
		Education:     trimmed(in.Education),
		Profession:    trimmed(in.Profession),
		Bio:           trimmed(in.Bio),
		Latitude:      in.Latitude,
		Longitude:     in.Longitude,
	}

	if raw := trimmed(in.DateOfBirth); raw != nil {
		date, err := parseBirthDate(*raw)
		if err != nil {
			return upd, apperror.New(apperror.ErrCodeValidation, "dateOfBirth must be a date (YYYY-MM-DD)")
		}
		upd.DateOfBirth = &date
	}
	if raw := trimmed(in.TimeOfBirth); raw != nil {
		if !validation.IsClockTime(*raw) {
			return upd, apperror.New(apperror.ErrCodeValidation, "timeOfBirth must be HH:MM")
		}
		upd.TimeOfBirth = raw
	}
	if upd.Latitude != nil && (*upd.Latitude < -90 || *upd.Latitude > 90) {
		return upd, apperror.New(apperror.ErrCodeValidation, "latitude must be between -90 and 90")
	}
	if upd.Longitude != nil && (*upd.Longitude < -180 || *upd.Longitude > 180) {
		return upd, apperror.New(apperror.ErrCodeValidation, "longitude must be between -180 and 180")
	}

	short := map[string]*string{
		"birthPlace":    upd.BirthPlace,
		"birthCity":     upd.BirthCity,
		"birthCountry":  upd.BirthCountry,
		"gender":        upd.Gender,
		"maritalStatus": upd.MaritalStatus,
		"education":     upd.Education,
		"profession":    upd.Profession,
	}
	for field, value := range short {
		if err := validation.ValidateOptionalText(field, value, validation.MaxShortText); err != nil {
			return upd, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	if err := validation.ValidateOptionalText("bio", upd.Bio, validation.MaxPurposeLength); err != nil {
		return upd, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	return upd, nil
}

func parseBirthDate(raw string) (time.Time, error) {
	if date, err := time.Parse("2006-01-02", raw); err == nil {
		return date, nil
	}
	date, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), nil
}

// trimmed возвращает nil для отсутствующей или пустой строки.
func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func (s *ProfileService) user(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("profile service: %w", err)
	}
	return user, nil
}
