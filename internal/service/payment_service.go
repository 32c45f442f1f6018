package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/payment"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/repository"
	"github.com/astrobyab/consult-backend/internal/validation"
)

// EventPaymentStatus имя WebSocket-события о смене статуса оплаты.
const EventPaymentStatus = "payment_status"

// PaymentConsultationRepository операции с консультациями, нужные платёжному автомату.
type PaymentConsultationRepository interface {
	Create(ctx context.Context, c *models.Consultation) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error)
	SetProviderOrder(ctx context.Context, id uuid.UUID, provider, orderID string) error
	TransitionPayment(ctx context.Context, id uuid.UUID, status string, paymentID *string) (bool, error)
	TransitionByProviderOrder(ctx context.Context, provider, orderID, status string, paymentID *string) ([]models.ConsultationRef, error)
}

// ServiceLookup поиск услуги каталога по id.
type ServiceLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Service, error)
}

// ProviderRegistry выдаёт платёжного провайдера по имени.
type ProviderRegistry interface {
	Get(name string) (payment.Provider, error)
}

// StatusPublisher доставляет события пользователю (WebSocket hub).
type StatusPublisher interface {
	BroadcastToUser(userID uuid.UUID, event string, data any) error
}

// PaymentService автомат состояний оплаты консультации:
// pending -> completed | failed, только вперёд.
type PaymentService struct {
	consultations PaymentConsultationRepository
	catalog       ServiceLookup
	users         UserRepository
	providers     ProviderRegistry
	publisher     StatusPublisher
	appBaseURL    string
}

// CreateOrderInput данные бронирования.
type CreateOrderInput struct {
	UserID    *uuid.UUID
	ServiceID uuid.UUID
	Name      string
	Email     string
	Phone     string
	Birth     models.BirthDetails
}

// CreateOrderResult заказ провайдера и id созданной консультации.
type CreateOrderResult struct {
	Order          *payment.ProviderOrder `json:"order"`
	ConsultationID uuid.UUID              `json:"consultationId"`
	Provider       string                 `json:"provider"`
}

// VerifyInput подтверждение оплаты с клиента.
type VerifyInput struct {
	ConsultationID uuid.UUID
	OrderID        string
	PaymentID      string
	Signature      string
}

// VerifyResult итоговый статус консультации после проверки.
type VerifyResult struct {
	Success        bool      `json:"success"`
	Status         string    `json:"status"`
	ConsultationID uuid.UUID `json:"consultationId"`
}

// WebhookResult итог обработки вебхука.
type WebhookResult struct {
	Received bool   `json:"received"`
	Event    string `json:"-"`
	Updated  int    `json:"-"`
}

// NewPaymentService создаёт платёжный сервис. publisher может быть nil.
func NewPaymentService(
	consultations PaymentConsultationRepository,
	catalog ServiceLookup,
	users UserRepository,
	providers ProviderRegistry,
	publisher StatusPublisher,
	appBaseURL string,
) *PaymentService {
	return &PaymentService{
		consultations: consultations,
		catalog:       catalog,
		users:         users,
		providers:     providers,
		publisher:     publisher,
		appBaseURL:    strings.TrimRight(appBaseURL, "/"),
	}
}

// CreateOrder создаёт pending-консультацию со снимком услуги и заказ у провайдера.
// При сбое провайдера консультация остаётся pending.
func (s *PaymentService) CreateOrder(ctx context.Context, providerName string, in CreateOrderInput) (*CreateOrderResult, error) {
	provider, err := s.readyProvider(providerName)
	if err != nil {
		return nil, err
	}
	if err := validateBooking(in); err != nil {
		return nil, err
	}

	svc, err := s.catalog.GetByID(ctx, in.ServiceID)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, apperror.ErrServiceNotFound
		}
		return nil, fmt.Errorf("payment service: %w", err)
	}

	email := validation.NormalizeEmail(in.Email)
	user, err := s.resolveUser(ctx, in.UserID, email, strings.TrimSpace(in.Name))
	if err != nil {
		return nil, err
	}

	consultation := &models.Consultation{
		UserID:              &user.ID,
		Email:               email,
		Name:                strings.TrimSpace(in.Name),
		Phone:               strings.TrimSpace(in.Phone),
		ServiceName:         svc.Name,
		Price:               svc.Price,
		BirthDate:           in.Birth.BirthDate,
		BirthTime:           in.Birth.BirthTime,
		BirthPlace:          in.Birth.BirthPlace,
		Gender:              in.Birth.Gender,
		MaritalStatus:       in.Birth.MaritalStatus,
		Education:           in.Birth.Education,
		Profession:          in.Birth.Profession,
		ConsultationPurpose: in.Birth.ConsultationPurpose,
	}
	if err := s.consultations.Create(ctx, consultation); err != nil {
		return nil, fmt.Errorf("payment service: %w", err)
	}

	order, err := provider.CreateOrder(ctx, payment.OrderSpec{
		ConsultationID: consultation.ID.String(),
		Amount:         consultation.Price,
		Currency:       models.DefaultCurrency,
		CustomerID:     user.ID.String(),
		CustomerName:   consultation.Name,
		CustomerEmail:  consultation.Email,
		CustomerPhone:  consultation.Phone,
		ServiceName:    consultation.ServiceName,
		ReturnURL:      s.returnURL(consultation.ID),
	})
	if err != nil {
		logger.Entry(logrus.Fields{
			"provider":        provider.Name(),
			"consultation_id": consultation.ID,
			"error":           err.Error(),
		}).Error("Provider order creation failed")
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeProvider, "Payment provider error. Please try again.")
	}

	if err := s.consultations.SetProviderOrder(ctx, consultation.ID, provider.Name(), order.ID); err != nil {
		return nil, fmt.Errorf("payment service: %w", err)
	}

	return &CreateOrderResult{Order: order, ConsultationID: consultation.ID, Provider: provider.Name()}, nil
}

// Verify сверяет оплату с провайдером и применяет терминальный статус.
// Для провайдеров с клиентской подписью неверная подпись переводит консультацию в failed.
func (s *PaymentService) Verify(ctx context.Context, providerName string, in VerifyInput) (*VerifyResult, error) {
	provider, err := s.readyProvider(providerName)
	if err != nil {
		return nil, err
	}

	consultation, err := s.getConsultation(ctx, in.ConsultationID)
	if err != nil {
		return nil, err
	}
	orderID, err := matchOrder(consultation, provider.Name(), in.OrderID)
	if err != nil {
		return nil, err
	}

	if verifier, ok := provider.(payment.ClientSignatureVerifier); ok {
		if err := verifier.VerifyClientSignature(orderID, in.PaymentID, in.Signature); err != nil {
			logger.Entry(logrus.Fields{
				"provider":        provider.Name(),
				"consultation_id": consultation.ID,
				"order_id":        orderID,
			}).Warn("Client payment signature mismatch")
			if _, err := s.transition(ctx, consultation, payment.StatusFailed, nil); err != nil {
				return nil, err
			}
			return nil, apperror.ErrInvalidSignature
		}
		// подпись чекаута подтверждает оплату сама по себе
		if _, err := s.transition(ctx, consultation, payment.StatusCompleted, optional(in.PaymentID)); err != nil {
			return nil, err
		}
	} else if err := s.syncOrderStatus(ctx, provider, consultation, orderID); err != nil {
		return nil, err
	}

	// Ответ отражает сохранённое состояние, а не только мнение провайдера.
	current, err := s.getConsultation(ctx, consultation.ID)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{
		Success:        current.PaymentStatus == models.PaymentStatusCompleted,
		Status:         current.PaymentStatus,
		ConsultationID: current.ID,
	}, nil
}

// HandleWebhook проверяет подпись до любого разбора и записи, затем применяет событие
// ко всем pending-консультациям с этим заказом. Нераспознанные события подтверждаются без изменений.
func (s *PaymentService) HandleWebhook(ctx context.Context, providerName string, req payment.WebhookRequest) (*WebhookResult, error) {
	provider, err := s.providers.Get(providerName)
	if err != nil {
		return nil, err
	}

	event, err := provider.ParseWebhook(req)
	if err != nil {
		if errors.Is(err, payment.ErrSignatureMismatch) {
			return nil, apperror.ErrInvalidSignature
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeBadRequest, apperror.ErrInvalidPayload.Message)
	}

	result := &WebhookResult{Received: true, Event: event.Type}
	if event.Status == "" || event.OrderID == "" {
		logger.Entry(logrus.Fields{
			"provider": provider.Name(),
			"event":    event.Type,
		}).Debug("Webhook event ignored")
		return result, nil
	}

	refs, err := s.consultations.TransitionByProviderOrder(ctx, provider.Name(), event.OrderID, event.Status, optional(event.PaymentID))
	if err != nil {
		return nil, fmt.Errorf("payment service: %w", err)
	}
	result.Updated = len(refs)

	for _, ref := range refs {
		s.publish(ref.ID, ref.UserID, event.Status)
	}

	logger.Entry(logrus.Fields{
		"provider": provider.Name(),
		"event":    event.Type,
		"order_id": event.OrderID,
		"updated":  len(refs),
	}).Info("Webhook processed")

	return result, nil
}

// syncOrderStatus запрашивает статус заказа и применяет его, если он терминальный.
func (s *PaymentService) syncOrderStatus(ctx context.Context, provider payment.Provider, c *models.Consultation, orderID string) error {
	status, err := provider.GetOrderStatus(ctx, orderID)
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return err
		}
		return apperror.Wrap(err, apperror.ErrCodeProvider, "Payment provider error. Please try again.")
	}
	if status.Status != payment.StatusCompleted && status.Status != payment.StatusFailed {
		return nil
	}
	// идентификатор платежа пишется только для оплаченного заказа
	var paymentID *string
	if status.Status == payment.StatusCompleted {
		paymentID = optional(status.PaymentID)
	}
	_, err = s.transition(ctx, c, status.Status, paymentID)
	return err
}

func (s *PaymentService) transition(ctx context.Context, c *models.Consultation, status string, paymentID *string) (bool, error) {
	changed, err := s.consultations.TransitionPayment(ctx, c.ID, status, paymentID)
	if err != nil {
		return false, fmt.Errorf("payment service: %w", err)
	}
	if changed {
		s.publish(c.ID, c.UserID, status)
	}
	return changed, nil
}

func (s *PaymentService) publish(consultationID uuid.UUID, userID *uuid.UUID, status string) {
	if s.publisher == nil || userID == nil {
		return
	}
	payload := map[string]any{
		"consultation_id": consultationID,
		"payment_status":  status,
	}
	if err := s.publisher.BroadcastToUser(*userID, EventPaymentStatus, payload); err != nil {
		logger.Entry(logrus.Fields{"consultation_id": consultationID, "error": err.Error()}).Warn("Payment status push failed")
	}
}

func (s *PaymentService) readyProvider(name string) (payment.Provider, error) {
	provider, err := s.providers.Get(name)
	if err != nil {
		return nil, err
	}
	if err := provider.Ready(); err != nil {
		return nil, err
	}
	return provider, nil
}

// resolveUser ищет пользователя по id, затем по email, иначе создаёт гостя без пароля.
func (s *PaymentService) resolveUser(ctx context.Context, userID *uuid.UUID, email, name string) (*models.User, error) {
	if userID != nil {
		user, err := s.users.GetByID(ctx, *userID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("payment service: %w", err)
		}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("payment service: %w", err)
	}

	guest := &models.User{Email: email, Name: name, Role: models.RoleUser}
	if err := s.users.Create(ctx, guest); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			// параллельное бронирование успело создать гостя
			return s.users.GetByEmail(ctx, email)
		}
		return nil, fmt.Errorf("payment service: %w", err)
	}
	return guest, nil
}

func (s *PaymentService) getConsultation(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	c, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrConsultationNotFound) {
			return nil, apperror.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("payment service: %w", err)
	}
	return c, nil
}

func (s *PaymentService) returnURL(id uuid.UUID) string {
	if s.appBaseURL == "" {
		return ""
	}
	return s.appBaseURL + "/dashboard/consultations?order_id=" + id.String()
}

// matchOrder возвращает сохранённый id заказа, если клиент прислал тот же (или не прислал).
func matchOrder(c *models.Consultation, provider, orderID string) (string, error) {
	if c.PaymentOrderID == nil || c.PaymentProvider == nil || *c.PaymentProvider != provider {
		return "", apperror.ErrOrderMismatch
	}
	if orderID != "" && orderID != *c.PaymentOrderID {
		return "", apperror.ErrOrderMismatch
	}
	return *c.PaymentOrderID, nil
}

func validateBooking(in CreateOrderInput) error {
	if in.ServiceID == uuid.Nil {
		return apperror.New(apperror.ErrCodeValidation, "serviceId is required")
	}
	checks := []error{
		validation.ValidateName(in.Name),
		validation.ValidateEmail(in.Email),
		validation.ValidatePhone(in.Phone),
		validation.ValidateOptionalText("consultation purpose", in.Birth.ConsultationPurpose, validation.MaxPurposeLength),
	}
	for _, err := range checks {
		if err != nil {
			return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
