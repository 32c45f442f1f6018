package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
)

// Нормализованные статусы оплаты на границе провайдера.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrSignatureMismatch подпись вебхука или клиента не совпала (или отсутствует).
var ErrSignatureMismatch = errors.New("payment: signature mismatch")

// OrderSpec данные для создания заказа у провайдера.
type OrderSpec struct {
	ConsultationID string
	Amount         float64
	Currency       string
	CustomerID     string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	ServiceName    string
	ReturnURL      string
}

// ProviderOrder ответ провайдера на создание заказа.
// Raw возвращается клиенту как есть: в нём то, что нужно чекауту.
type ProviderOrder struct {
	ID             string         `json:"id"`
	Amount         float64        `json:"amount"`
	Currency       string         `json:"currency"`
	PaymentSession string         `json:"payment_session_id,omitempty"`
	CheckoutKey    string         `json:"key_id,omitempty"`
	Raw            map[string]any `json:"raw,omitempty"`
}

// OrderStatus текущее состояние заказа у провайдера.
type OrderStatus struct {
	OrderID   string
	Status    string
	PaymentID string
	Raw       string
}

// WebhookRequest сырой вебхук: тело проверяется по подписи до разбора JSON.
type WebhookRequest struct {
	Body      []byte
	Signature string
	Timestamp string
}

// WebhookEvent разобранное событие. Status пустой для нераспознанных событий.
type WebhookEvent struct {
	Type      string
	OrderID   string
	PaymentID string
	Status    string
}

// Provider платёжный шлюз.
type Provider interface {
	Name() string
	Ready() error
	CreateOrder(ctx context.Context, spec OrderSpec) (*ProviderOrder, error)
	GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error)
	ParseWebhook(req WebhookRequest) (*WebhookEvent, error)
}

// ClientSignatureVerifier реализуют провайдеры, которые подписывают результат чекаута на клиенте.
type ClientSignatureVerifier interface {
	VerifyClientSignature(orderID, paymentID, signature string) error
}

// Registry набор провайдеров по имени.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry создаёт реестр из переданных провайдеров.
func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		reg.providers[p.Name()] = p
	}
	return reg
}

// Get возвращает провайдера по имени без учёта регистра.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, apperror.ErrProviderNotFound
	}
	return p, nil
}

func errNotConfigured(provider string) error {
	return apperror.New(apperror.ErrCodeConfiguration, provider+" is not configured")
}

func errProvider(provider string, cause error) error {
	return apperror.Wrap(fmt.Errorf("%s: %w", provider, cause), apperror.ErrCodeProvider, "Payment provider error. Please try again.")
}
