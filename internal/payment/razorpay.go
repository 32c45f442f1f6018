package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/astrobyab/consult-backend/internal/models"
)

// RazorpayConfig ключи и адрес API Razorpay.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
}

// Razorpay клиент Orders API. Суммы передаются в пайсах.
type Razorpay struct {
	cfg    RazorpayConfig
	client *http.Client
}

// NewRazorpay создаёт клиента. httpClient может быть nil.
func NewRazorpay(cfg RazorpayConfig, httpClient *http.Client) *Razorpay {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.razorpay.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Razorpay{cfg: cfg, client: httpClient}
}

func (r *Razorpay) Name() string { return models.ProviderRazorpay }

// Ready проверяет наличие ключей.
func (r *Razorpay) Ready() error {
	if r.cfg.KeyID == "" || r.cfg.KeySecret == "" {
		return errNotConfigured("Razorpay")
	}
	return nil
}

type razorpayOrder struct {
	ID         string `json:"id"`
	Amount     int64  `json:"amount"`
	AmountPaid int64  `json:"amount_paid"`
	Currency   string `json:"currency"`
	Receipt    string `json:"receipt"`
	Status     string `json:"status"`
}

// CreateOrder создаёт заказ: amount = round(price*100), receipt = id консультации.
func (r *Razorpay) CreateOrder(ctx context.Context, spec OrderSpec) (*ProviderOrder, error) {
	currency := spec.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	body := map[string]any{
		"amount":   ToPaise(spec.Amount),
		"currency": currency,
		"receipt":  spec.ConsultationID,
		"notes": map[string]string{
			"consultationId": spec.ConsultationID,
			"serviceName":    spec.ServiceName,
			"userId":         spec.CustomerID,
		},
	}

	var raw map[string]any
	if err := r.do(ctx, http.MethodPost, "/v1/orders", body, &raw); err != nil {
		return nil, err
	}

	var order razorpayOrder
	if err := remarshal(raw, &order); err != nil || order.ID == "" {
		return nil, errProvider(r.Name(), fmt.Errorf("unexpected order response"))
	}

	return &ProviderOrder{
		ID:          order.ID,
		Amount:      float64(order.Amount) / 100,
		Currency:    order.Currency,
		CheckoutKey: r.cfg.KeyID,
		Raw:         raw,
	}, nil
}

// GetOrderStatus: paid -> completed, остальные статусы заказа (created, attempted) -> pending.
func (r *Razorpay) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var order razorpayOrder
	if err := r.do(ctx, http.MethodGet, "/v1/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}

	status := StatusPending
	if order.Status == "paid" {
		status = StatusCompleted
	}
	return &OrderStatus{OrderID: order.ID, Status: status, Raw: order.Status}, nil
}

// VerifyClientSignature проверяет hex(HMAC-SHA256(keySecret, order_id|payment_id)).
func (r *Razorpay) VerifyClientSignature(orderID, paymentID, signature string) error {
	if !verifyHex(r.cfg.KeySecret, signature, []byte(orderID+"|"+paymentID)) {
		return ErrSignatureMismatch
	}
	return nil
}

type razorpayWebhook struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook проверяет X-Razorpay-Signature по сырому телу и только потом разбирает JSON.
func (r *Razorpay) ParseWebhook(req WebhookRequest) (*WebhookEvent, error) {
	if !verifyHex(r.cfg.WebhookSecret, req.Signature, req.Body) {
		return nil, ErrSignatureMismatch
	}

	var payload razorpayWebhook
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, fmt.Errorf("razorpay: decode webhook: %w", err)
	}

	event := &WebhookEvent{
		Type:      payload.Event,
		OrderID:   payload.Payload.Payment.Entity.OrderID,
		PaymentID: payload.Payload.Payment.Entity.ID,
	}
	switch payload.Event {
	case "payment.captured", "payment.authorized":
		event.Status = StatusCompleted
	case "payment.failed":
		event.Status = StatusFailed
	}
	return event, nil
}

func (r *Razorpay) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("razorpay: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("razorpay: build request: %w", err)
	}
	req.SetBasicAuth(r.cfg.KeyID, r.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return errProvider(r.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errProvider(r.Name(), err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return errProvider(r.Name(), fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errProvider(r.Name(), fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// ToPaise переводит рупии в целые пайсы с округлением.
func ToPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func remarshal(in any, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func truncate(b []byte) string {
	const limit = 300
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
