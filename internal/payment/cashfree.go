package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/astrobyab/consult-backend/internal/models"
)

// CashfreeConfig ключи Cashfree PG.
type CashfreeConfig struct {
	AppID      string
	SecretKey  string
	APIVersion string
	BaseURL    string
}

// Cashfree клиент Cashfree PG. Суммы передаются в рупиях с двумя знаками.
type Cashfree struct {
	cfg    CashfreeConfig
	client *http.Client
}

func NewCashfree(cfg CashfreeConfig, httpClient *http.Client) *Cashfree {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2025-01-01"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cashfree.com/pg"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Cashfree{cfg: cfg, client: httpClient}
}

func (c *Cashfree) Name() string { return models.ProviderCashfree }

func (c *Cashfree) Ready() error {
	if c.cfg.AppID == "" || c.cfg.SecretKey == "" {
		return errNotConfigured("Cashfree")
	}
	return nil
}

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderRequest struct {
	OrderID         string           `json:"order_id"`
	OrderAmount     float64          `json:"order_amount"`
	OrderCurrency   string           `json:"order_currency"`
	CustomerDetails cashfreeCustomer `json:"customer_details"`
	OrderNote       string           `json:"order_note,omitempty"`
	OrderMeta       *cashfreeMeta    `json:"order_meta,omitempty"`
}

type cashfreeMeta struct {
	ReturnURL string `json:"return_url"`
}

type cashfreeOrder struct {
	OrderID          string     `json:"order_id"`
	CfOrderID        flexString `json:"cf_order_id"`
	OrderAmount      float64    `json:"order_amount"`
	OrderCurrency    string     `json:"order_currency"`
	OrderStatus      string     `json:"order_status"`
	PaymentSessionID string     `json:"payment_session_id"`
}

// CreateOrder создаёт заказ; order_id у Cashfree совпадает с id консультации.
func (c *Cashfree) CreateOrder(ctx context.Context, spec OrderSpec) (*ProviderOrder, error) {
	currency := spec.Currency
	if currency == "" {
		currency = models.DefaultCurrency
	}
	body := cashfreeOrderRequest{
		OrderID:       spec.ConsultationID,
		OrderAmount:   math.Round(spec.Amount*100) / 100,
		OrderCurrency: currency,
		CustomerDetails: cashfreeCustomer{
			CustomerID:    spec.CustomerID,
			CustomerName:  spec.CustomerName,
			CustomerEmail: spec.CustomerEmail,
			CustomerPhone: spec.CustomerPhone,
		},
		OrderNote: strings.TrimSpace(spec.ServiceName + " consultation"),
	}
	if spec.ReturnURL != "" {
		body.OrderMeta = &cashfreeMeta{ReturnURL: spec.ReturnURL}
	}

	var raw map[string]any
	if err := c.do(ctx, http.MethodPost, "/orders", body, &raw); err != nil {
		return nil, err
	}

	var order cashfreeOrder
	if err := remarshal(raw, &order); err != nil {
		return nil, errProvider(c.Name(), fmt.Errorf("unexpected order response: %w", err))
	}
	if order.OrderID == "" {
		order.OrderID = spec.ConsultationID
	}

	return &ProviderOrder{
		ID:             order.OrderID,
		Amount:         order.OrderAmount,
		Currency:       order.OrderCurrency,
		PaymentSession: order.PaymentSessionID,
		Raw:            raw,
	}, nil
}

// GetOrderStatus: PAID -> completed; FAILED, CANCELLED, EXPIRED, TERMINATED -> failed; прочее -> pending.
func (c *Cashfree) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatus, error) {
	var order cashfreeOrder
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, &order); err != nil {
		return nil, err
	}

	return &OrderStatus{
		OrderID:   order.OrderID,
		Status:    cashfreeStatus(order.OrderStatus),
		PaymentID: string(order.CfOrderID),
		Raw:       order.OrderStatus,
	}, nil
}

func cashfreeStatus(orderStatus string) string {
	switch strings.ToUpper(orderStatus) {
	case "PAID":
		return StatusCompleted
	case "FAILED", "CANCELLED", "EXPIRED", "TERMINATED":
		return StatusFailed
	default:
		return StatusPending
	}
}

type cashfreeWebhook struct {
	Type string `json:"type"`
	Data struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CfPaymentID   flexString `json:"cf_payment_id"`
			PaymentStatus string     `json:"payment_status"`
		} `json:"payment"`
	} `json:"data"`
}

// ParseWebhook проверяет base64(HMAC-SHA256(secret, timestamp+body)) и только потом разбирает JSON.
func (c *Cashfree) ParseWebhook(req WebhookRequest) (*WebhookEvent, error) {
	if req.Timestamp == "" || !verifyBase64(c.cfg.SecretKey, req.Signature, []byte(req.Timestamp), req.Body) {
		return nil, ErrSignatureMismatch
	}

	var payload cashfreeWebhook
	if err := json.Unmarshal(req.Body, &payload); err != nil {
		return nil, fmt.Errorf("cashfree: decode webhook: %w", err)
	}

	event := &WebhookEvent{
		Type:      payload.Type,
		OrderID:   payload.Data.Order.OrderID,
		PaymentID: string(payload.Data.Payment.CfPaymentID),
	}
	switch payload.Type {
	case "PAYMENT_SUCCESS_WEBHOOK":
		event.Status = StatusCompleted
	case "PAYMENT_FAILED_WEBHOOK", "PAYMENT_USER_DROPPED_WEBHOOK":
		event.Status = StatusFailed
	}
	return event, nil
}

func (c *Cashfree) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("cashfree: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("cashfree: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", c.cfg.APIVersion)
	req.Header.Set("x-client-id", c.cfg.AppID)
	req.Header.Set("x-client-secret", c.cfg.SecretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errProvider(c.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errProvider(c.Name(), err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return errProvider(c.Name(), fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncate(raw)))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errProvider(c.Name(), fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// flexString принимает идентификатор и строкой, и числом.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}
