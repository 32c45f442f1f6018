package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrobyab/consult-backend/internal/http/middleware"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/payment"
	"github.com/astrobyab/consult-backend/internal/service"
)

const testWebhookSecret = "whsec_test"

type transitionCall struct {
	provider, orderID, status string
}

// webhookRepository фиксирует переходы, вызванные вебхуками.
type webhookRepository struct {
	mu    sync.Mutex
	calls []transitionCall
}

func (r *webhookRepository) Create(ctx context.Context, c *models.Consultation) error { return nil }
func (r *webhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Consultation, error) {
	return nil, nil
}
func (r *webhookRepository) SetProviderOrder(ctx context.Context, id uuid.UUID, provider, orderID string) error {
	return nil
}
func (r *webhookRepository) TransitionPayment(ctx context.Context, id uuid.UUID, status string, paymentID *string) (bool, error) {
	return false, nil
}
func (r *webhookRepository) TransitionByProviderOrder(ctx context.Context, provider, orderID, status string, paymentID *string) ([]models.ConsultationRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, transitionCall{provider: provider, orderID: orderID, status: status})
	return []models.ConsultationRef{{ID: uuid.New()}}, nil
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

func newWebhookHandler(repo *webhookRepository) *PaymentHandler {
	registry := payment.NewRegistry(payment.NewRazorpay(payment.RazorpayConfig{
		KeyID:         "rzp_test",
		KeySecret:     "secret",
		WebhookSecret: testWebhookSecret,
	}, nil))
	return NewPaymentHandler(service.NewPaymentService(repo, nil, nil, registry, nil, "https://astrobyab.com"))
}

func razorpayEvent(t *testing.T, event, orderID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"event": event,
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{"id": "pay_1", "order_id": orderID, "status": "captured"},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestPaymentHandler_Webhook_ValidSignature(t *testing.T) {
	repo := &webhookRepository{}
	r := newTestRouter()
	r.POST("/api/payments/:provider/webhook", newWebhookHandler(repo).Webhook)

	body := razorpayEvent(t, "payment.captured", "order_1")
	req := httptest.NewRequest(http.MethodPost, "/api/payments/razorpay/webhook", bytes.NewReader(body))
	req.Header.Set("X-Razorpay-Signature", payment.SignHex(testWebhookSecret, body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["received"])
	require.Len(t, repo.calls, 1)
	assert.Equal(t, transitionCall{provider: "razorpay", orderID: "order_1", status: payment.StatusCompleted}, repo.calls[0])
}

func TestPaymentHandler_Webhook_TamperedSignature(t *testing.T) {
	repo := &webhookRepository{}
	r := newTestRouter()
	r.POST("/api/payments/:provider/webhook", newWebhookHandler(repo).Webhook)

	body := razorpayEvent(t, "payment.captured", "order_1")
	signature := payment.SignHex(testWebhookSecret, body)
	tampered := razorpayEvent(t, "payment.captured", "order_2")

	req := httptest.NewRequest(http.MethodPost, "/api/payments/razorpay/webhook", bytes.NewReader(tampered))
	req.Header.Set("X-Razorpay-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", decode(t, w)["code"])
	assert.Empty(t, repo.calls)
}

func TestPaymentHandler_Webhook_UnknownProvider(t *testing.T) {
	r := newTestRouter()
	r.POST("/api/payments/:provider/webhook", newWebhookHandler(&webhookRepository{}).Webhook)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/paypal/webhook", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPaymentHandler_Verify_MissingConsultation(t *testing.T) {
	r := newTestRouter()
	r.POST("/api/payments/:provider/verify", newWebhookHandler(&webhookRepository{}).Verify)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/razorpay/verify", bytes.NewReader([]byte(`{"orderId":"order_1"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", decode(t, w)["error"])
}

func TestAuthHandler_StartSignup_MissingFields(t *testing.T) {
	r := newTestRouter()
	handler := &AuthHandler{}
	r.POST("/api/auth/otp/signup", handler.StartSignup)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/otp/signup", bytes.NewReader([]byte(`{"email":"a@b.com"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Email, password, and name are required.", body["error"])
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
}

func TestAuthHandler_Me_Unauthorized(t *testing.T) {
	r := newTestRouter()
	handler := &AuthHandler{}
	r.GET("/api/auth/me", handler.Me)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestConsultationHandler_List_Unauthorized(t *testing.T) {
	r := newTestRouter()
	handler := &ConsultationHandler{}
	r.GET("/api/consultations", handler.List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/consultations", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminHandler_UpdateConsultation_RejectsManualCompletion(t *testing.T) {
	r := newTestRouter()
	handler := &AdminHandler{}
	r.PATCH("/api/admin/consultations/:id", handler.UpdateConsultation)

	req := httptest.NewRequest(http.MethodPatch, "/api/admin/consultations/"+uuid.NewString(),
		bytes.NewReader([]byte(`{"payment_status":"completed"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "payment_status can only be set to refunded", decode(t, w)["error"])
}

func TestKundliHandler_Calculate_MissingCoordinates(t *testing.T) {
	r := newTestRouter()
	handler := &KundliHandler{}
	r.POST("/api/kundli", func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, uuid.New())
		handler.Calculate(c)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/kundli",
		bytes.NewReader([]byte(`{"dateOfBirth":"2000-01-01","timeOfBirth":"12:30","placeOfBirth":"Delhi"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields.", decode(t, w)["error"])
}

func TestHealthHandler_NoDatabase(t *testing.T) {
	r := newTestRouter()
	r.GET("/health", NewHealthHandler(nil).Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w)["status"])
}
