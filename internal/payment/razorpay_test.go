package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
)

func newTestRazorpay(baseURL string) *Razorpay {
	return NewRazorpay(RazorpayConfig{
		KeyID:         "rzp_test_key",
		KeySecret:     "key-secret",
		WebhookSecret: "hook-secret",
		BaseURL:       baseURL,
	}, nil)
}

func TestRazorpay_Ready(t *testing.T) {
	assert.NoError(t, newTestRazorpay("").Ready())

	err := NewRazorpay(RazorpayConfig{KeyID: "id"}, nil).Ready()
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeConfiguration))
}

func TestRazorpay_CreateOrder_SendsPaise(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "rzp_test_key", user)
		assert.Equal(t, "key-secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "order_ABC",
			"amount":   got["amount"],
			"currency": "INR",
			"status":   "created",
		})
	}))
	defer srv.Close()

	order, err := newTestRazorpay(srv.URL).CreateOrder(context.Background(), OrderSpec{
		ConsultationID: "c-1",
		Amount:         1100,
		ServiceName:    "Kundli Analysis",
	})
	require.NoError(t, err)

	assert.Equal(t, float64(110000), got["amount"])
	assert.Equal(t, "INR", got["currency"])
	assert.Equal(t, "c-1", got["receipt"])
	assert.Equal(t, "order_ABC", order.ID)
	assert.Equal(t, "rzp_test_key", order.CheckoutKey)
	assert.InDelta(t, 1100.0, order.Amount, 0.001)
}

func TestRazorpay_CreateOrder_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"description":"bad"}}`))
	}))
	defer srv.Close()

	_, err := newTestRazorpay(srv.URL).CreateOrder(context.Background(), OrderSpec{ConsultationID: "c-1", Amount: 10})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.ErrCodeProvider))
}

func TestRazorpay_GetOrderStatus(t *testing.T) {
	cases := map[string]string{
		"paid":      StatusCompleted,
		"attempted": StatusPending,
		"created":   StatusPending,
	}
	for remote, want := range cases {
		t.Run(remote, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/orders/order_1", r.URL.Path)
				_ = json.NewEncoder(w).Encode(map[string]any{"id": "order_1", "status": remote})
			}))
			defer srv.Close()

			st, err := newTestRazorpay(srv.URL).GetOrderStatus(context.Background(), "order_1")
			require.NoError(t, err)
			assert.Equal(t, want, st.Status)
		})
	}
}

func TestRazorpay_VerifyClientSignature(t *testing.T) {
	p := newTestRazorpay("")
	good := SignHex("key-secret", []byte("order_1|pay_1"))

	assert.NoError(t, p.VerifyClientSignature("order_1", "pay_1", good))
	assert.ErrorIs(t, p.VerifyClientSignature("order_1", "pay_2", good), ErrSignatureMismatch)
	assert.ErrorIs(t, p.VerifyClientSignature("order_1", "pay_1", ""), ErrSignatureMismatch)
	assert.ErrorIs(t, p.VerifyClientSignature("order_1", "pay_1", "zz-not-hex"), ErrSignatureMismatch)
}

func TestRazorpay_ParseWebhook(t *testing.T) {
	p := newTestRazorpay("")
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9","status":"captured"}}}}`)

	ev, err := p.ParseWebhook(WebhookRequest{Body: body, Signature: SignHex("hook-secret", body)})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, ev.Status)
	assert.Equal(t, "order_9", ev.OrderID)
	assert.Equal(t, "pay_9", ev.PaymentID)

	failed := []byte(`{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_9"}}}}`)
	ev, err = p.ParseWebhook(WebhookRequest{Body: failed, Signature: SignHex("hook-secret", failed)})
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, ev.Status)

	unknown := []byte(`{"event":"order.paid","payload":{}}`)
	ev, err = p.ParseWebhook(WebhookRequest{Body: unknown, Signature: SignHex("hook-secret", unknown)})
	require.NoError(t, err)
	assert.Empty(t, ev.Status)
}

func TestRazorpay_ParseWebhook_RejectsBadSignatureBeforeParsing(t *testing.T) {
	p := newTestRazorpay("")

	_, err := p.ParseWebhook(WebhookRequest{Body: []byte(`not json`), Signature: SignHex("wrong", []byte(`not json`))})
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	_, err = p.ParseWebhook(WebhookRequest{Body: []byte(`{}`)})
	assert.ErrorIs(t, err, ErrSignatureMismatch)

	noSecret := NewRazorpay(RazorpayConfig{KeyID: "k", KeySecret: "s"}, nil)
	_, err = noSecret.ParseWebhook(WebhookRequest{Body: []byte(`{}`), Signature: SignHex("", []byte(`{}`))})
	assert.ErrorIs(t, err, ErrSignatureMismatch)
}

func TestToPaise(t *testing.T) {
	assert.Equal(t, int64(110000), ToPaise(1100))
	assert.Equal(t, int64(49999), ToPaise(499.99))
	assert.Equal(t, int64(1), ToPaise(0.005))
}
