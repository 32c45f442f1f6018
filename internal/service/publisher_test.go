package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/payment"
)

type mockStatusPublisher struct {
	mock.Mock
}

func (m *mockStatusPublisher) BroadcastToUser(userID uuid.UUID, event string, data any) error {
	args := m.Called(userID, event, data)
	return args.Error(0)
}

func TestPaymentService_PublishFailureDoesNotFailWebhook(t *testing.T) {
	f := newPaymentFixture()
	publisher := new(mockStatusPublisher)
	f.svc.publisher = publisher
	ctx := context.Background()

	res, err := f.svc.CreateOrder(ctx, "cashfree", f.booking())
	require.NoError(t, err)
	c, err := f.consultations.GetByID(ctx, res.ConsultationID)
	require.NoError(t, err)
	require.NotNil(t, c.UserID)

	publisher.On("BroadcastToUser", *c.UserID, EventPaymentStatus, mock.MatchedBy(func(data any) bool {
		payload, ok := data.(map[string]any)
		return ok && payload["payment_status"] == models.PaymentStatusFailed
	})).Return(errBoom).Once()

	out, err := f.svc.HandleWebhook(ctx, "cashfree", payment.WebhookRequest{
		Body:      []byte(`{"type":"PAYMENT_FAILED_WEBHOOK","orderid":"` + res.Order.ID + `","status":"failed"}`),
		Signature: "valid",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Updated)

	c, _ = f.consultations.GetByID(ctx, res.ConsultationID)
	assert.Equal(t, models.PaymentStatusFailed, c.PaymentStatus)
	publisher.AssertExpectations(t)
}

func TestPaymentService_GuestWithoutUserIsNotPublished(t *testing.T) {
	publisher := new(mockStatusPublisher)
	svc := &PaymentService{publisher: publisher}

	svc.publish(uuid.New(), nil, models.PaymentStatusCompleted)

	publisher.AssertNotCalled(t, "BroadcastToUser", mock.Anything, mock.Anything, mock.Anything)
}
