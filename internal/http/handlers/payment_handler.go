package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/astrobyab/consult-backend/internal/dto"
	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/payment"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/service"
)

// maxWebhookBody верхняя граница тела вебхука.
const maxWebhookBody = 1 << 20

// PaymentHandler бронирование с оплатой и приём уведомлений провайдеров.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler создаёт хэндлер.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreateOrder обрабатывает POST /api/payments/:provider/order.
// Доступен гостям: пользователь находится или создаётся по email.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req dto.CreatePaymentOrderRequest
	if !common.BindJSON(c, &req, "Missing required fields") {
		return
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		common.Fail(c, apperror.ErrServiceNotFound)
		return
	}

	result, err := h.payments.CreateOrder(c.Request.Context(), c.Param("provider"), service.CreateOrderInput{
		UserID:    common.OptionalUserID(c),
		ServiceID: serviceID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Birth: models.BirthDetails{
			BirthDate:           req.BirthDate,
			BirthTime:           req.BirthTime,
			BirthPlace:          req.BirthPlace,
			Gender:              req.Gender,
			MaritalStatus:       req.MaritalStatus,
			Education:           req.Education,
			Profession:          req.Profession,
			ConsultationPurpose: req.ConsultationPurpose,
		},
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Verify обрабатывает POST /api/payments/:provider/verify.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req dto.VerifyPaymentRequest
	if !common.BindJSON(c, &req, "Missing required fields") {
		return
	}
	req.Normalize()

	consultationID, err := uuid.Parse(req.ConsultationID)
	if err != nil {
		common.Fail(c, apperror.ErrConsultationNotFound)
		return
	}

	result, err := h.payments.Verify(c.Request.Context(), c.Param("provider"), service.VerifyInput{
		ConsultationID: consultationID,
		OrderID:        req.OrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Webhook обрабатывает POST /api/payments/:provider/webhook.
// Подпись считается по сырому телу, поэтому оно читается до любого разбора.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	provider := strings.ToLower(c.Param("provider"))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, apperror.ErrInvalidPayload.Message))
		return
	}

	result, err := h.payments.HandleWebhook(c.Request.Context(), provider, webhookRequest(c, provider, body))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func webhookRequest(c *gin.Context, provider string, body []byte) payment.WebhookRequest {
	req := payment.WebhookRequest{Body: body}
	switch provider {
	case models.ProviderRazorpay:
		req.Signature = c.GetHeader("X-Razorpay-Signature")
	case models.ProviderCashfree:
		req.Signature = c.GetHeader("x-webhook-signature")
		req.Timestamp = c.GetHeader("x-webhook-timestamp")
	}
	return req
}
