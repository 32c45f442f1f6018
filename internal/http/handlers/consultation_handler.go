package handlers

import (
	"io"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/service"
)

// ConsultationHandler брони текущего пользователя.
type ConsultationHandler struct {
	consultations *service.ConsultationService
}

// NewConsultationHandler создаёт хэндлер.
func NewConsultationHandler(consultations *service.ConsultationService) *ConsultationHandler {
	return &ConsultationHandler{consultations: consultations}
}

// List обрабатывает GET /api/consultations.
func (h *ConsultationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}

	items, err := h.consultations.ListOwn(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultations": items})
}

// Get обрабатывает GET /api/consultations/:id.
func (h *ConsultationHandler) Get(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.ErrConsultationNotFound)
		return
	}

	item, err := h.consultations.Get(c.Request.Context(), userID, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultation": item})
}

// DownloadReport обрабатывает GET /api/consultations/:id/report.
func (h *ConsultationHandler) DownloadReport(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.ErrConsultationNotFound)
		return
	}

	report, err := h.consultations.OpenReport(c.Request.Context(), userID, id)
	if err != nil {
		common.Fail(c, err)
		return
	}
	defer report.Content.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": report.Name}))
	c.Header("Cache-Control", "private, no-cache")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, report.Content); err != nil {
		logger.Entry(logrus.Fields{
			"consultation_id": id,
			"error":           err.Error(),
		}).Warn("Report download interrupted")
	}
}
