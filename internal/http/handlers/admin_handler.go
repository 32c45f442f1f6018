package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astrobyab/consult-backend/internal/dto"
	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/models"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/service"
)

// AdminHandler работа администратора с консультациями.
type AdminHandler struct {
	consultations  *service.ConsultationService
	maxUploadBytes int64
}

// NewAdminHandler создаёт хэндлер.
func NewAdminHandler(consultations *service.ConsultationService, maxUploadBytes int64) *AdminHandler {
	return &AdminHandler{consultations: consultations, maxUploadBytes: maxUploadBytes}
}

// ListConsultations обрабатывает GET /api/admin/consultations.
func (h *AdminHandler) ListConsultations(c *gin.Context) {
	items, err := h.consultations.AdminList(c.Request.Context(), models.ConsultationFilter{
		PaymentStatus: c.Query("payment_status"),
		Limit:         common.ParseIntQuery(c, "limit", 0),
		Offset:        common.ParseIntQuery(c, "offset", 0),
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultations": items})
}

// UpdateConsultation обрабатывает PATCH /api/admin/consultations/:id.
// Из статусов оплаты вручную допускается только refunded.
func (h *AdminHandler) UpdateConsultation(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.ErrConsultationNotFound)
		return
	}

	var req dto.AdminUpdateConsultationRequest
	if !common.BindJSON(c, &req, "Invalid payload") {
		return
	}

	in := service.AdminUpdateInput{
		Notes:              req.Notes,
		ConsultationStatus: req.ConsultationStatus,
	}
	if req.PaymentStatus != nil {
		if *req.PaymentStatus != models.PaymentStatusRefunded {
			common.Fail(c, apperror.New(apperror.ErrCodeValidation, "payment_status can only be set to refunded"))
			return
		}
		in.Refund = true
	}

	item, err := h.consultations.AdminUpdate(c.Request.Context(), id, in)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultation": item})
}

// UploadReport обрабатывает POST /api/admin/consultations/:id/report (multipart, поле file).
func (h *AdminHandler) UploadReport(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.ErrConsultationNotFound)
		return
	}

	if h.maxUploadBytes > 0 {
		// Запас на multipart-заголовки.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+64*1024)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeValidation, "A PDF file is required."))
		return
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, "PDF exceeds upload size limit."))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		common.Fail(c, err)
		return
	}
	defer file.Close()

	item, err := h.consultations.UploadReport(c.Request.Context(), id, fileHeader.Filename, file)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultation": item})
}
