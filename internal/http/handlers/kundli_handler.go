package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astrobyab/consult-backend/internal/dto"
	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/kundli"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/service"
)

// KundliHandler расчёт гороскопа и выгрузка в PDF.
type KundliHandler struct {
	kundli *service.KundliService
}

// NewKundliHandler создаёт хэндлер.
func NewKundliHandler(kundli *service.KundliService) *KundliHandler {
	return &KundliHandler{kundli: kundli}
}

// Calculate обрабатывает POST /api/kundli.
func (h *KundliHandler) Calculate(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}

	var req dto.KundliRequest
	if !common.BindJSON(c, &req, "Missing required fields.") {
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		common.Fail(c, apperror.New(apperror.ErrCodeValidation, "Missing required fields."))
		return
	}

	result, err := h.kundli.Calculate(c.Request.Context(), userID, service.KundliRequest{
		Input: kundli.Input{
			DateOfBirth:  req.DateOfBirth,
			TimeOfBirth:  req.TimeOfBirth,
			PlaceOfBirth: req.PlaceOfBirth,
			Latitude:     *req.Latitude,
			Longitude:    *req.Longitude,
			Timezone:     req.Timezone,
		},
		Ayanamsa: req.Ayanamsa,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Latest обрабатывает GET /api/kundli. Без расчётов отдаёт {"result": null}.
func (h *KundliHandler) Latest(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}

	result, err := h.kundli.Latest(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"result": nil})
		return
	}
	c.JSON(http.StatusOK, result)
}

// PDF обрабатывает GET /api/kundli/pdf?cacheKey=.
func (h *KundliHandler) PDF(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}

	pdf, err := h.kundli.RenderPDF(c.Request.Context(), userID, c.Query("cacheKey"))
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="kundli-report.pdf"`)
	c.Header("Cache-Control", "private, no-cache")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
