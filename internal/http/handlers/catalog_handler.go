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

type CatalogHandler struct {
	catalog *service.CatalogService
}

func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// List GET /api/services
func (h *CatalogHandler) List(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context(), true)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// GetBySlug GET /api/services/:slug
func (h *CatalogHandler) GetBySlug(c *gin.Context) {
	svc, err := h.catalog.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": svc})
}

// AdminList GET /api/admin/services, включая неактивные.
func (h *CatalogHandler) AdminList(c *gin.Context) {
	services, err := h.catalog.List(c.Request.Context(), false)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"services": services})
}

// Update PUT /api/admin/services/:id
func (h *CatalogHandler) Update(c *gin.Context) {
	id, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, apperror.Wrap(err, apperror.ErrCodeBadRequest, "id must be a valid UUID"))
		return
	}

	var req dto.UpdateServiceRequest
	if !common.BindJSON(c, &req, "Invalid service payload.") {
		return
	}

	svc, err := h.catalog.Update(c.Request.Context(), id, models.ServiceUpdate{
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		IsActive:        req.IsActive,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"service": svc})
}

// Create POST /api/admin/services
func (h *CatalogHandler) Create(c *gin.Context) {
	var req dto.CreateServiceRequest
	if !common.BindJSON(c, &req, apperror.ErrInvalidPayload.Message) {
		return
	}

	svc, err := h.catalog.Create(c.Request.Context(), service.ServiceInput{
		Name:            req.Name,
		Slug:            req.Slug,
		Description:     req.Description,
		Price:           req.Price,
		Currency:        req.Currency,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"service": svc})
}
