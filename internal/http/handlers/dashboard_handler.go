package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/service"
)

// DashboardHandler сводные данные админки.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler создаёт экземпляр.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Stats обрабатывает GET /api/admin/dashboard.
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Users обрабатывает GET /api/admin/users?limit=&offset=.
func (h *DashboardHandler) Users(c *gin.Context) {
	users, err := h.dashboard.Users(c.Request.Context(),
		common.ParseIntQuery(c, "limit", 0),
		common.ParseIntQuery(c, "offset", 0),
	)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}
