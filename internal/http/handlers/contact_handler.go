package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astrobyab/consult-backend/internal/dto"
	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/service"
)

type ContactHandler struct {
	contact *service.ContactService
}

func NewContactHandler(contact *service.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// Submit POST /api/contact
func (h *ContactHandler) Submit(c *gin.Context) {
	var req dto.ContactRequest
	if !common.BindJSON(c, &req, "Name, email, and message are required.") {
		return
	}

	if err := h.contact.Send(c.Request.Context(), service.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Subject: req.Subject,
		Message: req.Message,
	}); err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Message sent successfully."})
}
