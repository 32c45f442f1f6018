package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/astrobyab/consult-backend/internal/dto"
	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/service"
)

// ProfileHandler отвечает за личный кабинет.
type ProfileHandler struct {
	profiles *service.ProfileService
}

// NewProfileHandler создаёт экземпляр.
func NewProfileHandler(profiles *service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetMe обрабатывает GET /api/profile.
func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}

	view, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateMe обрабатывает PUT /api/profile.
func (h *ProfileHandler) UpdateMe(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}

	var req dto.UpdateProfileRequest
	if !common.BindJSON(c, &req, "Invalid profile payload.") {
		return
	}

	profile, err := h.profiles.Update(c.Request.Context(), userID, service.ProfileInput{
		Name:          req.Name,
		DateOfBirth:   req.DateOfBirth,
		TimeOfBirth:   req.TimeOfBirth,
		BirthPlace:    req.BirthPlace,
		BirthCity:     req.BirthCity,
		BirthCountry:  req.BirthCountry,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Gender:        req.Gender,
		MaritalStatus: req.MaritalStatus,
		Education:     req.Education,
		Profession:    req.Profession,
		Bio:           req.Bio,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}
