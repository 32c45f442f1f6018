package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astrobyab/consult-backend/internal/dto"
	"github.com/astrobyab/consult-backend/internal/http/handlers/common"
	"github.com/astrobyab/consult-backend/internal/pkg/apperror"
	"github.com/astrobyab/consult-backend/internal/service"
)

// AuthHandler регистрация по OTP, сброс пароля и вход.
type AuthHandler struct {
	auth   *service.AuthService
	otpTTL time.Duration
}

// NewAuthHandler создаёт хэндлер.
func NewAuthHandler(auth *service.AuthService, otpTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, otpTTL: otpTTL}
}

// StartSignup обрабатывает POST /api/auth/otp/signup.
func (h *AuthHandler) StartSignup(c *gin.Context) {
	var req dto.SignupRequest
	if !common.BindJSON(c, &req, "Email, password, and name are required.") {
		return
	}

	err := h.auth.StartSignup(c.Request.Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, h.sent())
}

// VerifySignup обрабатывает POST /api/auth/otp/signup/verify.
func (h *AuthHandler) VerifySignup(c *gin.Context) {
	var req dto.OTPVerifyRequest
	if !common.BindJSON(c, &req, "Email and OTP are required.") {
		return
	}

	result, err := h.auth.CompleteSignup(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// RequestReset обрабатывает POST /api/auth/otp/reset.
func (h *AuthHandler) RequestReset(c *gin.Context) {
	var req dto.ResetRequest
	if !common.BindJSON(c, &req, "Email is required.") {
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, h.sent())
}

// VerifyReset обрабатывает POST /api/auth/otp/reset/verify. Код не гасится.
func (h *AuthHandler) VerifyReset(c *gin.Context) {
	var req dto.OTPVerifyRequest
	if !common.BindJSON(c, &req, "Email and OTP are required.") {
		return
	}

	if err := h.auth.VerifyPasswordReset(c.Request.Context(), req.Email, req.OTP); err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.VerifiedResponse{Verified: true})
}

// ConfirmReset обрабатывает POST /api/auth/otp/reset/confirm.
func (h *AuthHandler) ConfirmReset(c *gin.Context) {
	var req dto.ResetConfirmRequest
	if !common.BindJSON(c, &req, "Email, OTP, and new password are required.") {
		return
	}

	if err := h.auth.ConfirmPasswordReset(c.Request.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Password updated successfully."})
}

// Login обрабатывает POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !common.BindJSON(c, &req, "Email and password are required.") {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Me обрабатывает GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.Fail(c, apperror.ErrUnauthorized)
		return
	}

	user, err := h.auth.Me(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *AuthHandler) sent() dto.OTPSentResponse {
	return dto.OTPSentResponse{
		Message:   "OTP sent to your email.",
		ExpiresIn: int(h.otpTTL.Seconds()),
	}
}
