package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/astrobyab/consult-backend/internal/config"
	"github.com/astrobyab/consult-backend/internal/http/handlers"
	"github.com/astrobyab/consult-backend/internal/http/middleware"
	"github.com/astrobyab/consult-backend/internal/service"
)

const (
	contactRateLimit  = 5
	contactRatePeriod = 10 * time.Minute
)

func SetupRouter(
	cfg *config.Config,
	rateStore limiter.Store,
	tokenManager *service.TokenManager,
	authHandler *handlers.AuthHandler,
	catalogHandler *handlers.CatalogHandler,
	paymentHandler *handlers.PaymentHandler,
	consultationHandler *handlers.ConsultationHandler,
	adminHandler *handlers.AdminHandler,
	kundliHandler *handlers.KundliHandler,
	profileHandler *handlers.ProfileHandler,
	contactHandler *handlers.ContactHandler,
	dashboardHandler *handlers.DashboardHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	authMiddleware := middleware.AuthMiddleware(tokenManager)

	// OTP и вход: общий лимит на IP поверх кулдауна выдачи кода.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(rateStore, "auth", cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/otp/signup", authHandler.StartSignup)
		authGroup.POST("/otp/signup/verify", authHandler.VerifySignup)
		authGroup.POST("/otp/reset", authHandler.RequestReset)
		authGroup.POST("/otp/reset/verify", authHandler.VerifyReset)
		authGroup.POST("/otp/reset/confirm", authHandler.ConfirmReset)
		authGroup.POST("/login", authHandler.Login)
	}
	api.GET("/auth/me", authMiddleware, authHandler.Me)

	// Форма обратной связи: 5 писем с IP за 10 минут.
	api.POST("/contact", middleware.RateLimitMiddleware(rateStore, "contact", contactRateLimit, contactRatePeriod), contactHandler.Submit)

	profile := api.Group("/profile")
	profile.Use(authMiddleware)
	{
		profile.GET("", profileHandler.GetMe)
		profile.PUT("", profileHandler.UpdateMe)
	}

	api.GET("/services", catalogHandler.List)
	api.GET("/services/:slug", catalogHandler.GetBySlug)

	payments := api.Group("/payments/:provider")
	{
		// Вебхуки без лимита: провайдеры повторяют доставку сами.
		payments.POST("/webhook", paymentHandler.Webhook)

		checkout := payments.Group("")
		checkout.Use(middleware.RateLimitMiddleware(rateStore, "payments", cfg.RateLimitLimit*3, cfg.RateLimitPeriod))
		checkout.POST("/order", middleware.OptionalAuthMiddleware(tokenManager), paymentHandler.CreateOrder)
		checkout.POST("/verify", paymentHandler.Verify)
	}

	consultations := api.Group("/consultations")
	consultations.Use(authMiddleware)
	{
		consultations.GET("", consultationHandler.List)
		consultations.GET("/:id", middleware.UUIDValidator("id"), consultationHandler.Get)
		consultations.GET("/:id/report", middleware.UUIDValidator("id"), consultationHandler.DownloadReport)
	}

	kundli := api.Group("/kundli")
	kundli.Use(authMiddleware)
	{
		kundli.POST("", kundliHandler.Calculate)
		kundli.GET("", kundliHandler.Latest)
		kundli.GET("/pdf", kundliHandler.PDF)
	}

	admin := api.Group("/admin")
	admin.Use(authMiddleware, middleware.AdminOnly())
	{
		admin.GET("/dashboard", dashboardHandler.Stats)
		admin.GET("/users", dashboardHandler.Users)
		admin.GET("/consultations", adminHandler.ListConsultations)
		admin.PATCH("/consultations/:id", middleware.UUIDValidator("id"), adminHandler.UpdateConsultation)
		admin.POST("/consultations/:id/report", middleware.UUIDValidator("id"), adminHandler.UploadReport)
		admin.GET("/services", catalogHandler.AdminList)
		admin.POST("/services", catalogHandler.Create)
		admin.PUT("/services/:id", middleware.UUIDValidator("id"), catalogHandler.Update)
	}

	api.GET("/ws", wsHandler.Handle)

	return r
}
