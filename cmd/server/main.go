package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/astrobyab/consult-backend/internal/config"
	"github.com/astrobyab/consult-backend/internal/db"
	"github.com/astrobyab/consult-backend/internal/goroutine"
	httpHandlers "github.com/astrobyab/consult-backend/internal/http/handlers"
	httpRouter "github.com/astrobyab/consult-backend/internal/http/router"
	"github.com/astrobyab/consult-backend/internal/kundli"
	"github.com/astrobyab/consult-backend/internal/logger"
	"github.com/astrobyab/consult-backend/internal/notify"
	"github.com/astrobyab/consult-backend/internal/payment"
	"github.com/astrobyab/consult-backend/internal/ratelimit"
	"github.com/astrobyab/consult-backend/internal/repository"
	"github.com/astrobyab/consult-backend/internal/service"
	"github.com/astrobyab/consult-backend/internal/storage"
	"github.com/astrobyab/consult-backend/internal/ws"
)

const cacheSweepInterval = 5 * time.Minute

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	reportStorage, err := storage.NewReportStorage(cfg.ReportStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить хранилище отчётов: %v", err)
	}

	rateStore, err := ratelimit.NewStore(ctx, cfg.RateLimitRedisURL)
	if err != nil {
		logger.Log.Fatalf("main: не удалось подготовить rate limit: %v", err)
	}
	defer func() {
		if err := rateStore.Close(); err != nil {
			logger.Entry(logrus.Fields{"error": err.Error()}).Warn("main: ошибка закрытия rate limit store")
		}
	}()

	notifier, closeNotifier := newNotifier(cfg)
	defer closeNotifier()

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	otpRepo := repository.NewOTPRepository(dbConn)
	catalogRepo := repository.NewCatalogRepository(dbConn)
	consultationRepo := repository.NewConsultationRepository(dbConn)
	kundliRepo := repository.NewKundliRepository(dbConn)
	profileRepo := repository.NewProfileRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	goroutine.SafeGoWithContext(ctx, "ws-hub", hub.Run)

	// Платёжные провайдеры.
	providers := payment.NewRegistry(
		payment.NewRazorpay(payment.RazorpayConfig{
			KeyID:         cfg.Razorpay.KeyID,
			KeySecret:     cfg.Razorpay.KeySecret,
			WebhookSecret: cfg.Razorpay.WebhookSecret,
			BaseURL:       cfg.Razorpay.BaseURL,
		}, nil),
		payment.NewCashfree(payment.CashfreeConfig{
			AppID:      cfg.Cashfree.AppID,
			SecretKey:  cfg.Cashfree.SecretKey,
			APIVersion: cfg.Cashfree.APIVersion,
			BaseURL:    cfg.Cashfree.BaseURL,
		}, nil),
	)

	// Сервисы.
	cache := service.NewCacheService()
	goroutine.SafeGoWithContext(ctx, "cache-sweep", func(ctx context.Context) {
		sweepCache(ctx, cache)
	})

	otpService := service.NewOTPService(otpRepo, notifier, cfg.OTPTTL, cfg.OTPCooldown)
	authService := service.NewAuthService(userRepo, otpService, tokenManager)
	catalogService := service.NewCatalogService(catalogRepo, cache)
	paymentService := service.NewPaymentService(consultationRepo, catalogRepo, userRepo, providers, hub, cfg.AppBaseURL)
	consultationService := service.NewConsultationService(consultationRepo, userRepo, reportStorage)
	kundliService := service.NewKundliService(kundliRepo, newKundliGenerator(cfg))
	profileService := service.NewProfileService(userRepo, profileRepo)
	contactService := service.NewContactService(notifier, cfg.Mail.ContactReceiver)
	dashboardService := service.NewDashboardService(consultationRepo, userRepo, cache)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService, cfg.OTPTTL)
	catalogHandler := httpHandlers.NewCatalogHandler(catalogService)
	paymentHandler := httpHandlers.NewPaymentHandler(paymentService)
	consultationHandler := httpHandlers.NewConsultationHandler(consultationService)
	adminHandler := httpHandlers.NewAdminHandler(consultationService, reportStorage.MaxUploadBytes())
	kundliHandler := httpHandlers.NewKundliHandler(kundliService)
	profileHandler := httpHandlers.NewProfileHandler(profileService)
	contactHandler := httpHandlers.NewContactHandler(contactService)
	dashboardHandler := httpHandlers.NewDashboardHandler(dashboardService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, rateStore, tokenManager,
		authHandler, catalogHandler, paymentHandler, consultationHandler,
		adminHandler, kundliHandler, profileHandler, contactHandler, dashboardHandler,
		wsHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	goroutine.SafeGo("http-shutdown", func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Entry(logrus.Fields{"error": err.Error()}).Error("main: ошибка остановки http сервера")
		}
	})

	logger.Entry(logrus.Fields{
		"port":             cfg.HTTPPort,
		"env":              cfg.Env,
		"shared_ratelimit": rateStore.Shared,
	}).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// newNotifier возвращает Kafka-канал писем; без брокеров (только вне production) письма пишутся в лог.
func newNotifier(cfg *config.Config) (notify.Notifier, func()) {
	if len(cfg.Mail.KafkaBrokers) == 0 {
		logger.Entry(logrus.Fields{"env": cfg.Env}).Warn("main: KAFKA_BROKERS не задан, письма пишутся в лог")
		return notify.LogNotifier{}, func() {}
	}

	kafkaNotifier := notify.NewKafkaNotifier(notify.KafkaConfig{
		Brokers:  cfg.Mail.KafkaBrokers,
		Topic:    cfg.Mail.KafkaTopic,
		Username: cfg.Mail.KafkaUsername,
		Password: cfg.Mail.KafkaPassword,
		From:     cfg.Mail.From,
	})
	return kafkaNotifier, func() {
		if err := kafkaNotifier.Close(); err != nil {
			logger.Entry(logrus.Fields{"error": err.Error()}).Warn("main: ошибка закрытия kafka writer")
		}
	}
}

// newKundliGenerator подключает внешний провайдер только при заданном URL.
func newKundliGenerator(cfg *config.Config) *kundli.Generator {
	providerCfg := kundli.ProviderConfig{
		URL:    cfg.Kundli.ProviderURL,
		Key:    cfg.Kundli.ProviderKey,
		Secret: cfg.Kundli.ProviderSecret,
		Name:   cfg.Kundli.ProviderName,
	}

	var external kundli.Calculator
	if providerCfg.Enabled() {
		external = kundli.NewExternalProvider(providerCfg, nil)
	}
	return kundli.NewGenerator(external, kundli.NewLocalEngine())
}

func sweepCache(ctx context.Context, cache *service.CacheService) {
	ticker := time.NewTicker(cacheSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := cache.Sweep(); removed > 0 {
				logger.Entry(logrus.Fields{"removed": removed}).Debug("main: очищены просроченные записи кэша")
			}
		}
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
