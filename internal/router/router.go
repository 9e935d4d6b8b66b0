package router

import (
	"time"

	"meetly/config"
	"meetly/internal/domain"
	"meetly/internal/handler"
	"meetly/internal/logger"
	"meetly/internal/middleware"
	"meetly/internal/ratelimit"
	"meetly/internal/repository"
	"meetly/internal/service"
	"meetly/internal/ws"
	"meetly/pkg/cloudinary"
	"meetly/pkg/sms"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Deps are the process-wide collaborators built in main.
type Deps struct {
	Store   repository.Store
	Limiter *ratelimit.Limiter
	Hub     *ws.Hub

	// Optional. A nil FCM or Cloud disables push or evidence upload; a nil
	// SMS logs messages instead of sending them.
	FCM   *service.FCMService
	Cloud cloudinary.Client
	SMS   sms.Sender
}

// Setup wires services and routes. The returned Reconciler must be run by the
// caller to finish settlement steps left pending.
func Setup(cfg *config.Config, deps Deps) (*gin.Engine, *service.Reconciler) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Hub == nil {
		deps.Hub = ws.NewHub()
	}
	if deps.SMS == nil {
		deps.SMS = sms.NewLogSender(logger.Log)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Idempotency-Key", "Idempotent-Replayed", "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := deps.Store
	notifSvc := service.NewNotificationService(store, deps.FCM, deps.Hub)
	settlementSvc := service.NewSettlementService(store, notifSvc, cfg.Settlement)
	bookingSvc := service.NewBookingService(store, notifSvc, settlementSvc)
	disputeSvc := service.NewDisputeService(store, notifSvc, settlementSvc)
	safetySvc := service.NewSafetyService(store, notifSvc)
	otpSvc := service.NewOTPService(store, deps.SMS, cfg.OTP)
	referralSvc := service.NewReferralService(store)
	settingsSvc := service.NewSettingsService(store)

	bookingHandler := handler.NewBookingHandler(bookingSvc)
	disputeHandler := handler.NewDisputeHandler(disputeSvc, deps.Cloud)
	reportHandler := handler.NewReportHandler(safetySvc)
	otpHandler := handler.NewOTPHandler(otpSvc)
	referralHandler := handler.NewReferralHandler(referralSvc)
	walletHandler := handler.NewWalletHandler(store)
	notificationHandler := handler.NewNotificationHandler(notifSvc, store.Users())
	adminHandler := handler.NewAdminHandler(disputeSvc, settingsSvc)

	limit := func(class ratelimit.Class) gin.HandlerFunc {
		return middleware.RateLimit(deps.Limiter, class)
	}
	authMw := middleware.AuthRequired(&cfg.JWT)
	perClient := middleware.RateLimitByClient(deps.Limiter, ratelimit.ClassClient)

	r.GET("/healthz", handler.Health(deps.Limiter))
	r.GET("/ws/notifications", perClient, ws.UpgradeNotificationWS(&cfg.JWT, cfg.CORS.AllowedOrigins, deps.Hub))

	api := r.Group("/api/v1")
	api.Use(perClient, authMw)
	{
		api.POST("/quote-booking", limit(ratelimit.ClassGeneral), bookingHandler.Quote)
		api.POST("/create-booking", limit(ratelimit.ClassBooking), bookingHandler.Create)
		api.POST("/complete-booking", limit(ratelimit.ClassBooking), bookingHandler.Transition)
		api.POST("/rate-booking", limit(ratelimit.ClassBooking), bookingHandler.Rate)
		api.GET("/bookings/:id", limit(ratelimit.ClassGeneral), bookingHandler.Get)

		api.POST("/create-dispute", limit(ratelimit.ClassModeration), disputeHandler.Create)
		api.POST("/upload-evidence", limit(ratelimit.ClassModeration), disputeHandler.UploadEvidence)
		api.POST("/report-user", limit(ratelimit.ClassModeration), reportHandler.Create)

		api.POST("/send-otp", limit(ratelimit.ClassAuth), otpHandler.Send)
		api.POST("/verify-otp", limit(ratelimit.ClassAuth), otpHandler.Verify)

		api.POST("/redeem-referral-code", limit(ratelimit.ClassGeneral), referralHandler.Redeem)

		me := api.Group("/me")
		{
			me.GET("/referral-code", limit(ratelimit.ClassGeneral), referralHandler.GetMyReferralCode)
			me.GET("/wallet", limit(ratelimit.ClassWallet), walletHandler.GetWallet)
			me.GET("/wallet/transactions", limit(ratelimit.ClassWallet), walletHandler.ListTransactions)
			me.GET("/notifications", limit(ratelimit.ClassGeneral), notificationHandler.List)
			me.PUT("/notifications/:id/read", limit(ratelimit.ClassGeneral), notificationHandler.MarkRead)
			me.POST("/fcm-token", limit(ratelimit.ClassGeneral), notificationHandler.RegisterFCMToken)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RequireRole(domain.RoleAdmin), limit(ratelimit.ClassGeneral))
		{
			admin.GET("/disputes", adminHandler.ListDisputes)
			admin.GET("/disputes/:id", adminHandler.GetDispute)
			admin.POST("/disputes/:id/investigate", adminHandler.InvestigateDispute)
			admin.POST("/disputes/:id/resolve", adminHandler.ResolveDispute)
			admin.GET("/settings", adminHandler.GetSettings)
			admin.PUT("/settings", adminHandler.UpdateSettings)
		}
	}

	return r, service.NewReconciler(settlementSvc, cfg.Settlement)
}
