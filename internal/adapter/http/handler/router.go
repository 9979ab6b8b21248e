package handler

import (
	"lending-ledger/config"
	"lending-ledger/internal/adapter/http/middleware"
	"lending-ledger/internal/core/ports"
	"lending-ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	LedgerSvc      ports.LedgerService
	PayoutSvc      ports.PayoutService
	LoanSvc        ports.LoanService
	WebhookQueue   ports.WebhookQueue
	SigSvc         *service.WebhookSignatureService
	Providers      config.ProvidersConfig
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Provider webhooks: signature-gated, no actor identity
	webhookHandler := NewWebhookHandler(deps.WebhookQueue, deps.SigSvc, deps.Providers)
	r.POST("/webhooks/:provider", webhookHandler.Receive)

	// API v1 routes, scoped to the gateway-authenticated business
	v1 := r.Group("/api/v1", middleware.ActorAuth())

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.LedgerSvc)
	wallets := v1.Group("/wallets")
	{
		wallets.POST("", walletHandler.GetOrCreate)
		wallets.GET("/:id/balance", walletHandler.GetBalance)
		wallets.GET("/:id/audit", walletHandler.AuditBalance)
	}

	transactions := v1.Group("/transactions")
	{
		transactions.GET("", walletHandler.ListTransactions)
		transactions.POST("", walletHandler.RecordEntry)
		transactions.POST("/:id/reverse", walletHandler.ReverseTransaction)
	}

	payoutHandler := NewPayoutHandler(deps.PayoutSvc)
	payouts := v1.Group("/payouts")
	{
		payouts.POST("", payoutHandler.Initiate)
		payouts.GET("/:reference", payoutHandler.Status)
	}

	loanHandler := NewLoanHandler(deps.LoanSvc)
	loans := v1.Group("/loans")
	{
		loans.POST("/schedules", loanHandler.CreateSchedule)
		loans.GET("/schedules/:id", loanHandler.GetSchedule)
	}

	return r
}
