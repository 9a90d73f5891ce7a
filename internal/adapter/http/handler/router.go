package handler

import (
	"wallet-ledger/internal/adapter/http/middleware"
	redisStore "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	LedgerSvc      ports.LedgerService
	RateSvc        ports.RateService
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Mode           string // gin mode; empty means release
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	mode := deps.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies the store and Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	walletHandler := NewWalletHandler(deps.WalletSvc)
	ledgerHandler := NewLedgerHandler(deps.LedgerSvc, deps.WalletSvc)
	rateHandler := NewRateHandler(deps.RateSvc)
	adminAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	v1 := r.Group("/api/v1")

	wallets := v1.Group("/wallets")
	{
		wallets.POST("", rl("wallets_create"), walletHandler.Create)
		wallets.GET("", rl("reads"), walletHandler.List)
		wallets.GET("/:address", rl("reads"), walletHandler.Get)
		wallets.DELETE("/:address", adminAuth, rl("admin"), walletHandler.Block)

		wallets.POST("/:address/deposits", rl("ledger_write"), ledgerHandler.Deposit)
		wallets.POST("/:address/withdrawals", rl("ledger_write"), ledgerHandler.Withdraw)
		wallets.POST("/:address/conversions", rl("ledger_write"), ledgerHandler.Convert)
		wallets.POST("/:address/transfers", rl("ledger_write"), ledgerHandler.Transfer)

		wallets.GET("/:address/balances", rl("reads"), walletHandler.ListBalances)
		wallets.GET("/:address/balances/:currency_id", rl("reads"), walletHandler.GetBalance)
		wallets.GET("/:address/movements", rl("reads"), walletHandler.ListMovements)
		wallets.GET("/:address/conversions", rl("reads"), walletHandler.ListConversions)
		wallets.GET("/:address/transfers", rl("reads"), walletHandler.ListTransfers)
	}

	v1.GET("/transfers/:id", rl("reads"), walletHandler.GetTransfer)
	v1.GET("/currencies", rl("reads"), rateHandler.ListCurrencies)
	v1.GET("/quotes/:base/:target", rl("quotes"), rateHandler.Quote)

	return r
}
