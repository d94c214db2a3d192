package handler

import (
	"crypto-faucet-gateway/internal/adapter/http/middleware"
	redisStore "crypto-faucet-gateway/internal/adapter/storage/redis"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	ClaimSvc       ports.ClaimService
	ReportingSvc   ports.ReportingService
	WalletSvc      ports.WalletService
	Oracle         ports.PriceOracle
	OracleAsset    string
	Faucets        []domain.Faucet
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
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

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	// Rate limit rules
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

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	priceHandler := NewPriceHandler(deps.Oracle, deps.OracleAsset, deps.Faucets)
	v1.GET("/price", rl("price"), priceHandler.GetPrice)
	v1.GET("/faucets", rl("price"), priceHandler.ListFaucets)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	claimHandler := NewClaimHandler(deps.ClaimSvc, deps.ReportingSvc)
	walletHandler := NewWalletHandler(deps.WalletSvc)

	claims := v1.Group("/claims", jwtAuth)
	{
		claims.POST("", rl("claims"), claimHandler.Dispatch)
		claims.GET("", rl("reporting"), claimHandler.List)
	}

	wallets := v1.Group("/wallets", jwtAuth)
	{
		wallets.PUT("", rl("wallets"), walletHandler.Bind)
		wallets.GET("", rl("reporting"), walletHandler.List)
	}

	return r
}
