package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crypto-faucet-gateway/config"
	"crypto-faucet-gateway/internal/adapter/faucet"
	httpHandler "crypto-faucet-gateway/internal/adapter/http/handler"
	"crypto-faucet-gateway/internal/adapter/pricefeed"
	pgStorage "crypto-faucet-gateway/internal/adapter/storage/postgres"
	redisStorage "crypto-faucet-gateway/internal/adapter/storage/redis"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/internal/service"
	"crypto-faucet-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("crypto-faucet-gateway", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Crypto Faucet Gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	claimRepo := pgStorage.NewClaimRepo(pool)
	userRepo := pgStorage.NewUserRepo(pool)
	walletRepo := pgStorage.NewWalletRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	hashSvc := service.NewArgon2HashService()
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Faucet adapters and catalog
	adapters, err := faucet.BuildAdapters(cfg.Faucets, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build faucet adapters")
	}
	catalog := faucet.Catalog(adapters)

	faucetTypes := make([]string, 0, len(adapters))
	for t := range adapters {
		faucetTypes = append(faucetTypes, t)
	}

	// Price oracle: CoinGecko primary, CoinMarketCap fallback. The fallback
	// is skipped when no API key is configured.
	httpClient := &http.Client{Timeout: cfg.Price.FetchTimeout}
	primary := pricefeed.NewCoinGeckoClient(cfg.Price.PrimaryURL, httpClient)
	var fallback ports.PriceSource
	if cfg.Price.FallbackAPIKey != "" {
		fallback = pricefeed.NewCoinMarketCapClient(cfg.Price.FallbackURL, cfg.Price.FallbackAPIKey, httpClient)
	}
	oracle := service.NewPriceOracle(
		cfg.Price.Asset,
		primary,
		fallback,
		cfg.Price.RefreshInterval,
		cfg.Price.FetchTimeout,
		cfg.Price.MaxQuoteAge,
		cfg.Price.FailureThreshold,
		log,
	)
	go oracle.Run(ctx)

	// Initialize business services
	authSvc := service.NewAuthService(userRepo, hashSvc, tokenSvc, auditSvc)
	walletSvc := service.NewWalletService(walletRepo, auditSvc, faucetTypes)
	valuator := service.NewValuationCalculator()
	guard := service.NewEligibilityGuard(claimRepo, catalog)
	claimSvc := service.NewClaimService(
		claimRepo,
		walletRepo,
		idempotencyCache,
		oracle,
		valuator,
		guard,
		adapters,
		transactor,
		auditSvc,
		cfg.Price.Asset,
		cfg.Price.USDTarget,
		log,
	)
	reportingSvc := service.NewReportingService(claimRepo)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		ClaimSvc:       claimSvc,
		ReportingSvc:   reportingSvc,
		WalletSvc:      walletSvc,
		Oracle:         oracle,
		OracleAsset:    cfg.Price.Asset,
		Faucets:        catalog,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")
	cancel() // stop the price oracle refresh loop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
