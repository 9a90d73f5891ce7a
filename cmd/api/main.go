package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wallet-ledger/config"
	httpHandler "wallet-ledger/internal/adapter/http/handler"
	"wallet-ledger/internal/adapter/rates"
	"wallet-ledger/internal/adapter/storage/memory"
	pgStorage "wallet-ledger/internal/adapter/storage/postgres"
	redisStorage "wallet-ledger/internal/adapter/storage/redis"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/service"
	"wallet-ledger/pkg/logger"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// repositories groups the store-backed ports so either driver can fill them.
type repositories struct {
	wallets     ports.WalletRepository
	balances    ports.BalanceRepository
	movements   ports.MovementRepository
	conversions ports.ConversionRepository
	transfers   ports.TransferRepository
	currencies  ports.CurrencyRepository
	transactor  ports.DBTransactor
	health      ports.HealthChecker
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("driver", cfg.Database.Driver).
		Msg("Starting Wallet Ledger")

	ctx := context.Background()

	// Initialize the store
	var repos repositories
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		log.Info().Msg("PostgreSQL connected")

		if cfg.Database.Migrate {
			if err := pgStorage.Migrate(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("Failed to apply schema")
			}
			log.Info().Msg("Schema applied")
		}

		repos = repositories{
			wallets:     pgStorage.NewWalletRepo(pool),
			balances:    pgStorage.NewBalanceRepo(pool),
			movements:   pgStorage.NewMovementRepo(pool),
			conversions: pgStorage.NewConversionRepo(pool),
			transfers:   pgStorage.NewTransferRepo(pool),
			currencies:  pgStorage.NewCurrencyRepo(pool),
			transactor:  pgStorage.NewTransactor(pool),
			health:      pgStorage.NewHealthCheck(pool),
		}
	default:
		store := memory.New()
		log.Warn().Msg("Using in-memory store; state is lost on exit")
		repos = repositories{
			wallets:     store.Wallets(),
			balances:    store.Balances(),
			movements:   store.Movements(),
			conversions: store.Conversions(),
			transfers:   store.Transfers(),
			currencies:  store.Currencies(),
			transactor:  store.Transactor(),
			health:      memory.HealthCheck{},
		}
	}
	healthCheckers := []ports.HealthChecker{repos.health}

	// Exchange rates: upstream client, optionally behind the Redis cache
	upstream := rates.NewCoinbaseProvider(cfg.Rates, logger.Component(log, "rates"))
	defer upstream.Close()
	var rateProvider ports.RateProvider = upstream

	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		cached := rates.NewCachedProvider(upstream, redisStorage.NewRateCache(rdb), cfg.Rates.CacheTTL, log)
		rateProvider = cached
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))

		warmer, err := newRateWarmer(cfg.Rates, cached, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize rate warmer")
		}
		if warmer != nil {
			if err := warmer.Start(); err != nil {
				log.Fatal().Err(err).Msg("Failed to start rate warmer")
			}
			defer func() {
				if err := warmer.Stop(); err != nil {
					log.Error().Err(err).Msg("Rate warmer stop failed")
				}
			}()
		}
	} else {
		log.Warn().Msg("Redis disabled: rate cache and rate limiting are off")
	}

	// Initialize core services
	hashSvc := service.NewSHA256HashService()
	keyGen := service.NewKeyGenerator(cfg.Wallet.PrivateKeySize, cfg.Wallet.AddressSize)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("jwt.secret is empty: admin endpoints will reject every token")
	}

	// Initialize business services
	walletSvc := service.NewWalletService(
		repos.wallets,
		repos.balances,
		repos.movements,
		repos.conversions,
		repos.transfers,
		repos.currencies,
		keyGen,
		hashSvc,
		logger.Component(log, "wallet"),
	)
	ledgerSvc := service.NewLedgerService(
		repos.wallets,
		repos.balances,
		repos.movements,
		repos.conversions,
		repos.transfers,
		repos.currencies,
		rateProvider,
		hashSvc,
		repos.transactor,
		feePolicy(cfg.Fees),
		cfg.Ledger.ConflictRetries,
		logger.Component(log, "ledger"),
	)
	rateSvc := service.NewRateService(repos.currencies, rateProvider, logger.Component(log, "quotes"))

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		LedgerSvc:      ledgerSvc,
		RateSvc:        rateSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		Mode:           cfg.Server.Mode,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func feePolicy(f config.FeesConfig) domain.FeePolicy {
	return domain.FeePolicy{
		WithdrawalRate:    decimal.NewFromFloat(f.WithdrawalRate),
		ConversionPercent: decimal.NewFromFloat(f.ConversionPercent),
		TransferPercent:   decimal.NewFromFloat(f.TransferPercent),
		TransferMin:       decimal.NewFromFloat(f.TransferMin),
	}
}

// newRateWarmer returns nil when no pairs are configured.
func newRateWarmer(cfg config.RatesConfig, refresher service.RateRefresher, log zerolog.Logger) (*service.RateWarmer, error) {
	pairs, err := service.ParseRatePairs(cfg.WarmPairs)
	if err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	return service.NewRateWarmer(refresher, pairs, cfg.WarmInterval, cfg.Timeout, log)
}
