package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement-gateway/config"
	apidocs "settlement-gateway/docs/api"
	httpHandler "settlement-gateway/internal/adapter/http/handler"
	"settlement-gateway/internal/adapter/metrics"
	memStorage "settlement-gateway/internal/adapter/storage/memory"
	pgStorage "settlement-gateway/internal/adapter/storage/postgres"
	redisStorage "settlement-gateway/internal/adapter/storage/redis"
	"settlement-gateway/internal/core/domain"
	"settlement-gateway/internal/core/ports"
	"settlement-gateway/internal/service"
	"settlement-gateway/pkg/logger"

	"github.com/rs/zerolog"
)

// storage is the set of persistence ports selected by storage.driver.
type storage struct {
	admin      ports.AdminRepository
	businesses ports.BusinessRepository
	payments   ports.PaymentRepository
	histories  ports.HistoryRepository
	idempotent ports.IdempotencyRepository
	audit      ports.AuditRepository
	ledger     ports.Ledger
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Pretty:     cfg.Log.Pretty,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Settlement Gateway")

	ctx := context.Background()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.close()

	healthCheckers := []ports.HealthChecker{store.health}

	// Redis is optional: without it nonces and rate limits stay in process.
	var (
		nonceStore     ports.NonceStore     = memStorage.NewNonceStore()
		rateLimitStore ports.RateLimitStore = memStorage.NewRateLimitStore()
		idempCache     ports.IdempotencyCache
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		nonceStore = redisStorage.NewNonceStore(rdb)
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		idempCache = redisStorage.NewIdempotencyCache(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	}

	var m *metrics.Metrics
	var settlementMetrics ports.SettlementMetrics
	if cfg.Metrics.Enabled {
		m = metrics.Default()
		settlementMetrics = m
	}

	consentSvc := service.NewConsentTokenService(cfg.Consent.MaxAge, cfg.Consent.ClockSkew)
	authorizer := service.NewConsentAuthorizer()

	adminSvc := service.NewAdminService(store.admin, authorizer, logger.Component(log, "admin"))
	businessSvc := service.NewBusinessService(store.businesses, adminSvc, authorizer, store.transactor, logger.Component(log, "business"))
	historySvc := service.NewHistoryService(store.histories)
	paymentSvc := service.NewPaymentService(service.PaymentServiceDeps{
		Payments:   store.payments,
		Businesses: store.businesses,
		IdempRepo:  store.idempotent,
		IdempCache: idempCache,
		Ledger:     store.ledger,
		History:    historySvc,
		Admin:      adminSvc,
		Auth:       authorizer,
		Transactor: store.transactor,
		Metrics:    settlementMetrics,
		Logger:     logger.Component(log, "payment"),
	})
	auditSvc := service.NewAuditService(store.audit, logger.Component(log, "audit"))

	if cfg.Contract.Owner != "" {
		bootstrapContract(ctx, adminSvc, cfg.Contract, log)
	}

	deps := httpHandler.RouterDeps{
		AdminSvc:        adminSvc,
		BusinessSvc:     businessSvc,
		PaymentSvc:      paymentSvc,
		HistorySvc:      historySvc,
		ConsentVerifier: consentSvc,
		NonceStore:      nonceStore,
		NonceTTL:        cfg.Consent.NonceTTL,
		RateLimitStore:  rateLimitStore,
		HealthCheckers:  healthCheckers,
		AuditSvc:        auditSvc,
		MetricsPath:     cfg.Metrics.Path,
		OpenAPISpec:     apidocs.OpenAPI,
		Logger:          log,
	}
	if m != nil {
		deps.Metrics = m
	}
	router := httpHandler.SetupRouter(deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

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

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store := memStorage.NewStore()
		ledger := memStorage.NewLedger(store)
		for _, g := range cfg.Ledger.Genesis {
			account, err := domain.ParseAddress(g.Account)
			if err != nil {
				return nil, fmt.Errorf("genesis account %q: %w", g.Account, err)
			}
			if err := ledger.Credit(ctx, account, g.Asset, g.Amount); err != nil {
				return nil, fmt.Errorf("genesis credit %s: %w", g.Account, err)
			}
		}
		log.Warn().Int("genesis_accounts", len(cfg.Ledger.Genesis)).Msg("Using in-memory storage, state is lost on restart")

		return &storage{
			admin:      memStorage.NewAdminRepository(store),
			businesses: memStorage.NewBusinessRepository(store),
			payments:   memStorage.NewPaymentRepository(store),
			histories:  memStorage.NewHistoryRepository(store),
			idempotent: memStorage.NewIdempotencyRepository(store),
			audit:      memStorage.NewAuditRepository(store),
			ledger:     ledger,
			transactor: store,
			health:     store,
			close:      func() {},
		}, nil

	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		log.Info().Msg("PostgreSQL connected")

		if cfg.Database.AutoMigrate {
			if err := pgStorage.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			log.Info().Msg("Database schema applied")
		}
		if len(cfg.Ledger.Genesis) > 0 {
			log.Warn().Msg("ledger.genesis is ignored by the postgres driver")
		}

		return &storage{
			admin:      pgStorage.NewAdminRepo(pool),
			businesses: pgStorage.NewBusinessRepo(pool),
			payments:   pgStorage.NewPaymentRepo(pool),
			histories:  pgStorage.NewHistoryRepo(pool),
			idempotent: pgStorage.NewIdempotencyRepo(pool),
			audit:      pgStorage.NewAuditRepo(pool),
			ledger:     pgStorage.NewLedger(pool),
			transactor: pgStorage.NewTransactor(pool),
			health:     pgStorage.NewHealthCheck(pool),
			close:      pool.Close,
		}, nil
	}
}

// bootstrapContract initializes the admin record from configuration. A
// conflicting existing record is logged and left untouched.
func bootstrapContract(ctx context.Context, adminSvc ports.AdminService, cfg config.ContractConfig, log zerolog.Logger) {
	owner, err := domain.ParseAddress(cfg.Owner)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid contract.owner")
	}
	if err := adminSvc.Bootstrap(ctx, owner, cfg.DefaultFeeBps); err != nil {
		log.Warn().Err(err).Str("owner", owner.String()).Msg("Contract bootstrap refused")
		return
	}
	log.Info().Str("owner", owner.String()).Uint32("default_fee_bps", cfg.DefaultFeeBps).Msg("Contract initialized from config")
}
