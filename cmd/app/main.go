package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"shopdesk-loyalty/internal/config"
	"shopdesk-loyalty/internal/domain/ports/adapter"
	"shopdesk-loyalty/internal/infra/api"
	"shopdesk-loyalty/internal/infra/db/migrations"
	pg "shopdesk-loyalty/internal/infra/db/postgres"
	"shopdesk-loyalty/internal/infra/i18n"
	"shopdesk-loyalty/internal/infra/logging"
	"shopdesk-loyalty/internal/infra/metrics"
	red "shopdesk-loyalty/internal/infra/redis"
	"shopdesk-loyalty/internal/infra/sched"
	"shopdesk-loyalty/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("loyalty service stopped")
	}
	logger.Info().Msg("loyalty service stopped")
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if cfg.Database.AutoMigrate {
		if err := migrations.Up(ctx, cfg.Database.URL); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info().Msg("database migrations applied")
	}
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis (optional) ----
	var (
		cache     adapter.Cache
		locker    adapter.Locker
		publisher adapter.EventPublisher
		limiter   api.RateLimiter
	)
	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rc.Close()
		cache = rc
		locker = red.NewLocker(rc)
		publisher = red.NewEventPublisher(rc, cfg.Events.Channel)
		limiter = red.NewRateLimiter(rc)
	} else {
		logger.Warn().Msg("redis not configured: using in-process cache, events stay in the outbox")
		cache = red.NewLocalCache(cfg.Redis.TTL)
	}

	// ---- Repositories ----
	subRepo := pg.NewSubscriptionRepo(pool)
	accountRepo := pg.NewLoyaltyAccountRepo(pool)
	txRepo := pg.NewLoyaltyTransactionRepo(pool)
	rewardRepo := pg.NewRewardRepoCacheDecorator(pg.NewRewardRepo(pool), cache, cfg.Redis.TTL, logger)
	redemptionRepo := pg.NewRedemptionRepo(pool)
	outboxRepo := pg.NewOutboxRepo(pool)

	// ---- Use cases ----
	policy, err := cfg.Loyalty.TierPolicy()
	if err != nil {
		return fmt.Errorf("tier policy: %w", err)
	}
	ledgerOpts := usecase.LedgerOptions{
		Policy:        policy,
		TxOptions:     cfg.Loyalty.TxOptions(),
		MaxTxRetries:  cfg.Loyalty.MaxTxRetries,
		VerifyOnWrite: cfg.Loyalty.VerifyLedgerOnWrite,
	}
	entitlementUC := usecase.NewEntitlementUseCase(subRepo, time.Now, logger)
	ledgerUC := usecase.NewLedgerUseCase(accountRepo, txRepo, tm, ledgerOpts, logger)
	catalogUC := usecase.NewCatalogUseCase(rewardRepo, logger)
	redemptionUC := usecase.NewRedemptionUseCase(accountRepo, txRepo, rewardRepo, redemptionRepo, outboxRepo, tm, locker, ledgerOpts,
		usecase.RedemptionOptions{Window: cfg.Loyalty.RedemptionWindow, LockTTL: cfg.Loyalty.RedemptionLockTTL}, logger)
	referralUC := usecase.NewReferralUseCase(accountRepo, tm, usecase.ReferralOptions{
		Attempts:  cfg.Loyalty.ReferralCodeAttempts,
		TxOptions: cfg.Loyalty.TxOptions(),
	}, logger)

	// ---- HTTP ----
	locales, err := i18n.LoadBundle(i18n.LocalesFS, i18n.DefaultLang)
	if err != nil {
		return fmt.Errorf("locales: %w", err)
	}
	srv := api.NewServer(api.Deps{
		Entitlements: entitlementUC,
		Ledger:       ledgerUC,
		Catalog:      catalogUC,
		Redemptions:  redemptionUC,
		Referrals:    referralUC,
	}, locales, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           api.NewRouter(srv, cfg.HTTP, pool.Ping, limiter),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", httpServer.Addr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutdown requested")
		return httpServer.Shutdown(shutdownCtx)
	})
	if publisher != nil {
		relay := sched.NewOutboxRelay(cfg.Events.RelayInterval, cfg.Events.BatchSize, outboxRepo, tm, publisher, logger)
		g.Go(func() error { return ignoreCanceled(relay.Run(gctx)) })
	}
	g.Go(func() error { return ignoreCanceled(reportPoolStats(gctx, pool)) })

	return g.Wait()
}

func reportPoolStats(ctx context.Context, pool *pgxpool.Pool) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		st := pool.Stat()
		metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
