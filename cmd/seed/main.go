package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"shopdesk-loyalty/internal/config"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
	pg "shopdesk-loyalty/internal/infra/db/postgres"
	"shopdesk-loyalty/internal/infra/logging"
	"shopdesk-loyalty/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	customer := flag.String("customer", "demo-customer", "customer id to seed")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	policy, err := cfg.Loyalty.TierPolicy()
	if err != nil {
		logger.Fatal().Err(err).Msg("tier policy")
	}
	rewardRepo := pg.NewRewardRepo(pool)
	catalog := usecase.NewCatalogUseCase(rewardRepo, logger)
	ledger := usecase.NewLedgerUseCase(pg.NewLoyaltyAccountRepo(pool), pg.NewLoyaltyTransactionRepo(pool), pg.NewTxManager(pool),
		usecase.LedgerOptions{Policy: policy, TxOptions: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}, logger)

	// Rewards are upserted by id, so reruns only refresh names and costs.
	limit := int64(100)
	seed := []struct {
		ID   string
		Name string
		Cost int64
		Tier model.Tier
		Cap  *int64
	}{
		{"free-coffee", "Free coffee", 150, model.TierBronze, nil},
		{"ten-off", "10% off next order", 500, model.TierSilver, nil},
		{"vip-lounge", "VIP lounge pass", 2000, model.TierGold, &limit},
		{"annual-gift", "Annual gift box", 8000, model.TierPlatinum, &limit},
	}
	for _, s := range seed {
		r, err := model.NewReward(s.ID, s.Name, s.Cost, s.Tier)
		if err != nil {
			logger.Fatal().Err(err).Str("reward", s.ID).Msg("build reward")
		}
		r.UsageLimit = s.Cap
		if err := catalog.Save(ctx, r); err != nil {
			logger.Fatal().Err(err).Str("reward", s.ID).Msg("save reward")
		}
		fmt.Printf("seeded reward: %s (%d points, min %s)\n", r.Name, r.PointsCost, r.MinimumTier)
	}

	subRepo := pg.NewSubscriptionRepo(pool)
	now := time.Now()
	end := now.AddDate(0, 1, 0)
	sub := &model.Subscription{
		ID:              uuid.NewString(),
		UserID:          *customer,
		PlanID:          "pro",
		PlanName:        "Pro",
		Status:          model.SubscriptionStatusActive,
		BillingInterval: model.BillingMonthly,
		StartAt:         now,
		EndAt:           &end,
		Features:        []string{"inventory", "reports", "loyalty"},
		AmountMinor:     2900,
		Currency:        "USD",
		CreatedAt:       now,
	}
	if err := subRepo.Save(ctx, repository.NoTX, sub); err != nil {
		logger.Fatal().Err(err).Msg("save subscription")
	}
	fmt.Printf("seeded subscription: %s for %s until %s\n", sub.PlanName, sub.UserID, end.Format(time.RFC3339))

	acct, err := ledger.OpenAccount(ctx, *customer)
	if err != nil {
		logger.Fatal().Err(err).Msg("open account")
	}
	if acct.Points == 0 {
		ref := "seed"
		if _, err := ledger.RecordTransaction(ctx, model.TransactionInput{
			CustomerID:  *customer,
			Type:        model.TransactionEarn,
			Delta:       1200,
			Description: "Welcome bonus",
			ReferenceID: &ref,
		}); err != nil {
			logger.Fatal().Err(err).Msg("welcome bonus")
		}
	}
	bal, err := ledger.GetBalance(ctx, *customer)
	if err != nil {
		logger.Fatal().Err(err).Msg("balance")
	}
	fmt.Printf("customer %s: %d points, tier %s\n", bal.CustomerID, bal.Points, bal.Tier)
	fmt.Println("Seeding complete.")
}
