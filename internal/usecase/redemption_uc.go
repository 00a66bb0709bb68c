package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/adapter"
	"shopdesk-loyalty/internal/domain/ports/repository"
	"shopdesk-loyalty/internal/infra/logging"
	"shopdesk-loyalty/internal/infra/metrics"
)

var _ RedemptionUseCase = (*redemptionUC)(nil)

type RedemptionUseCase interface {
	Redeem(ctx context.Context, customerID, rewardID string) (*model.RedemptionResult, error)
	ListRedemptions(ctx context.Context, customerID string, limit, offset int) ([]*model.RewardRedemption, error)
}

type RedemptionOptions struct {
	// Window is how long a redemption stays usable after it is created.
	Window  time.Duration
	LockTTL time.Duration
}

type redemptionUC struct {
	accounts    repository.LoyaltyAccountRepository
	rewards     repository.RewardRepository
	redemptions repository.RedemptionRepository
	outbox      repository.OutboxRepository
	tm          repository.TransactionManager
	locker      adapter.Locker // optional
	poster      *poster
	ledger      LedgerOptions
	opts        RedemptionOptions
	log         *zerolog.Logger
}

// NewRedemptionUseCase wires the engine. locker may be nil, in which case only database
// row locks serialize redemptions.
func NewRedemptionUseCase(
	accounts repository.LoyaltyAccountRepository,
	txs repository.LoyaltyTransactionRepository,
	rewards repository.RewardRepository,
	redemptions repository.RedemptionRepository,
	outbox repository.OutboxRepository,
	tm repository.TransactionManager,
	locker adapter.Locker,
	ledger LedgerOptions,
	opts RedemptionOptions,
	logger *zerolog.Logger,
) *redemptionUC {
	ledger = ledger.withDefaults()
	if opts.Window <= 0 {
		opts.Window = 30 * 24 * time.Hour
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 5 * time.Second
	}
	log := logging.Component(logger, "RedemptionUC")
	return &redemptionUC{
		accounts:    accounts,
		rewards:     rewards,
		redemptions: redemptions,
		outbox:      outbox,
		tm:          tm,
		locker:      locker,
		poster:      &poster{accounts: accounts, txs: txs, opts: ledger, log: log},
		ledger:      ledger,
		opts:        opts,
		log:         log,
	}
}

// checkRedeemable runs the four preconditions in order; the first failure wins.
func checkRedeemable(acct *model.LoyaltyAccount, rw *model.Reward, rewardID string, now time.Time) error {
	if reason := rw.Unavailability(now); reason != "" {
		return &domain.RewardUnavailableError{RewardID: rewardID, Reason: reason}
	}
	if acct.Points < rw.PointsCost {
		return &domain.InsufficientPointsError{Required: rw.PointsCost, Available: acct.Points}
	}
	if !model.MeetsMinimum(acct.Tier, rw.MinimumTier) {
		return &domain.TierTooLowError{CustomerTier: acct.Tier.String(), RequiredTier: rw.MinimumTier.String()}
	}
	if rw.Exhausted() {
		return &domain.UsageLimitReachedError{RewardID: rw.ID, Limit: *rw.UsageLimit}
	}
	return nil
}

func (u *redemptionUC) findReward(ctx context.Context, tx repository.Tx, rewardID string, lock bool) (*model.Reward, error) {
	var (
		rw  *model.Reward
		err error
	)
	if lock {
		rw, err = u.rewards.FindByIDForUpdate(ctx, tx, rewardID)
	} else {
		rw, err = u.rewards.FindByID(ctx, tx, rewardID)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return rw, err
}

// Redeem exchanges points for a reward. The pre-check on the catalog read path only fails
// fast; the decision that commits is taken again on rows locked account first, reward second.
func (u *redemptionUC) Redeem(ctx context.Context, customerID, rewardID string) (*model.RedemptionResult, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.Redeem")()
	log := logging.With(logging.WithCustomerID(ctx, customerID), u.log)

	res, err := u.redeem(ctx, log, customerID, rewardID)
	metrics.IncRedemption(resultLabel(err))
	switch {
	case err == nil:
		metrics.AddRedeemedPoints(res.Redemption.PointsUsed)
		log.Info().
			Str("reward_id", rewardID).
			Str("redemption_id", res.Redemption.ID).
			Int64("points_used", res.Redemption.PointsUsed).
			Int64("remaining", res.Balance.Points).
			Msg("reward redeemed")
	case domain.IsBusinessOutcome(err):
		log.Debug().Err(err).Str("reward_id", rewardID).Msg("redemption denied")
	case errors.Is(err, domain.ErrConcurrencyConflict):
		log.Warn().Err(err).Str("reward_id", rewardID).Msg("redemption conflict")
	default:
		log.Error().Err(err).Str("reward_id", rewardID).Msg("redemption failed")
	}
	return res, err
}

func (u *redemptionUC) redeem(ctx context.Context, log *zerolog.Logger, customerID, rewardID string) (*model.RedemptionResult, error) {
	if customerID == "" || rewardID == "" {
		return nil, fmt.Errorf("%w: customer and reward ids are required", domain.ErrInvalidArgument)
	}

	// Fast pre-check.
	rw, err := u.findReward(ctx, repository.NoTX, rewardID, false)
	if err != nil {
		return nil, err
	}
	if rw == nil {
		return nil, &domain.RewardUnavailableError{RewardID: rewardID, Reason: domain.RewardMissing}
	}
	acct, err := u.accounts.FindByID(ctx, repository.NoTX, customerID)
	if err != nil {
		return nil, err
	}
	if err := checkRedeemable(acct, rw, rewardID, u.ledger.Now()); err != nil {
		// The catalog read may come from a cache another instance has not invalidated.
		if err := u.confirmDenial(ctx, customerID, rewardID); err != nil {
			return nil, err
		}
		log.Debug().Str("reward_id", rewardID).Msg("cached reward was stale, redeeming")
	}

	if u.locker != nil {
		key := "loyalty:redeem:" + customerID
		token, err := u.locker.TryLock(ctx, key, u.opts.LockTTL)
		switch {
		case err == nil:
			defer func() {
				if err := u.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
					log.Warn().Err(err).Msg("failed to release redemption lock")
				}
			}()
		case errors.Is(err, domain.ErrConcurrencyConflict), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, err
		default:
			// The lock only sheds duplicates; row locks still serialize the write.
			log.Warn().Err(err).Msg("redemption lock unavailable, continuing on row locks")
		}
	}

	var result *model.RedemptionResult
	err = withConflictRetry(ctx, log, "redeem", u.ledger.MaxTxRetries, func() error {
		return u.tm.WithTx(ctx, u.ledger.TxOptions, func(ctx context.Context, tx repository.Tx) error {
			r, err := u.redeemTx(ctx, tx, customerID, rewardID)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if inv, ok := u.rewards.(repository.RewardCacheInvalidator); ok {
		inv.Invalidate(context.WithoutCancel(ctx), rewardID)
	}
	return result, nil
}

// confirmDenial re-runs the checks on uncached rows in a read-only transaction. It returns
// nil when the fresh rows allow the redemption.
func (u *redemptionUC) confirmDenial(ctx context.Context, customerID, rewardID string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(ctx context.Context, tx repository.Tx) error {
		rw, err := u.findReward(ctx, tx, rewardID, false)
		if err != nil {
			return err
		}
		acct, err := u.accounts.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		return checkRedeemable(acct, rw, rewardID, u.ledger.Now())
	})
}

func (u *redemptionUC) redeemTx(ctx context.Context, tx repository.Tx, customerID, rewardID string) (*model.RedemptionResult, error) {
	acct, err := u.accounts.FindByIDForUpdate(ctx, tx, customerID)
	if err != nil {
		return nil, err
	}
	rw, err := u.findReward(ctx, tx, rewardID, true)
	if err != nil {
		return nil, err
	}
	now := u.ledger.Now()
	if err := checkRedeemable(acct, rw, rewardID, now); err != nil {
		return nil, err
	}

	redemption := &model.RewardRedemption{
		ID:         uuid.NewString(),
		RewardID:   rw.ID,
		CustomerID: customerID,
		PointsUsed: rw.PointsCost,
		ExpiresAt:  now.Add(u.opts.Window),
		CreatedAt:  now,
	}
	if err := u.redemptions.Create(ctx, tx, redemption); err != nil {
		return nil, err
	}
	if _, err := u.rewards.IncrementUsage(ctx, tx, rw.ID); err != nil {
		return nil, err
	}
	ref := redemption.ID
	entry, err := u.poster.post(ctx, tx, acct, model.TransactionInput{
		CustomerID:  customerID,
		Type:        model.TransactionRedeem,
		Delta:       -rw.PointsCost,
		Description: "Redeemed " + rw.Name,
		ReferenceID: &ref,
	})
	if err != nil {
		return nil, err
	}

	event := model.RedemptionEvent{
		CustomerID:      customerID,
		RewardID:        rw.ID,
		RedemptionID:    redemption.ID,
		PointsUsed:      redemption.PointsUsed,
		RemainingPoints: acct.Points,
		OccurredAt:      now,
	}
	outboxEvent, err := model.NewRedemptionOutboxEvent(uuid.NewString(), event)
	if err != nil {
		return nil, err
	}
	if err := u.outbox.Append(ctx, tx, outboxEvent); err != nil {
		return nil, err
	}

	return &model.RedemptionResult{
		Redemption:  redemption,
		Transaction: entry,
		Balance:     acct.Balance(),
		Event:       event,
	}, nil
}

func (u *redemptionUC) ListRedemptions(ctx context.Context, customerID string, limit, offset int) ([]*model.RewardRedemption, error) {
	defer logging.TraceDuration(u.log, "RedemptionUC.ListRedemptions")()
	if _, err := u.accounts.FindByID(ctx, repository.NoTX, customerID); err != nil {
		return nil, err
	}
	return u.redemptions.ListByCustomer(ctx, repository.NoTX, customerID, limit, offset)
}
