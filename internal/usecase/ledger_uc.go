package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
	"shopdesk-loyalty/internal/infra/logging"
	"shopdesk-loyalty/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// LedgerUseCase owns every change to a customer's points. Nothing else writes balances.
type LedgerUseCase interface {
	// OpenAccount creates an empty BRONZE account, or returns the existing one.
	OpenAccount(ctx context.Context, customerID string) (*model.LoyaltyAccount, error)
	GetBalance(ctx context.Context, customerID string) (model.Balance, error)
	RecordTransaction(ctx context.Context, in model.TransactionInput) (*model.LoyaltyTransaction, error)
	History(ctx context.Context, customerID string, f model.TransactionFilter) ([]*model.LoyaltyTransaction, error)
	// VerifyLedger compares the stored balance with the sum of ledger deltas.
	VerifyLedger(ctx context.Context, customerID string) error
}

// LedgerOptions are the tunables shared by every use case that posts to the ledger.
type LedgerOptions struct {
	Policy        *model.TierPolicy
	TxOptions     pgx.TxOptions
	MaxTxRetries  int
	VerifyOnWrite bool
	Now           func() time.Time
}

func (o LedgerOptions) withDefaults() LedgerOptions {
	if o.Policy == nil {
		o.Policy = model.MustDefaultTierPolicy()
	}
	if o.MaxTxRetries <= 0 {
		o.MaxTxRetries = 3
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// poster applies one transaction to an account that the caller has already locked in tx.
// Redemption uses it too so ledger rules live in one place.
type poster struct {
	accounts repository.LoyaltyAccountRepository
	txs      repository.LoyaltyTransactionRepository
	opts     LedgerOptions
	log      *zerolog.Logger
}

func (p *poster) post(ctx context.Context, tx repository.Tx, acct *model.LoyaltyAccount, in model.TransactionInput) (*model.LoyaltyTransaction, error) {
	if err := in.Type.ValidateDelta(in.Delta); err != nil {
		return nil, err
	}
	if p.opts.VerifyOnWrite {
		if err := p.verify(ctx, tx, acct); err != nil {
			return nil, err
		}
	}
	if in.Delta < 0 && acct.Points+in.Delta < 0 {
		return nil, &domain.InsufficientPointsError{Required: -in.Delta, Available: acct.Points}
	}

	now := p.opts.Now()
	acct.Points += in.Delta
	if in.Type.CountsTowardLifetime() {
		acct.LifetimePoints += in.Delta
		if acct.LifetimePoints < 0 {
			acct.LifetimePoints = 0
		}
	}
	acct.Tier = p.opts.Policy.TierFor(acct.LifetimePoints)
	acct.UpdatedAt = now
	if err := p.accounts.UpdateBalance(ctx, tx, acct); err != nil {
		return nil, err
	}

	entry := &model.LoyaltyTransaction{
		ID:           ulid.Make().String(),
		CustomerID:   acct.CustomerID,
		Type:         in.Type,
		Points:       in.Delta,
		BalanceAfter: acct.Points,
		Description:  in.Description,
		ReferenceID:  in.ReferenceID,
		CreatedAt:    now,
	}
	if err := p.txs.Append(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (p *poster) verify(ctx context.Context, tx repository.Tx, acct *model.LoyaltyAccount) error {
	sum, err := p.txs.SumByCustomer(ctx, tx, acct.CustomerID)
	if err != nil {
		return err
	}
	if sum != acct.Points {
		metrics.IncInvariantViolation()
		p.log.Error().
			Str("customer_id", acct.CustomerID).
			Int64("balance", acct.Points).
			Int64("ledger_sum", sum).
			Msg("ledger invariant violated")
		return &domain.InvariantViolationError{CustomerID: acct.CustomerID, Balance: acct.Points, LedgerSum: sum}
	}
	return nil
}

type ledgerUC struct {
	accounts repository.LoyaltyAccountRepository
	txs      repository.LoyaltyTransactionRepository
	tm       repository.TransactionManager
	poster   *poster
	opts     LedgerOptions
	log      *zerolog.Logger
}

func NewLedgerUseCase(accounts repository.LoyaltyAccountRepository, txs repository.LoyaltyTransactionRepository, tm repository.TransactionManager, opts LedgerOptions, logger *zerolog.Logger) *ledgerUC {
	opts = opts.withDefaults()
	log := logging.Component(logger, "LedgerUC")
	return &ledgerUC{
		accounts: accounts,
		txs:      txs,
		tm:       tm,
		poster:   &poster{accounts: accounts, txs: txs, opts: opts, log: log},
		opts:     opts,
		log:      log,
	}
}

func (u *ledgerUC) OpenAccount(ctx context.Context, customerID string) (*model.LoyaltyAccount, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.OpenAccount")()

	acct, err := u.accounts.FindByID(ctx, repository.NoTX, customerID)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	acct, err = model.NewLoyaltyAccount(customerID)
	if err != nil {
		return nil, err
	}
	now := u.opts.Now()
	acct.CreatedAt, acct.UpdatedAt = now, now
	if err := u.accounts.Create(ctx, repository.NoTX, acct); err != nil {
		// Lost a race with another opener: theirs is just as good.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return u.accounts.FindByID(ctx, repository.NoTX, customerID)
		}
		return nil, err
	}
	u.log.Info().Str("customer_id", customerID).Msg("loyalty account opened")
	return acct, nil
}

func (u *ledgerUC) GetBalance(ctx context.Context, customerID string) (model.Balance, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.GetBalance")()
	acct, err := u.accounts.FindByID(ctx, repository.NoTX, customerID)
	if err != nil {
		return model.Balance{}, err
	}
	return acct.Balance(), nil
}

// RecordTransaction locks the account row, applies the delta and appends the ledger row in
// one database transaction. Conflicts are retried; business denials are not.
func (u *ledgerUC) RecordTransaction(ctx context.Context, in model.TransactionInput) (*model.LoyaltyTransaction, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.RecordTransaction")()
	log := logging.With(logging.WithCustomerID(ctx, in.CustomerID), u.log)

	if in.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", domain.ErrInvalidArgument)
	}
	if err := in.Type.ValidateDelta(in.Delta); err != nil {
		metrics.IncLedgerTransaction(string(in.Type), "invalid")
		return nil, err
	}

	var entry *model.LoyaltyTransaction
	err := withConflictRetry(ctx, log, "record_transaction", u.opts.MaxTxRetries, func() error {
		return u.tm.WithTx(ctx, u.opts.TxOptions, func(ctx context.Context, tx repository.Tx) error {
			acct, err := u.accounts.FindByIDForUpdate(ctx, tx, in.CustomerID)
			if err != nil {
				return err
			}
			entry, err = u.poster.post(ctx, tx, acct, in)
			return err
		})
	})
	if err != nil {
		metrics.IncLedgerTransaction(string(in.Type), resultLabel(err))
		if domain.IsBusinessOutcome(err) {
			log.Debug().Err(err).Str("type", string(in.Type)).Int64("delta", in.Delta).Msg("transaction denied")
		}
		return nil, err
	}

	metrics.IncLedgerTransaction(string(in.Type), "ok")
	metrics.AddLedgerPoints(in.Delta)
	log.Info().Str("type", string(in.Type)).Int64("delta", in.Delta).Int64("balance", entry.BalanceAfter).Msg("ledger transaction recorded")
	return entry, nil
}

func (u *ledgerUC) History(ctx context.Context, customerID string, f model.TransactionFilter) ([]*model.LoyaltyTransaction, error) {
	defer logging.TraceDuration(u.log, "LedgerUC.History")()
	if _, err := u.accounts.FindByID(ctx, repository.NoTX, customerID); err != nil {
		return nil, err
	}
	return u.txs.ListByCustomer(ctx, repository.NoTX, customerID, f)
}

// VerifyLedger reads balance and sum in one transaction so they describe the same moment.
func (u *ledgerUC) VerifyLedger(ctx context.Context, customerID string) error {
	defer logging.TraceDuration(u.log, "LedgerUC.VerifyLedger")()
	return u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(ctx context.Context, tx repository.Tx) error {
		acct, err := u.accounts.FindByID(ctx, tx, customerID)
		if err != nil {
			return err
		}
		return u.poster.verify(ctx, tx, acct)
	})
}

// resultLabel turns an error into a low-cardinality metrics label.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, domain.ErrTierTooLow):
		return "tier_too_low"
	case errors.Is(err, domain.ErrUsageLimitReached):
		return "usage_limit_reached"
	case errors.Is(err, domain.ErrRewardUnavailable):
		return "reward_unavailable"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant_violation"
	}
	return "error"
}
