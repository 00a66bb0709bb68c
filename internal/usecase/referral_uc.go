package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/ports/repository"
	"shopdesk-loyalty/internal/infra/logging"
	"shopdesk-loyalty/internal/infra/metrics"
)

var _ ReferralUseCase = (*referralUC)(nil)

type ReferralUseCase interface {
	// GetOrCreateCode returns the customer's code, issuing one on first call.
	GetOrCreateCode(ctx context.Context, customerID string) (string, error)
	// Validate resolves a code to the referring customer. It never writes.
	Validate(ctx context.Context, code string) (string, error)
}

type ReferralOptions struct {
	Attempts  int
	TxOptions pgx.TxOptions
	// Generate overrides the code generator.
	Generate func() (string, error)
}

// errCodeCollision aborts one issuance attempt; the caller retries with a fresh code.
var errCodeCollision = errors.New("referral code collision")

type referralUC struct {
	accounts repository.LoyaltyAccountRepository
	tm       repository.TransactionManager
	opts     ReferralOptions
	log      *zerolog.Logger
}

func NewReferralUseCase(accounts repository.LoyaltyAccountRepository, tm repository.TransactionManager, opts ReferralOptions, logger *zerolog.Logger) *referralUC {
	if opts.Attempts <= 0 {
		opts.Attempts = 5
	}
	if opts.Generate == nil {
		opts.Generate = generateReferralCode
	}
	return &referralUC{accounts: accounts, tm: tm, opts: opts, log: logging.Component(logger, "ReferralUC")}
}

func (u *referralUC) GetOrCreateCode(ctx context.Context, customerID string) (string, error) {
	defer logging.TraceDuration(u.log, "ReferralUC.GetOrCreateCode")()

	acct, err := u.accounts.FindByID(ctx, repository.NoTX, customerID)
	if err != nil {
		return "", err
	}
	if acct.ReferralCode != nil {
		return *acct.ReferralCode, nil
	}

	for attempt := 1; attempt <= u.opts.Attempts; attempt++ {
		code, err := u.issue(ctx, customerID)
		switch {
		case err == nil:
			return code, nil
		case errors.Is(err, errCodeCollision), errors.Is(err, domain.ErrConcurrencyConflict):
			u.log.Warn().Err(err).Str("customer_id", customerID).Int("attempt", attempt).Msg("referral code attempt failed, retrying")
			continue
		default:
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no unique referral code after %d attempts", domain.ErrOperationFailed, u.opts.Attempts)
}

// issue runs one attempt under the account row lock, so concurrent callers for the same
// customer see each other's code instead of minting two.
func (u *referralUC) issue(ctx context.Context, customerID string) (string, error) {
	var code string
	err := u.tm.WithTx(ctx, u.opts.TxOptions, func(ctx context.Context, tx repository.Tx) error {
		acct, err := u.accounts.FindByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if acct.ReferralCode != nil {
			code = *acct.ReferralCode
			return nil
		}

		candidate, err := u.opts.Generate()
		if err != nil {
			return fmt.Errorf("generate referral code: %w", err)
		}
		_, err = u.accounts.FindByReferralCode(ctx, tx, candidate)
		switch {
		case err == nil:
			return errCodeCollision
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		// The unique index still catches a code taken between the check and the write.
		if err := u.accounts.SetReferralCode(ctx, tx, customerID, candidate); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return errCodeCollision
			}
			return err
		}
		code = candidate
		metrics.IncReferralCodeIssued()
		return nil
	})
	return code, err
}

func (u *referralUC) Validate(ctx context.Context, code string) (string, error) {
	defer logging.TraceDuration(u.log, "ReferralUC.Validate")()
	if code == "" {
		return "", domain.ErrInvalidReferralCode
	}
	acct, err := u.accounts.FindByReferralCode(ctx, repository.NoTX, code)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrInvalidReferralCode
	}
	if err != nil {
		return "", err
	}
	return acct.CustomerID, nil
}
