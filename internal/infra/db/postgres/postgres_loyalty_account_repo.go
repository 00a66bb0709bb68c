package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
)

var _ repository.LoyaltyAccountRepository = (*loyaltyAccountRepo)(nil)

type loyaltyAccountRepo struct {
	pool *pgxpool.Pool
}

func NewLoyaltyAccountRepo(pool *pgxpool.Pool) *loyaltyAccountRepo {
	return &loyaltyAccountRepo{pool: pool}
}

const accountColumns = `customer_id, points, lifetime_points, tier, referral_code, version, created_at, updated_at`

func (r *loyaltyAccountRepo) Create(ctx context.Context, tx repository.Tx, a *model.LoyaltyAccount) error {
	if a.IsZero() {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO loyalty_accounts (` + accountColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.CustomerID, a.Points, a.LifetimePoints, string(a.Tier), a.ReferralCode, a.Version, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *loyaltyAccountRepo) FindByID(ctx context.Context, tx repository.Tx, customerID string) (*model.LoyaltyAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM loyalty_accounts WHERE customer_id=$1;`
	return r.queryOne(ctx, tx, q, customerID)
}

func (r *loyaltyAccountRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, customerID string) (*model.LoyaltyAccount, error) {
	t, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT ` + accountColumns + ` FROM loyalty_accounts WHERE customer_id=$1 FOR UPDATE;`
	return r.queryOne(ctx, t, q, customerID)
}

// UpdateBalance guards on the version read under lock; a mismatch means the caller did not
// hold the row lock and is reported as a conflict.
func (r *loyaltyAccountRepo) UpdateBalance(ctx context.Context, tx repository.Tx, a *model.LoyaltyAccount) error {
	const q = `
UPDATE loyalty_accounts
   SET points=$2, lifetime_points=$3, tier=$4, version=version+1, updated_at=$5
 WHERE customer_id=$1 AND version=$6;`
	tag, err := execSQL(ctx, r.pool, tx, q, a.CustomerID, a.Points, a.LifetimePoints, string(a.Tier), a.UpdatedAt, a.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, ferr := r.FindByID(ctx, tx, a.CustomerID); errors.Is(ferr, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: account %s changed underneath", domain.ErrConcurrencyConflict, a.CustomerID)
	}
	a.Version++
	return nil
}

// SetReferralCode only fills an empty code; it never overwrites one.
func (r *loyaltyAccountRepo) SetReferralCode(ctx context.Context, tx repository.Tx, customerID, code string) error {
	const q = `
UPDATE loyalty_accounts
   SET referral_code=$2, updated_at=now()
 WHERE customer_id=$1 AND referral_code IS NULL;`
	tag, err := execSQL(ctx, r.pool, tx, q, customerID, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s has no free referral slot", domain.ErrAlreadyExists, customerID)
	}
	return nil
}

func (r *loyaltyAccountRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.LoyaltyAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM loyalty_accounts WHERE referral_code=$1;`
	return r.queryOne(ctx, tx, q, code)
}

func (r *loyaltyAccountRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.LoyaltyAccount, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

func scanAccount(row pgx.Row) (*model.LoyaltyAccount, error) {
	var (
		a    model.LoyaltyAccount
		tier string
	)
	if err := row.Scan(&a.CustomerID, &a.Points, &a.LifetimePoints, &tier, &a.ReferralCode,
		&a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	t, err := model.ParseTier(tier)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReadDatabaseRow, err)
	}
	a.Tier = t
	return &a, nil
}
