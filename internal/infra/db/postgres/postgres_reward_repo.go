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

var _ repository.RewardRepository = (*rewardRepo)(nil)

type rewardRepo struct {
	pool *pgxpool.Pool
}

func NewRewardRepo(pool *pgxpool.Pool) *rewardRepo {
	return &rewardRepo{pool: pool}
}

const rewardColumns = `id, name, description, points_cost, minimum_tier, active, valid_from, valid_until, usage_limit, usage_count, created_at, updated_at`

// Save upserts catalog fields. usage_count is never overwritten here.
func (r *rewardRepo) Save(ctx context.Context, tx repository.Tx, rw *model.Reward) error {
	if rw == nil || rw.ID == "" || rw.PointsCost <= 0 || !rw.MinimumTier.Valid() {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO rewards (` + rewardColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  name=$2, description=$3, points_cost=$4, minimum_tier=$5, active=$6,
  valid_from=$7, valid_until=$8, usage_limit=$9, updated_at=$12;`
	_, err := execSQL(ctx, r.pool, tx, q,
		rw.ID, rw.Name, rw.Description, rw.PointsCost, string(rw.MinimumTier), rw.Active,
		rw.ValidFrom, rw.ValidUntil, rw.UsageLimit, rw.UsageCount, rw.CreatedAt, rw.UpdatedAt)
	return err
}

func (r *rewardRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	const q = `SELECT ` + rewardColumns + ` FROM rewards WHERE id=$1;`
	return r.queryOne(ctx, tx, q, id)
}

func (r *rewardRepo) FindByIDForUpdate(ctx context.Context, tx repository.Tx, id string) (*model.Reward, error) {
	t, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT ` + rewardColumns + ` FROM rewards WHERE id=$1 FOR UPDATE;`
	return r.queryOne(ctx, t, q, id)
}

func (r *rewardRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Reward, error) {
	const q = `SELECT ` + rewardColumns + ` FROM rewards WHERE active ORDER BY points_cost ASC, name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Reward
	for rows.Next() {
		rw, err := scanReward(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

// IncrementUsage is a guarded increment: the WHERE clause refuses to pass the cap even if
// the caller skipped its own check.
func (r *rewardRepo) IncrementUsage(ctx context.Context, tx repository.Tx, id string) (int64, error) {
	const q = `
UPDATE rewards
   SET usage_count = usage_count + 1, updated_at = now()
 WHERE id=$1 AND (usage_limit IS NULL OR usage_count < usage_limit)
RETURNING usage_count;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := row.Scan(&count); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, scanErr(err)
		}
		// No row updated: either the reward is gone or it is full.
		rw, ferr := r.FindByID(ctx, tx, id)
		if ferr != nil {
			return 0, ferr
		}
		var limit int64
		if rw.UsageLimit != nil {
			limit = *rw.UsageLimit
		}
		return 0, &domain.UsageLimitReachedError{RewardID: id, Limit: limit}
	}
	return count, nil
}

func (r *rewardRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Reward, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanReward(row)
}

func scanReward(row pgx.Row) (*model.Reward, error) {
	var (
		rw   model.Reward
		tier string
	)
	if err := row.Scan(&rw.ID, &rw.Name, &rw.Description, &rw.PointsCost, &tier, &rw.Active,
		&rw.ValidFrom, &rw.ValidUntil, &rw.UsageLimit, &rw.UsageCount, &rw.CreatedAt, &rw.UpdatedAt); err != nil {
		return nil, scanErr(err)
	}
	t, err := model.ParseTier(tier)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrReadDatabaseRow, err)
	}
	rw.MinimumTier = t
	return &rw, nil
}
