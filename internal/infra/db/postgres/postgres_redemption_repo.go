package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
)

var _ repository.RedemptionRepository = (*redemptionRepo)(nil)

type redemptionRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionRepo(pool *pgxpool.Pool) *redemptionRepo {
	return &redemptionRepo{pool: pool}
}

var redemptionColumns = []string{"id", "reward_id", "customer_id", "points_used", "expires_at", "created_at"}

func (r *redemptionRepo) Create(ctx context.Context, tx repository.Tx, rd *model.RewardRedemption) error {
	if rd == nil || rd.ID == "" {
		return domain.ErrInvalidArgument
	}
	q, args, err := psql.Insert("reward_redemptions").
		Columns(redemptionColumns...).
		Values(rd.ID, rd.RewardID, rd.CustomerID, rd.PointsUsed, rd.ExpiresAt, rd.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build insert: %w", domain.ErrOperationFailed, err)
	}
	_, err = execSQL(ctx, r.pool, tx, q, args...)
	return err
}

func (r *redemptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RewardRedemption, error) {
	q, args, err := psql.Select(redemptionColumns...).From("reward_redemptions").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %w", domain.ErrOperationFailed, err)
	}
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanRedemption(row)
}

func (r *redemptionRepo) ListByCustomer(ctx context.Context, tx repository.Tx, customerID string, limit, offset int) ([]*model.RewardRedemption, error) {
	lim, off := pageBounds(limit, offset)
	q, args, err := psql.Select(redemptionColumns...).
		From("reward_redemptions").
		Where(sq.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(lim).
		Offset(off).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %w", domain.ErrOperationFailed, err)
	}
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RewardRedemption
	for rows.Next() {
		rd, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rd)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func scanRedemption(row pgx.Row) (*model.RewardRedemption, error) {
	var rd model.RewardRedemption
	if err := row.Scan(&rd.ID, &rd.RewardID, &rd.CustomerID, &rd.PointsUsed, &rd.ExpiresAt, &rd.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return &rd, nil
}
