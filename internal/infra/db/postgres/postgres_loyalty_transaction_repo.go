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

var _ repository.LoyaltyTransactionRepository = (*loyaltyTransactionRepo)(nil)

type loyaltyTransactionRepo struct {
	pool *pgxpool.Pool
}

func NewLoyaltyTransactionRepo(pool *pgxpool.Pool) *loyaltyTransactionRepo {
	return &loyaltyTransactionRepo{pool: pool}
}

var transactionColumns = []string{
	"id", "customer_id", "type", "points", "balance_after", "description", "reference_id", "created_at",
}

func (r *loyaltyTransactionRepo) Append(ctx context.Context, tx repository.Tx, t *model.LoyaltyTransaction) error {
	if t == nil || t.ID == "" || t.CustomerID == "" {
		return domain.ErrInvalidArgument
	}
	q, args, err := psql.Insert("loyalty_transactions").
		Columns(transactionColumns...).
		Values(t.ID, t.CustomerID, string(t.Type), t.Points, t.BalanceAfter, t.Description, t.ReferenceID, t.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build insert: %w", domain.ErrOperationFailed, err)
	}
	_, err = execSQL(ctx, r.pool, tx, q, args...)
	return err
}

func (r *loyaltyTransactionRepo) SumByCustomer(ctx context.Context, tx repository.Tx, customerID string) (int64, error) {
	const q = `SELECT COALESCE(SUM(points), 0)::BIGINT FROM loyalty_transactions WHERE customer_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, customerID)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, scanErr(err)
	}
	return sum, nil
}

// ListByCustomer returns newest entries first.
func (r *loyaltyTransactionRepo) ListByCustomer(ctx context.Context, tx repository.Tx, customerID string, f model.TransactionFilter) ([]*model.LoyaltyTransaction, error) {
	limit, offset := pageBounds(f.Limit, f.Offset)
	b := psql.Select(transactionColumns...).
		From("loyalty_transactions").
		Where(sq.Eq{"customer_id": customerID})
	if f.Type != nil {
		b = b.Where(sq.Eq{"type": string(*f.Type)})
	}
	q, args, err := b.OrderBy("created_at DESC", "id DESC").Limit(limit).Offset(offset).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: build select: %w", domain.ErrOperationFailed, err)
	}

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*model.LoyaltyTransaction, 0, limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func scanTransaction(row pgx.Row) (*model.LoyaltyTransaction, error) {
	var (
		t   model.LoyaltyTransaction
		typ string
	)
	if err := row.Scan(&t.ID, &t.CustomerID, &typ, &t.Points, &t.BalanceAfter, &t.Description,
		&t.ReferenceID, &t.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	t.Type = model.TransactionType(typ)
	return &t, nil
}
