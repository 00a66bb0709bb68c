package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
)

var _ repository.OutboxRepository = (*outboxRepo)(nil)

type outboxRepo struct {
	pool *pgxpool.Pool
}

func NewOutboxRepo(pool *pgxpool.Pool) *outboxRepo {
	return &outboxRepo{pool: pool}
}

func (r *outboxRepo) Append(ctx context.Context, tx repository.Tx, e *model.OutboxEvent) error {
	if e == nil || e.ID == "" || e.Kind == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO loyalty_events (id, kind, key, payload, created_at)
VALUES ($1,$2,$3,$4,$5);`
	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.Kind, e.Key, []byte(e.Payload), e.CreatedAt)
	return err
}

// FetchUnpublished locks the claimed rows with SKIP LOCKED so concurrent relays split the
// backlog instead of publishing the same event twice.
func (r *outboxRepo) FetchUnpublished(ctx context.Context, tx repository.Tx, limit int) ([]*model.OutboxEvent, error) {
	t, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	const q = `
SELECT id, kind, key, payload, created_at
  FROM loyalty_events
 WHERE published_at IS NULL
 ORDER BY created_at ASC
 LIMIT $1
 FOR UPDATE SKIP LOCKED;`
	rows, err := queryRows(ctx, r.pool, t, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.OutboxEvent
	for rows.Next() {
		var (
			e       model.OutboxEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.Key, &payload, &e.CreatedAt); err != nil {
			return nil, scanErr(err)
		}
		e.Payload = payload
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func (r *outboxRepo) MarkPublished(ctx context.Context, tx repository.Tx, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE loyalty_events SET published_at=$2 WHERE id = ANY($1::uuid[]);`
	_, err := execSQL(ctx, r.pool, tx, q, ids, at)
	return err
}
