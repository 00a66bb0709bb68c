package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, status, billing_interval, start_at, end_at, features, amount_minor, currency, created_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	if s == nil || s.ID == "" || s.UserID == "" {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  plan_id=$3, plan_name=$4, status=$5, billing_interval=$6, start_at=$7, end_at=$8,
  features=$9, amount_minor=$10, currency=$11;`

	features := s.Features
	if features == nil {
		features = []string{}
	}
	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.PlanName, string(s.Status), string(s.BillingInterval),
		s.StartAt, s.EndAt, features, s.AmountMinor, s.Currency, s.CreatedAt)
	return err
}

// FindActiveForUser does not enforce a single row: billing may leave several ACTIVE
// subscriptions behind and picking one is the resolver's job.
func (r *subscriptionRepo) FindActiveForUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.Subscription, error) {
	const q = `
SELECT ` + subscriptionColumns + `
  FROM subscriptions
 WHERE user_id=$1 AND status='ACTIVE' AND end_at IS NOT NULL AND end_at >= $2
 ORDER BY created_at DESC, id DESC;`

	rows, err := queryRows(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		s                model.Subscription
		status, interval string
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.PlanName, &status, &interval,
		&s.StartAt, &s.EndAt, &s.Features, &s.AmountMinor, &s.Currency, &s.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	s.Status = model.SubscriptionStatus(status)
	s.BillingInterval = model.BillingInterval(interval)
	return &s, nil
}
