package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
	"shopdesk-loyalty/internal/infra/logging"
	"shopdesk-loyalty/internal/infra/metrics"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementUseCase resolves the current subscription and gates premium features on it.
// All methods are reads.
type EntitlementUseCase interface {
	// ResolveActive returns nil, nil when the user is on the free tier.
	ResolveActive(ctx context.Context, userID string) (*model.Subscription, error)
	CheckAccess(ctx context.Context, userID, featureID string) (model.AccessDecision, error)
	Entitlements(ctx context.Context, userID string) (model.Entitlement, error)
}

type entitlementUC struct {
	subs repository.SubscriptionRepository
	now  func() time.Time
	log  *zerolog.Logger
}

func NewEntitlementUseCase(subs repository.SubscriptionRepository, now func() time.Time, logger *zerolog.Logger) *entitlementUC {
	if now == nil {
		now = time.Now
	}
	return &entitlementUC{subs: subs, now: now, log: logging.Component(logger, "EntitlementUC")}
}

// ResolveActive picks the most recently created subscription that is ACTIVE and not past its
// end date. The store may hold several; the newest wins, ties broken by id.
func (u *entitlementUC) ResolveActive(ctx context.Context, userID string) (*model.Subscription, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.ResolveActive")()

	now := u.now()
	rows, err := u.subs.FindActiveForUser(ctx, repository.NoTX, userID, now)
	if err != nil {
		return nil, err
	}
	var best *model.Subscription
	for _, s := range rows {
		// The store filters too; rows without an end date or past it never count.
		if !s.ActiveAt(now) {
			continue
		}
		if best == nil || s.NewerThan(best) {
			best = s
		}
	}
	return best, nil
}

func (u *entitlementUC) CheckAccess(ctx context.Context, userID, featureID string) (model.AccessDecision, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.CheckAccess")()

	decision := model.AccessDecision{UserID: userID, FeatureID: featureID}
	sub, err := u.ResolveActive(ctx, userID)
	if err != nil {
		metrics.IncFeatureCheck("error")
		return decision, err
	}
	if sub == nil {
		decision.Reason = model.DenyNoActiveSubscription
		metrics.IncFeatureCheck("denied")
		return decision, nil
	}
	decision.PlanID = sub.PlanID
	decision.PlanName = sub.PlanName
	if !sub.HasFeature(featureID) {
		decision.Reason = model.DenyRequiresHigherPlan
		metrics.IncFeatureCheck("denied")
		return decision, nil
	}
	decision.Granted = true
	metrics.IncFeatureCheck("granted")
	return decision, nil
}

func (u *entitlementUC) Entitlements(ctx context.Context, userID string) (model.Entitlement, error) {
	defer logging.TraceDuration(u.log, "EntitlementUC.Entitlements")()

	ent := model.Entitlement{UserID: userID, Features: []string{}}
	sub, err := u.ResolveActive(ctx, userID)
	if err != nil || sub == nil {
		return ent, err
	}
	ent.SubscriptionID = sub.ID
	ent.PlanID = sub.PlanID
	ent.PlanName = sub.PlanName
	ent.Features = append(ent.Features, sub.Features...)
	ent.ValidUntil = sub.EndAt
	return ent, nil
}
