package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/domain/ports/repository"
	"shopdesk-loyalty/internal/infra/logging"
)

var _ CatalogUseCase = (*catalogUC)(nil)

type CatalogUseCase interface {
	// ListAvailable returns active rewards not past valid_until, cheapest first.
	ListAvailable(ctx context.Context, now time.Time) ([]*model.Reward, error)
	Get(ctx context.Context, rewardID string) (*model.Reward, error)
	// Save creates or updates a catalog entry. Usage counts are left alone.
	Save(ctx context.Context, r *model.Reward) error
}

type catalogUC struct {
	rewards repository.RewardRepository
	log     *zerolog.Logger
}

// NewCatalogUseCase takes the cached reward repository; reads here may be slightly stale.
func NewCatalogUseCase(rewards repository.RewardRepository, logger *zerolog.Logger) *catalogUC {
	return &catalogUC{rewards: rewards, log: logging.Component(logger, "CatalogUC")}
}

func (u *catalogUC) ListAvailable(ctx context.Context, now time.Time) ([]*model.Reward, error) {
	defer logging.TraceDuration(u.log, "CatalogUC.ListAvailable")()

	all, err := u.rewards.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Reward, 0, len(all))
	for _, r := range all {
		if r.Listed(now) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PointsCost != out[j].PointsCost {
			return out[i].PointsCost < out[j].PointsCost
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (u *catalogUC) Get(ctx context.Context, rewardID string) (*model.Reward, error) {
	defer logging.TraceDuration(u.log, "CatalogUC.Get")()
	return u.rewards.FindByID(ctx, repository.NoTX, rewardID)
}

func (u *catalogUC) Save(ctx context.Context, r *model.Reward) error {
	defer logging.TraceDuration(u.log, "CatalogUC.Save")()
	if err := r.Validate(); err != nil {
		return err
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = time.Now()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = r.UpdatedAt
	}
	return u.rewards.Save(ctx, repository.NoTX, r)
}
