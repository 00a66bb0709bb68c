package config

import (
	"strings"

	"github.com/jackc/pgx/v4"

	"shopdesk-loyalty/internal/domain/model"
)

// TierPolicy builds the tier policy from configured thresholds, falling back to the defaults
// when none are configured.
func (c LoyaltyConfig) TierPolicy() (*model.TierPolicy, error) {
	if len(c.TierThresholds) == 0 {
		return model.NewTierPolicy(model.DefaultTierThresholds)
	}
	m := make(map[model.Tier]int64, len(c.TierThresholds))
	for name, points := range c.TierThresholds {
		t, err := model.ParseTier(name)
		if err != nil {
			return nil, err
		}
		m[t] = points
	}
	return model.NewTierPolicy(m)
}

// TxOptions returns the transaction options used by ledger and redemption units.
func (c LoyaltyConfig) TxOptions() pgx.TxOptions {
	if strings.ToLower(c.Isolation) == "serializable" {
		return pgx.TxOptions{IsoLevel: pgx.Serializable}
	}
	return pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
}
