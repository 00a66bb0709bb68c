package model

import (
	"fmt"
	"sort"
	"strings"

	"shopdesk-loyalty/internal/domain"
)

// Tier is a loyalty status level. Tiers are totally ordered; compare them only through
// Rank and MeetsMinimum.
type Tier string

const (
	TierBronze   Tier = "BRONZE"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// tierOrder lists tiers lowest to highest.
var tierOrder = []Tier{TierBronze, TierSilver, TierGold, TierPlatinum}

var tierRanks = func() map[Tier]int {
	m := make(map[Tier]int, len(tierOrder))
	for i, t := range tierOrder {
		m[t] = i
	}
	return m
}()

// Tiers returns all tiers ordered lowest to highest.
func Tiers() []Tier {
	out := make([]Tier, len(tierOrder))
	copy(out, tierOrder)
	return out
}

// LowestTier is the tier every new account starts in.
func LowestTier() Tier { return tierOrder[0] }

// Rank returns the position of t in the tier order. It panics on unknown tiers:
// those can only come from code, since untrusted input goes through ParseTier.
func Rank(t Tier) int {
	r, ok := tierRanks[t]
	if !ok {
		panic(fmt.Sprintf("model: unknown loyalty tier %q", string(t)))
	}
	return r
}

// MeetsMinimum reports whether customer is at or above required.
func MeetsMinimum(customer, required Tier) bool {
	return Rank(customer) >= Rank(required)
}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	_, ok := tierRanks[t]
	return ok
}

func (t Tier) String() string { return string(t) }

// ParseTier validates a tier name coming from storage, config or requests.
func ParseTier(s string) (Tier, error) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", domain.ErrInvalidArgument, s)
	}
	return t, nil
}

// TierThreshold is the minimum number of points at which a tier is reached.
type TierThreshold struct {
	Tier      Tier
	MinPoints int64
}

// TierPolicy maps a non-negative points total to exactly one tier.
type TierPolicy struct {
	thresholds []TierThreshold // ascending by MinPoints
}

// DefaultTierThresholds is used when configuration does not override them.
var DefaultTierThresholds = map[Tier]int64{
	TierBronze:   0,
	TierSilver:   550,
	TierGold:     2500,
	TierPlatinum: 10000,
}

// NewTierPolicy validates that every tier has a threshold, the lowest tier starts at zero,
// and thresholds strictly increase with rank.
func NewTierPolicy(thresholds map[Tier]int64) (*TierPolicy, error) {
	if len(thresholds) != len(tierOrder) {
		return nil, fmt.Errorf("%w: expected %d tier thresholds, got %d", domain.ErrInvalidArgument, len(tierOrder), len(thresholds))
	}
	out := make([]TierThreshold, 0, len(tierOrder))
	for _, t := range tierOrder {
		min, ok := thresholds[t]
		if !ok {
			return nil, fmt.Errorf("%w: missing threshold for tier %s", domain.ErrInvalidArgument, t)
		}
		out = append(out, TierThreshold{Tier: t, MinPoints: min})
	}
	if out[0].MinPoints != 0 {
		return nil, fmt.Errorf("%w: lowest tier must start at 0 points", domain.ErrInvalidArgument)
	}
	for i := 1; i < len(out); i++ {
		if out[i].MinPoints <= out[i-1].MinPoints {
			return nil, fmt.Errorf("%w: threshold for %s must exceed %s", domain.ErrInvalidArgument, out[i].Tier, out[i-1].Tier)
		}
	}
	return &TierPolicy{thresholds: out}, nil
}

// MustDefaultTierPolicy returns the policy built from DefaultTierThresholds.
func MustDefaultTierPolicy() *TierPolicy {
	p, err := NewTierPolicy(DefaultTierThresholds)
	if err != nil {
		panic(err)
	}
	return p
}

// TierFor returns the highest tier whose threshold points reaches. Negative input is
// treated as zero.
func (p *TierPolicy) TierFor(points int64) Tier {
	i := sort.Search(len(p.thresholds), func(i int) bool {
		return p.thresholds[i].MinPoints > points
	})
	if i == 0 {
		return p.thresholds[0].Tier
	}
	return p.thresholds[i-1].Tier
}

// Thresholds returns a copy of the thresholds, lowest tier first.
func (p *TierPolicy) Thresholds() []TierThreshold {
	out := make([]TierThreshold, len(p.thresholds))
	copy(out, p.thresholds)
	return out
}
