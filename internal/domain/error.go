package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Loyalty outcomes. Expected business results, never retried.
	ErrInsufficientPoints  = errors.New("insufficient points")
	ErrTierTooLow          = errors.New("loyalty tier too low")
	ErrUsageLimitReached   = errors.New("reward usage limit reached")
	ErrRewardUnavailable   = errors.New("reward unavailable")
	ErrInvalidReferralCode = errors.New("invalid referral code")

	// ErrConcurrencyConflict is retryable: the store could not serialize the unit of work.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	// ErrInvariantViolation means the ledger no longer sums to the stored balance. Fatal.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)

// InsufficientPointsError reports how many points an operation needed.
type InsufficientPointsError struct {
	Required  int64
	Available int64
}

func (e *InsufficientPointsError) Error() string {
	return fmt.Sprintf("insufficient points: required %d, available %d", e.Required, e.Available)
}

func (e *InsufficientPointsError) Is(target error) bool { return target == ErrInsufficientPoints }

// TierTooLowError carries tier names as strings to keep domain free of model imports.
type TierTooLowError struct {
	CustomerTier string
	RequiredTier string
}

func (e *TierTooLowError) Error() string {
	return fmt.Sprintf("loyalty tier too low: customer is %s, reward requires %s", e.CustomerTier, e.RequiredTier)
}

func (e *TierTooLowError) Is(target error) bool { return target == ErrTierTooLow }

type UsageLimitReachedError struct {
	RewardID string
	Limit    int64
}

func (e *UsageLimitReachedError) Error() string {
	return fmt.Sprintf("reward %s reached its usage limit of %d", e.RewardID, e.Limit)
}

func (e *UsageLimitReachedError) Is(target error) bool { return target == ErrUsageLimitReached }

// Reasons a reward can be unavailable.
const (
	RewardMissing     = "not_found"
	RewardInactive    = "inactive"
	RewardNotYetValid = "not_yet_valid"
	RewardExpired     = "expired"
)

type RewardUnavailableError struct {
	RewardID string
	Reason   string
}

func (e *RewardUnavailableError) Error() string {
	return fmt.Sprintf("reward %s unavailable: %s", e.RewardID, e.Reason)
}

// Is matches ErrRewardUnavailable, and ErrNotFound when the reward does not exist.
func (e *RewardUnavailableError) Is(target error) bool {
	if target == ErrRewardUnavailable {
		return true
	}
	return target == ErrNotFound && e.Reason == RewardMissing
}

// InvariantViolationError describes a ledger whose deltas do not sum to the stored balance.
type InvariantViolationError struct {
	CustomerID string
	Balance    int64
	LedgerSum  int64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("ledger invariant violated for customer %s: balance %d, ledger sum %d", e.CustomerID, e.Balance, e.LedgerSum)
}

func (e *InvariantViolationError) Is(target error) bool { return target == ErrInvariantViolation }

// IsBusinessOutcome reports whether err is an expected denial rather than a failure.
func IsBusinessOutcome(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInsufficientPoints) ||
		errors.Is(err, ErrTierTooLow) ||
		errors.Is(err, ErrUsageLimitReached) ||
		errors.Is(err, ErrRewardUnavailable) ||
		errors.Is(err, ErrInvalidReferralCode)
}
