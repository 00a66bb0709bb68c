package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/infra/i18n"
	"shopdesk-loyalty/internal/infra/logging"
)

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type errorBody struct {
	Error   errorDetail `json:"error"`
	TraceID string      `json:"trace_id,omitempty"`
}

// classify maps a domain error to an HTTP status, a stable code and structured details.
// Detail types are checked before their sentinels.
func classify(err error) (int, string, map[string]any) {
	var (
		insufficient *domain.InsufficientPointsError
		tier         *domain.TierTooLowError
		usage        *domain.UsageLimitReachedError
		unavailable  *domain.RewardUnavailableError
		invariant    *domain.InvariantViolationError
	)
	switch {
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity, "insufficient_points", map[string]any{
			"required":  insufficient.Required,
			"available": insufficient.Available,
		}
	case errors.As(err, &tier):
		return http.StatusForbidden, "tier_too_low", map[string]any{
			"customer_tier": tier.CustomerTier,
			"required_tier": tier.RequiredTier,
		}
	case errors.As(err, &usage):
		return http.StatusConflict, "usage_limit_reached", map[string]any{
			"reward_id": usage.RewardID,
			"limit":     usage.Limit,
		}
	case errors.As(err, &unavailable):
		status := http.StatusUnprocessableEntity
		if unavailable.Reason == domain.RewardMissing {
			status = http.StatusNotFound
		}
		return status, "reward_unavailable", map[string]any{
			"reward_id": unavailable.RewardID,
			"reason":    unavailable.Reason,
		}
	case errors.As(err, &invariant):
		return http.StatusInternalServerError, "ledger_invariant_violation", map[string]any{
			"customer_id": invariant.CustomerID,
			"balance":     invariant.Balance,
			"ledger_sum":  invariant.LedgerSum,
		}
	case errors.Is(err, domain.ErrInsufficientPoints):
		return http.StatusUnprocessableEntity, "insufficient_points", nil
	case errors.Is(err, domain.ErrTierTooLow):
		return http.StatusForbidden, "tier_too_low", nil
	case errors.Is(err, domain.ErrUsageLimitReached):
		return http.StatusConflict, "usage_limit_reached", nil
	case errors.Is(err, domain.ErrRewardUnavailable):
		return http.StatusUnprocessableEntity, "reward_unavailable", nil
	case errors.Is(err, domain.ErrInvalidReferralCode):
		return http.StatusNotFound, "invalid_referral_code", nil
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", nil
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, "already_exists", nil
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", nil
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict, "concurrency_conflict", nil
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", nil
	}
	return http.StatusInternalServerError, "internal", nil
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, details := classify(err)
	l := logging.With(r.Context(), s.log)
	switch {
	case status >= 500:
		l.Error().Err(err).Str("code", code).Msg("request failed")
	case errors.Is(err, domain.ErrConcurrencyConflict):
		l.Warn().Err(err).Msg("request conflicted")
		w.Header().Set("Retry-After", "1")
	default:
		l.Debug().Err(err).Str("code", code).Msg("request denied")
	}

	msg := s.translator(r).Denial(err)
	if code == "invalid_argument" {
		// validation errors carry the field that failed
		msg = err.Error()
	}
	writeJSON(w, status, errorBody{
		Error:   errorDetail{Code: code, Message: msg, Details: details},
		TraceID: logging.TraceIDFrom(r.Context()),
	})
}

func (s *Server) translator(r *http.Request) *i18n.Translator {
	return s.locales.Match(r.Header.Get("Accept-Language"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
