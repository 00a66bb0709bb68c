package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"shopdesk-loyalty/internal/config"
	"shopdesk-loyalty/internal/domain"
	"shopdesk-loyalty/internal/domain/model"
	"shopdesk-loyalty/internal/infra/i18n"
	"shopdesk-loyalty/internal/infra/logging"
	"shopdesk-loyalty/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Deps are the use cases exposed over HTTP.
type Deps struct {
	Entitlements usecase.EntitlementUseCase
	Ledger       usecase.LedgerUseCase
	Catalog      usecase.CatalogUseCase
	Redemptions  usecase.RedemptionUseCase
	Referrals    usecase.ReferralUseCase
}

type Server struct {
	Deps
	locales *i18n.Bundle
	now     func() time.Time
	log     *zerolog.Logger

	limiter      RateLimiter
	redeemLimit  int
	redeemWindow time.Duration
}

func NewServer(d Deps, locales *i18n.Bundle, logger *zerolog.Logger) *Server {
	return &Server{
		Deps:    d,
		locales: locales,
		now:     time.Now,
		log:     logging.Component(logger, "api"),
	}
}

// HealthFunc reports whether a backing store is reachable.
type HealthFunc func(ctx context.Context) error

// NewRouter builds the full handler: /health and /metrics are public, /api/v1 requires the API key.
// limiter may be nil.
func NewRouter(s *Server, cfg config.HTTPConfig, health HealthFunc, limiter RateLimiter) http.Handler {
	s.limiter, s.redeemLimit, s.redeemWindow = limiter, cfg.RedeemRateLimit, cfg.RedeemRateWindow

	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(APIKey(cfg.APIKey), Timeout(cfg.RequestTimeout))
		s.Routes(r)
	})
	return r
}

// Routes registers the /api/v1 endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Use(customerContext)
			r.Get("/entitlements", s.handleEntitlements)
			r.Get("/features/{featureID}", s.handleCheckAccess)
		})

		r.Route("/customers/{customerID}", func(r chi.Router) {
			r.Use(customerContext)
			r.Post("/account", s.handleOpenAccount)
			r.Get("/balance", s.handleBalance)
			r.Get("/transactions", s.handleHistory)
			r.Post("/transactions", s.handleRecordTransaction)
			r.Post("/ledger/verify", s.handleVerifyLedger)
			r.Get("/redemptions", s.handleListRedemptions)
			r.With(RateLimitByCustomer(s.limiter, "redeem", s.redeemLimit, s.redeemWindow, s.log)).
				Post("/redemptions", s.handleRedeem)
			r.Post("/referral-code", s.handleReferralCode)
		})

		r.Get("/rewards", s.handleListRewards)
		r.Get("/rewards/{rewardID}", s.handleGetReward)
		r.Put("/rewards/{rewardID}", s.handleSaveReward)

		r.Get("/referral-codes/{code}", s.handleValidateReferral)
	})
}

// ---- entitlements ----

type accessResponse struct {
	model.AccessDecision
	Message string `json:"message,omitempty"`
}

func (s *Server) handleCheckAccess(w http.ResponseWriter, r *http.Request) {
	d, err := s.Entitlements.CheckAccess(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "featureID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{AccessDecision: d, Message: s.translator(r).Decision(d)})
}

func (s *Server) handleEntitlements(w http.ResponseWriter, r *http.Request) {
	e, err := s.Entitlements.Entitlements(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// ---- ledger ----

func (s *Server) handleOpenAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := s.Ledger.OpenAccount(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct.Balance())
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	b, err := s.Ledger.GetBalance(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type transactionRequest struct {
	Type        string  `json:"type"`
	Points      int64   `json:"points"`
	Description string  `json:"description"`
	ReferenceID *string `json:"reference_id"`
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	typ, err := model.ParseTransactionType(strings.ToUpper(strings.TrimSpace(req.Type)))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry, err := s.Ledger.RecordTransaction(r.Context(), model.TransactionInput{
		CustomerID:  chi.URLParam(r, "customerID"),
		Type:        typ,
		Delta:       req.Points,
		Description: req.Description,
		ReferenceID: req.ReferenceID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	f := model.TransactionFilter{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("type"); v != "" {
		typ, err := model.ParseTransactionType(strings.ToUpper(v))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		f.Type = &typ
	}
	items, err := s.Ledger.History(r.Context(), chi.URLParam(r, "customerID"), f)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.LoyaltyTransaction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleVerifyLedger(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	if err := s.Ledger.VerifyLedger(r.Context(), customerID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customer_id": customerID, "consistent": true})
}

// ---- catalog ----

func (s *Server) handleListRewards(w http.ResponseWriter, r *http.Request) {
	items, err := s.Catalog.ListAvailable(r.Context(), s.now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.Reward{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleGetReward(w http.ResponseWriter, r *http.Request) {
	rw, err := s.Catalog.Get(r.Context(), chi.URLParam(r, "rewardID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

type rewardRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	PointsCost  int64      `json:"points_cost"`
	MinimumTier string     `json:"minimum_tier"`
	Active      *bool      `json:"active"`
	ValidFrom   *time.Time `json:"valid_from"`
	ValidUntil  *time.Time `json:"valid_until"`
	UsageLimit  *int64     `json:"usage_limit"`
}

func (s *Server) handleSaveReward(w http.ResponseWriter, r *http.Request) {
	var req rewardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	tier := model.LowestTier()
	if req.MinimumTier != "" {
		t, err := model.ParseTier(req.MinimumTier)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		tier = t
	}
	rw := &model.Reward{
		ID:          chi.URLParam(r, "rewardID"),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		PointsCost:  req.PointsCost,
		MinimumTier: tier,
		Active:      req.Active == nil || *req.Active,
		ValidFrom:   req.ValidFrom,
		ValidUntil:  req.ValidUntil,
		UsageLimit:  req.UsageLimit,
	}
	if err := s.Catalog.Save(r.Context(), rw); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rw)
}

// ---- redemptions ----

type redeemRequest struct {
	RewardID string `json:"reward_id"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.RewardID) == "" {
		s.writeError(w, r, fmt.Errorf("%w: reward_id is required", domain.ErrInvalidArgument))
		return
	}
	res, err := s.Redemptions.Redeem(r.Context(), chi.URLParam(r, "customerID"), req.RewardID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleListRedemptions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items, err := s.Redemptions.ListRedemptions(r.Context(), chi.URLParam(r, "customerID"), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if items == nil {
		items = []*model.RewardRedemption{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ---- referrals ----

func (s *Server) handleReferralCode(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")
	code, err := s.Referrals.GetOrCreateCode(r.Context(), customerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"customer_id": customerID, "code": code})
}

func (s *Server) handleValidateReferral(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	referrer, err := s.Referrals.Validate(r.Context(), code)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code, "referrer_customer_id": referrer})
}

// ---- helpers ----

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", domain.ErrInvalidArgument)
		}
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func pageParams(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if limit, err = intParam(q.Get("limit")); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(q.Get("offset")); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", domain.ErrInvalidArgument, v)
	}
	return n, nil
}
