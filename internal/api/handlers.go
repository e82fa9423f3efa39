// Package api exposes the walking, wallet and rewards endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"example.com/sabzgam/internal/accrual"
	"example.com/sabzgam/internal/auth"
	"example.com/sabzgam/internal/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// Option configures optional behaviour for the Handler.
type Option func(*Handler)

// WithLogger overrides the handler logger.
func WithLogger(logger *log.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Handler coordinates HTTP requests with the session manager and domain service.
type Handler struct {
	sessions *accrual.Manager
	service  *domain.Service
	logger   *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(sessions *accrual.Manager, service *domain.Service, opts ...Option) *Handler {
	h := &Handler{
		sessions: sessions,
		service:  service,
		logger:   log.New(os.Stdout, "[api] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes wires endpoints to the router.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()

	sessions := v1.PathPrefix("/sessions").Subrouter()
	sessions.Use(auth.RequireScope(auth.ScopeSessionsWrite))
	sessions.HandleFunc("", h.createSession).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}", h.getSession).Methods(http.MethodGet)
	sessions.HandleFunc("/{id}", h.closeSession).Methods(http.MethodDelete)
	sessions.HandleFunc("/{id}/start", h.startSession).Methods(http.MethodPost)
	sessions.HandleFunc("/{id}/stop", h.stopSession).Methods(http.MethodPost)

	redeem := auth.RequireScope(auth.ScopeRewardsRedeem)
	v1.Handle("/rewards/{id:[0-9]+}/redeem", redeem(http.HandlerFunc(h.redeemReward))).Methods(http.MethodPost)
	v1.Handle("/redemptions/{id}/use", redeem(http.HandlerFunc(h.useRedemption))).Methods(http.MethodPost)

	profileRead := auth.RequireScope(auth.ScopeProfileRead)
	v1.Handle("/wallet", profileRead(http.HandlerFunc(h.wallet))).Methods(http.MethodGet)
	v1.Handle("/profile", profileRead(http.HandlerFunc(h.profile))).Methods(http.MethodGet)

	// Catalog reads only need an authenticated caller.
	v1.HandleFunc("/rewards", h.listRewards).Methods(http.MethodGet)
	v1.HandleFunc("/achievements", h.achievements).Methods(http.MethodGet)
	v1.HandleFunc("/explore", h.explore).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	})
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// caller returns the authenticated caller, answering 401 when there is none.
func caller(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", auth.ErrMissingToken.Error())
		return nil, false
	}
	return claims, true
}

func ownerOf(claims *auth.Claims) accrual.Owner {
	return accrual.Owner{TenantID: claims.TenantID, UserID: claims.Subject}
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	session, err := h.sessions.Create(ownerOf(claims))
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	w.Header().Set("Location", "/v1/sessions/"+session.ID())
	writeJSON(w, http.StatusCreated, toSessionView(session.Snapshot()))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionView(session.Snapshot()))
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	session.Start()
	writeJSON(w, http.StatusOK, toSessionView(session.Snapshot()))
}

func (h *Handler) stopSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookupSession(w, r)
	if !ok {
		return
	}
	session.Stop()
	writeJSON(w, http.StatusOK, toSessionView(session.Snapshot()))
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	snap, err := h.sessions.Close(ownerOf(claims), mux.Vars(r)["id"])
	if err != nil {
		h.writeSessionError(w, err)
		return
	}

	resp := CloseSessionResponse{Session: toSessionView(snap)}
	item, err := h.service.RecordWalk(r.Context(), claims.TenantID, claims.Subject, snap)
	if err != nil {
		h.logger.Printf("record walk for session %s: %v", snap.SessionID, err)
		writeError(w, http.StatusInternalServerError, "server_error", "session closed but the walk could not be recorded")
		return
	}
	if item != nil {
		view := toHistoryView(*item)
		resp.Walk = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) lookupSession(w http.ResponseWriter, r *http.Request) (*accrual.Session, bool) {
	claims, ok := caller(w, r)
	if !ok {
		return nil, false
	}
	session, err := h.sessions.Get(ownerOf(claims), mux.Vars(r)["id"])
	if err != nil {
		h.writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func (h *Handler) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, accrual.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "not_found", "session not found")
	case errors.Is(err, accrual.ErrTooManySessions):
		writeError(w, http.StatusTooManyRequests, "too_many_sessions", err.Error())
	default:
		h.serverError(w, err)
	}
}

func (h *Handler) listRewards(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}

	query := r.URL.Query()
	listing, err := h.service.ListRewards(query.Get("q"), query.Get("category"))
	if err != nil {
		if errors.Is(err, domain.ErrUnknownCategory) {
			writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RewardListResponse{
		Rewards:  toRewardViews(listing.Rewards),
		Featured: toRewardViews(listing.Featured),
	})
}

func (h *Handler) redeemReward(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	rewardID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid reward id")
		return
	}

	redemption, balance, err := h.service.Redeem(r.Context(), claims.TenantID, claims.Subject, rewardID)
	if err != nil {
		var insufficient *domain.InsufficientBalanceError
		switch {
		case errors.As(err, &insufficient):
			writeJSON(w, http.StatusPaymentRequired, InsufficientBalanceResponse{
				Type:      "insufficient_balance",
				Detail:    insufficient.Error(),
				Balance:   insufficient.Balance,
				Cost:      insufficient.Cost,
				Shortfall: insufficient.Shortfall(),
			})
		case errors.Is(err, domain.ErrRewardNotFound):
			writeError(w, http.StatusNotFound, "not_found", "reward not found")
		default:
			h.serverError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, RedeemResponse{
		Redemption: toRedemptionView(*redemption),
		Balance:    balance,
	})
}

func (h *Handler) useRedemption(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	redemption, err := h.service.UseRedemption(r.Context(), claims.TenantID, claims.Subject, mux.Vars(r)["id"])
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRedemptionNotFound):
			writeError(w, http.StatusNotFound, "not_found", "redemption not found")
		case errors.Is(err, domain.ErrRedemptionUsed):
			writeError(w, http.StatusConflict, "already_used", "redemption already used")
		default:
			h.serverError(w, err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toRedemptionView(*redemption))
}

func (h *Handler) wallet(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), claims.TenantID, claims.Subject)
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, WalletResponse{Balance: balance, RialPerCoin: domain.RialPerCoin})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := caller(w, r)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxHistoryLimit)
		}
	}

	profile, err := h.service.Profile(r.Context(), claims.TenantID, claims.Subject, limit)
	if err != nil {
		h.serverError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(*profile))
}

func (h *Handler) achievements(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAchievementsResponse(h.service.Achievements()))
}

func (h *Handler) explore(w http.ResponseWriter, r *http.Request) {
	if _, ok := caller(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, toExploreResponse(h.service.Explore()))
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Printf("server error: %v", err)
	writeError(w, http.StatusInternalServerError, "server_error", err.Error())
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
