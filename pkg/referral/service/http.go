package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	apperrors "github.com/angelcrypto/referral-ledger/pkg/app/errors"
	apphttp "github.com/angelcrypto/referral-ledger/pkg/app/http"
	"github.com/angelcrypto/referral-ledger/pkg/referral"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  Service
	validate *validator.Validate
	logger   *zap.Logger
}

// RegisterRoutes registers the referral ledger endpoints on the given chi router.
// The diagnostics route group takes extra middleware so callers can gate it
// behind admin auth.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger, diagnosticsMiddleware ...func(http.Handler) http.Handler) {
	h := &HTTP{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}

	r.Post("/referrals", apphttp.HandleError(h.registerReferral))
	r.Post("/rewards/welcome", apphttp.HandleError(h.grantWelcomeBonus))
	r.Get("/invite-link", apphttp.HandleError(h.generateInviteLink))

	r.Group(func(gr chi.Router) {
		for _, mw := range diagnosticsMiddleware {
			gr.Use(mw)
		}
		gr.Get("/diagnostics/reconcile/{userID}", apphttp.HandleError(h.reconcile))
	})
}

// registerReferral handles POST /referrals
func (h *HTTP) registerReferral(w http.ResponseWriter, r *http.Request) error {
	var req referral.RegisterReferralRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid referral request")
	}

	resp, err := h.service.RegisterReferral(r.Context(), &req)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

// grantWelcomeBonus handles POST /rewards/welcome
func (h *HTTP) grantWelcomeBonus(w http.ResponseWriter, r *http.Request) error {
	var req referral.WelcomeBonusRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.BadRequestError(err, "invalid welcome bonus request")
	}

	resp, err := h.service.GrantWelcomeBonus(r.Context(), req.UserID)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

// generateInviteLink handles GET /invite-link?wallet=0x...
func (h *HTTP) generateInviteLink(w http.ResponseWriter, r *http.Request) error {
	walletAddress := r.URL.Query().Get("wallet")
	if walletAddress == "" {
		return apperrors.BadRequestError(nil, "wallet query parameter required")
	}

	resp, err := h.service.GenerateInviteLink(r.Context(), walletAddress)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

// reconcile handles GET /diagnostics/reconcile/{userID}
func (h *HTTP) reconcile(w http.ResponseWriter, r *http.Request) error {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID <= 0 {
		return apperrors.BadRequestError(err, "invalid user id")
	}

	resp, err := h.service.Reconcile(r.Context(), userID)
	if err != nil {
		return err
	}

	h.writeJSON(w, http.StatusOK, resp)
	return nil
}

func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	return nil
}

func (h *HTTP) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
