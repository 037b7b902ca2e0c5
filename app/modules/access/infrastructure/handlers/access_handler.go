package accesshandlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	accessservice "github.com/aceclub-io/ace-engine/app/modules/access/application"
	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/httpapi"
)

// AccessHandler exposes magic-link issuance/consumption and staff-code
// redemption.
type AccessHandler struct {
	service accessservice.Service
}

func NewAccessHandler(service accessservice.Service) *AccessHandler {
	return &AccessHandler{service: service}
}

// Routes mounts the access endpoints.
func (h *AccessHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/magic-link", h.IssueMagicLink)
	r.Post("/magic-link/consume", h.ConsumeMagicLink)
	r.Post("/staff-code/redeem", h.RedeemStaffCode)
	return r
}

type issueMagicLinkRequest struct {
	Email   string                `json:"email"`
	Payload accessdb.TokenPayload `json:"payload"`
}

func (h *AccessHandler) IssueMagicLink(w http.ResponseWriter, r *http.Request) {
	var req issueMagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	result, err := h.service.IssueMagicLink(r.Context(), accessservice.IssueMagicLinkInput{
		Email:   req.Email,
		Payload: req.Payload,
	})
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to issue magic link", "")
		return
	}
	if result.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "magic link not issued", string(result.Failure.Reason))
		return
	}

	// The signed link goes to the mailer, never back to the caller; returning
	// it here would bypass the email identity check.
	httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{
		"expires_at": result.Success.ExpiresAt,
	})
}

type consumeMagicLinkRequest struct {
	Token string `json:"token"`
}

func (h *AccessHandler) ConsumeMagicLink(w http.ResponseWriter, r *http.Request) {
	var req consumeMagicLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "token is required", "")
		return
	}

	result, err := h.service.ConsumeMagicLink(r.Context(), req.Token)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to consume magic link", "")
		return
	}
	if result.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "magic link not accepted", string(result.Failure.Reason))
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, map[string]any{
		"player": result.Success.Player,
		"entry":  result.Success.Entry,
	})
}

type redeemStaffCodeRequest struct {
	Prefix  string     `json:"prefix"`
	Suffix  string     `json:"suffix"`
	EntryID *uuid.UUID `json:"entry_id,omitempty"`
}

func (h *AccessHandler) RedeemStaffCode(w http.ResponseWriter, r *http.Request) {
	var req redeemStaffCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.Prefix == "" || req.Suffix == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "prefix and suffix are required", "")
		return
	}

	result, err := h.service.RedeemStaffCode(r.Context(), accessservice.RedeemStaffCodeInput{
		Prefix:  req.Prefix,
		Suffix:  req.Suffix,
		EntryID: req.EntryID,
	})
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to redeem staff code", "")
		return
	}
	if result.IsFailure() {
		if result.Failure.Outcome == accessdb.RedeemRateLimited {
			httpapi.WriteError(w, http.StatusTooManyRequests, "staff code not redeemed", string(result.Failure.Outcome))
			return
		}
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "staff code not redeemed", string(result.Failure.Outcome))
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"code_prefix":  result.Success.Code.CodePrefix,
		"current_uses": result.Success.Code.CurrentUses,
	})
}
