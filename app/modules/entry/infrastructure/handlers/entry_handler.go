package entryhandlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	entryservice "github.com/aceclub-io/ace-engine/app/modules/entry/application"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/httpapi"
)

// EntryHandler exposes the entry lifecycle over HTTP. Identity is trusted
// from headers; authentication lives at the gateway.
type EntryHandler struct {
	service entryservice.Service
}

func NewEntryHandler(service entryservice.Service) *EntryHandler {
	return &EntryHandler{service: service}
}

// Routes mounts the entry endpoints.
func (h *EntryHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.CreateEntry)
	r.Post("/{entryID}/outcome", h.ReportOutcome)
	r.Get("/cooldown", h.CanEnter)
	return r
}

type createEntryRequest struct {
	CompetitionID   uuid.UUID  `json:"competition_id"`
	PlayerID        uuid.UUID  `json:"player_id"`
	Path            string     `json:"path"`
	Paid            bool       `json:"paid"`
	AmountMinor     int64      `json:"amount_minor"`
	PaymentProvider string     `json:"payment_provider,omitempty"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	TermsAccepted   bool       `json:"terms_accepted"`
	TermsVersion    string     `json:"terms_version,omitempty"`
}

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	result, err := h.service.CreateEntry(r.Context(), entryservice.CreateEntryInput{
		CompetitionID:   req.CompetitionID,
		PlayerID:        req.PlayerID,
		Path:            entrydb.EntryPath(req.Path),
		Paid:            req.Paid,
		AmountMinor:     req.AmountMinor,
		PaymentProvider: req.PaymentProvider,
		PaymentDate:     req.PaymentDate,
		TermsAccepted:   req.TermsAccepted,
		TermsVersion:    req.TermsVersion,
	})
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to create entry", "")
		return
	}
	if result.IsFailure() {
		status := httpapi.StatusForKind(result.Failure.Kind)
		// Cooldown blocks carry the retry hint.
		if result.Failure.RetryAt != nil {
			httpapi.WriteJSON(w, status, map[string]any{
				"error":    "entry not created",
				"reason":   result.Failure.Reason,
				"retry_at": result.Failure.RetryAt,
			})
			return
		}
		httpapi.WriteError(w, status, "entry not created", string(result.Failure.Reason))
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, result.Success.Entry)
}

type reportOutcomeRequest struct {
	Outcome string `json:"outcome"`
}

func (h *EntryHandler) ReportOutcome(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid entry ID", "")
		return
	}

	var req reportOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	result, err := h.service.ReportOutcome(r.Context(), entryID, req.Outcome)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to report outcome", "")
		return
	}
	if result.IsFailure() {
		status := httpapi.StatusForKind(result.Failure.Kind)
		httpapi.WriteJSON(w, status, map[string]any{
			"error":  "outcome not recorded",
			"reason": result.Failure.Reason,
			"entry":  result.Failure.Entry,
		})
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, result.Success)
}

func (h *EntryHandler) CanEnter(w http.ResponseWriter, r *http.Request) {
	playerID, err := uuid.Parse(r.URL.Query().Get("player_id"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid player_id", "")
		return
	}
	competitionID, err := uuid.Parse(r.URL.Query().Get("competition_id"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid competition_id", "")
		return
	}

	status, err := h.service.CanEnter(r.Context(), playerID, competitionID)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to check cooldown", "")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, status)
}
