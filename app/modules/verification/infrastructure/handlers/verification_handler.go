package verificationhandlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	verificationservice "github.com/aceclub-io/ace-engine/app/modules/verification/application"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/httpapi"
)

// VerificationHandler exposes the verification workflow. The staff identity
// comes from the X-Staff-ID header; the gateway authenticates it.
type VerificationHandler struct {
	service verificationservice.Service
}

func NewVerificationHandler(service verificationservice.Service) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// Routes mounts the verification endpoints.
func (h *VerificationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/entries/{entryID}/evidence", h.SubmitEvidence)
	r.Post("/{verificationID}/claim", h.ClaimForReview)
	r.Post("/{verificationID}/decision", h.Decide)
	r.Post("/{verificationID}/witness", h.RequestWitness)
	return r
}

type evidenceRequest struct {
	SelfieURL        string                   `json:"selfie_url,omitempty"`
	IDDocumentURL    string                   `json:"id_document_url,omitempty"`
	HandicapProofURL string                   `json:"handicap_proof_url,omitempty"`
	VideoURL         string                   `json:"video_url,omitempty"`
	Witnesses        []verificationdb.Witness `json:"witnesses,omitempty"`
}

// SubmitEvidence ensures the verification exists for the entry, then attaches
// the evidence bundle. The ensure step is idempotent, so a retried upload
// converges on the same claim.
func (h *VerificationHandler) SubmitEvidence(w http.ResponseWriter, r *http.Request) {
	entryID, err := uuid.Parse(chi.URLParam(r, "entryID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid entry ID", "")
		return
	}

	var req evidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	ensured, err := h.service.EnsureVerification(r.Context(), entryID)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to prepare verification", "")
		return
	}
	if ensured.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(ensured.Failure.Kind), "verification unavailable", string(ensured.Failure.Reason))
		return
	}

	result, err := h.service.SubmitEvidence(r.Context(), ensured.Success.Verification.ID, verificationdb.Evidence{
		SelfieURL:        req.SelfieURL,
		IDDocumentURL:    req.IDDocumentURL,
		HandicapProofURL: req.HandicapProofURL,
		VideoURL:         req.VideoURL,
		Witnesses:        req.Witnesses,
	})
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to submit evidence", "")
		return
	}
	if result.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "evidence not attached", string(result.Failure.Reason))
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, result.Success.Verification)
}

func (h *VerificationHandler) ClaimForReview(w http.ResponseWriter, r *http.Request) {
	verificationID, err := uuid.Parse(chi.URLParam(r, "verificationID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid verification ID", "")
		return
	}

	result, err := h.service.ClaimForReview(r.Context(), verificationID)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to claim verification", "")
		return
	}
	if result.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "claim refused", string(result.Failure.Reason))
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, result.Success.Verification)
}

type decisionRequest struct {
	Approve bool `json:"approve"`
}

func (h *VerificationHandler) Decide(w http.ResponseWriter, r *http.Request) {
	verificationID, err := uuid.Parse(chi.URLParam(r, "verificationID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid verification ID", "")
		return
	}
	staffID, err := uuid.Parse(r.Header.Get("X-Staff-ID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "missing or invalid X-Staff-ID header", "")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}

	result, err := h.service.Decide(r.Context(), verificationservice.DecisionInput{
		VerificationID: verificationID,
		StaffID:        staffID,
		Approve:        req.Approve,
	})
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to record decision", "")
		return
	}
	if result.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "decision refused", string(result.Failure.Reason))
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, result.Success.Verification)
}

type witnessRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *VerificationHandler) RequestWitness(w http.ResponseWriter, r *http.Request) {
	verificationID, err := uuid.Parse(chi.URLParam(r, "verificationID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid verification ID", "")
		return
	}

	var req witnessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid request body", "")
		return
	}
	if req.Email == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "witness email is required", "")
		return
	}

	result, err := h.service.RequestWitnessConfirmation(r.Context(), verificationID, req.Name, req.Email)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to request witness confirmation", "")
		return
	}
	if result.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "witness request refused", string(result.Failure.Reason))
		return
	}

	httpapi.WriteJSON(w, http.StatusAccepted, map[string]any{
		"resent":     result.Success.Resent,
		"expires_at": result.Success.Confirmation.ExpiresAt,
	})
}

// ConfirmWitness is mounted outside /verifications: the witness follows an
// emailed link and carries only the token.
func (h *VerificationHandler) ConfirmWitness(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "token is required", "")
		return
	}

	result, err := h.service.ConfirmWitness(r.Context(), req.Token)
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to confirm", "")
		return
	}
	if result.IsFailure() {
		httpapi.WriteError(w, httpapi.StatusForKind(result.Failure.Kind), "confirmation refused", string(result.Failure.Outcome))
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"confirmed_at": result.Success.Confirmation.ConfirmedAt,
	})
}
