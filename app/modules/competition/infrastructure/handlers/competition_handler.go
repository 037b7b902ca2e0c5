package competitionhandlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/httpapi"
)

// CompetitionHandler exposes the read-only competition surface. Competition
// CRUD lives outside the engine.
type CompetitionHandler struct {
	db    competitiondb.CompetitionDB
	clock clock.Clock
}

func NewCompetitionHandler(db competitiondb.CompetitionDB, clk clock.Clock) *CompetitionHandler {
	return &CompetitionHandler{db: db, clock: clk}
}

// Routes mounts the competition endpoints.
func (h *CompetitionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListActive)
	r.Get("/{competitionID}", h.GetCompetition)
	return r
}

func (h *CompetitionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	competitions, err := h.db.ListActiveCompetitions(r.Context())
	if err != nil {
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to list competitions", "")
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]any{"competitions": competitions})
}

func (h *CompetitionHandler) GetCompetition(w http.ResponseWriter, r *http.Request) {
	competitionID, err := uuid.Parse(chi.URLParam(r, "competitionID"))
	if err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, "invalid competition ID", "")
		return
	}

	competition, err := h.db.GetCompetition(r.Context(), competitionID)
	if err != nil {
		if errors.Is(err, competitiondb.ErrCompetitionNotFound) {
			httpapi.WriteError(w, http.StatusNotFound, "competition not found", "")
			return
		}
		httpapi.WriteError(w, http.StatusInternalServerError, "failed to load competition", "")
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, map[string]any{
		"competition":       competition,
		"accepting_entries": competition.IsAcceptingEntries(h.clock.NowUTC()),
	})
}
