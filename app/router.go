package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accesshandlers "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/handlers"
	competitionhandlers "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/handlers"
	entryhandlers "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/handlers"
	verificationhandlers "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/handlers"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/httpapi"
)

// NewRouter assembles the HTTP surface of the engine.
func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	competitionHandler := competitionhandlers.NewCompetitionHandler(app.DB.CompetitionDB, clock.RealClock{})
	entryHandler := entryhandlers.NewEntryHandler(app.EntryService)
	verificationHandler := verificationhandlers.NewVerificationHandler(app.VerificationService)
	accessHandler := accesshandlers.NewAccessHandler(app.AccessService)

	r.Mount("/competitions", competitionHandler.Routes())
	r.Mount("/entries", entryHandler.Routes())
	r.Mount("/verifications", verificationHandler.Routes())
	r.Mount("/access", accessHandler.Routes())

	// The witness link lands here from email, outside the staff surface.
	r.Post("/witness/confirm", verificationHandler.ConfirmWitness)

	// Force a sweep ahead of the periodic schedule.
	r.Post("/admin/sweep", func(w http.ResponseWriter, req *http.Request) {
		if err := app.Queue.TriggerEntrySweep(req.Context()); err != nil {
			httpapi.WriteError(w, http.StatusInternalServerError, "failed to enqueue entry sweep", "")
			return
		}
		if err := app.Queue.TriggerVerificationSweep(req.Context()); err != nil {
			httpapi.WriteError(w, http.StatusInternalServerError, "failed to enqueue verification sweep", "")
			return
		}
		w.WriteHeader(http.StatusAccepted)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// When no dedicated metrics listener is configured, scrape the API port.
	if app.Config.Observability.MetricsAddress == "" {
		r.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	}

	return r
}
