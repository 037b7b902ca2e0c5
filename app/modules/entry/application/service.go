package entryservice

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

const serviceName = "EntryService"

// Windows holds the attempt window duration per entry path. Configurable, not
// hardcoded: the instant path observes 15 minutes, the deferred magic-link
// path up to 6 hours.
type Windows struct {
	Instant  time.Duration
	Deferred time.Duration
}

// For returns the window duration for a path. The staff-code path plays on
// the spot, so it shares the instant window.
func (w Windows) For(path entrydb.EntryPath) (time.Duration, error) {
	switch path {
	case entrydb.EntryPathInstant, entrydb.EntryPathStaffCode:
		return w.Instant, nil
	case entrydb.EntryPathDeferred:
		return w.Deferred, nil
	default:
		return 0, ErrUnknownEntryPath
	}
}

// Config holds the engine durations the entry service needs.
type Config struct {
	Windows             Windows
	Cooldown            time.Duration
	VerificationTimeout time.Duration
}

// EntryService owns the lifecycle of a single Entry: creation, cooldown
// enforcement, outcome reporting and the auto-miss sweep.
type EntryService struct {
	entryDB        entrydb.EntryDB
	competitionDB  competitiondb.CompetitionDB
	verificationDB verificationdb.VerificationDB
	publisher      eventbus.Publisher
	logger         *slog.Logger
	metrics        observability.Metrics
	tracer         trace.Tracer
	clock          clock.Clock
	config         Config
}

var _ Service = (*EntryService)(nil)

// NewEntryService creates a new EntryService.
func NewEntryService(
	entryDB entrydb.EntryDB,
	competitionDB competitiondb.CompetitionDB,
	verificationDB verificationdb.VerificationDB,
	publisher eventbus.Publisher,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	clk clock.Clock,
	config Config,
) *EntryService {
	return &EntryService{
		entryDB:        entryDB,
		competitionDB:  competitionDB,
		verificationDB: verificationDB,
		publisher:      publisher,
		logger:         logger,
		metrics:        metrics,
		tracer:         tracer,
		clock:          clk,
		config:         config,
	}
}

func (s *EntryService) telemetryDeps() telemetry.Deps {
	return telemetry.Deps{
		Logger:  s.logger,
		Metrics: s.metrics,
		Tracer:  s.tracer,
		Service: serviceName,
	}
}
