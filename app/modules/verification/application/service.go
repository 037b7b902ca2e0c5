package verificationservice

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

const serviceName = "VerificationService"

// witnessTokenBytes sizes the random portion of a confirmation token.
const witnessTokenBytes = 32

// Config holds the verification workflow durations.
type Config struct {
	// VerificationTimeout bounds how long a claim may sit unresolved before
	// the expiry sweep rejects it.
	VerificationTimeout time.Duration
	// WitnessTTL bounds how long a confirmation token stays usable.
	WitnessTTL time.Duration
}

// VerificationService owns the review workflow for win claims: lazy creation,
// evidence intake, staff decisions, witness confirmation and the expiry sweep.
type VerificationService struct {
	verificationDB verificationdb.VerificationDB
	entryDB        entrydb.EntryDB
	publisher      eventbus.Publisher
	logger         *slog.Logger
	metrics        observability.Metrics
	tracer         trace.Tracer
	clock          clock.Clock
	config         Config
}

var _ Service = (*VerificationService)(nil)

// NewVerificationService creates a new VerificationService.
func NewVerificationService(
	verificationDB verificationdb.VerificationDB,
	entryDB entrydb.EntryDB,
	publisher eventbus.Publisher,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	clk clock.Clock,
	config Config,
) *VerificationService {
	return &VerificationService{
		verificationDB: verificationDB,
		entryDB:        entryDB,
		publisher:      publisher,
		logger:         logger,
		metrics:        metrics,
		tracer:         tracer,
		clock:          clk,
		config:         config,
	}
}

func (s *VerificationService) telemetryDeps() telemetry.Deps {
	return telemetry.Deps{
		Logger:  s.logger,
		Metrics: s.metrics,
		Tracer:  s.tracer,
		Service: serviceName,
	}
}
