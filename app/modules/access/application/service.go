package accessservice

import (
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

const serviceName = "AccessService"

// magicTokenBytes sizes the opaque portion of a magic-link token.
const magicTokenBytes = 32

// Config holds magic-link and staff-code settings.
type Config struct {
	// JWTSecret signs the magic-link URL wrapping the opaque token.
	JWTSecret string
	// LinkBaseURL is the page the signed link points at.
	LinkBaseURL string
	// MagicLinkTTL bounds token validity.
	MagicLinkTTL time.Duration
	// DeferredWindow is the attempt window granted to entries created by
	// magic-link consumption.
	DeferredWindow time.Duration
	// StaffCodeRate and StaffCodeBurst bound redemption attempts per code
	// prefix. Zero values disable the limiter.
	StaffCodeRate  rate.Limit
	StaffCodeBurst int
}

// AccessService issues and redeems the short-lived credentials that gate
// entry creation: magic links for remote sign-up and staff codes at the venue.
type AccessService struct {
	accessDB      accessdb.AccessDB
	competitionDB competitiondb.CompetitionDB
	publisher     eventbus.Publisher
	logger        *slog.Logger
	metrics       observability.Metrics
	tracer        trace.Tracer
	clock         clock.Clock
	config        Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ Service = (*AccessService)(nil)

// NewAccessService creates a new AccessService.
func NewAccessService(
	accessDB accessdb.AccessDB,
	competitionDB competitiondb.CompetitionDB,
	publisher eventbus.Publisher,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	clk clock.Clock,
	config Config,
) *AccessService {
	return &AccessService{
		accessDB:      accessDB,
		competitionDB: competitionDB,
		publisher:     publisher,
		logger:        logger,
		metrics:       metrics,
		tracer:        tracer,
		clock:         clk,
		config:        config,
		limiters:      make(map[string]*rate.Limiter),
	}
}

func (s *AccessService) telemetryDeps() telemetry.Deps {
	return telemetry.Deps{
		Logger:  s.logger,
		Metrics: s.metrics,
		Tracer:  s.tracer,
		Service: serviceName,
	}
}

// limiterFor returns the per-prefix redemption limiter, creating it on first
// sight of a prefix. Attempt rows are still written when the limiter trips;
// only the database round-trip for the code itself is skipped.
func (s *AccessService) limiterFor(prefix string) *rate.Limiter {
	if s.config.StaffCodeRate == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[prefix]
	if !ok {
		l = rate.NewLimiter(s.config.StaffCodeRate, s.config.StaffCodeBurst)
		s.limiters[prefix] = l
	}
	return l
}
