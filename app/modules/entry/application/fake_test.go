package entryservice

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace/noop"

	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
)

// ------------------------
// Fake Entry Repo
// ------------------------

// FakeEntryRepository provides a programmable stub for the entrydb.EntryDB interface.
type FakeEntryRepository struct {
	mu    sync.Mutex
	trace []string

	CreateEntryFunc          func(ctx context.Context, entry *entrydb.Entry, cooldown time.Duration, now time.Time) (*entrydb.CreateEntryOutcome, error)
	GetEntryFunc             func(ctx context.Context, entryID uuid.UUID) (*entrydb.Entry, error)
	LatestPaidEntrySinceFunc func(ctx context.Context, playerID, competitionID uuid.UUID, since time.Time) (*entrydb.Entry, error)
	ReportOutcomeFunc        func(ctx context.Context, entryID uuid.UUID, outcome entrydb.Outcome, now time.Time) (int64, error)
	SweepOverdueFunc         func(ctx context.Context, now time.Time) ([]uuid.UUID, error)
}

func NewFakeEntryRepository() *FakeEntryRepository {
	return &FakeEntryRepository{trace: []string{}}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeEntryRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeEntryRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeEntryRepository) CreateEntry(ctx context.Context, entry *entrydb.Entry, cooldown time.Duration, now time.Time) (*entrydb.CreateEntryOutcome, error) {
	f.record("CreateEntry")
	if f.CreateEntryFunc != nil {
		return f.CreateEntryFunc(ctx, entry, cooldown, now)
	}
	return &entrydb.CreateEntryOutcome{Entry: entry}, nil
}

func (f *FakeEntryRepository) GetEntry(ctx context.Context, entryID uuid.UUID) (*entrydb.Entry, error) {
	f.record("GetEntry")
	if f.GetEntryFunc != nil {
		return f.GetEntryFunc(ctx, entryID)
	}
	return nil, entrydb.ErrEntryNotFound
}

func (f *FakeEntryRepository) LatestPaidEntrySince(ctx context.Context, playerID, competitionID uuid.UUID, since time.Time) (*entrydb.Entry, error) {
	f.record("LatestPaidEntrySince")
	if f.LatestPaidEntrySinceFunc != nil {
		return f.LatestPaidEntrySinceFunc(ctx, playerID, competitionID, since)
	}
	return nil, nil
}

func (f *FakeEntryRepository) ReportOutcome(ctx context.Context, entryID uuid.UUID, outcome entrydb.Outcome, now time.Time) (int64, error) {
	f.record("ReportOutcome")
	if f.ReportOutcomeFunc != nil {
		return f.ReportOutcomeFunc(ctx, entryID, outcome, now)
	}
	return 1, nil
}

func (f *FakeEntryRepository) SweepOverdue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	f.record("SweepOverdue")
	if f.SweepOverdueFunc != nil {
		return f.SweepOverdueFunc(ctx, now)
	}
	return nil, nil
}

var _ entrydb.EntryDB = (*FakeEntryRepository)(nil)

// ------------------------
// Fake Competition Repo
// ------------------------

type FakeCompetitionRepository struct {
	GetCompetitionFunc         func(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error)
	ListActiveCompetitionsFunc func(ctx context.Context) ([]*competitiondb.Competition, error)
}

func (f *FakeCompetitionRepository) GetCompetition(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error) {
	if f.GetCompetitionFunc != nil {
		return f.GetCompetitionFunc(ctx, competitionID)
	}
	return nil, competitiondb.ErrCompetitionNotFound
}

func (f *FakeCompetitionRepository) ListActiveCompetitions(ctx context.Context) ([]*competitiondb.Competition, error) {
	if f.ListActiveCompetitionsFunc != nil {
		return f.ListActiveCompetitionsFunc(ctx)
	}
	return nil, nil
}

var _ competitiondb.CompetitionDB = (*FakeCompetitionRepository)(nil)

// ------------------------
// Fake Verification Repo
// ------------------------

type FakeVerificationRepository struct {
	EnsureVerificationFunc func(ctx context.Context, entryID uuid.UUID, autoMissAt time.Time) (*verificationdb.Verification, bool, error)
}

func (f *FakeVerificationRepository) EnsureVerification(ctx context.Context, entryID uuid.UUID, autoMissAt time.Time) (*verificationdb.Verification, bool, error) {
	if f.EnsureVerificationFunc != nil {
		return f.EnsureVerificationFunc(ctx, entryID, autoMissAt)
	}
	return &verificationdb.Verification{
		ID:         uuid.New(),
		EntryID:    entryID,
		Status:     verificationdb.VerificationStatusInitiated,
		AutoMissAt: autoMissAt,
	}, true, nil
}

func (f *FakeVerificationRepository) GetVerification(context.Context, uuid.UUID) (*verificationdb.Verification, error) {
	return nil, verificationdb.ErrVerificationNotFound
}

func (f *FakeVerificationRepository) GetVerificationByEntry(context.Context, uuid.UUID) (*verificationdb.Verification, error) {
	return nil, verificationdb.ErrVerificationNotFound
}

func (f *FakeVerificationRepository) AttachEvidence(context.Context, uuid.UUID, verificationdb.Evidence, time.Time) (int64, error) {
	return 0, nil
}

func (f *FakeVerificationRepository) ClaimForReview(context.Context, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

func (f *FakeVerificationRepository) Decide(context.Context, uuid.UUID, verificationdb.VerificationStatus, uuid.UUID, time.Time) (int64, error) {
	return 0, nil
}

func (f *FakeVerificationRepository) SweepExpired(context.Context, time.Time) ([]verificationdb.SweptVerification, error) {
	return nil, nil
}

func (f *FakeVerificationRepository) IssueWitnessToken(context.Context, *verificationdb.WitnessConfirmation) error {
	return nil
}

func (f *FakeVerificationRepository) ConfirmWitness(context.Context, string, time.Time) (*verificationdb.WitnessConfirmation, verificationdb.WitnessConfirmOutcome, error) {
	return nil, verificationdb.WitnessConfirmNotFound, nil
}

func (f *FakeVerificationRepository) LatestWitnessToken(context.Context, uuid.UUID) (*verificationdb.WitnessConfirmation, error) {
	return nil, nil
}

var _ verificationdb.VerificationDB = (*FakeVerificationRepository)(nil)

// ------------------------
// Fake Publisher
// ------------------------

// FakePublisher records published subjects for assertion.
type FakePublisher struct {
	mu       sync.Mutex
	Subjects []string
	Err      error
}

func (f *FakePublisher) Publish(_ context.Context, subject string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Subjects = append(f.Subjects, subject)
	return f.Err
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Subjects))
	copy(out, f.Subjects)
	return out
}

// ------------------------
// Service under test
// ------------------------

func testConfig() Config {
	return Config{
		Windows:             Windows{Instant: 15 * time.Minute, Deferred: 6 * time.Hour},
		Cooldown:            12 * time.Hour,
		VerificationTimeout: 12 * time.Hour,
	}
}

func newTestService(
	entries *FakeEntryRepository,
	competitions *FakeCompetitionRepository,
	verifications *FakeVerificationRepository,
	publisher *FakePublisher,
	clk clock.Clock,
) *EntryService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewEntryService(entries, competitions, verifications, publisher, logger, observability.NoopMetrics{}, tracer, clk, testConfig())
}

func activeCompetition(id uuid.UUID, feeMinor int64) *competitiondb.Competition {
	return &competitiondb.Competition{
		ID:            id,
		Name:          "Pebble Ridge Par 3 Challenge",
		Status:        competitiondb.CompetitionStatusActive,
		EntryFeeMinor: feeMinor,
	}
}
