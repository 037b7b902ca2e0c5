package verificationservice

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace/noop"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
)

// ------------------------
// Fake Verification Repo
// ------------------------

// FakeVerificationRepository provides a programmable stub for the
// verificationdb.VerificationDB interface.
type FakeVerificationRepository struct {
	mu    sync.Mutex
	trace []string

	EnsureVerificationFunc func(ctx context.Context, entryID uuid.UUID, autoMissAt time.Time) (*verificationdb.Verification, bool, error)
	GetVerificationFunc    func(ctx context.Context, verificationID uuid.UUID) (*verificationdb.Verification, error)
	GetByEntryFunc         func(ctx context.Context, entryID uuid.UUID) (*verificationdb.Verification, error)
	AttachEvidenceFunc     func(ctx context.Context, verificationID uuid.UUID, evidence verificationdb.Evidence, now time.Time) (int64, error)
	ClaimForReviewFunc     func(ctx context.Context, verificationID uuid.UUID, now time.Time) (int64, error)
	DecideFunc             func(ctx context.Context, verificationID uuid.UUID, status verificationdb.VerificationStatus, staffID uuid.UUID, now time.Time) (int64, error)
	SweepExpiredFunc       func(ctx context.Context, now time.Time) ([]verificationdb.SweptVerification, error)
	IssueWitnessTokenFunc  func(ctx context.Context, confirmation *verificationdb.WitnessConfirmation) error
	ConfirmWitnessFunc     func(ctx context.Context, token string, now time.Time) (*verificationdb.WitnessConfirmation, verificationdb.WitnessConfirmOutcome, error)
	LatestWitnessTokenFunc func(ctx context.Context, verificationID uuid.UUID) (*verificationdb.WitnessConfirmation, error)
}

func NewFakeVerificationRepository() *FakeVerificationRepository {
	return &FakeVerificationRepository{trace: []string{}}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeVerificationRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeVerificationRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeVerificationRepository) EnsureVerification(ctx context.Context, entryID uuid.UUID, autoMissAt time.Time) (*verificationdb.Verification, bool, error) {
	f.record("EnsureVerification")
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

func (f *FakeVerificationRepository) GetVerification(ctx context.Context, verificationID uuid.UUID) (*verificationdb.Verification, error) {
	f.record("GetVerification")
	if f.GetVerificationFunc != nil {
		return f.GetVerificationFunc(ctx, verificationID)
	}
	return nil, verificationdb.ErrVerificationNotFound
}

func (f *FakeVerificationRepository) GetVerificationByEntry(ctx context.Context, entryID uuid.UUID) (*verificationdb.Verification, error) {
	f.record("GetVerificationByEntry")
	if f.GetByEntryFunc != nil {
		return f.GetByEntryFunc(ctx, entryID)
	}
	return nil, verificationdb.ErrVerificationNotFound
}

func (f *FakeVerificationRepository) AttachEvidence(ctx context.Context, verificationID uuid.UUID, evidence verificationdb.Evidence, now time.Time) (int64, error) {
	f.record("AttachEvidence")
	if f.AttachEvidenceFunc != nil {
		return f.AttachEvidenceFunc(ctx, verificationID, evidence, now)
	}
	return 1, nil
}

func (f *FakeVerificationRepository) ClaimForReview(ctx context.Context, verificationID uuid.UUID, now time.Time) (int64, error) {
	f.record("ClaimForReview")
	if f.ClaimForReviewFunc != nil {
		return f.ClaimForReviewFunc(ctx, verificationID, now)
	}
	return 1, nil
}

func (f *FakeVerificationRepository) Decide(ctx context.Context, verificationID uuid.UUID, status verificationdb.VerificationStatus, staffID uuid.UUID, now time.Time) (int64, error) {
	f.record("Decide")
	if f.DecideFunc != nil {
		return f.DecideFunc(ctx, verificationID, status, staffID, now)
	}
	return 1, nil
}

func (f *FakeVerificationRepository) SweepExpired(ctx context.Context, now time.Time) ([]verificationdb.SweptVerification, error) {
	f.record("SweepExpired")
	if f.SweepExpiredFunc != nil {
		return f.SweepExpiredFunc(ctx, now)
	}
	return nil, nil
}

func (f *FakeVerificationRepository) IssueWitnessToken(ctx context.Context, confirmation *verificationdb.WitnessConfirmation) error {
	f.record("IssueWitnessToken")
	if f.IssueWitnessTokenFunc != nil {
		return f.IssueWitnessTokenFunc(ctx, confirmation)
	}
	return nil
}

func (f *FakeVerificationRepository) ConfirmWitness(ctx context.Context, token string, now time.Time) (*verificationdb.WitnessConfirmation, verificationdb.WitnessConfirmOutcome, error) {
	f.record("ConfirmWitness")
	if f.ConfirmWitnessFunc != nil {
		return f.ConfirmWitnessFunc(ctx, token, now)
	}
	return nil, verificationdb.WitnessConfirmNotFound, nil
}

func (f *FakeVerificationRepository) LatestWitnessToken(ctx context.Context, verificationID uuid.UUID) (*verificationdb.WitnessConfirmation, error) {
	f.record("LatestWitnessToken")
	if f.LatestWitnessTokenFunc != nil {
		return f.LatestWitnessTokenFunc(ctx, verificationID)
	}
	return nil, nil
}

var _ verificationdb.VerificationDB = (*FakeVerificationRepository)(nil)

// ------------------------
// Fake Entry Repo
// ------------------------

type FakeEntryRepository struct {
	GetEntryFunc func(ctx context.Context, entryID uuid.UUID) (*entrydb.Entry, error)
}

func (f *FakeEntryRepository) CreateEntry(_ context.Context, entry *entrydb.Entry, _ time.Duration, _ time.Time) (*entrydb.CreateEntryOutcome, error) {
	return &entrydb.CreateEntryOutcome{Entry: entry}, nil
}

func (f *FakeEntryRepository) GetEntry(ctx context.Context, entryID uuid.UUID) (*entrydb.Entry, error) {
	if f.GetEntryFunc != nil {
		return f.GetEntryFunc(ctx, entryID)
	}
	return nil, entrydb.ErrEntryNotFound
}

func (f *FakeEntryRepository) LatestPaidEntrySince(context.Context, uuid.UUID, uuid.UUID, time.Time) (*entrydb.Entry, error) {
	return nil, nil
}

func (f *FakeEntryRepository) ReportOutcome(context.Context, uuid.UUID, entrydb.Outcome, time.Time) (int64, error) {
	return 0, nil
}

func (f *FakeEntryRepository) SweepOverdue(context.Context, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

var _ entrydb.EntryDB = (*FakeEntryRepository)(nil)

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
		VerificationTimeout: 12 * time.Hour,
		WitnessTTL:          72 * time.Hour,
	}
}

func newTestService(
	verifications *FakeVerificationRepository,
	entries *FakeEntryRepository,
	publisher *FakePublisher,
	clk clock.Clock,
) *VerificationService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewVerificationService(verifications, entries, publisher, logger, observability.NoopMetrics{}, tracer, clk, testConfig())
}

func winningEntry(entryID uuid.UUID, reportedAt time.Time) *entrydb.Entry {
	outcome := entrydb.OutcomeWin
	return &entrydb.Entry{
		ID:                entryID,
		Status:            entrydb.EntryStatusCompleted,
		OutcomeSelf:       &outcome,
		OutcomeReportedAt: &reportedAt,
	}
}
