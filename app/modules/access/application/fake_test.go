package accessservice

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/observability"
)

// ------------------------
// Fake Access Repo
// ------------------------

// FakeAccessRepository provides a programmable stub for the accessdb.AccessDB
// interface. The default ConsumeToken consumes an in-memory token exactly
// once, so double-consume behaviour is testable without a database.
type FakeAccessRepository struct {
	mu     sync.Mutex
	trace  []string
	tokens map[string]*accessdb.EntryAccessToken

	InsertTokenFunc            func(ctx context.Context, token *accessdb.EntryAccessToken) error
	GetTokenFunc               func(ctx context.Context, token string) (*accessdb.EntryAccessToken, error)
	ConsumeTokenFunc           func(ctx context.Context, token string, now time.Time, buildEntry func(player *accessdb.Player) *entrydb.Entry) (*accessdb.ConsumeOutcome, error)
	RedeemStaffCodeFunc        func(ctx context.Context, prefix, suffix string, now time.Time) (*accessdb.StaffCode, accessdb.RedeemOutcome, error)
	RecordStaffCodeAttemptFunc func(ctx context.Context, attempt *accessdb.StaffCodeAttempt) error

	Attempts []*accessdb.StaffCodeAttempt
}

func NewFakeAccessRepository() *FakeAccessRepository {
	return &FakeAccessRepository{
		trace:  []string{},
		tokens: map[string]*accessdb.EntryAccessToken{},
	}
}

// Trace returns the sequence of method calls made to the fake.
func (f *FakeAccessRepository) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeAccessRepository) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeAccessRepository) InsertToken(ctx context.Context, token *accessdb.EntryAccessToken) error {
	f.record("InsertToken")
	if f.InsertTokenFunc != nil {
		return f.InsertTokenFunc(ctx, token)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token.Token] = token
	return nil
}

func (f *FakeAccessRepository) GetToken(ctx context.Context, token string) (*accessdb.EntryAccessToken, error) {
	f.record("GetToken")
	if f.GetTokenFunc != nil {
		return f.GetTokenFunc(ctx, token)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tokens[token]
	if !ok {
		return nil, accessdb.ErrTokenNotFound
	}
	return stored, nil
}

func (f *FakeAccessRepository) ConsumeToken(ctx context.Context, token string, now time.Time, buildEntry func(player *accessdb.Player) *entrydb.Entry) (*accessdb.ConsumeOutcome, error) {
	f.record("ConsumeToken")
	if f.ConsumeTokenFunc != nil {
		return f.ConsumeTokenFunc(ctx, token, now, buildEntry)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.tokens[token]
	if !ok {
		return &accessdb.ConsumeOutcome{Reason: accessdb.ConsumeNotFound}, nil
	}
	if stored.Used {
		return &accessdb.ConsumeOutcome{Reason: accessdb.ConsumeAlreadyUsed}, nil
	}
	if now.After(stored.ExpiresAt) {
		return &accessdb.ConsumeOutcome{Reason: accessdb.ConsumeExpired}, nil
	}

	stored.Used = true
	stored.UsedAt = &now
	player := &accessdb.Player{
		ID:        uuid.New(),
		Email:     stored.Email,
		FirstName: stored.Payload.FirstName,
		LastName:  stored.Payload.LastName,
	}
	return &accessdb.ConsumeOutcome{
		Token:  stored,
		Player: player,
		Entry:  buildEntry(player),
	}, nil
}

func (f *FakeAccessRepository) RedeemStaffCode(ctx context.Context, prefix, suffix string, now time.Time) (*accessdb.StaffCode, accessdb.RedeemOutcome, error) {
	f.record("RedeemStaffCode")
	if f.RedeemStaffCodeFunc != nil {
		return f.RedeemStaffCodeFunc(ctx, prefix, suffix, now)
	}
	return nil, accessdb.RedeemNotFound, nil
}

func (f *FakeAccessRepository) RecordStaffCodeAttempt(ctx context.Context, attempt *accessdb.StaffCodeAttempt) error {
	f.record("RecordStaffCodeAttempt")
	if f.RecordStaffCodeAttemptFunc != nil {
		return f.RecordStaffCodeAttemptFunc(ctx, attempt)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Attempts = append(f.Attempts, attempt)
	return nil
}

// RecordedAttempts returns the audit rows appended so far.
func (f *FakeAccessRepository) RecordedAttempts() []*accessdb.StaffCodeAttempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*accessdb.StaffCodeAttempt, len(f.Attempts))
	copy(out, f.Attempts)
	return out
}

var _ accessdb.AccessDB = (*FakeAccessRepository)(nil)

// ------------------------
// Fake Competition Repo
// ------------------------

type FakeCompetitionRepository struct {
	GetCompetitionFunc func(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error)
}

func (f *FakeCompetitionRepository) GetCompetition(ctx context.Context, competitionID uuid.UUID) (*competitiondb.Competition, error) {
	if f.GetCompetitionFunc != nil {
		return f.GetCompetitionFunc(ctx, competitionID)
	}
	return &competitiondb.Competition{
		ID:     competitionID,
		Name:   "Lakeside Ace Challenge",
		Status: competitiondb.CompetitionStatusActive,
	}, nil
}

func (f *FakeCompetitionRepository) ListActiveCompetitions(context.Context) ([]*competitiondb.Competition, error) {
	return nil, nil
}

var _ competitiondb.CompetitionDB = (*FakeCompetitionRepository)(nil)

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
		JWTSecret:      "test-secret",
		LinkBaseURL:    "https://play.example.com/enter",
		MagicLinkTTL:   time.Hour,
		DeferredWindow: 6 * time.Hour,
		StaffCodeRate:  rate.Limit(0),
	}
}

func newTestService(
	access *FakeAccessRepository,
	competitions *FakeCompetitionRepository,
	publisher *FakePublisher,
	clk clock.Clock,
	cfg Config,
) *AccessService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewAccessService(access, competitions, publisher, logger, observability.NoopMetrics{}, tracer, clk, cfg)
}
