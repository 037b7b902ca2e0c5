package entryservice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	verificationdb "github.com/aceclub-io/ace-engine/app/modules/verification/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/clock"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/results"
)

func TestEntryService_ReportOutcome(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 8, 12, 10, 0, 0, 0, time.UTC)
	entryID := uuid.New()

	openEntry := func() *entrydb.Entry {
		start := now.Add(-5 * time.Minute)
		end := now.Add(10 * time.Minute)
		return &entrydb.Entry{
			ID:                 entryID,
			Status:             entrydb.EntryStatusPaid,
			Path:               entrydb.EntryPathInstant,
			AttemptWindowStart: &start,
			AttemptWindowEnd:   &end,
		}
	}

	t.Run("miss completes the entry", func(t *testing.T) {
		entries := NewFakeEntryRepository()
		entries.GetEntryFunc = func(_ context.Context, _ uuid.UUID) (*entrydb.Entry, error) {
			e := openEntry()
			outcome := entrydb.OutcomeMiss
			e.OutcomeSelf = &outcome
			e.Status = entrydb.EntryStatusCompleted
			return e, nil
		}

		svc := newTestService(entries, &FakeCompetitionRepository{}, &FakeVerificationRepository{}, &FakePublisher{}, clock.At(now))
		result, err := svc.ReportOutcome(ctx, entryID, "miss")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected success, got %+v", result.Failure)
		}
		if result.Success.Verification != nil {
			t.Error("miss must not create a verification")
		}
	})

	t.Run("win creates verification with review deadline", func(t *testing.T) {
		entries := NewFakeEntryRepository()
		entries.GetEntryFunc = func(_ context.Context, _ uuid.UUID) (*entrydb.Entry, error) {
			e := openEntry()
			outcome := entrydb.OutcomeWin
			e.OutcomeSelf = &outcome
			return e, nil
		}

		var gotAutoMissAt time.Time
		verifications := &FakeVerificationRepository{
			EnsureVerificationFunc: func(_ context.Context, id uuid.UUID, autoMissAt time.Time) (*verificationdb.Verification, bool, error) {
				gotAutoMissAt = autoMissAt
				return &verificationdb.Verification{ID: uuid.New(), EntryID: id, Status: verificationdb.VerificationStatusInitiated, AutoMissAt: autoMissAt}, true, nil
			},
		}
		publisher := &FakePublisher{}

		svc := newTestService(entries, &FakeCompetitionRepository{}, verifications, publisher, clock.At(now))
		result, err := svc.ReportOutcome(ctx, entryID, "win")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected success, got %+v", result.Failure)
		}
		if result.Success.Verification == nil {
			t.Fatal("win must create a verification")
		}
		if want := now.Add(12 * time.Hour); !gotAutoMissAt.Equal(want) {
			t.Errorf("auto_miss_at = %v, want %v", gotAutoMissAt, want)
		}

		found := false
		for _, s := range publisher.Published() {
			if s == eventbus.SubjectVerificationPending {
				found = true
			}
		}
		if !found {
			t.Error("expected verification.pending to be published")
		}
	})

	t.Run("invalid outcome string rejected", func(t *testing.T) {
		entries := NewFakeEntryRepository()
		svc := newTestService(entries, &FakeCompetitionRepository{}, &FakeVerificationRepository{}, &FakePublisher{}, clock.At(now))

		result, err := svc.ReportOutcome(ctx, entryID, "auto_miss")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsFailure() || result.Failure.Reason != ReportReasonInvalidOutcome {
			t.Fatalf("expected invalid_outcome failure, got %+v", result)
		}
		// The repo must never see a system-only outcome.
		for _, step := range entries.Trace() {
			if step == "ReportOutcome" {
				t.Error("repository ReportOutcome called for invalid outcome")
			}
		}
	})

	t.Run("race lost to sweep returns terminal state", func(t *testing.T) {
		entries := NewFakeEntryRepository()
		entries.ReportOutcomeFunc = func(_ context.Context, _ uuid.UUID, _ entrydb.Outcome, _ time.Time) (int64, error) {
			return 0, nil
		}
		entries.GetEntryFunc = func(_ context.Context, _ uuid.UUID) (*entrydb.Entry, error) {
			e := openEntry()
			outcome := entrydb.OutcomeAutoMiss
			e.OutcomeSelf = &outcome
			e.Status = entrydb.EntryStatusExpired
			return e, nil
		}

		svc := newTestService(entries, &FakeCompetitionRepository{}, &FakeVerificationRepository{}, &FakePublisher{}, clock.At(now))
		result, err := svc.ReportOutcome(ctx, entryID, "win")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsFailure() {
			t.Fatal("expected failure")
		}
		if result.Failure.Kind != results.FailureRaceLost || result.Failure.Reason != ReportReasonAlreadyResolved {
			t.Errorf("got %+v, want race_lost/already_resolved", result.Failure)
		}
		if result.Failure.Entry == nil || result.Failure.Entry.OutcomeSelf == nil || *result.Failure.Entry.OutcomeSelf != entrydb.OutcomeAutoMiss {
			t.Error("failure must carry the terminal entry state")
		}
	})

	t.Run("window closed after expiry", func(t *testing.T) {
		entries := NewFakeEntryRepository()
		entries.ReportOutcomeFunc = func(_ context.Context, _ uuid.UUID, _ entrydb.Outcome, _ time.Time) (int64, error) {
			return 0, nil
		}
		entries.GetEntryFunc = func(_ context.Context, _ uuid.UUID) (*entrydb.Entry, error) {
			e := openEntry()
			end := now.Add(-time.Minute)
			e.AttemptWindowEnd = &end
			return e, nil
		}

		svc := newTestService(entries, &FakeCompetitionRepository{}, &FakeVerificationRepository{}, &FakePublisher{}, clock.At(now))
		result, err := svc.ReportOutcome(ctx, entryID, "miss")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsFailure() || result.Failure.Reason != ReportReasonWindowClosed {
			t.Fatalf("expected window_closed, got %+v", result)
		}
		if result.Failure.Kind != results.FailurePrecondition {
			t.Errorf("kind = %q, want precondition", result.Failure.Kind)
		}
	})

	t.Run("entry not found", func(t *testing.T) {
		entries := NewFakeEntryRepository()
		entries.ReportOutcomeFunc = func(_ context.Context, _ uuid.UUID, _ entrydb.Outcome, _ time.Time) (int64, error) {
			return 0, nil
		}

		svc := newTestService(entries, &FakeCompetitionRepository{}, &FakeVerificationRepository{}, &FakePublisher{}, clock.At(now))
		result, err := svc.ReportOutcome(ctx, entryID, "miss")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsFailure() || result.Failure.Reason != ReportReasonEntryNotFound {
			t.Fatalf("expected entry_not_found, got %+v", result)
		}
	})
}
