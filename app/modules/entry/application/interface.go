package entryservice

import (
	"context"

	"github.com/google/uuid"
)

// Service is the entry state machine's operation surface.
type Service interface {
	CreateEntry(ctx context.Context, input CreateEntryInput) (CreateEntryResult, error)
	CanEnter(ctx context.Context, playerID, competitionID uuid.UUID) (CooldownStatus, error)
	ReportOutcome(ctx context.Context, entryID uuid.UUID, outcome string) (ReportOutcomeResult, error)
	SweepOverdueEntries(ctx context.Context) (SweepOutcome, error)
}
