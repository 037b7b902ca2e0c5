package competitiondb

import (
	"context"

	"github.com/google/uuid"
)

// CompetitionDB is the read surface the engine needs from competitions.
type CompetitionDB interface {
	GetCompetition(ctx context.Context, competitionID uuid.UUID) (*Competition, error)
	ListActiveCompetitions(ctx context.Context) ([]*Competition, error)
}
