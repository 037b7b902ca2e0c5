package competitiondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ErrCompetitionNotFound indicates the competition does not exist.
var ErrCompetitionNotFound = errors.New("competition not found")

// CompetitionDBImpl is the concrete implementation of CompetitionDB using bun.
type CompetitionDBImpl struct {
	DB *bun.DB
}

var _ CompetitionDB = (*CompetitionDBImpl)(nil)

// GetCompetition retrieves a competition by ID.
func (db *CompetitionDBImpl) GetCompetition(ctx context.Context, competitionID uuid.UUID) (*Competition, error) {
	competition := new(Competition)
	err := db.DB.NewSelect().
		Model(competition).
		Where("id = ?", competitionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to fetch competition: %w", err)
	}
	return competition, nil
}

// ListActiveCompetitions retrieves all competitions currently in ACTIVE status.
func (db *CompetitionDBImpl) ListActiveCompetitions(ctx context.Context) ([]*Competition, error) {
	var competitions []*Competition
	err := db.DB.NewSelect().
		Model(&competitions).
		Where("status = ?", CompetitionStatusActive).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active competitions: %w", err)
	}
	return competitions, nil
}
