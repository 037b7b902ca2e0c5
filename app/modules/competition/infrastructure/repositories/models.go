package competitiondb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CompetitionStatus is the lifecycle state of a hosted competition.
type CompetitionStatus string

const (
	CompetitionStatusScheduled CompetitionStatus = "SCHEDULED"
	CompetitionStatusActive    CompetitionStatus = "ACTIVE"
	CompetitionStatusEnded     CompetitionStatus = "ENDED"
)

// ParseCompetitionStatus rejects unknown status strings at the boundary.
func ParseCompetitionStatus(s string) (CompetitionStatus, bool) {
	switch CompetitionStatus(s) {
	case CompetitionStatusScheduled, CompetitionStatusActive, CompetitionStatusEnded:
		return CompetitionStatus(s), true
	}
	return "", false
}

// Competition represents a hosted hole-in-one challenge. Read-mostly from the
// engine's point of view: the engine checks whether it accepts entries and
// reads its fee; CRUD lives elsewhere.
type Competition struct {
	bun.BaseModel `bun:"table:competitions,alias:c"`

	ID              uuid.UUID         `bun:"id,pk,type:uuid" json:"id"`
	Name            string            `bun:"name,notnull" json:"name"`
	Status          CompetitionStatus `bun:"status,notnull,type:varchar(16)" json:"status"`
	EntryFeeMinor   int64             `bun:"entry_fee_minor,notnull,default:0" json:"entry_fee_minor"`
	CommissionMinor int64             `bun:"commission_minor,notnull,default:0" json:"commission_minor"`
	// StartDate/EndDate are nil for year-round competitions.
	StartDate *time.Time `bun:"start_date,nullzero" json:"start_date,omitempty"`
	EndDate   *time.Time `bun:"end_date,nullzero" json:"end_date,omitempty"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// IsAcceptingEntries reports whether a new entry may be created at now:
// status must be ACTIVE and now must fall inside the date range when one is set.
func (c *Competition) IsAcceptingEntries(now time.Time) bool {
	if c.Status != CompetitionStatusActive {
		return false
	}
	if c.StartDate != nil && now.Before(*c.StartDate) {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	return true
}
