package accessdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Player is the minimal profile the engine needs. Full profile CRUD lives
// outside the engine; this row is find-or-created when a magic link is
// consumed.
type Player struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Email     string    `bun:"email,notnull,unique" json:"email"`
	FirstName string    `bun:"first_name,nullzero" json:"first_name,omitempty"`
	LastName  string    `bun:"last_name,nullzero" json:"last_name,omitempty"`
	Phone     string    `bun:"phone,nullzero" json:"phone,omitempty"`
	Age       *int      `bun:"age,nullzero" json:"age,omitempty"`
	Handicap  *float64  `bun:"handicap,nullzero" json:"handicap,omitempty"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// TokenPayload is the prospective-entry identity data bound to a magic link
// before any Entry or Player row exists. Stored as JSONB.
type TokenPayload struct {
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Phone         string    `json:"phone,omitempty"`
	Age           *int      `json:"age,omitempty"`
	Handicap      *float64  `json:"handicap,omitempty"`
	CompetitionID uuid.UUID `json:"competition_id"`
	TermsVersion  string    `json:"terms_version,omitempty"`
}

// EntryAccessToken is a single-use, time-limited credential binding a
// prospective entry to an email identity.
type EntryAccessToken struct {
	bun.BaseModel `bun:"table:entry_access_tokens,alias:eat"`

	ID      uuid.UUID    `bun:"id,pk,type:uuid" json:"id"`
	Token   string       `bun:"token,notnull,unique" json:"-"`
	Email   string       `bun:"email,notnull" json:"email"`
	Payload TokenPayload `bun:"payload,type:jsonb" json:"payload"`

	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	Used      bool       `bun:"used,notnull,default:false" json:"used"`
	UsedAt    *time.Time `bun:"used_at,nullzero" json:"used_at,omitempty"`
	CreatedAt time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// StaffCode is a venue-issued redemption code. The printed code is
// prefix-suffix; the prefix alone is loggable without leaking the secret.
type StaffCode struct {
	bun.BaseModel `bun:"table:staff_codes,alias:sc"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	CodePrefix string     `bun:"code_prefix,notnull" json:"code_prefix"`
	CodeSuffix string     `bun:"code_suffix,notnull" json:"-"`
	Active     bool       `bun:"active,notnull,default:true" json:"active"`
	ValidFrom  *time.Time `bun:"valid_from,nullzero" json:"valid_from,omitempty"`
	ValidUntil *time.Time `bun:"valid_until,nullzero" json:"valid_until,omitempty"`
	// MaxUses nil means unbounded. current_uses <= max_uses is enforced by
	// the conditional increment, never at the application layer.
	MaxUses     *int      `bun:"max_uses,nullzero" json:"max_uses,omitempty"`
	CurrentUses int       `bun:"current_uses,notnull,default:0" json:"current_uses"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// StaffCodeAttempt is one redemption attempt, successful or not. Append-only:
// rows are never mutated after insert, and recording one is never skipped.
// Repeated failures are a brute-force signal.
type StaffCodeAttempt struct {
	bun.BaseModel `bun:"table:staff_code_attempts,alias:sca"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	CodePrefix  string     `bun:"code_prefix,notnull" json:"code_prefix"`
	Success     bool       `bun:"success,notnull" json:"success"`
	Reason      string     `bun:"reason,nullzero" json:"reason,omitempty"`
	EntryID     *uuid.UUID `bun:"entry_id,nullzero,type:uuid" json:"entry_id,omitempty"`
	AttemptedAt time.Time  `bun:"attempted_at,nullzero,notnull,default:current_timestamp" json:"attempted_at"`
}
