package entryservice

import (
	"context"

	"github.com/google/uuid"
)

// CanEnter is the pure cooldown read: may this player create a new entry for
// the competition right now? This is advisory only; the authoritative
// re-check happens inside the CreateEntry transaction, because two concurrent
// requests can both pass a pre-check.
func (s *EntryService) CanEnter(ctx context.Context, playerID, competitionID uuid.UUID) (CooldownStatus, error) {
	now := s.clock.NowUTC()

	last, err := s.entryDB.LatestPaidEntrySince(ctx, playerID, competitionID, now.Add(-s.config.Cooldown))
	if err != nil {
		return CooldownStatus{}, err
	}
	if last == nil {
		return CooldownStatus{Allowed: true}, nil
	}

	retryAt := last.CreatedAt.Add(s.config.Cooldown)
	return CooldownStatus{
		Allowed: !retryAt.After(now),
		RetryAt: &retryAt,
	}, nil
}
