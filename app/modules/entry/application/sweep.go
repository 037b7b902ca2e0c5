package entryservice

import (
	"context"

	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
)

// SweepOverdueEntries applies auto_miss to every entry whose attempt window
// lapsed without a self-report. Idempotent: the outcome_self IS NULL guard
// means a second run over the same rows is a no-op, and a player report that
// commits first simply removes the row from the sweep's reach.
func (s *EntryService) SweepOverdueEntries(ctx context.Context) (SweepOutcome, error) {
	now := s.clock.NowUTC()

	ids, err := s.entryDB.SweepOverdue(ctx, now)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "SweepOverdueEntries", serviceName)
		return SweepOutcome{}, err
	}

	s.metrics.RecordSweepResult(ctx, "entry_auto_miss", int64(len(ids)))
	if len(ids) > 0 {
		s.logger.InfoContext(ctx, "Auto-miss sweep applied",
			attr.Int("entries_swept", len(ids)),
			attr.Time("swept_at", now),
		)
	}

	for _, id := range ids {
		if err := s.publisher.Publish(ctx, eventbus.SubjectEntryAutoMissed, map[string]any{
			"entry_id": id,
			"swept_at": now,
		}); err != nil {
			s.logger.WarnContext(ctx, "Auto-miss applied but notification failed",
				attr.EntryID(id), attr.Error(err))
		}
	}

	return SweepOutcome{EntryIDs: ids, SweptAt: now}, nil
}
