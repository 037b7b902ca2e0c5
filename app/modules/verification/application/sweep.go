package verificationservice

import (
	"context"

	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
)

// SweepExpiredVerifications force-resolves every claim still unresolved past
// its review deadline: the claim is rejected and the winning entry driven to
// auto_miss in the same transaction. The auto_miss_applied flag flips exactly
// once, so overlapping sweep runs cannot double-apply.
func (s *VerificationService) SweepExpiredVerifications(ctx context.Context) (SweepOutcome, error) {
	now := s.clock.NowUTC()

	swept, err := s.verificationDB.SweepExpired(ctx, now)
	if err != nil {
		s.metrics.RecordOperationFailure(ctx, "SweepExpiredVerifications", serviceName)
		return SweepOutcome{}, err
	}

	s.metrics.RecordSweepResult(ctx, "verification_auto_miss", int64(len(swept)))
	if len(swept) > 0 {
		s.logger.InfoContext(ctx, "Verification expiry sweep applied",
			attr.Int("verifications_swept", len(swept)),
			attr.Time("swept_at", now),
		)
	}

	for _, sv := range swept {
		if err := s.publisher.Publish(ctx, eventbus.SubjectVerificationAutoMiss, map[string]any{
			"verification_id": sv.VerificationID,
			"entry_id":        sv.EntryID,
			"swept_at":        now,
		}); err != nil {
			s.logger.WarnContext(ctx, "Verification swept but notification failed",
				attr.VerificationID(sv.VerificationID), attr.Error(err))
		}
	}

	return SweepOutcome{Swept: swept, SweptAt: now}, nil
}
