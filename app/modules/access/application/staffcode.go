package accessservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
)

// RedeemStaffCode redeems a venue code. Every attempt is appended to the
// audit trail whatever the outcome; repeated failures against one prefix are
// a brute-force signal, and the per-prefix limiter damps them before the code
// lookup.
func (s *AccessService) RedeemStaffCode(ctx context.Context, input RedeemStaffCodeInput) (RedeemStaffCodeResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "RedeemStaffCode", input.Prefix,
		func(ctx context.Context) (RedeemStaffCodeResult, error) {
			now := s.clock.NowUTC()

			if l := s.limiterFor(input.Prefix); l != nil && !l.Allow() {
				s.recordAttempt(ctx, input, false, accessdb.RedeemRateLimited)
				return results.Failure[StaffCodeRedeemed](StaffCodeFailure{
					Kind:    results.FailurePrecondition,
					Outcome: accessdb.RedeemRateLimited,
				}), nil
			}

			code, outcome, err := s.accessDB.RedeemStaffCode(ctx, input.Prefix, input.Suffix, now)
			if err != nil {
				return RedeemStaffCodeResult{}, fmt.Errorf("failed to redeem staff code: %w", err)
			}

			s.recordAttempt(ctx, input, outcome == accessdb.RedeemOK, outcome)

			if outcome != accessdb.RedeemOK {
				return results.Failure[StaffCodeRedeemed](staffCodeFailure(outcome)), nil
			}

			s.logger.InfoContext(ctx, "Staff code redeemed",
				attr.ExtractCorrelationID(ctx),
				attr.String("code_prefix", input.Prefix),
				attr.Int("current_uses", code.CurrentUses),
			)
			return results.Success[StaffCodeRedeemed, StaffCodeFailure](StaffCodeRedeemed{Code: code}), nil
		})
}

// recordAttempt appends the audit row and counts the outcome. Audit failures
// are logged, never propagated: losing one row beats failing the redemption.
func (s *AccessService) recordAttempt(ctx context.Context, input RedeemStaffCodeInput, success bool, outcome accessdb.RedeemOutcome) {
	s.metrics.RecordStaffCodeAttempt(ctx, string(outcome))

	attempt := &accessdb.StaffCodeAttempt{
		ID:          uuid.New(),
		CodePrefix:  input.Prefix,
		Success:     success,
		EntryID:     input.EntryID,
		AttemptedAt: s.clock.NowUTC(),
	}
	if !success {
		attempt.Reason = string(outcome)
	}
	if err := s.accessDB.RecordStaffCodeAttempt(ctx, attempt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record staff code attempt",
			attr.String("code_prefix", input.Prefix), attr.Error(err))
	}
}

func staffCodeFailure(outcome accessdb.RedeemOutcome) StaffCodeFailure {
	switch outcome {
	case accessdb.RedeemExhausted:
		// current_uses hit max_uses, possibly in a race with this attempt.
		return StaffCodeFailure{Kind: results.FailureRaceLost, Outcome: outcome}
	case accessdb.RedeemInactive, accessdb.RedeemNotYetValid, accessdb.RedeemExpired:
		return StaffCodeFailure{Kind: results.FailurePrecondition, Outcome: outcome}
	default:
		return StaffCodeFailure{Kind: results.FailureValidation, Outcome: outcome}
	}
}
