package accessservice

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	competitiondb "github.com/aceclub-io/ace-engine/app/modules/competition/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/attr"
	"github.com/aceclub-io/ace-engine/app/shared/eventbus"
	"github.com/aceclub-io/ace-engine/app/shared/results"
	"github.com/aceclub-io/ace-engine/app/shared/telemetry"
	"github.com/aceclub-io/ace-engine/app/shared/token"
)

// linkClaims is the JWT wrapped around the opaque database token. Signing the
// URL keeps forged links off the consume endpoint without a database hit.
type linkClaims struct {
	Token string `json:"tok"`
	jwt.RegisteredClaims
}

// IssueMagicLink mints a single-use, time-limited token for a prospective
// entry and hands the signed link to the notification collaborator. Delivery
// is fire-and-forget; a mailer outage never rolls back the issuance.
func (s *AccessService) IssueMagicLink(ctx context.Context, input IssueMagicLinkInput) (IssueMagicLinkResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "IssueMagicLink", input.Email,
		func(ctx context.Context) (IssueMagicLinkResult, error) {
			if input.Email == "" {
				return results.Failure[MagicLinkIssued](MagicLinkFailure{
					Kind:   results.FailureValidation,
					Reason: MagicLinkReasonEmailRequired,
				}), nil
			}
			if input.Payload.CompetitionID == uuid.Nil || input.Payload.FirstName == "" || input.Payload.LastName == "" {
				return results.Failure[MagicLinkIssued](MagicLinkFailure{
					Kind:   results.FailureValidation,
					Reason: MagicLinkReasonInvalidPayload,
				}), nil
			}

			now := s.clock.NowUTC()
			competition, err := s.competitionDB.GetCompetition(ctx, input.Payload.CompetitionID)
			if err != nil {
				if errors.Is(err, competitiondb.ErrCompetitionNotFound) {
					return results.Failure[MagicLinkIssued](MagicLinkFailure{
						Kind:   results.FailureValidation,
						Reason: MagicLinkReasonCompetitionNotFound,
					}), nil
				}
				return IssueMagicLinkResult{}, fmt.Errorf("failed to load competition: %w", err)
			}
			if !competition.IsAcceptingEntries(now) {
				return results.Failure[MagicLinkIssued](MagicLinkFailure{
					Kind:   results.FailurePrecondition,
					Reason: MagicLinkReasonCompetitionNotAccepting,
				}), nil
			}

			raw, err := token.New(magicTokenBytes)
			if err != nil {
				return IssueMagicLinkResult{}, err
			}

			expiresAt := now.Add(s.config.MagicLinkTTL)
			accessToken := &accessdb.EntryAccessToken{
				ID:        uuid.New(),
				Token:     raw,
				Email:     input.Email,
				Payload:   input.Payload,
				ExpiresAt: expiresAt,
				CreatedAt: now,
			}
			if err := s.accessDB.InsertToken(ctx, accessToken); err != nil {
				return IssueMagicLinkResult{}, fmt.Errorf("failed to persist access token: %w", err)
			}

			link, err := s.signLink(raw, now, expiresAt)
			if err != nil {
				return IssueMagicLinkResult{}, err
			}

			if err := s.publisher.Publish(ctx, eventbus.SubjectMagicLinkIssued, map[string]any{
				"email":      input.Email,
				"link":       link,
				"expires_at": expiresAt,
			}); err != nil {
				s.logger.WarnContext(ctx, "Magic link issued but notification failed",
					attr.String("email", input.Email), attr.Error(err))
			}

			s.logger.InfoContext(ctx, "Magic link issued",
				attr.ExtractCorrelationID(ctx),
				attr.CompetitionID(input.Payload.CompetitionID),
				attr.Time("expires_at", expiresAt),
			)
			return results.Success[MagicLinkIssued, MagicLinkFailure](MagicLinkIssued{
				Token:     accessToken,
				Link:      link,
				ExpiresAt: expiresAt,
			}), nil
		})
}

// ConsumeMagicLink burns a token and creates the player and deferred-path
// entry in one transaction. Two tabs clicking the same link yield exactly one
// success; the loser sees already_used.
func (s *AccessService) ConsumeMagicLink(ctx context.Context, signedToken string) (ConsumeMagicLinkResult, error) {
	return telemetry.Operation(ctx, s.telemetryDeps(), "ConsumeMagicLink", "",
		func(ctx context.Context) (ConsumeMagicLinkResult, error) {
			raw, ok := s.verifyLink(signedToken)
			if !ok {
				return results.Failure[MagicLinkConsumed](MagicLinkFailure{
					Kind:   results.FailureValidation,
					Reason: MagicLinkReasonInvalidToken,
				}), nil
			}

			now := s.clock.NowUTC()
			stored, err := s.accessDB.GetToken(ctx, raw)
			if err != nil {
				if errors.Is(err, accessdb.ErrTokenNotFound) {
					return results.Failure[MagicLinkConsumed](MagicLinkFailure{
						Kind:   results.FailureValidation,
						Reason: MagicLinkReasonNotFound,
					}), nil
				}
				return ConsumeMagicLinkResult{}, fmt.Errorf("failed to load access token: %w", err)
			}

			competition, err := s.competitionDB.GetCompetition(ctx, stored.Payload.CompetitionID)
			if err != nil {
				if errors.Is(err, competitiondb.ErrCompetitionNotFound) {
					return results.Failure[MagicLinkConsumed](MagicLinkFailure{
						Kind:   results.FailureValidation,
						Reason: MagicLinkReasonCompetitionNotFound,
					}), nil
				}
				return ConsumeMagicLinkResult{}, fmt.Errorf("failed to load competition: %w", err)
			}
			if !competition.IsAcceptingEntries(now) {
				return results.Failure[MagicLinkConsumed](MagicLinkFailure{
					Kind:   results.FailurePrecondition,
					Reason: MagicLinkReasonCompetitionNotAccepting,
				}), nil
			}

			outcome, err := s.accessDB.ConsumeToken(ctx, raw, now, func(player *accessdb.Player) *entrydb.Entry {
				windowEnd := now.Add(s.config.DeferredWindow)
				entry := &entrydb.Entry{
					ID:                 uuid.New(),
					CompetitionID:      stored.Payload.CompetitionID,
					PlayerID:           player.ID,
					Status:             entrydb.EntryStatusActive,
					Path:               entrydb.EntryPathDeferred,
					AttemptWindowStart: &now,
					AttemptWindowEnd:   &windowEnd,
					TermsVersion:       stored.Payload.TermsVersion,
					CreatedAt:          now,
				}
				if stored.Payload.TermsVersion != "" {
					entry.TermsAcceptedAt = &now
				}
				return entry
			})
			if err != nil {
				return ConsumeMagicLinkResult{}, err
			}
			if outcome.Reason != "" {
				return results.Failure[MagicLinkConsumed](consumeFailure(outcome.Reason)), nil
			}

			s.logger.InfoContext(ctx, "Magic link consumed",
				attr.ExtractCorrelationID(ctx),
				attr.PlayerID(outcome.Player.ID),
				attr.EntryID(outcome.Entry.ID),
				attr.CompetitionID(stored.Payload.CompetitionID),
			)
			if err := s.publisher.Publish(ctx, eventbus.SubjectEntryCreated, outcome.Entry); err != nil {
				s.logger.WarnContext(ctx, "Entry created but notification failed",
					attr.EntryID(outcome.Entry.ID), attr.Error(err))
			}

			return results.Success[MagicLinkConsumed, MagicLinkFailure](MagicLinkConsumed{
				Player: outcome.Player,
				Entry:  outcome.Entry,
			}), nil
		})
}

func consumeFailure(reason accessdb.ConsumeFailureReason) MagicLinkFailure {
	switch reason {
	case accessdb.ConsumeAlreadyUsed:
		// The other tab won.
		return MagicLinkFailure{Kind: results.FailureRaceLost, Reason: MagicLinkReasonAlreadyUsed}
	case accessdb.ConsumeExpired:
		return MagicLinkFailure{Kind: results.FailurePrecondition, Reason: MagicLinkReasonExpired}
	default:
		return MagicLinkFailure{Kind: results.FailureValidation, Reason: MagicLinkReasonNotFound}
	}
}

func (s *AccessService) signLink(raw string, now, expiresAt time.Time) (string, error) {
	claims := linkClaims{
		Token: raw,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign magic link: %w", err)
	}

	u, err := url.Parse(s.config.LinkBaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid link base url: %w", err)
	}
	q := u.Query()
	q.Set("token", signed)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// verifyLink checks the signature and extracts the opaque token. Expiry of the
// JWT itself is left to the database row: the row is authoritative, and the
// consume path classifies expiry precisely.
func (s *AccessService) verifyLink(signedToken string) (string, bool) {
	claims := &linkClaims{}
	parsed, err := jwt.ParseWithClaims(signedToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithoutClaimsValidation())
	if err != nil || !parsed.Valid || claims.Token == "" {
		return "", false
	}
	return claims.Token, true
}
