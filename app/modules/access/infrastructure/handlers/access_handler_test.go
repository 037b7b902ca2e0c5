package accesshandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	accessservice "github.com/aceclub-io/ace-engine/app/modules/access/application"
	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
	"github.com/aceclub-io/ace-engine/app/shared/results"
)

type FakeAccessService struct {
	IssueMagicLinkFunc   func(ctx context.Context, input accessservice.IssueMagicLinkInput) (accessservice.IssueMagicLinkResult, error)
	ConsumeMagicLinkFunc func(ctx context.Context, signedToken string) (accessservice.ConsumeMagicLinkResult, error)
	RedeemStaffCodeFunc  func(ctx context.Context, input accessservice.RedeemStaffCodeInput) (accessservice.RedeemStaffCodeResult, error)
}

var _ accessservice.Service = (*FakeAccessService)(nil)

func (f *FakeAccessService) IssueMagicLink(ctx context.Context, input accessservice.IssueMagicLinkInput) (accessservice.IssueMagicLinkResult, error) {
	if f.IssueMagicLinkFunc == nil {
		return accessservice.IssueMagicLinkResult{}, errors.New("IssueMagicLink not stubbed")
	}
	return f.IssueMagicLinkFunc(ctx, input)
}

func (f *FakeAccessService) ConsumeMagicLink(ctx context.Context, signedToken string) (accessservice.ConsumeMagicLinkResult, error) {
	if f.ConsumeMagicLinkFunc == nil {
		return accessservice.ConsumeMagicLinkResult{}, errors.New("ConsumeMagicLink not stubbed")
	}
	return f.ConsumeMagicLinkFunc(ctx, signedToken)
}

func (f *FakeAccessService) RedeemStaffCode(ctx context.Context, input accessservice.RedeemStaffCodeInput) (accessservice.RedeemStaffCodeResult, error) {
	if f.RedeemStaffCodeFunc == nil {
		return accessservice.RedeemStaffCodeResult{}, errors.New("RedeemStaffCode not stubbed")
	}
	return f.RedeemStaffCodeFunc(ctx, input)
}

func TestIssueMagicLinkHandler(t *testing.T) {
	email := gofakeit.Email()
	competitionID := uuid.New()
	expiresAt := time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC)

	t.Run("accepted without leaking the link", func(t *testing.T) {
		fake := &FakeAccessService{
			IssueMagicLinkFunc: func(ctx context.Context, input accessservice.IssueMagicLinkInput) (accessservice.IssueMagicLinkResult, error) {
				assert.Equal(t, email, input.Email)
				assert.Equal(t, competitionID, input.Payload.CompetitionID)
				return results.Success[accessservice.MagicLinkIssued, accessservice.MagicLinkFailure](accessservice.MagicLinkIssued{
					Link:      "https://play.example.com/enter?token=secret",
					ExpiresAt: expiresAt,
				}), nil
			},
		}
		handler := NewAccessHandler(fake)

		body := fmt.Sprintf(`{"email":%q,"payload":{"first_name":"Sam","last_name":"Field","competition_id":%q}}`, email, competitionID)
		req := httptest.NewRequest(http.MethodPost, "/magic-link", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.NotContains(t, rec.Body.String(), "secret")
		assert.Contains(t, rec.Body.String(), "expires_at")
	})

	t.Run("closed competition", func(t *testing.T) {
		fake := &FakeAccessService{
			IssueMagicLinkFunc: func(ctx context.Context, input accessservice.IssueMagicLinkInput) (accessservice.IssueMagicLinkResult, error) {
				return results.Failure[accessservice.MagicLinkIssued, accessservice.MagicLinkFailure](accessservice.MagicLinkFailure{
					Kind:   results.FailurePrecondition,
					Reason: accessservice.MagicLinkReasonCompetitionNotAccepting,
				}), nil
			},
		}
		handler := NewAccessHandler(fake)

		body := fmt.Sprintf(`{"email":%q,"payload":{"first_name":"Sam","last_name":"Field","competition_id":%q}}`, email, competitionID)
		req := httptest.NewRequest(http.MethodPost, "/magic-link", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestConsumeMagicLinkHandler(t *testing.T) {
	t.Run("creates player and entry", func(t *testing.T) {
		playerID := uuid.New()
		entryID := uuid.New()
		fake := &FakeAccessService{
			ConsumeMagicLinkFunc: func(ctx context.Context, signedToken string) (accessservice.ConsumeMagicLinkResult, error) {
				assert.Equal(t, "signed-token", signedToken)
				return results.Success[accessservice.MagicLinkConsumed, accessservice.MagicLinkFailure](accessservice.MagicLinkConsumed{
					Player: &accessdb.Player{ID: playerID, Email: gofakeit.Email()},
					Entry:  &entrydb.Entry{ID: entryID, Path: entrydb.EntryPathDeferred, Status: entrydb.EntryStatusActive},
				}), nil
			},
		}
		handler := NewAccessHandler(fake)

		req := httptest.NewRequest(http.MethodPost, "/magic-link/consume", bytes.NewBufferString(`{"token":"signed-token"}`))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var got struct {
			Player accessdb.Player `json:"player"`
			Entry  entrydb.Entry   `json:"entry"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, playerID, got.Player.ID)
		assert.Equal(t, entryID, got.Entry.ID)
	})

	t.Run("already used", func(t *testing.T) {
		fake := &FakeAccessService{
			ConsumeMagicLinkFunc: func(ctx context.Context, signedToken string) (accessservice.ConsumeMagicLinkResult, error) {
				return results.Failure[accessservice.MagicLinkConsumed, accessservice.MagicLinkFailure](accessservice.MagicLinkFailure{
					Kind:   results.FailureRaceLost,
					Reason: accessservice.MagicLinkReasonAlreadyUsed,
				}), nil
			},
		}
		handler := NewAccessHandler(fake)

		req := httptest.NewRequest(http.MethodPost, "/magic-link/consume", bytes.NewBufferString(`{"token":"signed-token"}`))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		handler := NewAccessHandler(&FakeAccessService{})

		req := httptest.NewRequest(http.MethodPost, "/magic-link/consume", bytes.NewBufferString(`{}`))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRedeemStaffCodeHandler(t *testing.T) {
	t.Run("redeemed", func(t *testing.T) {
		fake := &FakeAccessService{
			RedeemStaffCodeFunc: func(ctx context.Context, input accessservice.RedeemStaffCodeInput) (accessservice.RedeemStaffCodeResult, error) {
				assert.Equal(t, "ACE24", input.Prefix)
				return results.Success[accessservice.StaffCodeRedeemed, accessservice.StaffCodeFailure](accessservice.StaffCodeRedeemed{
					Code: &accessdb.StaffCode{CodePrefix: "ACE24", CurrentUses: 3},
				}), nil
			},
		}
		handler := NewAccessHandler(fake)

		req := httptest.NewRequest(http.MethodPost, "/staff-code/redeem", bytes.NewBufferString(`{"prefix":"ACE24","suffix":"XK9Q"}`))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ACE24")
	})

	t.Run("rate limited maps to 429", func(t *testing.T) {
		fake := &FakeAccessService{
			RedeemStaffCodeFunc: func(ctx context.Context, input accessservice.RedeemStaffCodeInput) (accessservice.RedeemStaffCodeResult, error) {
				return results.Failure[accessservice.StaffCodeRedeemed, accessservice.StaffCodeFailure](accessservice.StaffCodeFailure{
					Kind:    results.FailurePrecondition,
					Outcome: accessdb.RedeemRateLimited,
				}), nil
			},
		}
		handler := NewAccessHandler(fake)

		req := httptest.NewRequest(http.MethodPost, "/staff-code/redeem", bytes.NewBufferString(`{"prefix":"ACE24","suffix":"XK9Q"}`))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("exhausted maps to conflict", func(t *testing.T) {
		fake := &FakeAccessService{
			RedeemStaffCodeFunc: func(ctx context.Context, input accessservice.RedeemStaffCodeInput) (accessservice.RedeemStaffCodeResult, error) {
				return results.Failure[accessservice.StaffCodeRedeemed, accessservice.StaffCodeFailure](accessservice.StaffCodeFailure{
					Kind:    results.FailureRaceLost,
					Outcome: accessdb.RedeemExhausted,
				}), nil
			},
		}
		handler := NewAccessHandler(fake)

		req := httptest.NewRequest(http.MethodPost, "/staff-code/redeem", bytes.NewBufferString(`{"prefix":"ACE24","suffix":"XK9Q"}`))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		handler := NewAccessHandler(&FakeAccessService{})

		req := httptest.NewRequest(http.MethodPost, "/staff-code/redeem", bytes.NewBufferString(`{"prefix":"ACE24"}`))
		rec := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
