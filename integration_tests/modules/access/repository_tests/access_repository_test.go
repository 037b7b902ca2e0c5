package accessintegrationtests

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	accessdb "github.com/aceclub-io/ace-engine/app/modules/access/infrastructure/repositories"
	entrydb "github.com/aceclub-io/ace-engine/app/modules/entry/infrastructure/repositories"
)

func seedToken(t *testing.T, deps TestDeps, email string, expiresAt time.Time) *accessdb.EntryAccessToken {
	t.Helper()

	token := &accessdb.EntryAccessToken{
		ID:    uuid.New(),
		Token: uuid.NewString(),
		Email: email,
		Payload: accessdb.TokenPayload{
			FirstName:     "Sam",
			LastName:      "Rivera",
			CompetitionID: uuid.New(),
		},
		ExpiresAt: expiresAt,
	}
	require.NoError(t, deps.DB.InsertToken(deps.Ctx, token))
	return token
}

func buildDeferredEntry(token *accessdb.EntryAccessToken, now time.Time) func(*accessdb.Player) *entrydb.Entry {
	return func(player *accessdb.Player) *entrydb.Entry {
		windowEnd := now.Add(time.Hour)
		return &entrydb.Entry{
			ID:                 uuid.New(),
			CompetitionID:      token.Payload.CompetitionID,
			PlayerID:           player.ID,
			Paid:               true,
			Status:             entrydb.EntryStatusPaid,
			Path:               entrydb.EntryPathDeferred,
			AttemptWindowStart: &now,
			AttemptWindowEnd:   &windowEnd,
		}
	}
}

func TestConsumeTokenBurnsExactlyOnce(t *testing.T) {
	deps := SetupTestAccessDB(t)
	now := time.Now().UTC()
	token := seedToken(t, deps, "sam@example.com", now.Add(6*time.Hour))

	outcome, err := deps.DB.ConsumeToken(deps.Ctx, token.Token, now, buildDeferredEntry(token, now))
	require.NoError(t, err)
	require.Empty(t, outcome.Reason)
	require.NotNil(t, outcome.Player)
	require.NotNil(t, outcome.Entry)
	require.Equal(t, "sam@example.com", outcome.Player.Email)

	// The second tab gets a distinguished refusal, not a second entry.
	again, err := deps.DB.ConsumeToken(deps.Ctx, token.Token, now.Add(time.Minute), buildDeferredEntry(token, now))
	require.NoError(t, err)
	require.Equal(t, accessdb.ConsumeAlreadyUsed, again.Reason)

	entries, err := deps.BunDB.NewSelect().
		Model((*entrydb.Entry)(nil)).
		Where("player_id = ?", outcome.Player.ID).
		Count(deps.Ctx)
	require.NoError(t, err)
	require.Equal(t, 1, entries)
}

func TestConsumeTokenConcurrentClicksAdmitOne(t *testing.T) {
	deps := SetupTestAccessDB(t)
	now := time.Now().UTC()
	token := seedToken(t, deps, "race@example.com", now.Add(6*time.Hour))

	outcomes := make([]*accessdb.ConsumeOutcome, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = deps.DB.ConsumeToken(deps.Ctx, token.Token, now, buildDeferredEntry(token, now))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	refused := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		if outcomes[i].Reason == "" {
			succeeded++
		}
		if outcomes[i].Reason == accessdb.ConsumeAlreadyUsed {
			refused++
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, refused)

	players, err := deps.BunDB.NewSelect().
		Model((*accessdb.Player)(nil)).
		Where("email = ?", "race@example.com").
		Count(deps.Ctx)
	require.NoError(t, err)
	require.Equal(t, 1, players)
}

func TestConsumeTokenExpiredLeavesNoSideEffects(t *testing.T) {
	deps := SetupTestAccessDB(t)
	now := time.Now().UTC()
	token := seedToken(t, deps, "late@example.com", now.Add(-time.Hour))

	outcome, err := deps.DB.ConsumeToken(deps.Ctx, token.Token, now, buildDeferredEntry(token, now))
	require.NoError(t, err)
	require.Equal(t, accessdb.ConsumeExpired, outcome.Reason)
	require.Nil(t, outcome.Player)
	require.Nil(t, outcome.Entry)

	players, err := deps.BunDB.NewSelect().
		Model((*accessdb.Player)(nil)).
		Where("email = ?", "late@example.com").
		Count(deps.Ctx)
	require.NoError(t, err)
	require.Equal(t, 0, players)

	stored, err := deps.DB.GetToken(deps.Ctx, token.Token)
	require.NoError(t, err)
	require.False(t, stored.Used)
}

func TestConsumeTokenReusesExistingPlayerByEmail(t *testing.T) {
	deps := SetupTestAccessDB(t)
	now := time.Now().UTC()

	first := seedToken(t, deps, "regular@example.com", now.Add(6*time.Hour))
	second := seedToken(t, deps, "regular@example.com", now.Add(6*time.Hour))

	firstOutcome, err := deps.DB.ConsumeToken(deps.Ctx, first.Token, now, buildDeferredEntry(first, now))
	require.NoError(t, err)
	require.Empty(t, firstOutcome.Reason)

	secondOutcome, err := deps.DB.ConsumeToken(deps.Ctx, second.Token, now, buildDeferredEntry(second, now))
	require.NoError(t, err)
	require.Empty(t, secondOutcome.Reason)
	require.Equal(t, firstOutcome.Player.ID, secondOutcome.Player.ID)

	players, err := deps.BunDB.NewSelect().
		Model((*accessdb.Player)(nil)).
		Where("email = ?", "regular@example.com").
		Count(deps.Ctx)
	require.NoError(t, err)
	require.Equal(t, 1, players)
}

func seedStaffCode(t *testing.T, deps TestDeps, mutate func(*accessdb.StaffCode)) *accessdb.StaffCode {
	t.Helper()

	code := &accessdb.StaffCode{
		ID:         uuid.New(),
		CodePrefix: "ACE",
		CodeSuffix: uuid.NewString()[:8],
		Active:     true,
	}
	if mutate != nil {
		mutate(code)
	}
	_, err := deps.BunDB.NewInsert().Model(code).Exec(deps.Ctx)
	require.NoError(t, err)
	return code
}

func TestRedeemStaffCodeStopsAtMaxUses(t *testing.T) {
	deps := SetupTestAccessDB(t)
	now := time.Now().UTC()
	maxUses := 1
	code := seedStaffCode(t, deps, func(c *accessdb.StaffCode) {
		c.MaxUses = &maxUses
	})

	redeemed, outcome, err := deps.DB.RedeemStaffCode(deps.Ctx, code.CodePrefix, code.CodeSuffix, now)
	require.NoError(t, err)
	require.Equal(t, accessdb.RedeemOK, outcome)
	require.Equal(t, 1, redeemed.CurrentUses)

	// The conditional increment refuses the next attempt without moving the
	// counter past the cap.
	stale, outcome, err := deps.DB.RedeemStaffCode(deps.Ctx, code.CodePrefix, code.CodeSuffix, now)
	require.NoError(t, err)
	require.Equal(t, accessdb.RedeemExhausted, outcome)
	require.Equal(t, 1, stale.CurrentUses)
}

func TestRedeemStaffCodeConcurrentRedemptionsHonorCap(t *testing.T) {
	deps := SetupTestAccessDB(t)
	now := time.Now().UTC()
	maxUses := 1
	code := seedStaffCode(t, deps, func(c *accessdb.StaffCode) {
		c.MaxUses = &maxUses
	})

	outcomes := make([]accessdb.RedeemOutcome, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, outcomes[i], errs[i] = deps.DB.RedeemStaffCode(deps.Ctx, code.CodePrefix, code.CodeSuffix, now)
		}(i)
	}
	wg.Wait()

	ok := 0
	exhausted := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		switch outcomes[i] {
		case accessdb.RedeemOK:
			ok++
		case accessdb.RedeemExhausted:
			exhausted++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, exhausted)

	var stored accessdb.StaffCode
	err := deps.BunDB.NewSelect().
		Model(&stored).
		Where("id = ?", code.ID).
		Scan(deps.Ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stored.CurrentUses)
}

func TestRedeemStaffCodeClassifiesRefusals(t *testing.T) {
	deps := SetupTestAccessDB(t)
	now := time.Now().UTC()

	inactive := seedStaffCode(t, deps, func(c *accessdb.StaffCode) {
		c.Active = false
	})
	notYet := seedStaffCode(t, deps, func(c *accessdb.StaffCode) {
		from := now.Add(time.Hour)
		c.ValidFrom = &from
	})
	expired := seedStaffCode(t, deps, func(c *accessdb.StaffCode) {
		until := now.Add(-time.Hour)
		c.ValidUntil = &until
	})

	_, outcome, err := deps.DB.RedeemStaffCode(deps.Ctx, inactive.CodePrefix, inactive.CodeSuffix, now)
	require.NoError(t, err)
	require.Equal(t, accessdb.RedeemInactive, outcome)

	_, outcome, err = deps.DB.RedeemStaffCode(deps.Ctx, notYet.CodePrefix, notYet.CodeSuffix, now)
	require.NoError(t, err)
	require.Equal(t, accessdb.RedeemNotYetValid, outcome)

	_, outcome, err = deps.DB.RedeemStaffCode(deps.Ctx, expired.CodePrefix, expired.CodeSuffix, now)
	require.NoError(t, err)
	require.Equal(t, accessdb.RedeemExpired, outcome)

	_, outcome, err = deps.DB.RedeemStaffCode(deps.Ctx, "ACE", "not-a-real-suffix", now)
	require.NoError(t, err)
	require.Equal(t, accessdb.RedeemNotFound, outcome)
}

func TestRecordStaffCodeAttemptAppendsAuditRow(t *testing.T) {
	deps := SetupTestAccessDB(t)

	attempt := &accessdb.StaffCodeAttempt{
		ID:         uuid.New(),
		CodePrefix: "ACE",
		Success:    false,
		Reason:     string(accessdb.RedeemNotFound),
	}
	require.NoError(t, deps.DB.RecordStaffCodeAttempt(deps.Ctx, attempt))

	count, err := deps.BunDB.NewSelect().
		Model((*accessdb.StaffCodeAttempt)(nil)).
		Where("code_prefix = ?", "ACE").
		Count(deps.Ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
