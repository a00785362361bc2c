package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestProfile(t *testing.T) *StudentProfile {
	t.Helper()

	p, err := NewStudentProfile(NewProfileParams{
		Owner:         "alice",
		DisplayName:   "Alice",
		ExternalLogin: "alissa",
		CreatedAt:     testTime,
	})
	require.NoError(t, err)
	return p
}

func TestNewStudentProfile(t *testing.T) {
	t.Run("valid profile starts at zero", func(t *testing.T) {
		p := newTestProfile(t)

		assert.Equal(t, shared.Identity("alice"), p.Owner)
		assert.Equal(t, TierNewcomer, p.Tier)
		assert.Equal(t, XP(0), p.TotalXP)
		assert.Equal(t, 0, p.HelpsGiven)
		assert.Equal(t, 0, p.HelpsReceived)
	})

	t.Run("rejects empty display name", func(t *testing.T) {
		_, err := NewStudentProfile(NewProfileParams{
			Owner:         "alice",
			DisplayName:   "  ",
			ExternalLogin: "alissa",
			CreatedAt:     testTime,
		})
		assert.ErrorIs(t, err, ErrInvalidDisplayName)
	})

	t.Run("rejects login with whitespace", func(t *testing.T) {
		_, err := NewStudentProfile(NewProfileParams{
			Owner:         "alice",
			DisplayName:   "Alice",
			ExternalLogin: "bad login",
			CreatedAt:     testTime,
		})
		assert.ErrorIs(t, err, ErrInvalidExternalLogin)
	})

	t.Run("rejects invalid owner", func(t *testing.T) {
		_, err := NewStudentProfile(NewProfileParams{
			Owner:         "",
			DisplayName:   "Alice",
			ExternalLogin: "alissa",
			CreatedAt:     testTime,
		})
		assert.ErrorIs(t, err, shared.ErrInvalidID)
	})
}

func TestTierForHelps(t *testing.T) {
	cases := []struct {
		helps int
		want  Tier
	}{
		{0, TierNewcomer},
		{4, TierNewcomer},
		{5, TierBronze},
		{14, TierBronze},
		{15, TierSilver},
		{39, TierSilver},
		{40, TierGold},
		{99, TierGold},
		{100, TierDiamond},
		{500, TierDiamond},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, TierForHelps(tc.helps), "helps=%d", tc.helps)
	}
}

func TestStudentProfile_GrantReward(t *testing.T) {
	t.Run("accrues xp and helps", func(t *testing.T) {
		p := newTestProfile(t)

		outcome, err := p.GrantReward(30, testTime)
		require.NoError(t, err)

		assert.Equal(t, XP(30), outcome.XPAwarded)
		assert.Equal(t, XP(30), p.TotalXP)
		assert.Equal(t, 1, p.HelpsGiven)
		assert.Equal(t, 30, p.TotalRewardsEarned)
		assert.False(t, outcome.Promoted)
	})

	t.Run("promotes at the bronze threshold", func(t *testing.T) {
		p := newTestProfile(t)

		for i := 0; i < 4; i++ {
			outcome, err := p.GrantReward(10, testTime)
			require.NoError(t, err)
			assert.False(t, outcome.Promoted)
		}

		outcome, err := p.GrantReward(10, testTime)
		require.NoError(t, err)
		assert.True(t, outcome.Promoted)
		assert.Equal(t, TierBronze, outcome.NewTier)
		assert.Equal(t, TierBronze, p.Tier)
	})

	t.Run("at most one promotion per reward", func(t *testing.T) {
		p := newTestProfile(t)

		promotions := 0
		for i := 0; i < 100; i++ {
			outcome, err := p.GrantReward(10, testTime)
			require.NoError(t, err)
			if outcome.Promoted {
				promotions++
			}
		}

		assert.Equal(t, 4, promotions)
		assert.Equal(t, TierDiamond, p.Tier)
	})

	t.Run("rejects non-positive award", func(t *testing.T) {
		p := newTestProfile(t)
		_, err := p.GrantReward(0, testTime)
		assert.ErrorIs(t, err, ErrInvalidXPAward)
		_, err = p.GrantReward(-5, testTime)
		assert.ErrorIs(t, err, ErrInvalidXPAward)
	})
}

func TestStudentProfile_SuccessRatio(t *testing.T) {
	p := newTestProfile(t)
	assert.Equal(t, 100, p.SuccessRatio)

	_, err := p.GrantReward(10, testTime)
	require.NoError(t, err)
	assert.Equal(t, 100, p.SuccessRatio)

	p.RecordFailedHelp(testTime)
	assert.Equal(t, 50, p.SuccessRatio)
	assert.Equal(t, 1, p.FailedHelps)

	_, err = p.GrantReward(10, testTime)
	require.NoError(t, err)
	assert.Equal(t, 66, p.SuccessRatio)
}

func TestStudentProfile_RecordFeedback(t *testing.T) {
	p := newTestProfile(t)

	require.NoError(t, p.RecordFeedback(4, testTime))
	require.NoError(t, p.RecordFeedback(5, testTime))

	assert.Equal(t, 2, p.FeedbackCount)
	assert.InDelta(t, 4.5, p.AvgFeedbackScore, 0.001)

	assert.ErrorIs(t, p.RecordFeedback(0.5, testTime), shared.ErrValueOutOfRange)
	assert.ErrorIs(t, p.RecordFeedback(5.5, testTime), shared.ErrValueOutOfRange)
}

func TestStudentProfile_HelpsUntilNextTier(t *testing.T) {
	p := newTestProfile(t)
	assert.Equal(t, 5, p.HelpsUntilNextTier())

	for i := 0; i < 5; i++ {
		_, err := p.GrantReward(10, testTime)
		require.NoError(t, err)
	}
	assert.Equal(t, 10, p.HelpsUntilNextTier())

	p.HelpsGiven = 100
	p.Tier = TierDiamond
	assert.Equal(t, 0, p.HelpsUntilNextTier())
}

func TestMintTierBadge(t *testing.T) {
	t.Run("mints for a real tier", func(t *testing.T) {
		b, err := MintTierBadge(MintBadgeParams{
			ID:               "55555555-5555-5555-5555-555555555555",
			Owner:            "bob",
			Tier:             TierBronze,
			HelpsGivenAtMint: 5,
			MintedAt:         testTime,
		})
		require.NoError(t, err)

		assert.Equal(t, "Bronze", b.TierName)
		assert.Equal(t, 5, b.HelpsGivenAtMint)
	})

	t.Run("never mints for newcomer", func(t *testing.T) {
		_, err := MintTierBadge(MintBadgeParams{
			ID:       "55555555-5555-5555-5555-555555555555",
			Owner:    "bob",
			Tier:     TierNewcomer,
			MintedAt: testTime,
		})
		assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
	})
}
