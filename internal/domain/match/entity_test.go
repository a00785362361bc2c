package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestMatch(t *testing.T) *MatchRecord {
	t.Helper()

	m, err := NewMatchRecord(NewMatchParams{
		ID:        "22222222-2222-2222-2222-222222222222",
		RequestID: "11111111-1111-1111-1111-111111111111",
		OfferID:   "33333333-3333-3333-3333-333333333333",
		Mentee:    "alice",
		Mentor:    "bob",
		CreatedAt: testTime,
	})
	require.NoError(t, err)
	return m
}

func TestNewMatchRecord(t *testing.T) {
	m := newTestMatch(t)

	assert.Equal(t, MatchStatusActive, m.Status)
	assert.True(t, m.IsActive())
	assert.False(t, m.MenteeConfirmed)
	assert.True(t, m.CompletedAt.IsZero())
}

func TestMatchRecord_Complete(t *testing.T) {
	t.Run("confirm", func(t *testing.T) {
		m := newTestMatch(t)
		completedAt := testTime.Add(time.Hour)

		require.NoError(t, m.Complete(true, completedAt))
		assert.Equal(t, MatchStatusCompleted, m.Status)
		assert.True(t, m.MenteeConfirmed)
		assert.Equal(t, completedAt, m.CompletedAt)
	})

	t.Run("reject", func(t *testing.T) {
		m := newTestMatch(t)

		require.NoError(t, m.Complete(false, testTime))
		assert.Equal(t, MatchStatusCompleted, m.Status)
		assert.False(t, m.MenteeConfirmed)
	})

	t.Run("verdict is terminal", func(t *testing.T) {
		m := newTestMatch(t)
		require.NoError(t, m.Complete(false, testTime))

		// A later confirm must not overwrite the rejection.
		assert.ErrorIs(t, m.Complete(true, testTime), ErrNotActive)
		assert.False(t, m.MenteeConfirmed)
	})
}

func TestMatchRecord_RewardEligible(t *testing.T) {
	t.Run("active match is not eligible", func(t *testing.T) {
		m := newTestMatch(t)
		assert.ErrorIs(t, m.RewardEligible(), ErrNotCompleted)
	})

	t.Run("rejected match is not eligible", func(t *testing.T) {
		m := newTestMatch(t)
		require.NoError(t, m.Complete(false, testTime))
		assert.ErrorIs(t, m.RewardEligible(), ErrNotConfirmed)
	})

	t.Run("confirmed match is eligible", func(t *testing.T) {
		m := newTestMatch(t)
		require.NoError(t, m.Complete(true, testTime))
		assert.NoError(t, m.RewardEligible())
	})
}
