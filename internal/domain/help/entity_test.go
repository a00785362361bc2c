package help

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestRequest(t *testing.T) *HelpRequest {
	t.Helper()

	req, err := NewHelpRequest(NewRequestParams{
		ID:                "11111111-1111-1111-1111-111111111111",
		Requester:         "alice",
		Topic:             TopicMinishell,
		Title:             "Pipes segfault on empty command",
		Description:       "Executor crashes when a pipe segment is empty",
		InitialDifficulty: 3,
		CreatedAt:         testTime,
	})
	require.NoError(t, err)
	return req
}

func TestNewHelpRequest(t *testing.T) {
	t.Run("valid request starts open", func(t *testing.T) {
		req := newTestRequest(t)

		assert.Equal(t, RequestStatusOpen, req.Status)
		assert.Equal(t, Difficulty(3), req.CommunityDifficulty)
		assert.Equal(t, 0, req.DifficultyVoteCount)
		assert.False(t, req.RewardClaimed)
		assert.True(t, req.MatchID.IsEmpty())
		assert.Empty(t, req.Offers)
	})

	t.Run("rejects empty title", func(t *testing.T) {
		_, err := NewHelpRequest(NewRequestParams{
			ID:                "11111111-1111-1111-1111-111111111111",
			Requester:         "alice",
			Topic:             TopicLibft,
			Title:             "   ",
			Description:       "stuck",
			InitialDifficulty: 2,
			CreatedAt:         testTime,
		})
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("rejects invalid topic", func(t *testing.T) {
		_, err := NewHelpRequest(NewRequestParams{
			ID:                "11111111-1111-1111-1111-111111111111",
			Requester:         "alice",
			Topic:             Topic(42),
			Title:             "help",
			Description:       "stuck",
			InitialDifficulty: 2,
			CreatedAt:         testTime,
		})
		assert.ErrorIs(t, err, ErrInvalidTopic)
	})

	t.Run("rejects out of range difficulty", func(t *testing.T) {
		for _, d := range []Difficulty{0, 6, -1} {
			_, err := NewHelpRequest(NewRequestParams{
				ID:                "11111111-1111-1111-1111-111111111111",
				Requester:         "alice",
				Topic:             TopicLibft,
				Title:             "help",
				Description:       "stuck",
				InitialDifficulty: d,
				CreatedAt:         testTime,
			})
			assert.ErrorIs(t, err, ErrInvalidDifficulty)
		}
	})
}

func TestHelpRequest_RecordVote(t *testing.T) {
	t.Run("running average with initial difficulty as first sample", func(t *testing.T) {
		req := newTestRequest(t) // initial difficulty 3

		// (3*1 + 4) / 2 = 3
		require.NoError(t, req.RecordVote(4, testTime))
		assert.Equal(t, Difficulty(3), req.CommunityDifficulty)
		assert.Equal(t, 1, req.DifficultyVoteCount)

		// (3*2 + 2) / 3 = 2
		require.NoError(t, req.RecordVote(2, testTime))
		assert.Equal(t, Difficulty(2), req.CommunityDifficulty)
		assert.Equal(t, 2, req.DifficultyVoteCount)
	})

	t.Run("average stays within 1 and 5", func(t *testing.T) {
		req := newTestRequest(t)

		for i := 0; i < 20; i++ {
			require.NoError(t, req.RecordVote(5, testTime))
			assert.GreaterOrEqual(t, req.CommunityDifficulty.Int(), 1)
			assert.LessOrEqual(t, req.CommunityDifficulty.Int(), 5)
		}
		for i := 0; i < 20; i++ {
			require.NoError(t, req.RecordVote(1, testTime))
			assert.GreaterOrEqual(t, req.CommunityDifficulty.Int(), 1)
			assert.LessOrEqual(t, req.CommunityDifficulty.Int(), 5)
		}
	})

	t.Run("rejects invalid vote", func(t *testing.T) {
		req := newTestRequest(t)
		assert.ErrorIs(t, req.RecordVote(0, testTime), ErrInvalidDifficulty)
		assert.ErrorIs(t, req.RecordVote(6, testTime), ErrInvalidDifficulty)
		assert.Equal(t, 0, req.DifficultyVoteCount)
	})

	t.Run("trusted difficulty needs two votes", func(t *testing.T) {
		req := newTestRequest(t)
		assert.False(t, req.HasTrustedDifficulty())

		require.NoError(t, req.RecordVote(3, testTime))
		assert.False(t, req.HasTrustedDifficulty())

		require.NoError(t, req.RecordVote(3, testTime))
		assert.True(t, req.HasTrustedDifficulty())
	})
}

func TestHelpRequest_StatusTransitions(t *testing.T) {
	matchID := shared.EntityID("22222222-2222-2222-2222-222222222222")

	t.Run("open to matched to completed", func(t *testing.T) {
		req := newTestRequest(t)

		require.NoError(t, req.MarkMatched(matchID, testTime))
		assert.Equal(t, RequestStatusMatched, req.Status)
		assert.Equal(t, matchID, req.MatchID)

		require.NoError(t, req.MarkCompleted(testTime))
		assert.Equal(t, RequestStatusCompleted, req.Status)
	})

	t.Run("cannot match twice", func(t *testing.T) {
		req := newTestRequest(t)
		require.NoError(t, req.MarkMatched(matchID, testTime))
		assert.ErrorIs(t, req.MarkMatched(matchID, testTime), ErrStatusRegression)
	})

	t.Run("cannot complete an open request", func(t *testing.T) {
		req := newTestRequest(t)
		assert.ErrorIs(t, req.MarkCompleted(testTime), ErrStatusRegression)
	})

	t.Run("cannot complete twice", func(t *testing.T) {
		req := newTestRequest(t)
		require.NoError(t, req.MarkMatched(matchID, testTime))
		require.NoError(t, req.MarkCompleted(testTime))
		assert.ErrorIs(t, req.MarkCompleted(testTime), ErrStatusRegression)
	})
}

func TestHelpRequest_ClaimReward(t *testing.T) {
	req := newTestRequest(t)

	require.NoError(t, req.ClaimReward(testTime))
	assert.True(t, req.RewardClaimed)

	assert.ErrorIs(t, req.ClaimReward(testTime), ErrRewardAlreadyClaimed)
}

func TestHelpRequest_RecordOffer(t *testing.T) {
	req := newTestRequest(t)
	offerID := shared.EntityID("33333333-3333-3333-3333-333333333333")

	assert.False(t, req.HasMentorOffered("bob"))

	req.RecordOffer(offerID, "bob", testTime)

	assert.True(t, req.HasMentorOffered("bob"))
	assert.Equal(t, []shared.EntityID{offerID}, req.Offers)
}

func TestHelpRequest_Clone(t *testing.T) {
	req := newTestRequest(t)
	req.RecordOffer("33333333-3333-3333-3333-333333333333", "bob", testTime)

	clone := req.Clone()
	clone.RecordOffer("44444444-4444-4444-4444-444444444444", "carol", testTime)

	assert.Len(t, req.Offers, 1)
	assert.Len(t, clone.Offers, 2)
	assert.False(t, req.HasMentorOffered("carol"))
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "Shell", TopicShell.Name())
	assert.Equal(t, "get_next_line", TopicGetNextLine.Name())
	assert.Equal(t, "ft_transcendence", TopicTranscendence.Name())
	assert.Equal(t, "Unknown", Topic(99).Name())

	assert.True(t, TopicWebserv.IsValid())
	assert.False(t, Topic(-1).IsValid())
	assert.False(t, Topic(14).IsValid())
}

func newTestOffer(t *testing.T) *HelpOffer {
	t.Helper()

	offer, err := NewHelpOffer(NewOfferParams{
		ID:               "33333333-3333-3333-3333-333333333333",
		RequestID:        "11111111-1111-1111-1111-111111111111",
		Mentor:           "bob",
		Message:          "Did minishell last cycle, happy to pair",
		CompetencyLevel:  4,
		PastHelpsOnTopic: 2,
		CreatedAt:        testTime,
	})
	require.NoError(t, err)
	return offer
}

func TestNewHelpOffer(t *testing.T) {
	t.Run("valid offer starts pending", func(t *testing.T) {
		offer := newTestOffer(t)
		assert.Equal(t, OfferStatusPending, offer.Status)
		assert.True(t, offer.IsPending())
	})

	t.Run("rejects invalid competency", func(t *testing.T) {
		_, err := NewHelpOffer(NewOfferParams{
			ID:              "33333333-3333-3333-3333-333333333333",
			RequestID:       "11111111-1111-1111-1111-111111111111",
			Mentor:          "bob",
			CompetencyLevel: 0,
			CreatedAt:       testTime,
		})
		assert.ErrorIs(t, err, ErrInvalidCompetency)
	})
}

func TestHelpOffer_Transitions(t *testing.T) {
	t.Run("accept pending offer", func(t *testing.T) {
		offer := newTestOffer(t)
		require.NoError(t, offer.Accept(testTime))
		assert.Equal(t, OfferStatusAccepted, offer.Status)
	})

	t.Run("cannot accept twice", func(t *testing.T) {
		offer := newTestOffer(t)
		require.NoError(t, offer.Accept(testTime))
		assert.ErrorIs(t, offer.Accept(testTime), ErrOfferNotPending)
	})

	t.Run("reject is idempotent", func(t *testing.T) {
		offer := newTestOffer(t)
		offer.Reject(testTime)
		assert.Equal(t, OfferStatusRejected, offer.Status)

		offer.Reject(testTime)
		assert.Equal(t, OfferStatusRejected, offer.Status)
	})

	t.Run("reject never overwrites accepted", func(t *testing.T) {
		offer := newTestOffer(t)
		require.NoError(t, offer.Accept(testTime))

		offer.Reject(testTime)
		assert.Equal(t, OfferStatusAccepted, offer.Status)
	})

	t.Run("cannot accept rejected offer", func(t *testing.T) {
		offer := newTestOffer(t)
		offer.Reject(testTime)
		assert.ErrorIs(t, offer.Accept(testTime), ErrOfferNotPending)
	})
}
