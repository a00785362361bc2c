package ledger

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/match"
	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger() *Ledger {
	return New(WithClock(shared.ClockFunc(func() time.Time { return testTime })))
}

func mustProfile(t *testing.T, l *Ledger, id shared.Identity) {
	t.Helper()
	_, _, err := l.CreateProfile(id, string(id), string(id)+"42")
	require.NoError(t, err)
}

func mustRequest(t *testing.T, l *Ledger, requester shared.Identity) *help.HelpRequest {
	t.Helper()
	r, _, err := l.CreateRequest(requester, help.TopicGetNextLine, "help", "stuck", 3)
	require.NoError(t, err)
	return r
}

func mustOffer(t *testing.T, l *Ledger, requestID shared.EntityID, mentor shared.Identity) *help.HelpOffer {
	t.Helper()
	o, _, err := l.CreateOffer(requestID, mentor, "can help", 4)
	require.NoError(t, err)
	return o
}

func TestLedger_CreateProfile(t *testing.T) {
	l := newTestLedger()

	t.Run("creates once and emits event", func(t *testing.T) {
		p, events, err := l.CreateProfile("alice", "Alice", "alissa")
		require.NoError(t, err)

		assert.Equal(t, profile.TierNewcomer, p.Tier)
		require.Len(t, events, 1)
		assert.Equal(t, shared.EventProfileCreated, events[0].EventType())
	})

	t.Run("second create fails", func(t *testing.T) {
		_, _, err := l.CreateProfile("alice", "Alice", "alissa")
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}

func TestLedger_CreateRequest(t *testing.T) {
	l := newTestLedger()

	t.Run("requires a profile", func(t *testing.T) {
		_, _, err := l.CreateRequest("ghost", help.TopicLibft, "help", "stuck", 3)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Equal(t, 0, l.Registry().TotalRequests)
	})

	t.Run("creates and counts", func(t *testing.T) {
		mustProfile(t, l, "alice")

		r, events, err := l.CreateRequest("alice", help.TopicLibft, "help", "stuck", 3)
		require.NoError(t, err)

		assert.Equal(t, help.RequestStatusOpen, r.Status)
		assert.Equal(t, 1, l.Registry().TotalRequests)
		require.Len(t, events, 1)
		assert.Equal(t, shared.EventRequestCreated, events[0].EventType())
	})

	t.Run("rejects empty title", func(t *testing.T) {
		_, _, err := l.CreateRequest("alice", help.TopicLibft, " ", "stuck", 3)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, 1, l.Registry().TotalRequests)
	})
}

func TestLedger_VoteDifficulty(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	r := mustRequest(t, l, "alice") // initial difficulty 3

	t.Run("pinned rounding sequence", func(t *testing.T) {
		got, _, err := l.VoteDifficulty(r.ID, "bob", 4)
		require.NoError(t, err)
		assert.Equal(t, help.Difficulty(3), got.CommunityDifficulty)

		got, _, err = l.VoteDifficulty(r.ID, "carol", 2)
		require.NoError(t, err)
		assert.Equal(t, help.Difficulty(2), got.CommunityDifficulty)
		assert.Equal(t, 2, got.DifficultyVoteCount)
	})

	t.Run("one vote per identity", func(t *testing.T) {
		_, _, err := l.VoteDifficulty(r.ID, "bob", 5)
		assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
	})

	t.Run("requester cannot vote", func(t *testing.T) {
		_, _, err := l.VoteDifficulty(r.ID, "alice", 5)
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("vote out of range", func(t *testing.T) {
		_, _, err := l.VoteDifficulty(r.ID, "dave", 6)
		assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
		assert.False(t, l.HasVoted(r.ID, "dave"))
	})

	t.Run("unknown request", func(t *testing.T) {
		_, _, err := l.VoteDifficulty("99999999-9999-9999-9999-999999999999", "bob", 3)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestLedger_CreateOffer(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	r := mustRequest(t, l, "alice")

	t.Run("creates pending offer", func(t *testing.T) {
		o, events, err := l.CreateOffer(r.ID, "bob", "done it before", 4)
		require.NoError(t, err)

		assert.Equal(t, help.OfferStatusPending, o.Status)
		require.Len(t, events, 1)
		assert.Equal(t, shared.EventOfferCreated, events[0].EventType())

		got, err := l.GetRequest(r.ID)
		require.NoError(t, err)
		assert.True(t, got.HasMentorOffered("bob"))
	})

	t.Run("duplicate offer fails", func(t *testing.T) {
		_, _, err := l.CreateOffer(r.ID, "bob", "again", 4)
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("self offer fails and leaves state unchanged", func(t *testing.T) {
		_, _, err := l.CreateOffer(r.ID, "alice", "me", 5)
		assert.ErrorIs(t, err, shared.ErrForbidden)

		got, err := l.GetRequest(r.ID)
		require.NoError(t, err)
		assert.False(t, got.HasMentorOffered("alice"))
		assert.Len(t, got.Offers, 1)
	})

	t.Run("past helps captured from mentor profile", func(t *testing.T) {
		mustProfile(t, l, "carol")
		o, _, err := l.CreateOffer(r.ID, "carol", "hi", 3)
		require.NoError(t, err)
		assert.Equal(t, 0, o.PastHelpsOnTopic)
	})
}

func TestLedger_AcceptOffer(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	r := mustRequest(t, l, "alice")
	o1 := mustOffer(t, l, r.ID, "m1")
	o2 := mustOffer(t, l, r.ID, "m2")

	t.Run("only the requester may accept", func(t *testing.T) {
		_, _, err := l.AcceptOffer(r.ID, o1.ID, "m2")
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("accept matches and batch-rejects", func(t *testing.T) {
		m, events, err := l.AcceptOffer(r.ID, o1.ID, "alice")
		require.NoError(t, err)

		assert.Equal(t, match.MatchStatusActive, m.Status)
		assert.Equal(t, shared.Identity("m1"), m.Mentor)
		assert.Equal(t, shared.Identity("alice"), m.Mentee)

		gotReq, err := l.GetRequest(r.ID)
		require.NoError(t, err)
		assert.Equal(t, help.RequestStatusMatched, gotReq.Status)
		assert.Equal(t, m.ID, gotReq.MatchID)

		accepted, err := l.GetOffer(o1.ID)
		require.NoError(t, err)
		assert.Equal(t, help.OfferStatusAccepted, accepted.Status)

		rejected, err := l.GetOffer(o2.ID)
		require.NoError(t, err)
		assert.Equal(t, help.OfferStatusRejected, rejected.Status)

		assert.Equal(t, 1, l.Registry().TotalMatches)

		require.Len(t, events, 1)
		created, ok := events[0].(shared.MatchCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, []shared.EntityID{o2.ID}, created.RejectedOffers)
	})

	t.Run("second accept fails", func(t *testing.T) {
		_, _, err := l.AcceptOffer(r.ID, o2.ID, "alice")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, 1, l.Registry().TotalMatches)
	})

	t.Run("no offers on matched request", func(t *testing.T) {
		_, _, err := l.CreateOffer(r.ID, "late", "too late", 3)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestLedger_Completion(t *testing.T) {
	setup := func(t *testing.T) (*Ledger, *match.MatchRecord, shared.EntityID) {
		l := newTestLedger()
		mustProfile(t, l, "alice")
		mustProfile(t, l, "bob")
		r := mustRequest(t, l, "alice")
		o := mustOffer(t, l, r.ID, "bob")
		m, _, err := l.AcceptOffer(r.ID, o.ID, "alice")
		require.NoError(t, err)
		return l, m, r.ID
	}

	t.Run("confirm completes and signals reward", func(t *testing.T) {
		l, m, reqID := setup(t)

		got, events, err := l.MenteeConfirmCompletion(m.ID, "alice")
		require.NoError(t, err)

		assert.Equal(t, match.MatchStatusCompleted, got.Status)
		assert.True(t, got.MenteeConfirmed)

		gotReq, err := l.GetRequest(reqID)
		require.NoError(t, err)
		assert.Equal(t, help.RequestStatusCompleted, gotReq.Status)
		assert.Equal(t, 1, l.Registry().TotalCompletions)

		mentee, err := l.GetProfile("alice")
		require.NoError(t, err)
		assert.Equal(t, 1, mentee.HelpsReceived)

		require.Len(t, events, 2)
		assert.Equal(t, shared.EventHelpCompleted, events[0].EventType())
		assert.Equal(t, shared.EventRewardPending, events[1].EventType())
	})

	t.Run("reject completes without reward signal", func(t *testing.T) {
		l, m, reqID := setup(t)

		got, events, err := l.MenteeRejectCompletion(m.ID, "alice")
		require.NoError(t, err)

		assert.Equal(t, match.MatchStatusCompleted, got.Status)
		assert.False(t, got.MenteeConfirmed)

		gotReq, err := l.GetRequest(reqID)
		require.NoError(t, err)
		assert.Equal(t, help.RequestStatusCompleted, gotReq.Status)

		mentor, err := l.GetProfile("bob")
		require.NoError(t, err)
		assert.Equal(t, 1, mentor.FailedHelps)
		assert.Equal(t, 0, mentor.HelpsGiven)

		require.Len(t, events, 1)
		assert.Equal(t, shared.EventHelpRejected, events[0].EventType())
	})

	t.Run("only the mentee may complete", func(t *testing.T) {
		l, m, _ := setup(t)
		_, _, err := l.MenteeConfirmCompletion(m.ID, "bob")
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("completion is terminal", func(t *testing.T) {
		l, m, _ := setup(t)
		_, _, err := l.MenteeConfirmCompletion(m.ID, "alice")
		require.NoError(t, err)

		_, _, err = l.MenteeRejectCompletion(m.ID, "alice")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
		assert.Equal(t, 1, l.Registry().TotalCompletions)
	})
}

func TestLedger_MentorClaimReward(t *testing.T) {
	setup := func(t *testing.T, confirm bool) (*Ledger, shared.EntityID) {
		l := newTestLedger()
		mustProfile(t, l, "alice")
		mustProfile(t, l, "bob")
		r := mustRequest(t, l, "alice") // difficulty 3
		o := mustOffer(t, l, r.ID, "bob")
		m, _, err := l.AcceptOffer(r.ID, o.ID, "alice")
		require.NoError(t, err)

		if confirm {
			_, _, err = l.MenteeConfirmCompletion(m.ID, "alice")
		} else {
			_, _, err = l.MenteeRejectCompletion(m.ID, "alice")
		}
		require.NoError(t, err)
		return l, r.ID
	}

	t.Run("pays difficulty times ten once", func(t *testing.T) {
		l, reqID := setup(t, true)

		outcome, events, err := l.MentorClaimReward(reqID, "bob")
		require.NoError(t, err)

		assert.Equal(t, profile.XP(30), outcome.XPAwarded)
		assert.Equal(t, 1, outcome.HelpsGiven)

		mentor, err := l.GetProfile("bob")
		require.NoError(t, err)
		assert.Equal(t, profile.XP(30), mentor.TotalXP)
		assert.Equal(t, 30, mentor.TotalRewardsEarned)

		gotReq, err := l.GetRequest(reqID)
		require.NoError(t, err)
		assert.True(t, gotReq.RewardClaimed)

		require.Len(t, events, 1)
		assert.Equal(t, shared.EventRewardClaimed, events[0].EventType())
	})

	t.Run("second claim fails and pays nothing more", func(t *testing.T) {
		l, reqID := setup(t, true)

		_, _, err := l.MentorClaimReward(reqID, "bob")
		require.NoError(t, err)

		_, _, err = l.MentorClaimReward(reqID, "bob")
		assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)

		mentor, err := l.GetProfile("bob")
		require.NoError(t, err)
		assert.Equal(t, profile.XP(30), mentor.TotalXP)
		assert.Equal(t, 1, mentor.HelpsGiven)
	})

	t.Run("rejected completion never pays", func(t *testing.T) {
		l, reqID := setup(t, false)

		_, _, err := l.MentorClaimReward(reqID, "bob")
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		mentor, err := l.GetProfile("bob")
		require.NoError(t, err)
		assert.Equal(t, profile.XP(0), mentor.TotalXP)
	})

	t.Run("only the mentor may claim", func(t *testing.T) {
		l, reqID := setup(t, true)
		_, _, err := l.MentorClaimReward(reqID, "alice")
		assert.ErrorIs(t, err, shared.ErrUnauthorized)
	})

	t.Run("active match blocks claim", func(t *testing.T) {
		l := newTestLedger()
		mustProfile(t, l, "alice")
		mustProfile(t, l, "bob")
		r := mustRequest(t, l, "alice")
		o := mustOffer(t, l, r.ID, "bob")
		_, _, err := l.AcceptOffer(r.ID, o.ID, "alice")
		require.NoError(t, err)

		_, _, err = l.MentorClaimReward(r.ID, "bob")
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

func TestLedger_BadgeMinting(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "mentor")

	// Walk the mentor through enough confirmed helps to reach Silver.
	for i := 0; i < 15; i++ {
		mentee := shared.Identity(fmt.Sprintf("mentee%d", i))
		mustProfile(t, l, mentee)

		r, _, err := l.CreateRequest(mentee, help.TopicPushSwap, "help", "stuck", 2)
		require.NoError(t, err)
		o := mustOffer(t, l, r.ID, "mentor")
		m, _, err := l.AcceptOffer(r.ID, o.ID, mentee)
		require.NoError(t, err)
		_, _, err = l.MenteeConfirmCompletion(m.ID, mentee)
		require.NoError(t, err)
		_, _, err = l.MentorClaimReward(r.ID, "mentor")
		require.NoError(t, err)
	}

	mentor, err := l.GetProfile("mentor")
	require.NoError(t, err)
	assert.Equal(t, 15, mentor.HelpsGiven)
	assert.Equal(t, profile.TierSilver, mentor.Tier)

	badges := l.BadgesByOwner("mentor")
	require.Len(t, badges, 2)
	assert.Equal(t, profile.TierBronze, badges[0].Tier)
	assert.Equal(t, 5, badges[0].HelpsGivenAtMint)
	assert.Equal(t, profile.TierSilver, badges[1].Tier)
	assert.Equal(t, 15, badges[1].HelpsGivenAtMint)
}

func TestLedger_FullScenario(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "R")
	mustProfile(t, l, "M1")
	mustProfile(t, l, "M2")

	r, _, err := l.CreateRequest("R", help.Topic(2), "help", "stuck", 3)
	require.NoError(t, err)

	o1 := mustOffer(t, l, r.ID, "M1")
	o2 := mustOffer(t, l, r.ID, "M2")

	m, _, err := l.AcceptOffer(r.ID, o1.ID, "R")
	require.NoError(t, err)

	acc, _ := l.GetOffer(o1.ID)
	rej, _ := l.GetOffer(o2.ID)
	assert.Equal(t, help.OfferStatusAccepted, acc.Status)
	assert.Equal(t, help.OfferStatusRejected, rej.Status)

	gotReq, _ := l.GetRequest(r.ID)
	assert.Equal(t, help.RequestStatusMatched, gotReq.Status)
	assert.Equal(t, shared.Identity("M1"), m.Mentor)
	assert.Equal(t, shared.Identity("R"), m.Mentee)

	_, _, err = l.MenteeConfirmCompletion(m.ID, "R")
	require.NoError(t, err)

	gotReq, _ = l.GetRequest(r.ID)
	gotMatch, _ := l.GetMatch(m.ID)
	assert.Equal(t, help.RequestStatusCompleted, gotReq.Status)
	assert.True(t, gotMatch.MenteeConfirmed)

	_, _, err = l.MentorClaimReward(r.ID, "M1")
	require.NoError(t, err)

	mentor, _ := l.GetProfile("M1")
	assert.Equal(t, 1, mentor.HelpsGiven)
	assert.Equal(t, profile.XP(30), mentor.TotalXP)

	gotReq, _ = l.GetRequest(r.ID)
	assert.True(t, gotReq.RewardClaimed)

	_, _, err = l.MentorClaimReward(r.ID, "M1")
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
}

func TestLedger_MatchesByParticipant(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	mustProfile(t, l, "bob")
	mustProfile(t, l, "carol")

	r1 := mustRequest(t, l, "alice")
	o1 := mustOffer(t, l, r1.ID, "bob")
	m1, _, err := l.AcceptOffer(r1.ID, o1.ID, "alice")
	require.NoError(t, err)

	r2 := mustRequest(t, l, "carol")
	o2 := mustOffer(t, l, r2.ID, "bob")
	m2, _, err := l.AcceptOffer(r2.ID, o2.ID, "carol")
	require.NoError(t, err)

	bobMatches := l.MatchesByParticipant("bob")
	require.Len(t, bobMatches, 2)
	assert.ElementsMatch(t,
		[]shared.EntityID{m1.ID, m2.ID},
		[]shared.EntityID{bobMatches[0].ID, bobMatches[1].ID},
	)

	aliceMatches := l.MatchesByParticipant("alice")
	require.Len(t, aliceMatches, 1)
	assert.Equal(t, m1.ID, aliceMatches[0].ID)

	assert.Empty(t, l.MatchesByParticipant("nobody"))
}

// ══════════════════════════════════════════════════════════════════════════════
// CONCURRENCY
// ══════════════════════════════════════════════════════════════════════════════

func TestLedger_ConcurrentDuplicateOffers(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	r := mustRequest(t, l, "alice")

	const attempts = 32
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := l.CreateOffer(r.ID, "bob", "pick me", 3); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	assert.Len(t, successes, 1)

	got, err := l.GetRequest(r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Offers, 1)
}

func TestLedger_ConcurrentClaims(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	mustProfile(t, l, "bob")
	r := mustRequest(t, l, "alice")
	o := mustOffer(t, l, r.ID, "bob")
	m, _, err := l.AcceptOffer(r.ID, o.ID, "alice")
	require.NoError(t, err)
	_, _, err = l.MenteeConfirmCompletion(m.ID, "alice")
	require.NoError(t, err)

	const attempts = 32
	var wg sync.WaitGroup
	successes := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := l.MentorClaimReward(r.ID, "bob"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	assert.Len(t, successes, 1)

	mentor, err := l.GetProfile("bob")
	require.NoError(t, err)
	assert.Equal(t, profile.XP(30), mentor.TotalXP)
	assert.Equal(t, 1, mentor.HelpsGiven)
}

func TestLedger_ConcurrentAccepts(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	r := mustRequest(t, l, "alice")

	const mentors = 16
	offerIDs := make([]shared.EntityID, 0, mentors)
	for i := 0; i < mentors; i++ {
		o := mustOffer(t, l, r.ID, shared.Identity(fmt.Sprintf("m%d", i)))
		offerIDs = append(offerIDs, o.ID)
	}

	var wg sync.WaitGroup
	successes := make(chan struct{}, mentors)

	for _, id := range offerIDs {
		wg.Add(1)
		go func(offerID shared.EntityID) {
			defer wg.Done()
			if _, _, err := l.AcceptOffer(r.ID, offerID, "alice"); err == nil {
				successes <- struct{}{}
			}
		}(id)
	}
	wg.Wait()
	close(successes)

	assert.Len(t, successes, 1)
	assert.Equal(t, 1, l.Registry().TotalMatches)

	// Exactly one accepted offer; everything else rejected.
	accepted := 0
	for _, id := range offerIDs {
		o, err := l.GetOffer(id)
		require.NoError(t, err)
		switch o.Status {
		case help.OfferStatusAccepted:
			accepted++
		case help.OfferStatusRejected:
		default:
			t.Fatalf("offer %s left pending", id)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestLedger_ConcurrentVotes(t *testing.T) {
	l := newTestLedger()
	mustProfile(t, l, "alice")
	r := mustRequest(t, l, "alice")

	const voters = 32
	var wg sync.WaitGroup
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := l.VoteDifficulty(r.ID, shared.Identity(fmt.Sprintf("v%d", n)), 4)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := l.GetRequest(r.ID)
	require.NoError(t, err)
	assert.Equal(t, voters, got.DifficultyVoteCount)
	assert.GreaterOrEqual(t, got.CommunityDifficulty.Int(), 1)
	assert.LessOrEqual(t, got.CommunityDifficulty.Int(), 5)
}
