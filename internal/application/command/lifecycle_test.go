package command

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/match"
	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// recordingPublisher captures every published event in order.
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// testEnv bundles every handler over one shared ledger and publisher.
type testEnv struct {
	ledger    *ledger.Ledger
	publisher *recordingPublisher

	createProfile  *CreateProfileHandler
	createRequest  *CreateRequestHandler
	voteDifficulty *VoteDifficultyHandler
	createOffer    *CreateOfferHandler
	acceptOffer    *AcceptOfferHandler
	completeHelp   *CompleteHelpHandler
	claimReward    *ClaimRewardHandler
}

func newTestEnv() *testEnv {
	l := ledger.New(ledger.WithClock(shared.ClockFunc(func() time.Time { return testTime })))
	pub := &recordingPublisher{}
	log := logger.New(logger.Options{Output: io.Discard})

	return &testEnv{
		ledger:         l,
		publisher:      pub,
		createProfile:  NewCreateProfileHandler(l, pub, log),
		createRequest:  NewCreateRequestHandler(l, pub, log),
		voteDifficulty: NewVoteDifficultyHandler(l, pub, log),
		createOffer:    NewCreateOfferHandler(l, pub, log),
		acceptOffer:    NewAcceptOfferHandler(l, pub, log),
		completeHelp:   NewCompleteHelpHandler(l, pub, log),
		claimReward:    NewClaimRewardHandler(l, pub, log),
	}
}

func (e *testEnv) mustProfile(t *testing.T, id shared.Identity) {
	t.Helper()
	_, err := e.createProfile.Handle(context.Background(), CreateProfileCommand{
		Caller:        id,
		DisplayName:   string(id),
		ExternalLogin: string(id) + "42",
	})
	require.NoError(t, err)
}

func TestFullHelpLifecycle(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.mustProfile(t, "alice")
	env.mustProfile(t, "bob")
	env.mustProfile(t, "carol")

	// Alice posts a request.
	reqRes, err := env.createRequest.Handle(ctx, CreateRequestCommand{
		Caller:            "alice",
		Topic:             help.TopicLibft,
		Title:             "linked list rotation",
		Description:       "segfault on empty list",
		InitialDifficulty: 3,
	})
	require.NoError(t, err)
	requestID := reqRes.Request.ID
	assert.Equal(t, help.RequestStatusOpen, reqRes.Request.Status)

	// Carol votes on difficulty.
	voteRes, err := env.voteDifficulty.Handle(ctx, VoteDifficultyCommand{
		Caller:    "carol",
		RequestID: requestID,
		Vote:      5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, voteRes.Request.DifficultyVoteCount)

	// Bob offers to help.
	offerRes, err := env.createOffer.Handle(ctx, CreateOfferCommand{
		Caller:          "bob",
		RequestID:       requestID,
		Message:         "did this last week",
		CompetencyLevel: 4,
	})
	require.NoError(t, err)

	// Alice accepts the offer.
	acceptRes, err := env.acceptOffer.Handle(ctx, AcceptOfferCommand{
		Caller:    "alice",
		RequestID: requestID,
		OfferID:   offerRes.Offer.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, acceptRes.Match)
	assert.Equal(t, shared.Identity("bob"), acceptRes.Match.Mentor)
	assert.Equal(t, shared.Identity("alice"), acceptRes.Match.Mentee)
	assert.Equal(t, match.MatchStatusActive, acceptRes.Match.Status)

	// Alice confirms the help.
	completeRes, err := env.completeHelp.Handle(ctx, CompleteHelpCommand{
		Caller:    "alice",
		MatchID:   acceptRes.Match.ID,
		Confirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, match.MatchStatusCompleted, completeRes.Match.Status)
	assert.True(t, completeRes.Match.MenteeConfirmed)

	// Bob claims the reward.
	claimRes, err := env.claimReward.Handle(ctx, ClaimRewardCommand{
		Caller:    "bob",
		RequestID: requestID,
	})
	require.NoError(t, err)
	assert.Greater(t, claimRes.Outcome.XPAwarded.Int(), 0)
	assert.Equal(t, 1, claimRes.Outcome.HelpsGiven)
	assert.False(t, claimRes.Outcome.Promoted)
	assert.Equal(t, profile.TierNewcomer, claimRes.Outcome.NewTier)

	// Every state change published its event, in order.
	types := env.publisher.types()
	assert.Equal(t, []shared.EventType{
		shared.EventProfileCreated,
		shared.EventProfileCreated,
		shared.EventProfileCreated,
		shared.EventRequestCreated,
		shared.EventDifficultyVoted,
		shared.EventOfferCreated,
		shared.EventMatchCreated,
		shared.EventHelpCompleted,
		shared.EventRewardPending,
		shared.EventRewardClaimed,
	}, types)

	// A second claim must not pay twice.
	_, err = env.claimReward.Handle(ctx, ClaimRewardCommand{
		Caller:    "bob",
		RequestID: requestID,
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyProcessed)
}

func TestRejectedHelpPaysNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.mustProfile(t, "alice")
	env.mustProfile(t, "bob")

	reqRes, err := env.createRequest.Handle(ctx, CreateRequestCommand{
		Caller:            "alice",
		Topic:             help.TopicMinishell,
		Title:             "pipe fds leak",
		Description:       "too many open files",
		InitialDifficulty: 4,
	})
	require.NoError(t, err)

	offerRes, err := env.createOffer.Handle(ctx, CreateOfferCommand{
		Caller:          "bob",
		RequestID:       reqRes.Request.ID,
		Message:         "lsof is your friend",
		CompetencyLevel: 5,
	})
	require.NoError(t, err)

	acceptRes, err := env.acceptOffer.Handle(ctx, AcceptOfferCommand{
		Caller:    "alice",
		RequestID: reqRes.Request.ID,
		OfferID:   offerRes.Offer.ID,
	})
	require.NoError(t, err)

	completeRes, err := env.completeHelp.Handle(ctx, CompleteHelpCommand{
		Caller:    "alice",
		MatchID:   acceptRes.Match.ID,
		Confirmed: false,
	})
	require.NoError(t, err)
	assert.False(t, completeRes.Match.MenteeConfirmed)

	// The verdict is terminal: no reward, and no second chance.
	_, err = env.claimReward.Handle(ctx, ClaimRewardCommand{
		Caller:    "bob",
		RequestID: reqRes.Request.ID,
	})
	assert.Error(t, err)

	_, err = env.completeHelp.Handle(ctx, CompleteHelpCommand{
		Caller:    "alice",
		MatchID:   acceptRes.Match.ID,
		Confirmed: true,
	})
	assert.Error(t, err)
}

func TestCommandValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	t.Run("create profile requires caller", func(t *testing.T) {
		_, err := env.createProfile.Handle(ctx, CreateProfileCommand{DisplayName: "x", ExternalLogin: "x42"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("create request rejects bad topic", func(t *testing.T) {
		_, err := env.createRequest.Handle(ctx, CreateRequestCommand{
			Caller:            "alice",
			Topic:             help.Topic(99),
			Title:             "t",
			Description:       "d",
			InitialDifficulty: 3,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid topic")
	})

	t.Run("vote rejects out of range difficulty", func(t *testing.T) {
		_, err := env.voteDifficulty.Handle(ctx, VoteDifficultyCommand{
			Caller:    "bob",
			RequestID: shared.EntityID("0b718e2c-5a1f-4f5b-9a91-2a6a4f9c1234"),
			Vote:      0,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid vote")
	})

	t.Run("accept offer requires both ids", func(t *testing.T) {
		_, err := env.acceptOffer.Handle(ctx, AcceptOfferCommand{Caller: "alice"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "request_id is required")
	})

	t.Run("claim requires request id", func(t *testing.T) {
		_, err := env.claimReward.Handle(ctx, ClaimRewardCommand{Caller: "bob"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "request_id is required")
	})

	// Validation failures never publish events.
	assert.Empty(t, env.publisher.types())
}

func TestHandlersWorkWithoutPublisher(t *testing.T) {
	l := ledger.New(ledger.WithClock(shared.ClockFunc(func() time.Time { return testTime })))
	log := logger.New(logger.Options{Output: io.Discard})
	h := NewCreateProfileHandler(l, nil, log)

	res, err := h.Handle(context.Background(), CreateProfileCommand{
		Caller:        "alice",
		DisplayName:   "Alice",
		ExternalLogin: "alissa",
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Profile)
}
