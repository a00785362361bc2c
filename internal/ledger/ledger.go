// Package ledger holds the authoritative in-memory state of the peer-help
// marketplace: the registry counters, every profile, request, offer, match,
// and badge, plus the per-request voter sets. All mutating operations run
// under one mutex so multi-entity transitions commit atomically; no
// intermediate state is ever observable. Each successful mutation returns
// the domain events it produced; the caller is responsible for publishing
// them after the state change commits.
package ledger

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/match"
	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// XPPerDifficultyPoint converts community difficulty into a reward.
const XPPerDifficultyPoint = 10

// ══════════════════════════════════════════════════════════════════════════════
// REGISTRY
// ══════════════════════════════════════════════════════════════════════════════

// Registry is the singleton set of process-wide counters. Each counter is
// monotonic and incremented exactly once per qualifying transition.
type Registry struct {
	// TotalRequests counts all requests ever created.
	TotalRequests int

	// TotalMatches counts all offer acceptances.
	TotalMatches int

	// TotalCompletions counts all terminal verdicts, confirmed or rejected.
	TotalCompletions int
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

// Ledger is the shared, concurrently-accessed state machine. Construct one
// per deployment (or per test); nothing in this package is process-global.
type Ledger struct {
	mu sync.RWMutex

	registry Registry

	profiles map[shared.Identity]*profile.StudentProfile
	badges   map[shared.Identity][]*profile.TierBadge
	requests map[shared.EntityID]*help.HelpRequest
	offers   map[shared.EntityID]*help.HelpOffer
	matches  map[shared.EntityID]*match.MatchRecord

	// matchByRequest enforces at most one match per request.
	matchByRequest map[shared.EntityID]shared.EntityID

	// voters tracks who voted on which request. Kept outside the request
	// entity so vote dedup stays decoupled from the request's own fields.
	voters map[shared.EntityID]map[shared.Identity]struct{}

	clock shared.Clock
	newID func() shared.EntityID
}

// Option customizes ledger construction.
type Option func(*Ledger)

// WithClock overrides the timestamp source.
func WithClock(c shared.Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithIDGenerator overrides entity id generation.
func WithIDGenerator(gen func() shared.EntityID) Option {
	return func(l *Ledger) { l.newID = gen }
}

// New creates an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		profiles:       make(map[shared.Identity]*profile.StudentProfile),
		badges:         make(map[shared.Identity][]*profile.TierBadge),
		requests:       make(map[shared.EntityID]*help.HelpRequest),
		offers:         make(map[shared.EntityID]*help.HelpOffer),
		matches:        make(map[shared.EntityID]*match.MatchRecord),
		matchByRequest: make(map[shared.EntityID]shared.EntityID),
		voters:         make(map[shared.EntityID]map[shared.Identity]struct{}),
		clock:          shared.SystemClock(),
		newID:          func() shared.EntityID { return shared.EntityID(uuid.NewString()) },
	}

	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CreateProfile registers the caller's profile. At most one per identity.
func (l *Ledger) CreateProfile(caller shared.Identity, displayName, externalLogin string) (*profile.StudentProfile, []shared.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !caller.IsValid() {
		return nil, nil, shared.NewDomainError("profile", "Create", shared.ErrInvalidID, "invalid caller identity")
	}

	if _, exists := l.profiles[caller]; exists {
		return nil, nil, shared.ErrProfileAlreadyExists
	}

	now := l.clock.Now()
	p, err := profile.NewStudentProfile(profile.NewProfileParams{
		Owner:         caller,
		DisplayName:   displayName,
		ExternalLogin: externalLogin,
		CreatedAt:     now,
	})
	if err != nil {
		return nil, nil, shared.WrapError("profile", "Create", shared.ErrValidation, "invalid profile fields", err)
	}

	l.profiles[caller] = p

	events := []shared.Event{
		shared.NewProfileCreatedEvent(caller, p.DisplayName, p.ExternalLogin, now),
	}
	return p.Clone(), events, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CreateRequest posts a new open help request. Requires the caller to hold
// a profile.
func (l *Ledger) CreateRequest(caller shared.Identity, topic help.Topic, title, description string, initialDifficulty help.Difficulty) (*help.HelpRequest, []shared.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.profiles[caller]; !exists {
		return nil, nil, shared.ErrProfileRequired
	}

	now := l.clock.Now()
	r, err := help.NewHelpRequest(help.NewRequestParams{
		ID:                l.newID(),
		Requester:         caller,
		Topic:             topic,
		Title:             title,
		Description:       description,
		InitialDifficulty: initialDifficulty,
		CreatedAt:         now,
	})
	if err != nil {
		return nil, nil, shared.WrapError("request", "Create", shared.ErrValidation, "invalid request fields", err)
	}

	l.requests[r.ID] = r
	l.registry.TotalRequests++

	events := []shared.Event{
		shared.NewRequestCreatedEvent(r.ID, caller, int(topic), r.Title, now),
	}
	return r.Clone(), events, nil
}

// VoteDifficulty casts a community difficulty vote on a request. One vote
// per identity per request; the requester cannot vote on their own request.
func (l *Ledger) VoteDifficulty(requestID shared.EntityID, voter shared.Identity, vote help.Difficulty) (*help.HelpRequest, []shared.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.requests[requestID]
	if !ok {
		return nil, nil, shared.ErrRequestNotFound
	}

	if !vote.IsValid() {
		return nil, nil, shared.ErrInvalidVote
	}

	if voter == r.Requester {
		return nil, nil, shared.ErrSelfVoteForbidden
	}

	if _, voted := l.voters[requestID][voter]; voted {
		return nil, nil, shared.ErrAlreadyVoted
	}

	now := l.clock.Now()
	if err := r.RecordVote(vote, now); err != nil {
		return nil, nil, shared.ErrInvalidVote
	}

	if l.voters[requestID] == nil {
		l.voters[requestID] = make(map[shared.Identity]struct{})
	}
	l.voters[requestID][voter] = struct{}{}

	events := []shared.Event{
		shared.NewDifficultyVotedEvent(requestID, voter, vote.Int(), r.CommunityDifficulty.Int(), r.DifficultyVoteCount, now),
	}
	return r.Clone(), events, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// OFFER OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// CreateOffer makes a pending offer on an open request. The duplicate check
// and the append to the request's mentor set happen under the same lock, so
// two concurrent offers from one mentor can never both pass.
func (l *Ledger) CreateOffer(requestID shared.EntityID, mentor shared.Identity, message string, competency help.CompetencyLevel) (*help.HelpOffer, []shared.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.requests[requestID]
	if !ok {
		return nil, nil, shared.ErrRequestNotFound
	}

	if !r.IsOpen() {
		return nil, nil, shared.ErrRequestNotOpen
	}

	if mentor == r.Requester {
		return nil, nil, shared.ErrSelfOfferForbidden
	}

	if r.HasMentorOffered(mentor) {
		return nil, nil, shared.ErrDuplicateOffer
	}

	pastHelps := 0
	if p, exists := l.profiles[mentor]; exists {
		pastHelps = p.HelpsGiven
	}

	now := l.clock.Now()
	o, err := help.NewHelpOffer(help.NewOfferParams{
		ID:               l.newID(),
		RequestID:        requestID,
		Mentor:           mentor,
		Message:          message,
		CompetencyLevel:  competency,
		PastHelpsOnTopic: pastHelps,
		CreatedAt:        now,
	})
	if err != nil {
		return nil, nil, shared.WrapError("offer", "Create", shared.ErrValidation, "invalid offer fields", err)
	}

	l.offers[o.ID] = o
	r.RecordOffer(o.ID, mentor, now)

	events := []shared.Event{
		shared.NewOfferCreatedEvent(o.ID, requestID, mentor, int(competency), now),
	}
	return o.Clone(), events, nil
}

// AcceptOffer is the single writer for the Open -> Matched transition. In
// one atomic unit it accepts the chosen offer, batch-rejects every other
// pending offer on the request, creates the match record, and advances the
// request status.
func (l *Ledger) AcceptOffer(requestID, offerID shared.EntityID, caller shared.Identity) (*match.MatchRecord, []shared.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.requests[requestID]
	if !ok {
		return nil, nil, shared.ErrRequestNotFound
	}

	o, ok := l.offers[offerID]
	if !ok || o.RequestID != requestID {
		return nil, nil, shared.ErrOfferNotFound
	}

	if caller != r.Requester {
		return nil, nil, shared.ErrNotRequestOwner
	}

	if !r.IsOpen() {
		return nil, nil, shared.ErrRequestNotOpen
	}

	if !o.IsPending() {
		return nil, nil, shared.ErrOfferNotPending
	}

	now := l.clock.Now()
	m, err := match.NewMatchRecord(match.NewMatchParams{
		ID:        l.newID(),
		RequestID: requestID,
		OfferID:   offerID,
		Mentee:    r.Requester,
		Mentor:    o.Mentor,
		CreatedAt: now,
	})
	if err != nil {
		return nil, nil, shared.WrapError("match", "AcceptOffer", shared.ErrInvalidEntity, "cannot build match record", err)
	}

	if err := o.Accept(now); err != nil {
		return nil, nil, shared.ErrOfferNotPending
	}

	rejected := make([]shared.EntityID, 0, len(r.Offers)-1)
	for _, id := range r.Offers {
		other := l.offers[id]
		if other == nil || other.ID == offerID {
			continue
		}
		if other.IsPending() {
			other.Reject(now)
			rejected = append(rejected, other.ID)
		}
	}

	if err := r.MarkMatched(m.ID, now); err != nil {
		return nil, nil, shared.ErrRequestNotOpen
	}

	l.matches[m.ID] = m
	l.matchByRequest[requestID] = m.ID
	l.registry.TotalMatches++

	events := []shared.Event{
		shared.NewMatchCreatedEvent(m.ID, requestID, offerID, o.Mentor, r.Requester, rejected, now),
	}
	return m.Clone(), events, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// MenteeConfirmCompletion records the mentee's confirmation: the match and
// request both become Completed and a reward-pending signal is emitted for
// the mentor. Completion commits even if the reward claim never follows.
func (l *Ledger) MenteeConfirmCompletion(matchID shared.EntityID, caller shared.Identity) (*match.MatchRecord, []shared.Event, error) {
	return l.completeMatch(matchID, caller, true)
}

// MenteeRejectCompletion records the mentee's rejection: terminal for the
// request, grants no reward, and counts a failed help against the mentor.
func (l *Ledger) MenteeRejectCompletion(matchID shared.EntityID, caller shared.Identity) (*match.MatchRecord, []shared.Event, error) {
	return l.completeMatch(matchID, caller, false)
}

func (l *Ledger) completeMatch(matchID shared.EntityID, caller shared.Identity, confirmed bool) (*match.MatchRecord, []shared.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.matches[matchID]
	if !ok {
		return nil, nil, shared.ErrMatchNotFound
	}

	if caller != m.Mentee {
		return nil, nil, shared.ErrNotMentee
	}

	r, ok := l.requests[m.RequestID]
	if !ok {
		return nil, nil, shared.ErrRequestNotFound
	}

	if r.Status != help.RequestStatusMatched {
		return nil, nil, shared.ErrRequestNotMatched
	}

	if !m.IsActive() {
		return nil, nil, shared.ErrAlreadyCompleted
	}

	now := l.clock.Now()
	if err := m.Complete(confirmed, now); err != nil {
		return nil, nil, shared.ErrAlreadyCompleted
	}
	if err := r.MarkCompleted(now); err != nil {
		return nil, nil, shared.ErrRequestNotMatched
	}

	l.registry.TotalCompletions++

	if confirmed {
		if p, exists := l.profiles[m.Mentee]; exists {
			p.RecordHelpReceived(now)
		}
	} else {
		if p, exists := l.profiles[m.Mentor]; exists {
			p.RecordFailedHelp(now)
		}
	}

	events := []shared.Event{
		shared.NewHelpCompletedEvent(m.ID, r.ID, m.Mentor, m.Mentee, confirmed, now),
	}
	if confirmed {
		events = append(events, shared.NewRewardPendingEvent(m.ID, r.ID, m.Mentor, now))
	}
	return m.Clone(), events, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REWARD OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// MentorClaimReward converts a confirmed completion into XP exactly once.
// The reward_claimed flip and the XP award commit in the same critical
// section, so concurrent claims on one request can never both pay out.
// XP is community_difficulty * 10 at claim time.
func (l *Ledger) MentorClaimReward(requestID shared.EntityID, caller shared.Identity) (*profile.RewardOutcome, []shared.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.requests[requestID]
	if !ok {
		return nil, nil, shared.ErrRequestNotFound
	}

	matchID, ok := l.matchByRequest[requestID]
	if !ok {
		return nil, nil, shared.ErrMatchNotFound
	}
	m := l.matches[matchID]

	if caller != m.Mentor {
		return nil, nil, shared.ErrNotMentor
	}

	if r.RewardClaimed {
		return nil, nil, shared.ErrAlreadyClaimed
	}

	if err := m.RewardEligible(); err != nil {
		if errors.Is(err, match.ErrNotCompleted) {
			return nil, nil, shared.ErrMatchNotCompleted
		}
		return nil, nil, shared.ErrMenteeNotConfirmed
	}

	p, exists := l.profiles[caller]
	if !exists {
		return nil, nil, shared.ErrProfileRequired
	}

	now := l.clock.Now()
	xp := profile.XP(r.CommunityDifficulty.Int() * XPPerDifficultyPoint)

	outcome, err := p.GrantReward(xp, now)
	if err != nil {
		return nil, nil, shared.WrapError("reward", "Claim", shared.ErrInvalidInput, "cannot grant reward", err)
	}

	if err := r.ClaimReward(now); err != nil {
		return nil, nil, shared.ErrAlreadyClaimed
	}

	events := []shared.Event{
		shared.NewRewardClaimedEvent(requestID, caller, xp.Int(), outcome.NewTotalXP.Int(), outcome.HelpsGiven, now),
	}

	if outcome.Promoted {
		badge, mintErr := profile.MintTierBadge(profile.MintBadgeParams{
			ID:               l.newID(),
			Owner:            caller,
			Tier:             outcome.NewTier,
			HelpsGivenAtMint: outcome.HelpsGiven,
			MintedAt:         now,
		})
		if mintErr == nil && !l.badgeHeld(caller, outcome.NewTier) {
			l.badges[caller] = append(l.badges[caller], badge)
			events = append(events, shared.NewBadgeMintedEvent(
				badge.ID, caller, int(badge.Tier), badge.TierName, badge.HelpsGivenAtMint, now,
			))
		}
	}

	return &outcome, events, nil
}

// badgeHeld reports whether the identity already holds a badge for the tier.
func (l *Ledger) badgeHeld(owner shared.Identity, tier profile.Tier) bool {
	for _, b := range l.badges[owner] {
		if b.Tier == tier {
			return true
		}
	}
	return false
}
