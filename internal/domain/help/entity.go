// Package help contains the peer-help domain model: requests for help posted
// by students and the offers mentors make against them. The entities enforce
// their own state machines; cross-entity transitions (matching, rewards) are
// coordinated by the ledger.
package help

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Topic is an enumerated curriculum tag a request belongs to.
type Topic int

// The topic catalog mirrors the 42 core curriculum projects.
const (
	TopicShell Topic = iota
	TopicLibft
	TopicGetNextLine
	TopicFtPrintf
	TopicBorn2beroot
	TopicMinitalk
	TopicPushSwap
	TopicMinishell
	TopicPhilosophers
	TopicCPPModules
	TopicCub3d
	TopicMiniRT
	TopicWebserv
	TopicTranscendence
)

var topicNames = [...]string{
	TopicShell:         "Shell",
	TopicLibft:         "Libft",
	TopicGetNextLine:   "get_next_line",
	TopicFtPrintf:      "ft_printf",
	TopicBorn2beroot:   "Born2beroot",
	TopicMinitalk:      "minitalk",
	TopicPushSwap:      "push_swap",
	TopicMinishell:     "minishell",
	TopicPhilosophers:  "Philosophers",
	TopicCPPModules:    "CPP Modules",
	TopicCub3d:         "cub3d",
	TopicMiniRT:        "miniRT",
	TopicWebserv:       "webserv",
	TopicTranscendence: "ft_transcendence",
}

// IsValid checks that the topic is in the catalog.
func (t Topic) IsValid() bool {
	return t >= TopicShell && t <= TopicTranscendence
}

// Name returns the display name of the topic.
func (t Topic) Name() string {
	if !t.IsValid() {
		return "Unknown"
	}
	return topicNames[t]
}

// Difficulty is a 1-5 difficulty rating.
type Difficulty int

// IsValid checks that the difficulty is within the 1-5 scale.
func (d Difficulty) IsValid() bool {
	return d >= 1 && d <= 5
}

// Int returns the underlying int value.
func (d Difficulty) Int() int {
	return int(d)
}

// CompetencyLevel is a mentor's self-declared 1-5 competency on a topic.
type CompetencyLevel int

// IsValid checks that the level is within the 1-5 scale.
func (c CompetencyLevel) IsValid() bool {
	return c >= 1 && c <= 5
}

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// RequestStatus is the lifecycle state of a help request. The status is
// monotonically non-decreasing: Open -> Matched -> Completed, no regression.
type RequestStatus int

const (
	// RequestStatusOpen - accepting offers.
	RequestStatusOpen RequestStatus = 0

	// RequestStatusMatched - an offer was accepted, help is under way.
	RequestStatusMatched RequestStatus = 1

	// RequestStatusCompleted - terminal; the mentee confirmed or rejected.
	RequestStatusCompleted RequestStatus = 2
)

// IsValid checks the status ordinal.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusOpen, RequestStatusMatched, RequestStatusCompleted:
		return true
	default:
		return false
	}
}

// String returns the status name.
func (s RequestStatus) String() string {
	switch s {
	case RequestStatusOpen:
		return "open"
	case RequestStatusMatched:
		return "matched"
	case RequestStatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// OfferStatus is the lifecycle state of a help offer.
type OfferStatus int

const (
	// OfferStatusPending - awaiting the requester's decision.
	OfferStatusPending OfferStatus = 0

	// OfferStatusAccepted - chosen by the requester; at most one per request.
	OfferStatusAccepted OfferStatus = 1

	// OfferStatusRejected - declined, either explicitly or by batch rejection
	// when another offer was accepted.
	OfferStatusRejected OfferStatus = 2
)

// IsValid checks the status ordinal.
func (s OfferStatus) IsValid() bool {
	switch s {
	case OfferStatusPending, OfferStatusAccepted, OfferStatusRejected:
		return true
	default:
		return false
	}
}

// String returns the status name.
func (s OfferStatus) String() string {
	switch s {
	case OfferStatusPending:
		return "pending"
	case OfferStatusAccepted:
		return "accepted"
	case OfferStatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyTitle - request title is required.
	ErrEmptyTitle = errors.New("request title cannot be empty")

	// ErrEmptyDescription - request description is required.
	ErrEmptyDescription = errors.New("request description cannot be empty")

	// ErrInvalidTopic - topic is outside the catalog.
	ErrInvalidTopic = errors.New("invalid topic")

	// ErrInvalidDifficulty - difficulty must be 1-5.
	ErrInvalidDifficulty = errors.New("invalid difficulty: must be between 1 and 5")

	// ErrInvalidCompetency - competency level must be 1-5.
	ErrInvalidCompetency = errors.New("invalid competency level: must be between 1 and 5")

	// ErrStatusRegression - request status can never move backward.
	ErrStatusRegression = errors.New("request status cannot regress")

	// ErrRewardAlreadyClaimed - reward_claimed flips false->true exactly once.
	ErrRewardAlreadyClaimed = errors.New("reward already claimed")

	// ErrOfferNotPending - only pending offers can be accepted or rejected.
	ErrOfferNotPending = errors.New("offer is not pending")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: HELP REQUEST
// ══════════════════════════════════════════════════════════════════════════════

// HelpRequest is a student's posted request for help on a topic. It tracks
// the offers made against it, the crowd-sourced difficulty, and the one-time
// reward claim flag.
type HelpRequest struct {
	// ID is the unique request identifier (UUID).
	ID shared.EntityID

	// Requester is the identity that created (and owns) the request.
	Requester shared.Identity

	// Topic is the curriculum tag.
	Topic Topic

	// Title is a short summary of the problem.
	Title string

	// Description explains where the student is stuck.
	Description string

	// Status is the lifecycle state, monotonically non-decreasing.
	Status RequestStatus

	// DifficultyVoteCount is the number of community votes cast.
	DifficultyVoteCount int

	// CommunityDifficulty is the running integer average of the initial
	// difficulty and all votes, always within 1-5.
	CommunityDifficulty Difficulty

	// MatchID references the match created on offer acceptance; empty while
	// the request is open.
	MatchID shared.EntityID

	// Offers is the ordered list of offer references made on this request.
	Offers []shared.EntityID

	// MentorAddresses is the set of identities that have offered, kept for
	// O(1) duplicate-offer checks. Authoritative for the at-most-one-offer
	// guarantee; never derived by scanning offer objects.
	MentorAddresses map[shared.Identity]struct{}

	// RewardClaimed flips false->true exactly once, on the mentor's claim.
	RewardClaimed bool

	// CreatedAt is when the request was created.
	CreatedAt time.Time

	// UpdatedAt is when the request was last mutated.
	UpdatedAt time.Time
}

// NewRequestParams contains parameters for creating a help request.
type NewRequestParams struct {
	ID                shared.EntityID
	Requester         shared.Identity
	Topic             Topic
	Title             string
	Description       string
	InitialDifficulty Difficulty
	CreatedAt         time.Time
}

// NewHelpRequest creates a new open help request with validation.
func NewHelpRequest(params NewRequestParams) (*HelpRequest, error) {
	if params.ID.IsEmpty() {
		return nil, errors.New("request id is required")
	}

	if !params.Requester.IsValid() {
		return nil, shared.ErrInvalidID
	}

	if !params.Topic.IsValid() {
		return nil, ErrInvalidTopic
	}

	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	description := strings.TrimSpace(params.Description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	if !params.InitialDifficulty.IsValid() {
		return nil, ErrInvalidDifficulty
	}

	return &HelpRequest{
		ID:                  params.ID,
		Requester:           params.Requester,
		Topic:               params.Topic,
		Title:               title,
		Description:         description,
		Status:              RequestStatusOpen,
		CommunityDifficulty: params.InitialDifficulty,
		Offers:              make([]shared.EntityID, 0),
		MentorAddresses:     make(map[shared.Identity]struct{}),
		CreatedAt:           params.CreatedAt,
		UpdatedAt:           params.CreatedAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// IsOpen reports whether the request still accepts offers.
func (r *HelpRequest) IsOpen() bool {
	return r.Status == RequestStatusOpen
}

// HasMentorOffered reports whether the mentor already offered on this request.
func (r *HelpRequest) HasMentorOffered(mentor shared.Identity) bool {
	_, ok := r.MentorAddresses[mentor]
	return ok
}

// RecordOffer appends an offer reference and registers the mentor in the
// duplicate-check set. The caller must hold the request exclusively: the
// HasMentorOffered check and this append form one read-modify-write.
func (r *HelpRequest) RecordOffer(offerID shared.EntityID, mentor shared.Identity, at time.Time) {
	r.Offers = append(r.Offers, offerID)
	r.MentorAddresses[mentor] = struct{}{}
	r.UpdatedAt = at
}

// RecordVote folds a community difficulty vote into the running average.
// The initial difficulty counts as the first sample, so with samples =
// DifficultyVoteCount+1 the new average is
// floor((avg*samples + vote) / (samples+1)). Integer floor division keeps
// the value within 1-5 because both operands are.
func (r *HelpRequest) RecordVote(vote Difficulty, at time.Time) error {
	if !vote.IsValid() {
		return ErrInvalidDifficulty
	}

	samples := r.DifficultyVoteCount + 1
	r.CommunityDifficulty = Difficulty((r.CommunityDifficulty.Int()*samples + vote.Int()) / (samples + 1))
	r.DifficultyVoteCount++
	r.UpdatedAt = at
	return nil
}

// HasTrustedDifficulty reports whether enough independent votes were cast for
// the community difficulty to be treated as a trustworthy signal. Two votes
// is the minimum; informational only, never a transition gate.
func (r *HelpRequest) HasTrustedDifficulty() bool {
	return r.DifficultyVoteCount >= 2
}

// MarkMatched transitions Open -> Matched and pins the match reference.
func (r *HelpRequest) MarkMatched(matchID shared.EntityID, at time.Time) error {
	if r.Status != RequestStatusOpen {
		return ErrStatusRegression
	}

	r.Status = RequestStatusMatched
	r.MatchID = matchID
	r.UpdatedAt = at
	return nil
}

// MarkCompleted transitions Matched -> Completed. Terminal.
func (r *HelpRequest) MarkCompleted(at time.Time) error {
	if r.Status != RequestStatusMatched {
		return ErrStatusRegression
	}

	r.Status = RequestStatusCompleted
	r.UpdatedAt = at
	return nil
}

// ClaimReward flips the reward_claimed idempotence barrier. It must be
// called in the same atomic unit as the XP award.
func (r *HelpRequest) ClaimReward(at time.Time) error {
	if r.RewardClaimed {
		return ErrRewardAlreadyClaimed
	}

	r.RewardClaimed = true
	r.UpdatedAt = at
	return nil
}

// String returns a string representation for logging.
func (r *HelpRequest) String() string {
	return fmt.Sprintf(
		"HelpRequest{ID: %s, Topic: %s, Status: %s, Difficulty: %d, Offers: %d}",
		r.ID, r.Topic.Name(), r.Status, r.CommunityDifficulty, len(r.Offers),
	)
}

// Clone creates a deep copy of the request.
func (r *HelpRequest) Clone() *HelpRequest {
	if r == nil {
		return nil
	}

	clone := *r

	clone.Offers = make([]shared.EntityID, len(r.Offers))
	copy(clone.Offers, r.Offers)

	clone.MentorAddresses = make(map[shared.Identity]struct{}, len(r.MentorAddresses))
	for mentor := range r.MentorAddresses {
		clone.MentorAddresses[mentor] = struct{}{}
	}

	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY: HELP OFFER
// ══════════════════════════════════════════════════════════════════════════════

// HelpOffer is a mentor's offer to help on one open request. Exactly one
// offer exists per (request, mentor) pair, and at most one offer per request
// ever reaches Accepted.
type HelpOffer struct {
	// ID is the unique offer identifier (UUID).
	ID shared.EntityID

	// RequestID references the request this offer targets.
	RequestID shared.EntityID

	// Mentor is the identity that made (and owns) the offer.
	Mentor shared.Identity

	// Message is the mentor's pitch to the requester.
	Message string

	// CompetencyLevel is the mentor's self-declared 1-5 competency.
	CompetencyLevel CompetencyLevel

	// PastHelpsOnTopic is the mentor's prior help count, captured at offer time.
	PastHelpsOnTopic int

	// Status is the lifecycle state.
	Status OfferStatus

	// CreatedAt is when the offer was created.
	CreatedAt time.Time

	// UpdatedAt is when the offer was last mutated.
	UpdatedAt time.Time
}

// NewOfferParams contains parameters for creating a help offer.
type NewOfferParams struct {
	ID               shared.EntityID
	RequestID        shared.EntityID
	Mentor           shared.Identity
	Message          string
	CompetencyLevel  CompetencyLevel
	PastHelpsOnTopic int
	CreatedAt        time.Time
}

// NewHelpOffer creates a new pending offer with validation.
func NewHelpOffer(params NewOfferParams) (*HelpOffer, error) {
	if params.ID.IsEmpty() {
		return nil, errors.New("offer id is required")
	}

	if params.RequestID.IsEmpty() {
		return nil, errors.New("offer request id is required")
	}

	if !params.Mentor.IsValid() {
		return nil, shared.ErrInvalidID
	}

	if !params.CompetencyLevel.IsValid() {
		return nil, ErrInvalidCompetency
	}

	return &HelpOffer{
		ID:               params.ID,
		RequestID:        params.RequestID,
		Mentor:           params.Mentor,
		Message:          strings.TrimSpace(params.Message),
		CompetencyLevel:  params.CompetencyLevel,
		PastHelpsOnTopic: params.PastHelpsOnTopic,
		Status:           OfferStatusPending,
		CreatedAt:        params.CreatedAt,
		UpdatedAt:        params.CreatedAt,
	}, nil
}

// IsPending reports whether the offer awaits a decision.
func (o *HelpOffer) IsPending() bool {
	return o.Status == OfferStatusPending
}

// Accept transitions Pending -> Accepted.
func (o *HelpOffer) Accept(at time.Time) error {
	if o.Status != OfferStatusPending {
		return ErrOfferNotPending
	}

	o.Status = OfferStatusAccepted
	o.UpdatedAt = at
	return nil
}

// Reject transitions Pending -> Rejected. Idempotent no-op when the offer is
// already Rejected; never overwrites Accepted.
func (o *HelpOffer) Reject(at time.Time) {
	if o.Status != OfferStatusPending {
		return
	}

	o.Status = OfferStatusRejected
	o.UpdatedAt = at
}

// String returns a string representation for logging.
func (o *HelpOffer) String() string {
	return fmt.Sprintf(
		"HelpOffer{ID: %s, Request: %s, Mentor: %s, Status: %s}",
		o.ID, o.RequestID, o.Mentor, o.Status,
	)
}

// Clone creates a copy of the offer.
func (o *HelpOffer) Clone() *HelpOffer {
	if o == nil {
		return nil
	}
	clone := *o
	return &clone
}
