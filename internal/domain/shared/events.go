// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Exactly one event is emitted per successful mutating
// call, carrying enough of the changed fields for an external observer to
// reconstruct state without re-reading entities.
const (
	// Profile events
	EventProfileCreated EventType = "profile.created"

	// Request events
	EventRequestCreated  EventType = "request.created"
	EventDifficultyVoted EventType = "request.difficulty_voted"

	// Offer events
	EventOfferCreated EventType = "offer.created"

	// Match events
	EventMatchCreated  EventType = "match.created"
	EventHelpCompleted EventType = "help.completed"
	EventHelpRejected  EventType = "help.rejected"

	// Reward events
	EventRewardPending EventType = "reward.pending"
	EventRewardClaimed EventType = "reward.claimed"

	// Tier events
	EventBadgeMinted EventType = "badge.minted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// ProfileCreatedEvent is emitted when a new student profile is created.
type ProfileCreatedEvent struct {
	BaseEvent
	Owner         Identity `json:"owner"`
	DisplayName   string   `json:"display_name"`
	ExternalLogin string   `json:"external_login"`
}

// Payload implements Event interface.
func (e ProfileCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"owner":          e.Owner.String(),
		"display_name":   e.DisplayName,
		"external_login": e.ExternalLogin,
	}
}

// NewProfileCreatedEvent creates a new ProfileCreatedEvent.
func NewProfileCreatedEvent(owner Identity, displayName, externalLogin string, at time.Time) ProfileCreatedEvent {
	return ProfileCreatedEvent{
		BaseEvent:     NewBaseEvent(EventProfileCreated, owner.String(), at),
		Owner:         owner,
		DisplayName:   displayName,
		ExternalLogin: externalLogin,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Request Events
// ═══════════════════════════════════════════════════════════════════════════

// RequestCreatedEvent is emitted when a help request is created.
type RequestCreatedEvent struct {
	BaseEvent
	RequestID EntityID `json:"request_id"`
	Requester Identity `json:"requester"`
	Topic     int      `json:"topic"`
	Title     string   `json:"title"`
}

// Payload implements Event interface.
func (e RequestCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"request_id": e.RequestID.String(),
		"requester":  e.Requester.String(),
		"topic":      e.Topic,
		"title":      e.Title,
	}
}

// NewRequestCreatedEvent creates a new RequestCreatedEvent.
func NewRequestCreatedEvent(requestID EntityID, requester Identity, topic int, title string, at time.Time) RequestCreatedEvent {
	return RequestCreatedEvent{
		BaseEvent: NewBaseEvent(EventRequestCreated, requestID.String(), at),
		RequestID: requestID,
		Requester: requester,
		Topic:     topic,
		Title:     title,
	}
}

// DifficultyVotedEvent is emitted when a community difficulty vote is cast.
type DifficultyVotedEvent struct {
	BaseEvent
	RequestID     EntityID `json:"request_id"`
	Voter         Identity `json:"voter"`
	Vote          int      `json:"vote"`
	NewDifficulty int      `json:"new_difficulty"`
	VoteCount     int      `json:"vote_count"`
}

// Payload implements Event interface.
func (e DifficultyVotedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"request_id":     e.RequestID.String(),
		"voter":          e.Voter.String(),
		"vote":           e.Vote,
		"new_difficulty": e.NewDifficulty,
		"vote_count":     e.VoteCount,
	}
}

// NewDifficultyVotedEvent creates a new DifficultyVotedEvent.
func NewDifficultyVotedEvent(requestID EntityID, voter Identity, vote, newDifficulty, voteCount int, at time.Time) DifficultyVotedEvent {
	return DifficultyVotedEvent{
		BaseEvent:     NewBaseEvent(EventDifficultyVoted, requestID.String(), at),
		RequestID:     requestID,
		Voter:         voter,
		Vote:          vote,
		NewDifficulty: newDifficulty,
		VoteCount:     voteCount,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Offer Events
// ═══════════════════════════════════════════════════════════════════════════

// OfferCreatedEvent is emitted when a mentor offers help on a request.
type OfferCreatedEvent struct {
	BaseEvent
	OfferID         EntityID `json:"offer_id"`
	RequestID       EntityID `json:"request_id"`
	Mentor          Identity `json:"mentor"`
	CompetencyLevel int      `json:"competency_level"`
}

// Payload implements Event interface.
func (e OfferCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"offer_id":         e.OfferID.String(),
		"request_id":       e.RequestID.String(),
		"mentor":           e.Mentor.String(),
		"competency_level": e.CompetencyLevel,
	}
}

// NewOfferCreatedEvent creates a new OfferCreatedEvent.
func NewOfferCreatedEvent(offerID, requestID EntityID, mentor Identity, competencyLevel int, at time.Time) OfferCreatedEvent {
	return OfferCreatedEvent{
		BaseEvent:       NewBaseEvent(EventOfferCreated, offerID.String(), at),
		OfferID:         offerID,
		RequestID:       requestID,
		Mentor:          mentor,
		CompetencyLevel: competencyLevel,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Match Events
// ═══════════════════════════════════════════════════════════════════════════

// MatchCreatedEvent is emitted when an offer is accepted and a match forms.
// RejectedOffers lists every other offer that was batch-rejected in the
// same transition, so observers never need to re-read stale offers.
type MatchCreatedEvent struct {
	BaseEvent
	MatchID        EntityID   `json:"match_id"`
	RequestID      EntityID   `json:"request_id"`
	AcceptedOffer  EntityID   `json:"accepted_offer"`
	Helper         Identity   `json:"helper"`
	Mentee         Identity   `json:"mentee"`
	RejectedOffers []EntityID `json:"rejected_offers,omitempty"`
}

// Payload implements Event interface.
func (e MatchCreatedEvent) Payload() map[string]interface{} {
	rejected := make([]string, 0, len(e.RejectedOffers))
	for _, id := range e.RejectedOffers {
		rejected = append(rejected, id.String())
	}
	return map[string]interface{}{
		"match_id":        e.MatchID.String(),
		"request_id":      e.RequestID.String(),
		"accepted_offer":  e.AcceptedOffer.String(),
		"helper":          e.Helper.String(),
		"mentee":          e.Mentee.String(),
		"rejected_offers": rejected,
	}
}

// NewMatchCreatedEvent creates a new MatchCreatedEvent.
func NewMatchCreatedEvent(matchID, requestID, acceptedOffer EntityID, helper, mentee Identity, rejected []EntityID, at time.Time) MatchCreatedEvent {
	return MatchCreatedEvent{
		BaseEvent:      NewBaseEvent(EventMatchCreated, matchID.String(), at),
		MatchID:        matchID,
		RequestID:      requestID,
		AcceptedOffer:  acceptedOffer,
		Helper:         helper,
		Mentee:         mentee,
		RejectedOffers: rejected,
	}
}

// HelpCompletedEvent is emitted when the mentee confirms or rejects completion.
type HelpCompletedEvent struct {
	BaseEvent
	MatchID   EntityID `json:"match_id"`
	RequestID EntityID `json:"request_id"`
	Mentor    Identity `json:"mentor"`
	Mentee    Identity `json:"mentee"`
	Confirmed bool     `json:"confirmed"`
}

// Payload implements Event interface.
func (e HelpCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"match_id":   e.MatchID.String(),
		"request_id": e.RequestID.String(),
		"mentor":     e.Mentor.String(),
		"mentee":     e.Mentee.String(),
		"confirmed":  e.Confirmed,
	}
}

// NewHelpCompletedEvent creates a new HelpCompletedEvent. The confirmed flag
// selects between the help.completed and help.rejected event types.
func NewHelpCompletedEvent(matchID, requestID EntityID, mentor, mentee Identity, confirmed bool, at time.Time) HelpCompletedEvent {
	eventType := EventHelpCompleted
	if !confirmed {
		eventType = EventHelpRejected
	}
	return HelpCompletedEvent{
		BaseEvent: NewBaseEvent(eventType, matchID.String(), at),
		MatchID:   matchID,
		RequestID: requestID,
		Mentor:    mentor,
		Mentee:    mentee,
		Confirmed: confirmed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Reward Events
// ═══════════════════════════════════════════════════════════════════════════

// RewardPendingEvent signals that a confirmed completion is waiting for the
// mentor to claim its reward. Consumed by pollers that auto-claim.
type RewardPendingEvent struct {
	BaseEvent
	MatchID   EntityID `json:"match_id"`
	RequestID EntityID `json:"request_id"`
	Mentor    Identity `json:"mentor"`
}

// Payload implements Event interface.
func (e RewardPendingEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"match_id":   e.MatchID.String(),
		"request_id": e.RequestID.String(),
		"mentor":     e.Mentor.String(),
	}
}

// NewRewardPendingEvent creates a new RewardPendingEvent.
func NewRewardPendingEvent(matchID, requestID EntityID, mentor Identity, at time.Time) RewardPendingEvent {
	return RewardPendingEvent{
		BaseEvent: NewBaseEvent(EventRewardPending, requestID.String(), at),
		MatchID:   matchID,
		RequestID: requestID,
		Mentor:    mentor,
	}
}

// RewardClaimedEvent is emitted when a mentor converts a confirmed match
// into XP exactly once.
type RewardClaimedEvent struct {
	BaseEvent
	RequestID  EntityID `json:"request_id"`
	Mentor     Identity `json:"mentor"`
	XPAwarded  int      `json:"xp_awarded"`
	NewTotalXP int      `json:"new_total_xp"`
	HelpsGiven int      `json:"helps_given"`
}

// Payload implements Event interface.
func (e RewardClaimedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"request_id":   e.RequestID.String(),
		"mentor":       e.Mentor.String(),
		"xp_awarded":   e.XPAwarded,
		"new_total_xp": e.NewTotalXP,
		"helps_given":  e.HelpsGiven,
	}
}

// NewRewardClaimedEvent creates a new RewardClaimedEvent.
func NewRewardClaimedEvent(requestID EntityID, mentor Identity, xpAwarded, newTotalXP, helpsGiven int, at time.Time) RewardClaimedEvent {
	return RewardClaimedEvent{
		BaseEvent:  NewBaseEvent(EventRewardClaimed, requestID.String(), at),
		RequestID:  requestID,
		Mentor:     mentor,
		XPAwarded:  xpAwarded,
		NewTotalXP: newTotalXP,
		HelpsGiven: helpsGiven,
	}
}

// BadgeMintedEvent is emitted when a mentor crosses a tier threshold and a
// badge is minted. Also covers the tier promotion itself.
type BadgeMintedEvent struct {
	BaseEvent
	BadgeID    EntityID `json:"badge_id"`
	Owner      Identity `json:"owner"`
	Tier       int      `json:"tier"`
	TierName   string   `json:"tier_name"`
	HelpsGiven int      `json:"helps_given"`
}

// Payload implements Event interface.
func (e BadgeMintedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_id":    e.BadgeID.String(),
		"owner":       e.Owner.String(),
		"tier":        e.Tier,
		"tier_name":   e.TierName,
		"helps_given": e.HelpsGiven,
	}
}

// NewBadgeMintedEvent creates a new BadgeMintedEvent.
func NewBadgeMintedEvent(badgeID EntityID, owner Identity, tier int, tierName string, helpsGiven int, at time.Time) BadgeMintedEvent {
	return BadgeMintedEvent{
		BaseEvent:  NewBaseEvent(EventBadgeMinted, owner.String(), at),
		BadgeID:    badgeID,
		Owner:      owner,
		Tier:       tier,
		TierName:   tierName,
		HelpsGiven: helpsGiven,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage. Sequence is assigned
// by the event store and lets pollers resume from a known position.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Sequence      int64           `json:"sequence"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
