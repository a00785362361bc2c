// Package match contains the MatchRecord entity: the link between a help
// request, its mentee, and the mentor whose offer was accepted. A match is
// created atomically with offer acceptance and carries the mentee's final
// verdict on the help session.
package match

import (
	"errors"
	"fmt"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// MatchStatus is the lifecycle state of a match.
type MatchStatus int

const (
	// MatchStatusActive - help is under way.
	MatchStatusActive MatchStatus = 0

	// MatchStatusCompleted - terminal; the mentee confirmed or rejected.
	MatchStatusCompleted MatchStatus = 1
)

// IsValid checks the status ordinal.
func (s MatchStatus) IsValid() bool {
	return s == MatchStatusActive || s == MatchStatusCompleted
}

// String returns the status name.
func (s MatchStatus) String() string {
	switch s {
	case MatchStatusActive:
		return "active"
	case MatchStatusCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNotActive - only an active match can be completed.
	ErrNotActive = errors.New("match is not active")

	// ErrNotCompleted - reward eligibility requires a completed match.
	ErrNotCompleted = errors.New("match is not completed")

	// ErrNotConfirmed - the mentee rejected or has not yet confirmed.
	ErrNotConfirmed = errors.New("mentee did not confirm completion")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// MatchRecord links a request to its mentee and accepted mentor. The
// MenteeConfirmed flag is only meaningful once Status is Completed: it
// records whether the mentee confirmed the help or rejected it.
type MatchRecord struct {
	// ID is the unique match identifier (UUID).
	ID shared.EntityID

	// RequestID references the matched help request.
	RequestID shared.EntityID

	// OfferID references the accepted offer.
	OfferID shared.EntityID

	// Mentee is the requester of the underlying request.
	Mentee shared.Identity

	// Mentor is the owner of the accepted offer.
	Mentor shared.Identity

	// Status is the lifecycle state.
	Status MatchStatus

	// MenteeConfirmed is the mentee's verdict; valid only when completed.
	MenteeConfirmed bool

	// CreatedAt is when the offer was accepted.
	CreatedAt time.Time

	// CompletedAt is when the mentee delivered the verdict; zero while active.
	CompletedAt time.Time
}

// NewMatchParams contains parameters for creating a match record.
type NewMatchParams struct {
	ID        shared.EntityID
	RequestID shared.EntityID
	OfferID   shared.EntityID
	Mentee    shared.Identity
	Mentor    shared.Identity
	CreatedAt time.Time
}

// NewMatchRecord creates a new active match with validation.
func NewMatchRecord(params NewMatchParams) (*MatchRecord, error) {
	if params.ID.IsEmpty() {
		return nil, errors.New("match id is required")
	}

	if params.RequestID.IsEmpty() {
		return nil, errors.New("match request id is required")
	}

	if params.OfferID.IsEmpty() {
		return nil, errors.New("match offer id is required")
	}

	if !params.Mentee.IsValid() || !params.Mentor.IsValid() {
		return nil, shared.ErrInvalidID
	}

	return &MatchRecord{
		ID:        params.ID,
		RequestID: params.RequestID,
		OfferID:   params.OfferID,
		Mentee:    params.Mentee,
		Mentor:    params.Mentor,
		Status:    MatchStatusActive,
		CreatedAt: params.CreatedAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// IsActive reports whether the match still awaits the mentee's verdict.
func (m *MatchRecord) IsActive() bool {
	return m.Status == MatchStatusActive
}

// Complete transitions Active -> Completed with the mentee's verdict.
// Terminal: the verdict cannot be changed afterwards.
func (m *MatchRecord) Complete(confirmed bool, at time.Time) error {
	if m.Status != MatchStatusActive {
		return ErrNotActive
	}

	m.Status = MatchStatusCompleted
	m.MenteeConfirmed = confirmed
	m.CompletedAt = at
	return nil
}

// RewardEligible checks that the match satisfies the reward preconditions:
// completed with the mentee's confirmation.
func (m *MatchRecord) RewardEligible() error {
	if m.Status != MatchStatusCompleted {
		return ErrNotCompleted
	}

	if !m.MenteeConfirmed {
		return ErrNotConfirmed
	}

	return nil
}

// String returns a string representation for logging.
func (m *MatchRecord) String() string {
	return fmt.Sprintf(
		"MatchRecord{ID: %s, Mentee: %s, Mentor: %s, Status: %s, Confirmed: %t}",
		m.ID, m.Mentee, m.Mentor, m.Status, m.MenteeConfirmed,
	)
}

// Clone creates a copy of the match record.
func (m *MatchRecord) Clone() *MatchRecord {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
