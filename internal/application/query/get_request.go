package query

import (
	"context"
	"errors"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET REQUEST QUERY
// Full view of one request: lifecycle state, crowd difficulty, offers, and
// the match once one exists.
// ══════════════════════════════════════════════════════════════════════════════

// GetRequestQuery contains the parameters for a request lookup.
type GetRequestQuery struct {
	// RequestID is the request to fetch.
	RequestID shared.EntityID

	// IncludeOffers controls whether the offer list is attached.
	IncludeOffers bool

	// IncludeMatch controls whether the match record is attached.
	IncludeMatch bool
}

// Validate validates the query parameters.
func (q *GetRequestQuery) Validate() error {
	if q.RequestID.IsEmpty() {
		return errors.New("get_request: request_id is required")
	}
	return nil
}

// RequestDTO is the read model for a help request.
type RequestDTO struct {
	ID                  string     `json:"id"`
	Requester           string     `json:"requester"`
	Topic               int        `json:"topic"`
	TopicName           string     `json:"topic_name"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Status              string     `json:"status"`
	CommunityDifficulty int        `json:"community_difficulty"`
	DifficultyVoteCount int        `json:"difficulty_vote_count"`
	TrustedDifficulty   bool       `json:"trusted_difficulty"`
	RewardClaimed       bool       `json:"reward_claimed"`
	MatchID             string     `json:"match_id,omitempty"`
	OfferCount          int        `json:"offer_count"`
	Offers              []OfferDTO `json:"offers,omitempty"`
	Match               *MatchDTO  `json:"match,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// OfferDTO is the read model for a help offer.
type OfferDTO struct {
	ID               string    `json:"id"`
	RequestID        string    `json:"request_id"`
	Mentor           string    `json:"mentor"`
	Message          string    `json:"message"`
	CompetencyLevel  int       `json:"competency_level"`
	PastHelpsOnTopic int       `json:"past_helps_on_topic"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
}

// MatchDTO is the read model for a match record.
type MatchDTO struct {
	ID              string     `json:"id"`
	RequestID       string     `json:"request_id"`
	OfferID         string     `json:"offer_id"`
	Mentee          string     `json:"mentee"`
	Mentor          string     `json:"mentor"`
	Status          string     `json:"status"`
	MenteeConfirmed bool       `json:"mentee_confirmed"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// GetRequestHandler handles the GetRequestQuery.
type GetRequestHandler struct {
	ledger *ledger.Ledger
}

// NewGetRequestHandler creates a new GetRequestHandler.
func NewGetRequestHandler(l *ledger.Ledger) *GetRequestHandler {
	return &GetRequestHandler{ledger: l}
}

// Handle executes the request lookup.
func (h *GetRequestHandler) Handle(ctx context.Context, q GetRequestQuery) (*RequestDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	r, err := h.ledger.GetRequest(q.RequestID)
	if err != nil {
		return nil, err
	}

	dto := &RequestDTO{
		ID:                  r.ID.String(),
		Requester:           r.Requester.String(),
		Topic:               int(r.Topic),
		TopicName:           r.Topic.Name(),
		Title:               r.Title,
		Description:         r.Description,
		Status:              r.Status.String(),
		CommunityDifficulty: r.CommunityDifficulty.Int(),
		DifficultyVoteCount: r.DifficultyVoteCount,
		TrustedDifficulty:   r.HasTrustedDifficulty(),
		RewardClaimed:       r.RewardClaimed,
		MatchID:             r.MatchID.String(),
		OfferCount:          len(r.Offers),
		CreatedAt:           r.CreatedAt,
	}

	if q.IncludeOffers {
		offers, err := h.ledger.OffersByRequest(q.RequestID)
		if err == nil {
			for _, o := range offers {
				dto.Offers = append(dto.Offers, OfferDTO{
					ID:               o.ID.String(),
					RequestID:        o.RequestID.String(),
					Mentor:           o.Mentor.String(),
					Message:          o.Message,
					CompetencyLevel:  int(o.CompetencyLevel),
					PastHelpsOnTopic: o.PastHelpsOnTopic,
					Status:           o.Status.String(),
					CreatedAt:        o.CreatedAt,
				})
			}
		}
	}

	if q.IncludeMatch && !r.MatchID.IsEmpty() {
		if m, err := h.ledger.GetMatch(r.MatchID); err == nil {
			matchDTO := &MatchDTO{
				ID:              m.ID.String(),
				RequestID:       m.RequestID.String(),
				OfferID:         m.OfferID.String(),
				Mentee:          m.Mentee.String(),
				Mentor:          m.Mentor.String(),
				Status:          m.Status.String(),
				MenteeConfirmed: m.MenteeConfirmed,
				CreatedAt:       m.CreatedAt,
			}
			if !m.CompletedAt.IsZero() {
				completedAt := m.CompletedAt
				matchDTO.CompletedAt = &completedAt
			}
			dto.Match = matchDTO
		}
	}

	return dto, nil
}
