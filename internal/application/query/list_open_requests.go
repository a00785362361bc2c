package query

import (
	"context"
	"errors"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST OPEN REQUESTS QUERY
// The marketplace board: open requests mentors can offer on, newest first,
// optionally filtered by topic.
// ══════════════════════════════════════════════════════════════════════════════

// ListOpenRequestsQuery contains the parameters for listing open requests.
type ListOpenRequestsQuery struct {
	// Topic filters by curriculum tag when set (nil = all topics).
	Topic *help.Topic

	// Limit caps the number of results (default 50, max 200).
	Limit int
}

// Validate validates the query parameters and applies defaults.
func (q *ListOpenRequestsQuery) Validate() error {
	if q.Topic != nil && !q.Topic.IsValid() {
		return errors.New("list_open_requests: invalid topic")
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 200 {
		q.Limit = 200
	}
	return nil
}

// ListOpenRequestsHandler handles the ListOpenRequestsQuery.
type ListOpenRequestsHandler struct {
	ledger *ledger.Ledger
}

// NewListOpenRequestsHandler creates a new ListOpenRequestsHandler.
func NewListOpenRequestsHandler(l *ledger.Ledger) *ListOpenRequestsHandler {
	return &ListOpenRequestsHandler{ledger: l}
}

// Handle executes the listing.
func (h *ListOpenRequestsHandler) Handle(ctx context.Context, q ListOpenRequestsQuery) ([]RequestDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	open := h.ledger.OpenRequests()
	result := make([]RequestDTO, 0, q.Limit)

	for _, r := range open {
		if len(result) >= q.Limit {
			break
		}
		if q.Topic != nil && r.Topic != *q.Topic {
			continue
		}

		result = append(result, RequestDTO{
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
			OfferCount:          len(r.Offers),
			CreatedAt:           r.CreatedAt,
		})
	}

	return result, nil
}
