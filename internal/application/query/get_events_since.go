package query

import (
	"context"
	"errors"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET EVENTS SINCE QUERY
// Event replay for external observers: pollers resume from the last sequence
// number they saw and reconstruct state without re-reading entities.
// ══════════════════════════════════════════════════════════════════════════════

// EventReader reads stored event envelopes in sequence order.
type EventReader interface {
	// LoadSince returns up to limit envelopes with Sequence > afterSequence,
	// ascending.
	LoadSince(ctx context.Context, afterSequence int64, limit int) ([]shared.EventEnvelope, error)
}

// GetEventsSinceQuery contains the parameters for event replay.
type GetEventsSinceQuery struct {
	// AfterSequence is the last sequence number the caller has seen.
	AfterSequence int64

	// Limit caps the number of envelopes (default 100, max 1000).
	Limit int

	// EventType filters by event type when set.
	EventType shared.EventType
}

// Validate validates the query parameters and applies defaults.
func (q *GetEventsSinceQuery) Validate() error {
	if q.AfterSequence < 0 {
		return errors.New("get_events_since: after_sequence cannot be negative")
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}
	if q.Limit > 1000 {
		q.Limit = 1000
	}
	return nil
}

// GetEventsSinceHandler handles the GetEventsSinceQuery.
type GetEventsSinceHandler struct {
	events EventReader
}

// NewGetEventsSinceHandler creates a new GetEventsSinceHandler.
func NewGetEventsSinceHandler(events EventReader) *GetEventsSinceHandler {
	return &GetEventsSinceHandler{events: events}
}

// Handle executes the replay.
func (h *GetEventsSinceHandler) Handle(ctx context.Context, q GetEventsSinceQuery) ([]shared.EventEnvelope, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	envelopes, err := h.events.LoadSince(ctx, q.AfterSequence, q.Limit)
	if err != nil {
		return nil, err
	}

	if q.EventType == "" {
		return envelopes, nil
	}

	filtered := make([]shared.EventEnvelope, 0, len(envelopes))
	for _, env := range envelopes {
		if env.Type == q.EventType {
			filtered = append(filtered, env)
		}
	}
	return filtered, nil
}
