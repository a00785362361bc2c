// Package eventhandler contains domain event subscribers. They form the
// reactive side of the system: the ledger commits state and emits events,
// and these handlers fan the changes out into durable projections and caches.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/match"
	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
)

// ═══════════════════════════════════════════════════════════════════════════
// PROJECTION HANDLER
// Subscribed to all events. Appends each event to the durable log, then
// re-reads the touched entities from the ledger and upserts them into the
// postgres projections. Projections are eventually consistent; the ledger
// answers all strongly consistent reads.
// ═══════════════════════════════════════════════════════════════════════════

// EventAppender appends events to the durable event log.
type EventAppender interface {
	Append(ctx context.Context, event shared.Event) (int64, error)
}

// ProjectionHandler keeps the postgres projections in sync with the ledger.
type ProjectionHandler struct {
	ledger      *ledger.Ledger
	events      EventAppender
	profileRepo profile.Repository
	badgeRepo   profile.BadgeRepository
	requestRepo help.RequestRepository
	offerRepo   help.OfferRepository
	matchRepo   match.Repository
	logger      *slog.Logger
}

// NewProjectionHandler creates a new ProjectionHandler.
func NewProjectionHandler(
	l *ledger.Ledger,
	events EventAppender,
	profileRepo profile.Repository,
	badgeRepo profile.BadgeRepository,
	requestRepo help.RequestRepository,
	offerRepo help.OfferRepository,
	matchRepo match.Repository,
	logger *slog.Logger,
) *ProjectionHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &ProjectionHandler{
		ledger:      l,
		events:      events,
		profileRepo: profileRepo,
		badgeRepo:   badgeRepo,
		requestRepo: requestRepo,
		offerRepo:   offerRepo,
		matchRepo:   matchRepo,
		logger:      logger.With("handler", "projector"),
	}
}

// Handle implements shared.EventHandler. Append failures are returned so the
// bus records them; projection failures are logged and skipped because the
// next event for the same entity re-upserts the full row.
func (h *ProjectionHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	if h.events != nil {
		if _, err := h.events.Append(ctx, event); err != nil {
			h.logger.Error("failed to append event",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err,
			)
			return err
		}
	}

	switch e := event.(type) {
	case shared.ProfileCreatedEvent:
		h.projectProfile(ctx, e.Owner)

	case shared.RequestCreatedEvent:
		h.projectRequest(ctx, e.RequestID)

	case shared.DifficultyVotedEvent:
		h.projectRequest(ctx, e.RequestID)

	case shared.OfferCreatedEvent:
		h.projectOffer(ctx, e.OfferID)
		h.projectRequest(ctx, e.RequestID)

	case shared.MatchCreatedEvent:
		h.projectMatch(ctx, e.MatchID)
		h.projectRequest(ctx, e.RequestID)
		h.projectOffer(ctx, e.AcceptedOffer)
		for _, offerID := range e.RejectedOffers {
			h.projectOffer(ctx, offerID)
		}

	case shared.HelpCompletedEvent:
		h.projectMatch(ctx, e.MatchID)
		h.projectRequest(ctx, e.RequestID)
		h.projectProfile(ctx, e.Mentor)
		h.projectProfile(ctx, e.Mentee)

	case shared.RewardClaimedEvent:
		h.projectRequest(ctx, e.RequestID)
		h.projectProfile(ctx, e.Mentor)

	case shared.BadgeMintedEvent:
		h.projectBadges(ctx, e.Owner)
		h.projectProfile(ctx, e.Owner)
	}

	return nil
}

// projectProfile upserts one profile row. Missing profiles are skipped; an
// offer can reference a mentor who never created one.
func (h *ProjectionHandler) projectProfile(ctx context.Context, owner shared.Identity) {
	p, err := h.ledger.GetProfile(owner)
	if err != nil {
		return
	}

	if err := h.profileRepo.Save(ctx, p); err != nil {
		h.logger.Error("failed to project profile", "owner", owner.String(), "error", err)
	}
}

func (h *ProjectionHandler) projectBadges(ctx context.Context, owner shared.Identity) {
	for _, b := range h.ledger.BadgesByOwner(owner) {
		if err := h.badgeRepo.Save(ctx, b); err != nil {
			h.logger.Error("failed to project badge", "badge_id", b.ID.String(), "error", err)
		}
	}
}

func (h *ProjectionHandler) projectRequest(ctx context.Context, id shared.EntityID) {
	r, err := h.ledger.GetRequest(id)
	if err != nil {
		return
	}

	if err := h.requestRepo.Save(ctx, r); err != nil {
		h.logger.Error("failed to project request", "request_id", id.String(), "error", err)
	}
}

func (h *ProjectionHandler) projectOffer(ctx context.Context, id shared.EntityID) {
	o, err := h.ledger.GetOffer(id)
	if err != nil {
		return
	}

	if err := h.offerRepo.Save(ctx, o); err != nil {
		h.logger.Error("failed to project offer", "offer_id", id.String(), "error", err)
	}
}

func (h *ProjectionHandler) projectMatch(ctx context.Context, id shared.EntityID) {
	m, err := h.ledger.GetMatch(id)
	if err != nil {
		return
	}

	if err := h.matchRepo.Save(ctx, m); err != nil {
		h.logger.Error("failed to project match", "match_id", id.String(), "error", err)
	}
}
