package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/suilotion/peerhelp-hub/internal/domain/match"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCEPT OFFER COMMAND
// The requester picks one offer. The ledger accepts it, batch-rejects every
// other pending offer, creates the match, and advances the request in one
// atomic transition.
// ══════════════════════════════════════════════════════════════════════════════

// AcceptOfferCommand contains the data to accept a help offer.
type AcceptOfferCommand struct {
	// Caller is the authenticated requester.
	Caller shared.Identity

	// RequestID references the request being matched.
	RequestID shared.EntityID

	// OfferID references the chosen offer.
	OfferID shared.EntityID

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c AcceptOfferCommand) Validate() error {
	if !c.Caller.IsValid() {
		return errors.New("accept_offer: caller is required")
	}
	if c.RequestID.IsEmpty() {
		return errors.New("accept_offer: request_id is required")
	}
	if c.OfferID.IsEmpty() {
		return errors.New("accept_offer: offer_id is required")
	}
	return nil
}

// AcceptOfferResult contains the result of accepting an offer.
type AcceptOfferResult struct {
	// Match is the created match snapshot.
	Match *match.MatchRecord

	// Events contains the domain events generated.
	Events []shared.Event
}

// AcceptOfferHandler handles the AcceptOfferCommand.
type AcceptOfferHandler struct {
	ledger         *ledger.Ledger
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewAcceptOfferHandler creates a new AcceptOfferHandler.
func NewAcceptOfferHandler(l *ledger.Ledger, pub shared.EventPublisher, log *logger.Logger) *AcceptOfferHandler {
	return &AcceptOfferHandler{
		ledger:         l,
		eventPublisher: pub,
		log:            log.With(logger.Component("command.accept_offer")),
	}
}

// Handle executes the accept offer command.
func (h *AcceptOfferHandler) Handle(ctx context.Context, cmd AcceptOfferCommand) (*AcceptOfferResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("accept_offer: validation failed: %w", err)
	}

	m, events, err := h.ledger.AcceptOffer(cmd.RequestID, cmd.OfferID, cmd.Caller)
	if err != nil {
		return nil, err
	}

	publishEvents(h.eventPublisher, events)

	h.log.Info("offer accepted, match created",
		logger.MatchID(m.ID.String()),
		logger.RequestID(cmd.RequestID.String()),
		logger.OfferID(cmd.OfferID.String()),
		logger.String("mentor", m.Mentor.String()),
	)

	return &AcceptOfferResult{Match: m, Events: events}, nil
}
