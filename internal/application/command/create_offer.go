package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/suilotion/peerhelp-hub/internal/domain/help"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE OFFER COMMAND
// A mentor volunteers on an open request. At most one offer per mentor per
// request; the requester cannot offer on their own request.
// ══════════════════════════════════════════════════════════════════════════════

// CreateOfferCommand contains the data to make a help offer.
type CreateOfferCommand struct {
	// Caller is the authenticated mentor.
	Caller shared.Identity

	// RequestID references the target request.
	RequestID shared.EntityID

	// Message is the mentor's pitch to the requester.
	Message string

	// CompetencyLevel is the mentor's self-declared 1-5 competency.
	CompetencyLevel help.CompetencyLevel

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateOfferCommand) Validate() error {
	if !c.Caller.IsValid() {
		return errors.New("create_offer: caller is required")
	}
	if c.RequestID.IsEmpty() {
		return errors.New("create_offer: request_id is required")
	}
	if !c.CompetencyLevel.IsValid() {
		return fmt.Errorf("create_offer: invalid competency level: %d", c.CompetencyLevel)
	}
	return nil
}

// CreateOfferResult contains the result of making an offer.
type CreateOfferResult struct {
	// Offer is the created offer snapshot.
	Offer *help.HelpOffer

	// Events contains the domain events generated.
	Events []shared.Event
}

// CreateOfferHandler handles the CreateOfferCommand.
type CreateOfferHandler struct {
	ledger         *ledger.Ledger
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewCreateOfferHandler creates a new CreateOfferHandler.
func NewCreateOfferHandler(l *ledger.Ledger, pub shared.EventPublisher, log *logger.Logger) *CreateOfferHandler {
	return &CreateOfferHandler{
		ledger:         l,
		eventPublisher: pub,
		log:            log.With(logger.Component("command.create_offer")),
	}
}

// Handle executes the create offer command.
func (h *CreateOfferHandler) Handle(ctx context.Context, cmd CreateOfferCommand) (*CreateOfferResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_offer: validation failed: %w", err)
	}

	o, events, err := h.ledger.CreateOffer(cmd.RequestID, cmd.Caller, cmd.Message, cmd.CompetencyLevel)
	if err != nil {
		return nil, err
	}

	publishEvents(h.eventPublisher, events)

	h.log.Info("help offer created",
		logger.OfferID(o.ID.String()),
		logger.RequestID(cmd.RequestID.String()),
		logger.Identity(cmd.Caller.String()),
	)

	return &CreateOfferResult{Offer: o, Events: events}, nil
}
