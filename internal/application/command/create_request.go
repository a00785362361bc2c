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
// CREATE REQUEST COMMAND
// Posts a new open help request. The caller must hold a profile; the initial
// difficulty seeds the community average.
// ══════════════════════════════════════════════════════════════════════════════

// CreateRequestCommand contains the data to post a help request.
type CreateRequestCommand struct {
	// Caller is the authenticated identity posting the request.
	Caller shared.Identity

	// Topic is the curriculum tag.
	Topic help.Topic

	// Title is a short summary of the problem.
	Title string

	// Description explains where the student is stuck.
	Description string

	// InitialDifficulty is the requester's 1-5 estimate.
	InitialDifficulty help.Difficulty

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CreateRequestCommand) Validate() error {
	if !c.Caller.IsValid() {
		return errors.New("create_request: caller is required")
	}
	if !c.Topic.IsValid() {
		return fmt.Errorf("create_request: invalid topic: %d", c.Topic)
	}
	if c.Title == "" {
		return errors.New("create_request: title is required")
	}
	if c.Description == "" {
		return errors.New("create_request: description is required")
	}
	if !c.InitialDifficulty.IsValid() {
		return fmt.Errorf("create_request: invalid difficulty: %d", c.InitialDifficulty)
	}
	return nil
}

// CreateRequestResult contains the result of posting a request.
type CreateRequestResult struct {
	// Request is the created request snapshot.
	Request *help.HelpRequest

	// Events contains the domain events generated.
	Events []shared.Event
}

// CreateRequestHandler handles the CreateRequestCommand.
type CreateRequestHandler struct {
	ledger         *ledger.Ledger
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewCreateRequestHandler creates a new CreateRequestHandler.
func NewCreateRequestHandler(l *ledger.Ledger, pub shared.EventPublisher, log *logger.Logger) *CreateRequestHandler {
	return &CreateRequestHandler{
		ledger:         l,
		eventPublisher: pub,
		log:            log.With(logger.Component("command.create_request")),
	}
}

// Handle executes the create request command.
func (h *CreateRequestHandler) Handle(ctx context.Context, cmd CreateRequestCommand) (*CreateRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_request: validation failed: %w", err)
	}

	r, events, err := h.ledger.CreateRequest(cmd.Caller, cmd.Topic, cmd.Title, cmd.Description, cmd.InitialDifficulty)
	if err != nil {
		return nil, err
	}

	publishEvents(h.eventPublisher, events)

	h.log.Info("help request created",
		logger.RequestID(r.ID.String()),
		logger.Identity(cmd.Caller.String()),
		logger.TopicName(cmd.Topic.Name()),
	)

	return &CreateRequestResult{Request: r, Events: events}, nil
}
