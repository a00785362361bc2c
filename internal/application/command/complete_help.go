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
// COMPLETE HELP COMMAND
// The mentee delivers the terminal verdict on an active match: confirmed
// (mentor becomes reward-eligible) or rejected (no reward, ever). The verdict
// is irreversible; reward computation is decoupled behind the reward.pending
// signal so a deferred claim never blocks completion.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteHelpCommand contains the mentee's verdict on a match.
type CompleteHelpCommand struct {
	// Caller is the authenticated mentee.
	Caller shared.Identity

	// MatchID references the active match.
	MatchID shared.EntityID

	// Confirmed is true to confirm the help, false to reject it.
	Confirmed bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CompleteHelpCommand) Validate() error {
	if !c.Caller.IsValid() {
		return errors.New("complete_help: caller is required")
	}
	if c.MatchID.IsEmpty() {
		return errors.New("complete_help: match_id is required")
	}
	return nil
}

// CompleteHelpResult contains the result of the verdict.
type CompleteHelpResult struct {
	// Match is the completed match snapshot.
	Match *match.MatchRecord

	// Events contains the domain events generated.
	Events []shared.Event
}

// CompleteHelpHandler handles the CompleteHelpCommand.
type CompleteHelpHandler struct {
	ledger         *ledger.Ledger
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewCompleteHelpHandler creates a new CompleteHelpHandler.
func NewCompleteHelpHandler(l *ledger.Ledger, pub shared.EventPublisher, log *logger.Logger) *CompleteHelpHandler {
	return &CompleteHelpHandler{
		ledger:         l,
		eventPublisher: pub,
		log:            log.With(logger.Component("command.complete_help")),
	}
}

// Handle executes the complete help command.
func (h *CompleteHelpHandler) Handle(ctx context.Context, cmd CompleteHelpCommand) (*CompleteHelpResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_help: validation failed: %w", err)
	}

	var (
		m      *match.MatchRecord
		events []shared.Event
		err    error
	)
	if cmd.Confirmed {
		m, events, err = h.ledger.MenteeConfirmCompletion(cmd.MatchID, cmd.Caller)
	} else {
		m, events, err = h.ledger.MenteeRejectCompletion(cmd.MatchID, cmd.Caller)
	}
	if err != nil {
		return nil, err
	}

	publishEvents(h.eventPublisher, events)

	h.log.Info("help completed",
		logger.MatchID(m.ID.String()),
		logger.Identity(cmd.Caller.String()),
		logger.Bool("confirmed", cmd.Confirmed),
	)

	return &CompleteHelpResult{Match: m, Events: events}, nil
}
