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
// VOTE DIFFICULTY COMMAND
// Folds one community vote into the request's running difficulty average.
// One vote per identity per request; the requester cannot vote.
// ══════════════════════════════════════════════════════════════════════════════

// VoteDifficultyCommand contains the data to cast a difficulty vote.
type VoteDifficultyCommand struct {
	// Caller is the authenticated voter.
	Caller shared.Identity

	// RequestID references the request voted on.
	RequestID shared.EntityID

	// Vote is the 1-5 difficulty estimate.
	Vote help.Difficulty

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c VoteDifficultyCommand) Validate() error {
	if !c.Caller.IsValid() {
		return errors.New("vote_difficulty: caller is required")
	}
	if c.RequestID.IsEmpty() {
		return errors.New("vote_difficulty: request_id is required")
	}
	if !c.Vote.IsValid() {
		return fmt.Errorf("vote_difficulty: invalid vote: %d", c.Vote)
	}
	return nil
}

// VoteDifficultyResult contains the result of a vote.
type VoteDifficultyResult struct {
	// Request is the request snapshot after the vote.
	Request *help.HelpRequest

	// NewDifficulty is the recomputed community difficulty.
	NewDifficulty help.Difficulty

	// Events contains the domain events generated.
	Events []shared.Event
}

// VoteDifficultyHandler handles the VoteDifficultyCommand.
type VoteDifficultyHandler struct {
	ledger         *ledger.Ledger
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewVoteDifficultyHandler creates a new VoteDifficultyHandler.
func NewVoteDifficultyHandler(l *ledger.Ledger, pub shared.EventPublisher, log *logger.Logger) *VoteDifficultyHandler {
	return &VoteDifficultyHandler{
		ledger:         l,
		eventPublisher: pub,
		log:            log.With(logger.Component("command.vote_difficulty")),
	}
}

// Handle executes the vote difficulty command.
func (h *VoteDifficultyHandler) Handle(ctx context.Context, cmd VoteDifficultyCommand) (*VoteDifficultyResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("vote_difficulty: validation failed: %w", err)
	}

	r, events, err := h.ledger.VoteDifficulty(cmd.RequestID, cmd.Caller, cmd.Vote)
	if err != nil {
		return nil, err
	}

	publishEvents(h.eventPublisher, events)

	h.log.Debug("difficulty vote recorded",
		logger.RequestID(r.ID.String()),
		logger.Identity(cmd.Caller.String()),
		logger.Int("vote", cmd.Vote.Int()),
		logger.Int("new_difficulty", r.CommunityDifficulty.Int()),
	)

	return &VoteDifficultyResult{
		Request:       r,
		NewDifficulty: r.CommunityDifficulty,
		Events:        events,
	}, nil
}
