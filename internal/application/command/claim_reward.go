package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
	"github.com/suilotion/peerhelp-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLAIM REWARD COMMAND
// The mentor converts a confirmed completion into XP. Pays exactly once per
// request; retries after a transient failure are safe because the ledger's
// reward_claimed flag gates the payout.
// ══════════════════════════════════════════════════════════════════════════════

// ClaimRewardCommand contains the data to claim a mentor reward.
type ClaimRewardCommand struct {
	// Caller is the authenticated mentor.
	Caller shared.Identity

	// RequestID references the completed, confirmed request.
	RequestID shared.EntityID

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c ClaimRewardCommand) Validate() error {
	if !c.Caller.IsValid() {
		return errors.New("claim_reward: caller is required")
	}
	if c.RequestID.IsEmpty() {
		return errors.New("claim_reward: request_id is required")
	}
	return nil
}

// ClaimRewardResult contains the result of a reward claim.
type ClaimRewardResult struct {
	// Outcome describes the XP award and any tier promotion.
	Outcome *profile.RewardOutcome

	// Events contains the domain events generated.
	Events []shared.Event
}

// ClaimRewardHandler handles the ClaimRewardCommand.
type ClaimRewardHandler struct {
	ledger         *ledger.Ledger
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewClaimRewardHandler creates a new ClaimRewardHandler.
func NewClaimRewardHandler(l *ledger.Ledger, pub shared.EventPublisher, log *logger.Logger) *ClaimRewardHandler {
	return &ClaimRewardHandler{
		ledger:         l,
		eventPublisher: pub,
		log:            log.With(logger.Component("command.claim_reward")),
	}
}

// Handle executes the claim reward command.
func (h *ClaimRewardHandler) Handle(ctx context.Context, cmd ClaimRewardCommand) (*ClaimRewardResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("claim_reward: validation failed: %w", err)
	}

	outcome, events, err := h.ledger.MentorClaimReward(cmd.RequestID, cmd.Caller)
	if err != nil {
		return nil, err
	}

	publishEvents(h.eventPublisher, events)

	h.log.Info("reward claimed",
		logger.RequestID(cmd.RequestID.String()),
		logger.Identity(cmd.Caller.String()),
		logger.XPAmount(outcome.XPAwarded.Int()),
		logger.Bool("promoted", outcome.Promoted),
	)
	if outcome.Promoted {
		h.log.Info("tier promoted",
			logger.Identity(cmd.Caller.String()),
			logger.TierName(outcome.NewTier.Name()),
		)
	}

	return &ClaimRewardResult{Outcome: outcome, Events: events}, nil
}
