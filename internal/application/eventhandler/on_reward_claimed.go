package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON REWARD CLAIMED HANDLER
// Reacts to reward claims and badge mints: refreshes the hot profile cache
// so leaderboard and profile reads see the new XP and tier without hitting
// postgres.
// ═══════════════════════════════════════════════════════════════════════════

// OnRewardClaimedHandler keeps the profile cache warm after reward activity.
type OnRewardClaimedHandler struct {
	ledger *ledger.Ledger
	cache  profile.Cache
	logger *slog.Logger
	config RewardClaimedConfig
}

// RewardClaimedConfig contains handler configuration.
type RewardClaimedConfig struct {
	// CacheTTL is how long a refreshed profile stays cached.
	CacheTTL time.Duration

	// WarmOnClaim controls whether the cache is re-populated immediately
	// instead of just invalidated.
	WarmOnClaim bool
}

// DefaultRewardClaimedConfig returns the default configuration.
func DefaultRewardClaimedConfig() RewardClaimedConfig {
	return RewardClaimedConfig{
		CacheTTL:    10 * time.Minute,
		WarmOnClaim: true,
	}
}

// NewOnRewardClaimedHandler creates a new OnRewardClaimedHandler.
func NewOnRewardClaimedHandler(
	l *ledger.Ledger,
	cache profile.Cache,
	logger *slog.Logger,
	config RewardClaimedConfig,
) *OnRewardClaimedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnRewardClaimedHandler{
		ledger: l,
		cache:  cache,
		logger: logger.With("handler", "on_reward_claimed"),
		config: config,
	}
}

// Handle implements shared.EventHandler.
func (h *OnRewardClaimedHandler) Handle(event shared.Event) error {
	ctx := context.Background()

	var owner shared.Identity

	switch e := event.(type) {
	case shared.RewardClaimedEvent:
		owner = e.Mentor
		h.logger.Info("reward claimed",
			"mentor", e.Mentor.String(),
			"xp_awarded", e.XPAwarded,
			"new_total_xp", e.NewTotalXP,
			"helps_given", e.HelpsGiven,
		)
	case shared.BadgeMintedEvent:
		owner = e.Owner
		h.logger.Info("tier badge minted",
			"owner", e.Owner.String(),
			"tier", e.TierName,
			"helps_given", e.HelpsGiven,
		)
	default:
		return nil
	}

	if h.cache == nil {
		return nil
	}

	if err := h.cache.Invalidate(ctx, owner); err != nil {
		h.logger.Warn("failed to invalidate profile cache", "owner", owner.String(), "error", err)
	}

	if !h.config.WarmOnClaim {
		return nil
	}

	p, err := h.ledger.GetProfile(owner)
	if err != nil {
		return nil
	}

	if err := h.cache.Set(ctx, p, h.config.CacheTTL); err != nil {
		h.logger.Warn("failed to warm profile cache", "owner", owner.String(), "error", err)
	}

	return nil
}
