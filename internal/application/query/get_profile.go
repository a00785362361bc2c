// Package query contains read operations (CQRS - Queries). Queries serve
// snapshots from the ledger and never mutate state.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/internal/ledger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// The "who am I" view: reputation, XP, tier progress, and badge collection
// for one identity.
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery contains the parameters for a profile lookup.
type GetProfileQuery struct {
	// Identity is the profile owner.
	Identity shared.Identity

	// IncludeBadges controls whether the badge collection is attached.
	IncludeBadges bool
}

// Validate validates the query parameters.
func (q *GetProfileQuery) Validate() error {
	if !q.Identity.IsValid() {
		return errors.New("get_profile: identity is required")
	}
	return nil
}

// ProfileDTO is the read model for a student profile.
type ProfileDTO struct {
	// Owner is the profile owner.
	Owner string `json:"owner"`

	// DisplayName is the name shown to other students.
	DisplayName string `json:"display_name"`

	// ExternalLogin is the verified 42 Intra login.
	ExternalLogin string `json:"external_login"`

	// HelpsGiven counts rewarded helps as a mentor.
	HelpsGiven int `json:"helps_given"`

	// HelpsReceived counts confirmed completions as a mentee.
	HelpsReceived int `json:"helps_received"`

	// FailedHelps counts rejected completions as a mentor.
	FailedHelps int `json:"failed_helps"`

	// TotalXP is the accumulated experience.
	TotalXP int `json:"total_xp"`

	// Tier is the current tier ordinal.
	Tier int `json:"tier"`

	// TierName is the current tier display name.
	TierName string `json:"tier_name"`

	// HelpsUntilNextTier is how many more helps reach the next tier.
	HelpsUntilNextTier int `json:"helps_until_next_tier"`

	// AvgFeedbackScore is the running feedback average.
	AvgFeedbackScore float64 `json:"avg_feedback_score"`

	// TotalRewardsEarned is the lifetime XP from reward claims.
	TotalRewardsEarned int `json:"total_rewards_earned"`

	// SuccessRatio is confirmed over terminal helps, in percent.
	SuccessRatio int `json:"success_ratio"`

	// Badges is the badge collection, oldest first.
	Badges []BadgeDTO `json:"badges,omitempty"`

	// CreatedAt is when the profile was created.
	CreatedAt time.Time `json:"created_at"`
}

// BadgeDTO is the read model for a tier badge.
type BadgeDTO struct {
	ID               string    `json:"id"`
	Tier             int       `json:"tier"`
	TierName         string    `json:"tier_name"`
	HelpsGivenAtMint int       `json:"helps_given_at_mint"`
	MintedAt         time.Time `json:"minted_at"`
}

// GetProfileHandler handles the GetProfileQuery.
type GetProfileHandler struct {
	ledger *ledger.Ledger
}

// NewGetProfileHandler creates a new GetProfileHandler.
func NewGetProfileHandler(l *ledger.Ledger) *GetProfileHandler {
	return &GetProfileHandler{ledger: l}
}

// Handle executes the profile lookup.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*ProfileDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	p, err := h.ledger.GetProfile(q.Identity)
	if err != nil {
		return nil, err
	}

	dto := &ProfileDTO{
		Owner:              p.Owner.String(),
		DisplayName:        p.DisplayName,
		ExternalLogin:      p.ExternalLogin,
		HelpsGiven:         p.HelpsGiven,
		HelpsReceived:      p.HelpsReceived,
		FailedHelps:        p.FailedHelps,
		TotalXP:            p.TotalXP.Int(),
		Tier:               int(p.Tier),
		TierName:           p.Tier.Name(),
		HelpsUntilNextTier: p.HelpsUntilNextTier(),
		AvgFeedbackScore:   p.AvgFeedbackScore,
		TotalRewardsEarned: p.TotalRewardsEarned,
		SuccessRatio:       p.SuccessRatio,
		CreatedAt:          p.CreatedAt,
	}

	if q.IncludeBadges {
		for _, b := range h.ledger.BadgesByOwner(q.Identity) {
			dto.Badges = append(dto.Badges, BadgeDTO{
				ID:               b.ID.String(),
				Tier:             int(b.Tier),
				TierName:         b.TierName,
				HelpsGivenAtMint: b.HelpsGivenAtMint,
				MintedAt:         b.MintedAt,
			})
		}
	}

	return dto, nil
}
