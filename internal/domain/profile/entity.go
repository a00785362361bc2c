// Package profile contains the student profile domain model: the per-identity
// reputation record that accrues XP, tier promotions, and tier badges as a
// student gives and receives help. This is core business logic with no
// external dependencies beyond the shared domain package.
package profile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// XP represents accumulated experience points.
type XP int

// IsValid checks that XP is non-negative.
func (x XP) IsValid() bool {
	return x >= 0
}

// Add returns the sum of two XP values.
func (x XP) Add(delta XP) XP {
	return x + delta
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Tier represents a mentor reputation rank, derived purely from cumulative
// helps_given against fixed thresholds.
type Tier int

const (
	// TierNewcomer is the starting tier (0 helps given).
	TierNewcomer Tier = 0
	// TierBronze is reached at 5 helps given.
	TierBronze Tier = 1
	// TierSilver is reached at 15 helps given.
	TierSilver Tier = 2
	// TierGold is reached at 40 helps given.
	TierGold Tier = 3
	// TierDiamond is reached at 100 helps given.
	TierDiamond Tier = 4
)

// tierThresholds maps each tier to the helps_given count required to hold it.
var tierThresholds = [...]int{
	TierNewcomer: 0,
	TierBronze:   5,
	TierSilver:   15,
	TierGold:     40,
	TierDiamond:  100,
}

// IsValid checks that the tier ordinal is in range.
func (t Tier) IsValid() bool {
	return t >= TierNewcomer && t <= TierDiamond
}

// Name returns the display name of the tier.
func (t Tier) Name() string {
	switch t {
	case TierBronze:
		return "Bronze"
	case TierSilver:
		return "Silver"
	case TierGold:
		return "Gold"
	case TierDiamond:
		return "Diamond"
	default:
		return "Newcomer"
	}
}

// Threshold returns the helps_given count required to hold this tier.
func (t Tier) Threshold() int {
	if !t.IsValid() {
		return 0
	}
	return tierThresholds[t]
}

// Next returns the next tier and true, or the same tier and false when the
// tier is already the highest.
func (t Tier) Next() (Tier, bool) {
	if t >= TierDiamond {
		return TierDiamond, false
	}
	return t + 1, true
}

// TierForHelps computes the tier a mentor holds after the given number of
// helps. Pure function of helps_given; the only source of tier values.
func TierForHelps(helpsGiven int) Tier {
	tier := TierNewcomer
	for t := TierDiamond; t > TierNewcomer; t-- {
		if helpsGiven >= tierThresholds[t] {
			tier = t
			break
		}
	}
	return tier
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidDisplayName - display name must be 1-100 chars.
	ErrInvalidDisplayName = errors.New("invalid display name: must be 1-100 chars")

	// ErrInvalidExternalLogin - external login must be 2-50 chars without whitespace.
	ErrInvalidExternalLogin = errors.New("invalid external login: must be 2-50 chars without whitespace")

	// ErrInvalidXPAward - XP awards must be positive.
	ErrInvalidXPAward = errors.New("invalid xp award: must be positive")

	// ErrTierAlreadyHeld - badge for this tier was already minted.
	ErrTierAlreadyHeld = errors.New("tier badge already held")
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: STUDENT PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// StudentProfile is the per-identity reputation record. At most one profile
// exists per identity; it is owned exclusively by the creating identity and
// mutated only by profile creation and the reward engine.
type StudentProfile struct {
	// Owner is the identity this profile belongs to.
	Owner shared.Identity

	// DisplayName is the name shown to other students.
	DisplayName string

	// ExternalLogin is the verified identity-provider handle (42 Intra login).
	ExternalLogin string

	// HelpsGiven counts confirmed, rewarded helps as a mentor.
	HelpsGiven int

	// HelpsReceived counts confirmed completions as a mentee.
	HelpsReceived int

	// FailedHelps counts matches where the mentee rejected completion.
	FailedHelps int

	// TotalXP is the accumulated experience, never negative.
	TotalXP XP

	// Tier is the current reputation rank, derived from HelpsGiven.
	Tier Tier

	// AvgFeedbackScore is the average feedback rating (0.0 - 5.0).
	AvgFeedbackScore float64

	// FeedbackCount is the number of feedback ratings received.
	FeedbackCount int

	// TotalRewardsEarned is the lifetime XP earned through reward claims.
	TotalRewardsEarned int

	// SuccessRatio is confirmed helps over terminal helps, in percent (0-100).
	SuccessRatio int

	// CreatedAt is when the profile was created.
	CreatedAt time.Time

	// UpdatedAt is when the profile was last mutated.
	UpdatedAt time.Time
}

// NewProfileParams contains parameters for creating a new profile.
type NewProfileParams struct {
	Owner         shared.Identity
	DisplayName   string
	ExternalLogin string
	CreatedAt     time.Time
}

// NewStudentProfile creates a new profile with validation of all fields.
func NewStudentProfile(params NewProfileParams) (*StudentProfile, error) {
	if !params.Owner.IsValid() {
		return nil, shared.ErrInvalidID
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if len(displayName) == 0 || len(displayName) > 100 {
		return nil, ErrInvalidDisplayName
	}

	login := strings.TrimSpace(params.ExternalLogin)
	if len(login) < 2 || len(login) > 50 || strings.ContainsAny(login, " \t\n\r") {
		return nil, ErrInvalidExternalLogin
	}

	return &StudentProfile{
		Owner:         params.Owner,
		DisplayName:   displayName,
		ExternalLogin: login,
		Tier:          TierNewcomer,
		CreatedAt:     params.CreatedAt,
		UpdatedAt:     params.CreatedAt,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS (Business Logic)
// ══════════════════════════════════════════════════════════════════════════════

// RewardOutcome describes the effect of granting a reward to a mentor.
type RewardOutcome struct {
	// XPAwarded is the XP granted by this reward.
	XPAwarded XP

	// NewTotalXP is the profile's XP after the award.
	NewTotalXP XP

	// HelpsGiven is the profile's helps_given after the award.
	HelpsGiven int

	// Promoted reports whether the award crossed a tier threshold.
	Promoted bool

	// NewTier is the tier held after the award.
	NewTier Tier
}

// GrantReward applies a reward claim: adds XP, increments helps_given and
// total_rewards_earned, and promotes the tier when a threshold is crossed.
// The tier never regresses.
func (p *StudentProfile) GrantReward(xp XP, at time.Time) (RewardOutcome, error) {
	if xp <= 0 {
		return RewardOutcome{}, ErrInvalidXPAward
	}

	p.TotalXP = p.TotalXP.Add(xp)
	p.HelpsGiven++
	p.TotalRewardsEarned += xp.Int()
	p.recomputeSuccessRatio()
	p.UpdatedAt = at

	outcome := RewardOutcome{
		XPAwarded:  xp,
		NewTotalXP: p.TotalXP,
		HelpsGiven: p.HelpsGiven,
		NewTier:    p.Tier,
	}

	if newTier := TierForHelps(p.HelpsGiven); newTier > p.Tier {
		p.Tier = newTier
		outcome.Promoted = true
		outcome.NewTier = newTier
	}

	return outcome, nil
}

// RecordHelpReceived increments the count of confirmed completions received.
func (p *StudentProfile) RecordHelpReceived(at time.Time) {
	p.HelpsReceived++
	p.UpdatedAt = at
}

// RecordFailedHelp registers a rejected completion against the mentor.
// It grants no reward and never touches XP or tier.
func (p *StudentProfile) RecordFailedHelp(at time.Time) {
	p.FailedHelps++
	p.recomputeSuccessRatio()
	p.UpdatedAt = at
}

// RecordFeedback folds a 1-5 feedback rating into the running average.
func (p *StudentProfile) RecordFeedback(score float64, at time.Time) error {
	if score < 1.0 || score > 5.0 {
		return shared.ErrValueOutOfRange
	}

	total := p.AvgFeedbackScore * float64(p.FeedbackCount)
	p.FeedbackCount++
	p.AvgFeedbackScore = (total + score) / float64(p.FeedbackCount)
	p.UpdatedAt = at
	return nil
}

// recomputeSuccessRatio derives the percent of terminal helps that were
// confirmed. 100 when nothing terminal has happened yet.
func (p *StudentProfile) recomputeSuccessRatio() {
	terminal := p.HelpsGiven + p.FailedHelps
	if terminal == 0 {
		p.SuccessRatio = 100
		return
	}
	p.SuccessRatio = p.HelpsGiven * 100 / terminal
}

// HelpsUntilNextTier returns how many more helps are needed for the next
// tier, or 0 when the highest tier is held.
func (p *StudentProfile) HelpsUntilNextTier() int {
	next, ok := p.Tier.Next()
	if !ok {
		return 0
	}
	remaining := next.Threshold() - p.HelpsGiven
	if remaining < 0 {
		return 0
	}
	return remaining
}

// String returns a string representation for logging.
func (p *StudentProfile) String() string {
	return fmt.Sprintf(
		"StudentProfile{Owner: %s, Login: %s, XP: %d, Tier: %s, Given: %d, Received: %d}",
		p.Owner, p.ExternalLogin, p.TotalXP, p.Tier.Name(), p.HelpsGiven, p.HelpsReceived,
	)
}

// Clone creates a deep copy of the profile.
func (p *StudentProfile) Clone() *StudentProfile {
	if p == nil {
		return nil
	}

	clone := *p
	return &clone
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY: TIER BADGE
// Minted once per threshold crossing; immutable afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// TierBadge is the artifact minted to a mentor's identity when helps_given
// crosses a tier threshold. Once minted it never changes; the per-identity
// badge collection is append-only.
type TierBadge struct {
	// ID is the unique badge identifier (UUID).
	ID shared.EntityID

	// Owner is the identity the badge was minted to.
	Owner shared.Identity

	// Tier is the tier this badge certifies.
	Tier Tier

	// TierName is the display name frozen at mint time.
	TierName string

	// HelpsGivenAtMint is the helps_given count when the threshold was crossed.
	HelpsGivenAtMint int

	// MintedAt is when the badge was minted.
	MintedAt time.Time
}

// MintBadgeParams contains parameters for minting a tier badge.
type MintBadgeParams struct {
	ID               shared.EntityID
	Owner            shared.Identity
	Tier             Tier
	HelpsGivenAtMint int
	MintedAt         time.Time
}

// MintTierBadge mints a badge for a newly reached tier.
func MintTierBadge(params MintBadgeParams) (*TierBadge, error) {
	if params.ID.IsEmpty() {
		return nil, errors.New("badge id is required")
	}
	if !params.Owner.IsValid() {
		return nil, shared.ErrInvalidID
	}
	if !params.Tier.IsValid() || params.Tier == TierNewcomer {
		return nil, shared.ErrValueOutOfRange
	}

	return &TierBadge{
		ID:               params.ID,
		Owner:            params.Owner,
		Tier:             params.Tier,
		TierName:         params.Tier.Name(),
		HelpsGivenAtMint: params.HelpsGivenAtMint,
		MintedAt:         params.MintedAt,
	}, nil
}

// String returns a string representation for logging.
func (b *TierBadge) String() string {
	return fmt.Sprintf("TierBadge{ID: %s, Owner: %s, Tier: %s}", b.ID, b.Owner, b.TierName)
}

// Clone creates a copy of the badge.
func (b *TierBadge) Clone() *TierBadge {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}
