package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/suilotion/peerhelp-hub/internal/domain/profile"
	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProfileRepository implements profile.Repository for PostgreSQL.
type ProfileRepository struct {
	conn *Connection
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(conn *Connection) *ProfileRepository {
	return &ProfileRepository{conn: conn}
}

// Save creates or updates a profile projection.
func (r *ProfileRepository) Save(ctx context.Context, p *profile.StudentProfile) error {
	query := `
		INSERT INTO profiles (
			owner, display_name, external_login, helps_given, helps_received,
			failed_helps, total_xp, tier, avg_feedback_score, feedback_count,
			total_rewards_earned, success_ratio, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT(owner) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			helps_given = EXCLUDED.helps_given,
			helps_received = EXCLUDED.helps_received,
			failed_helps = EXCLUDED.failed_helps,
			total_xp = EXCLUDED.total_xp,
			tier = EXCLUDED.tier,
			avg_feedback_score = EXCLUDED.avg_feedback_score,
			feedback_count = EXCLUDED.feedback_count,
			total_rewards_earned = EXCLUDED.total_rewards_earned,
			success_ratio = EXCLUDED.success_ratio,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.conn.Exec(ctx, query,
		p.Owner.String(),
		p.DisplayName,
		p.ExternalLogin,
		p.HelpsGiven,
		p.HelpsReceived,
		p.FailedHelps,
		p.TotalXP.Int(),
		int(p.Tier),
		p.AvgFeedbackScore,
		p.FeedbackCount,
		p.TotalRewardsEarned,
		p.SuccessRatio,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// GetByOwner returns the profile owned by the identity.
func (r *ProfileRepository) GetByOwner(ctx context.Context, owner shared.Identity) (*profile.StudentProfile, error) {
	query := profileSelectColumns + ` WHERE owner = $1`

	row := r.conn.QueryRow(ctx, query, owner.String())
	return r.scanProfile(row)
}

// GetAll returns all profiles with pagination.
func (r *ProfileRepository) GetAll(ctx context.Context, opts profile.ListOptions) ([]*profile.StudentProfile, error) {
	query := profileSelectColumns + r.buildOrderBy(opts) + " LIMIT $1 OFFSET $2"

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	return r.scanProfiles(rows)
}

// GetTopByXP returns the top profiles ordered by total XP.
func (r *ProfileRepository) GetTopByXP(ctx context.Context, limit int) ([]*profile.StudentProfile, error) {
	query := profileSelectColumns + ` ORDER BY total_xp DESC LIMIT $1`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top profiles: %w", err)
	}
	defer rows.Close()

	return r.scanProfiles(rows)
}

// GetByTier returns profiles holding the given tier.
func (r *ProfileRepository) GetByTier(ctx context.Context, tier profile.Tier, opts profile.ListOptions) ([]*profile.StudentProfile, error) {
	query := profileSelectColumns + ` WHERE tier = $3` + r.buildOrderBy(opts) + " LIMIT $1 OFFSET $2"

	rows, err := r.conn.Query(ctx, query, opts.Limit, opts.Offset, int(tier))
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles by tier: %w", err)
	}
	defer rows.Close()

	return r.scanProfiles(rows)
}

// Count returns the total number of profiles.
func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx, "SELECT COUNT(*) FROM profiles").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return count, nil
}

// Exists checks whether the identity already owns a profile.
func (r *ProfileRepository) Exists(ctx context.Context, owner shared.Identity) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM profiles WHERE owner = $1)",
		owner.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check profile existence: %w", err)
	}
	return exists, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

const profileSelectColumns = `
	SELECT owner, display_name, external_login, helps_given, helps_received,
		   failed_helps, total_xp, tier, avg_feedback_score, feedback_count,
		   total_rewards_earned, success_ratio, created_at, updated_at
	FROM profiles
`

// scanProfile scans a single profile from a row.
func (r *ProfileRepository) scanProfile(row pgx.Row) (*profile.StudentProfile, error) {
	var p profile.StudentProfile
	var owner string
	var totalXP, tier int

	err := row.Scan(
		&owner,
		&p.DisplayName,
		&p.ExternalLogin,
		&p.HelpsGiven,
		&p.HelpsReceived,
		&p.FailedHelps,
		&totalXP,
		&tier,
		&p.AvgFeedbackScore,
		&p.FeedbackCount,
		&p.TotalRewardsEarned,
		&p.SuccessRatio,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	if IsNoRows(err) {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.Owner = shared.Identity(owner)
	p.TotalXP = profile.XP(totalXP)
	p.Tier = profile.Tier(tier)

	return &p, nil
}

// scanProfiles scans multiple profiles from rows.
func (r *ProfileRepository) scanProfiles(rows pgx.Rows) ([]*profile.StudentProfile, error) {
	var profiles []*profile.StudentProfile

	for rows.Next() {
		var p profile.StudentProfile
		var owner string
		var totalXP, tier int

		err := rows.Scan(
			&owner,
			&p.DisplayName,
			&p.ExternalLogin,
			&p.HelpsGiven,
			&p.HelpsReceived,
			&p.FailedHelps,
			&totalXP,
			&tier,
			&p.AvgFeedbackScore,
			&p.FeedbackCount,
			&p.TotalRewardsEarned,
			&p.SuccessRatio,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}

		p.Owner = shared.Identity(owner)
		p.TotalXP = profile.XP(totalXP)
		p.Tier = profile.Tier(tier)

		profiles = append(profiles, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return profiles, nil
}

// buildOrderBy builds ORDER BY clause.
func (r *ProfileRepository) buildOrderBy(opts profile.ListOptions) string {
	orderField := "total_xp"
	validFields := map[string]string{
		"total_xp":       "total_xp",
		"xp":             "total_xp",
		"helps_given":    "helps_given",
		"display_name":   "display_name",
		"success_ratio":  "success_ratio",
		"feedback_score": "avg_feedback_score",
		"created_at":     "created_at",
	}

	if field, ok := validFields[opts.SortBy]; ok {
		orderField = field
	}

	direction := "DESC"
	if !opts.SortDesc {
		direction = "ASC"
	}

	return fmt.Sprintf(" ORDER BY %s %s", orderField, direction)
}

// ══════════════════════════════════════════════════════════════════════════════
// BADGE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// BadgeRepository implements profile.BadgeRepository for PostgreSQL.
type BadgeRepository struct {
	conn *Connection
}

// NewBadgeRepository creates a new BadgeRepository.
func NewBadgeRepository(conn *Connection) *BadgeRepository {
	return &BadgeRepository{conn: conn}
}

// Save persists a minted badge. Minting the same tier twice is a no-op.
func (r *BadgeRepository) Save(ctx context.Context, b *profile.TierBadge) error {
	query := `
		INSERT INTO tier_badges (id, owner, tier, tier_name, helps_given_at_mint, minted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT(owner, tier) DO NOTHING
	`

	_, err := r.conn.Exec(ctx, query,
		b.ID.String(),
		b.Owner.String(),
		int(b.Tier),
		b.TierName,
		b.HelpsGivenAtMint,
		b.MintedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save badge: %w", err)
	}

	return nil
}

// GetByOwner returns all badges held by the identity, oldest first.
func (r *BadgeRepository) GetByOwner(ctx context.Context, owner shared.Identity) ([]*profile.TierBadge, error) {
	query := `
		SELECT id, owner, tier, tier_name, helps_given_at_mint, minted_at
		FROM tier_badges
		WHERE owner = $1
		ORDER BY minted_at ASC
	`

	rows, err := r.conn.Query(ctx, query, owner.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	var badges []*profile.TierBadge
	for rows.Next() {
		var b profile.TierBadge
		var id, ownerStr string
		var tier int

		err := rows.Scan(&id, &ownerStr, &tier, &b.TierName, &b.HelpsGivenAtMint, &b.MintedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}

		b.ID = shared.EntityID(id)
		b.Owner = shared.Identity(ownerStr)
		b.Tier = profile.Tier(tier)

		badges = append(badges, &b)
	}

	return badges, rows.Err()
}

// CountByTier returns how many badges of each tier were minted.
func (r *BadgeRepository) CountByTier(ctx context.Context) (map[profile.Tier]int, error) {
	rows, err := r.conn.Query(ctx, "SELECT tier, COUNT(*) FROM tier_badges GROUP BY tier")
	if err != nil {
		return nil, fmt.Errorf("failed to count badges: %w", err)
	}
	defer rows.Close()

	counts := make(map[profile.Tier]int)
	for rows.Next() {
		var tier, count int
		if err := rows.Scan(&tier, &count); err != nil {
			return nil, fmt.Errorf("failed to scan badge count: %w", err)
		}
		counts[profile.Tier(tier)] = count
	}

	return counts, rows.Err()
}
